package chipdb

// The Create* builders do the common "create + register + attach" dance
// in one call, per spec.md §4.1, so loaders do not repeat the same three
// lines for every peripheral, register, field and enum they discover.
// Each returns the fresh id; attributes beyond name/parent are set by the
// caller afterwards with the Set* methods.

// CreatePeripheral creates a type.peripheral, optionally attaching it as
// a child of parent (pass 0 for a top-level, unparented type).
func (d *Database) CreatePeripheral(parent EntityID, name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindPeripheral)
	if parent != 0 {
		d.AddChild(parent, id, KindPeripheral)
	}
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// CreateRegisterGroup creates a type.register_group as a child of parent.
func (d *Database) CreateRegisterGroup(parent EntityID, name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindRegisterGroup)
	d.AddChild(parent, id, KindRegisterGroup)
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// CreateRegister creates a type.register as a child of parent.
func (d *Database) CreateRegister(parent EntityID, name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindRegister)
	d.AddChild(parent, id, KindRegister)
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// CreateField creates a type.field as a child of parent (a register).
func (d *Database) CreateField(parent EntityID, name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindField)
	d.AddChild(parent, id, KindField)
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// CreateEnum creates a type.enum. parent is 0 for an anonymous enum that
// is embedded inline at the field that references it rather than
// attached as a named child.
func (d *Database) CreateEnum(parent EntityID, name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindEnum)
	if parent != 0 {
		d.AddChild(parent, id, KindEnum)
	}
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// CreateEnumField creates a type.enum_field as a child of an enum, with
// its numeric payload.
func (d *Database) CreateEnumField(parent EntityID, name string, value int64) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindEnumField)
	d.AddChild(parent, id, KindEnumField)
	if name != "" {
		d.SetName(id, name)
	}
	d.SetEnumFieldValue(id, value)
	return id
}

// CreateMode creates a type.mode as a child of parent, with its payload.
func (d *Database) CreateMode(parent EntityID, name string, payload ModePayload) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindMode)
	d.AddChild(parent, id, KindMode)
	if name != "" {
		d.SetName(id, name)
	}
	d.SetModePayload(id, payload)
	return id
}

// CreateDevice creates an instance.device, the forest root for all
// instance.peripheral and instance.interrupt children.
func (d *Database) CreateDevice(name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindDevice)
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// CreatePeripheralInstance creates an instance.peripheral under device,
// targeting typeID (a type.peripheral or type.register_group, per I6).
func (d *Database) CreatePeripheralInstance(device EntityID, name string, typeID EntityID) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindPeripheralInst)
	d.AddChild(device, id, KindPeripheralInst)
	if name != "" {
		d.SetName(id, name)
	}
	d.instanceType[id] = typeID
	return id
}

// CreateInterruptInstance creates an instance.interrupt under device.
func (d *Database) CreateInterruptInstance(device EntityID, name string) EntityID {
	id := d.CreateEntity()
	d.RegisterKind(id, KindInterruptInst)
	d.AddChild(device, id, KindInterruptInst)
	if name != "" {
		d.SetName(id, name)
	}
	return id
}

// InstanceType returns the type.peripheral or type.register_group that
// an instance.peripheral targets (I6's only cross-reference from
// instances to types).
func (d *Database) InstanceType(instance EntityID) (EntityID, bool) {
	v, ok := d.instanceType[instance]
	return v, ok
}
