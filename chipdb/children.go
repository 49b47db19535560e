package chipdb

// Edges supported between a parent kind and its children, per spec.md §3.
// AddChild does not itself enforce this table; Validate does, so that a
// loader mid-construction (e.g. while resolving a forward reference) is
// not punished for transient partial state.
var edgeTable = map[Kind]map[Kind]bool{
	KindDevice: {
		KindPeripheralInst: true,
		KindInterruptInst:  true,
	},
	KindPeripheral: {
		KindRegister:      true,
		KindRegisterGroup: true,
		KindMode:          true,
		KindEnum:          true,
	},
	KindRegisterGroup: {
		KindRegister:      true,
		KindRegisterGroup: true,
		KindMode:          true,
	},
	KindRegister: {
		KindField: true,
		KindMode:  true,
	},
	KindEnum: {
		KindEnumField: true,
	},
	KindPeripheralInst: {
		KindRegisterGroup: true, // via instance.peripheral -> instance.register_group, see §3; modeled as a plain child edge
	},
}

// AddChild records child as a child of parent of the given kind, and sets
// child's parent attribute. It does not touch the name index; SetName
// files a name under the entity's kind, not under its parent.
func (d *Database) AddChild(parent, child EntityID, childKind Kind) {
	byKind, ok := d.children[parent]
	if !ok {
		byKind = make(map[Kind][]EntityID)
		d.children[parent] = byKind
	}
	byKind[childKind] = append(byKind[childKind], child)
	d.SetParent(child, parent)
}

// Children returns parent's children of the given kind, in insertion order.
func (d *Database) Children(parent EntityID, childKind Kind) []EntityID {
	return d.children[parent][childKind]
}
