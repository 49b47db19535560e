package chipdb

import "fmt"

// Each SetX is unique per id: attempting to set an attribute twice for the
// same entity is a programming error (the loader should have caught a
// duplicate definition before calling into the database), not a recoverable
// condition, so it panics rather than returning an error.

func (d *Database) setOnce(present func(EntityID) bool, id EntityID, attr string) {
	if present(id) {
		panic(fmt.Sprintf("chipdb: attribute %q already set for entity %d", attr, id))
	}
}

func (d *Database) SetName(id EntityID, name string) {
	d.setOnce(func(id EntityID) bool { _, ok := d.name[id]; return ok }, id, "name")
	d.name[id] = d.intern(name)
	if kind, ok := d.kindOf[id]; ok {
		d.byNameTable(kind)[name] = id
	}
}

func (d *Database) Name(id EntityID) (string, bool) {
	v, ok := d.name[id]
	return v, ok
}

func (d *Database) SetDescription(id EntityID, desc string) {
	d.setOnce(func(id EntityID) bool { _, ok := d.description[id]; return ok }, id, "description")
	d.description[id] = d.intern(desc)
}

func (d *Database) Description(id EntityID) (string, bool) {
	v, ok := d.description[id]
	return v, ok
}

func (d *Database) SetOffset(id EntityID, offset uint64) {
	d.setOnce(func(id EntityID) bool { _, ok := d.offset[id]; return ok }, id, "offset")
	d.offset[id] = offset
}

func (d *Database) Offset(id EntityID) (uint64, bool) {
	v, ok := d.offset[id]
	return v, ok
}

func (d *Database) SetSize(id EntityID, size uint64) {
	d.setOnce(func(id EntityID) bool { _, ok := d.size[id]; return ok }, id, "size")
	d.size[id] = size
}

func (d *Database) Size(id EntityID) (uint64, bool) {
	v, ok := d.size[id]
	return v, ok
}

func (d *Database) SetAccess(id EntityID, a Access) {
	d.setOnce(func(id EntityID) bool { _, ok := d.access[id]; return ok }, id, "access")
	d.access[id] = a
}

func (d *Database) GetAccess(id EntityID) (Access, bool) {
	v, ok := d.access[id]
	return v, ok
}

func (d *Database) SetResetValue(id EntityID, v uint64) {
	d.setOnce(func(id EntityID) bool { _, ok := d.resetValue[id]; return ok }, id, "reset_value")
	d.resetValue[id] = v
}

func (d *Database) ResetValue(id EntityID) (uint64, bool) {
	v, ok := d.resetValue[id]
	return v, ok
}

func (d *Database) SetResetMask(id EntityID, v uint64) {
	d.setOnce(func(id EntityID) bool { _, ok := d.resetMask[id]; return ok }, id, "reset_mask")
	d.resetMask[id] = v
}

func (d *Database) ResetMask(id EntityID) (uint64, bool) {
	v, ok := d.resetMask[id]
	return v, ok
}

func (d *Database) SetVersion(id EntityID, v string) {
	d.setOnce(func(id EntityID) bool { _, ok := d.version[id]; return ok }, id, "version")
	d.version[id] = d.intern(v)
}

func (d *Database) Version(id EntityID) (string, bool) {
	v, ok := d.version[id]
	return v, ok
}

func (d *Database) SetEnumRef(id, enum EntityID) {
	d.setOnce(func(id EntityID) bool { _, ok := d.enumRef[id]; return ok }, id, "enum_ref")
	d.enumRef[id] = enum
}

func (d *Database) EnumRef(id EntityID) (EntityID, bool) {
	v, ok := d.enumRef[id]
	return v, ok
}

// AddMode appends mode to id's modes set. Unlike the other attributes,
// modes accumulates across multiple calls (a field may resolve several
// space-separated mode names one at a time), so it is not subject to the
// set-once rule.
func (d *Database) AddMode(id, mode EntityID) {
	d.modes[id] = append(d.modes[id], mode)
}

func (d *Database) Modes(id EntityID) []EntityID {
	return d.modes[id]
}

func (d *Database) SetParent(child, parent EntityID) {
	d.setOnce(func(id EntityID) bool { _, ok := d.parent[id]; return ok }, child, "parent")
	d.parent[child] = parent
}

func (d *Database) Parent(id EntityID) (EntityID, bool) {
	v, ok := d.parent[id]
	return v, ok
}

// SetEnumFieldValue stores the numeric payload of a type.enum_field entity.
func (d *Database) SetEnumFieldValue(id EntityID, value int64) {
	d.setOnce(func(id EntityID) bool { _, ok := d.enumValue[id]; return ok }, id, "enum_field.value")
	d.enumValue[id] = value
}

func (d *Database) EnumFieldValue(id EntityID) (int64, bool) {
	v, ok := d.enumValue[id]
	return v, ok
}

// SetModePayload stores the {value, qualifier} payload of a type.mode entity.
func (d *Database) SetModePayload(id EntityID, p ModePayload) {
	d.setOnce(func(id EntityID) bool { _, ok := d.modePayload[id]; return ok }, id, "mode.payload")
	p.Value = d.intern(p.Value)
	p.Qualifier = d.intern(p.Qualifier)
	d.modePayload[id] = p
}

func (d *Database) ModePayload(id EntityID) (ModePayload, bool) {
	v, ok := d.modePayload[id]
	return v, ok
}

// MustParent returns id's parent, or 0 if id has none. Loaders use it
// when they already know structurally that a parent must be present
// (e.g. a field's enclosing register) and would rather get the zero
// value on a logic error than propagate a bool everywhere.
func (d *Database) MustParent(id EntityID) EntityID {
	return d.parent[id]
}

// Ancestors returns id's parent chain, nearest first, not including id itself.
func (d *Database) Ancestors(id EntityID) []EntityID {
	var out []EntityID
	cur := id
	for {
		p, ok := d.parent[cur]
		if !ok {
			return out
		}
		out = append(out, p)
		cur = p
	}
}
