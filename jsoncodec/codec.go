// Package jsoncodec implements spec.md §4.3's canonical JSON form for a
// chipdb.Database: a dump that is diff-stable against the insertion
// order the loaders built the database in, and a restore that rebuilds
// an equivalent database from it. It is grounded on encoding/json (the
// teacher corpus carries no third-party JSON library; see DESIGN.md)
// plus the hand-rolled OrderedObject in ordered.go for the one thing
// encoding/json's map support cannot do: preserve key order.
package jsoncodec

import (
	"encoding/json"
	"io"

	"github.com/chipdesc/chipdesc/chipdb"
)

// FormatVersion is written to every dump's "version" field.
const FormatVersion = "1"

// Document is the root of the canonical JSON form.
type Document struct {
	Version string                   `json:"version"`
	Types   *TypesDoc                `json:"types,omitempty"`
	Devices OrderedObject[DeviceDoc] `json:"devices,omitempty"`
}

// TypesDoc groups the hoisted, named top-level types. Only
// type.peripheral entities are ever named at the top level in practice
// (register groups, registers, fields, enums and modes are always
// nested under some peripheral).
type TypesDoc struct {
	Peripherals OrderedObject[TypeDoc] `json:"peripherals,omitempty"`
}

// TypeDoc is the wire form of a type.* or instance.* entity. Which
// fields are populated depends on kind; omitempty keeps the per-kind
// JSON compact instead of spraying every field at every node.
type TypeDoc struct {
	Description string  `json:"description,omitempty"`
	Offset      *uint64 `json:"offset,omitempty"`
	Size        *uint64 `json:"size,omitempty"`
	Access      string  `json:"access,omitempty"`
	ResetValue  *uint64 `json:"reset_value,omitempty"`
	ResetMask   *uint64 `json:"reset_mask,omitempty"`
	Version     string  `json:"version,omitempty"`

	// Modes holds the plain names of the type.mode entities a register
	// or field was restricted to.
	Modes []string `json:"modes,omitempty"`

	// EnumRef names a named enum in the owning peripheral's
	// children.enums. Enum embeds the full body instead, when the
	// field's enum has no name: spec.md §4.3 embeds unnamed types
	// inline at the slot that references them rather than hoisting
	// them anywhere.
	EnumRef string   `json:"enum_ref,omitempty"`
	Enum    *TypeDoc `json:"enum,omitempty"`

	// Values holds an enum's name->numeric-value map. Populated only
	// when this TypeDoc represents a type.enum.
	Values OrderedObject[int64] `json:"values,omitempty"`

	// Value/Qualifier are populated only for type.mode entities.
	Value     string `json:"value,omitempty"`
	Qualifier string `json:"qualifier,omitempty"`

	Children *ChildrenDoc `json:"children,omitempty"`

	// Type names the hoisted peripheral/register_group type an
	// instance targets. Populated only for instance.peripheral nodes.
	Type string `json:"type,omitempty"`
}

// ChildrenDoc groups a type's children by kind, each preserving
// insertion order within its own bucket.
type ChildrenDoc struct {
	Registers      OrderedObject[TypeDoc] `json:"registers,omitempty"`
	RegisterGroups OrderedObject[TypeDoc] `json:"register_groups,omitempty"`
	Fields         OrderedObject[TypeDoc] `json:"fields,omitempty"`
	Modes          OrderedObject[TypeDoc] `json:"modes,omitempty"`
	Enums          OrderedObject[TypeDoc] `json:"enums,omitempty"`
}

// DeviceDoc is the wire form of an instance.device.
type DeviceDoc struct {
	Version     string                 `json:"version,omitempty"`
	Peripherals OrderedObject[TypeDoc] `json:"peripherals,omitempty"`
	Interrupts  OrderedObject[TypeDoc] `json:"interrupts,omitempty"`
}

func u64(v uint64) *uint64 { return &v }

// Encode validates d and writes its canonical JSON form to w; nothing is
// written when d breaks an invariant.
func Encode(w io.Writer, d *chipdb.Database) error {
	if err := d.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToDocument(d))
}

// ToDocument converts d to its wire-form Document without serializing it,
// so callers that need the intermediate tree (internal/cache's msgpack
// encoding) don't have to round-trip through JSON text first.
func ToDocument(d *chipdb.Database) Document {
	doc := Document{Version: FormatVersion}

	for _, per := range d.Iter(chipdb.KindPeripheral) {
		name, hasName := d.Name(per)
		if !hasName {
			// Unnamed top-level peripheral types have no
			// instance-independent home; they are embedded inline at
			// the one place they do appear (an instance's "type"
			// slot, see encodeInstance).
			continue
		}
		if doc.Types == nil {
			doc.Types = &TypesDoc{}
		}
		doc.Types.Peripherals.Set(name, encodeType(d, per, chipdb.KindPeripheral))
	}

	for _, dev := range d.Iter(chipdb.KindDevice) {
		name, _ := d.Name(dev)
		doc.Devices.Set(name, encodeDevice(d, dev))
	}

	return doc
}

func encodeDevice(d *chipdb.Database, dev chipdb.EntityID) DeviceDoc {
	var out DeviceDoc
	if v, ok := d.Version(dev); ok {
		out.Version = v
	}
	for _, inst := range d.Children(dev, chipdb.KindPeripheralInst) {
		name, _ := d.Name(inst)
		out.Peripherals.Set(name, encodeInstance(d, inst))
	}
	for _, inst := range d.Children(dev, chipdb.KindInterruptInst) {
		name, _ := d.Name(inst)
		td := TypeDoc{}
		if off, ok := d.Offset(inst); ok {
			td.Offset = u64(off)
		}
		out.Interrupts.Set(name, td)
	}
	return out
}

func encodeInstance(d *chipdb.Database, inst chipdb.EntityID) TypeDoc {
	td := TypeDoc{}
	if off, ok := d.Offset(inst); ok {
		td.Offset = u64(off)
	}
	typeID, ok := d.InstanceType(inst)
	if !ok {
		return td
	}
	if typeName, hasName := d.Name(typeID); hasName {
		td.Type = typeName
		return td
	}
	// Anonymous target: embed the full type body inline instead of a
	// "type" reference, since there is no top-level name to point at.
	kind, _ := d.KindOf(typeID)
	embedded := encodeType(d, typeID, kind)
	td.Children = embedded.Children
	td.Description = embedded.Description
	return td
}

func encodeType(d *chipdb.Database, id chipdb.EntityID, kind chipdb.Kind) TypeDoc {
	var td TypeDoc
	if desc, ok := d.Description(id); ok {
		td.Description = desc
	}
	if off, ok := d.Offset(id); ok {
		td.Offset = u64(off)
	}
	if size, ok := d.Size(id); ok {
		td.Size = u64(size)
	}
	if access, ok := d.GetAccess(id); ok && access != chipdb.AccessReadWrite {
		td.Access = string(access)
	}
	if rv, ok := d.ResetValue(id); ok {
		td.ResetValue = u64(rv)
	}
	if rm, ok := d.ResetMask(id); ok {
		td.ResetMask = u64(rm)
	}
	if v, ok := d.Version(id); ok {
		td.Version = v
	}

	switch kind {
	case chipdb.KindMode:
		if p, ok := d.ModePayload(id); ok {
			td.Value = p.Value
			td.Qualifier = p.Qualifier
		}
		return td
	case chipdb.KindEnumField:
		return td
	case chipdb.KindEnum:
		for _, ef := range d.Children(id, chipdb.KindEnumField) {
			name, _ := d.Name(ef)
			v, _ := d.EnumFieldValue(ef)
			td.Values.Set(name, v)
		}
		return td
	}

	for _, modeID := range d.Modes(id) {
		td.Modes = append(td.Modes, modeName(d, modeID))
	}

	if enumID, ok := d.EnumRef(id); ok {
		if enumName, hasName := d.Name(enumID); hasName {
			td.EnumRef = enumName
		} else {
			e := encodeType(d, enumID, chipdb.KindEnum)
			td.Enum = &e
		}
	}

	children := &ChildrenDoc{}
	hasChildren := false
	for _, c := range d.Children(id, chipdb.KindRegisterGroup) {
		name, _ := d.Name(c)
		children.RegisterGroups.Set(name, encodeType(d, c, chipdb.KindRegisterGroup))
		hasChildren = true
	}
	for _, c := range d.Children(id, chipdb.KindRegister) {
		name, _ := d.Name(c)
		children.Registers.Set(name, encodeType(d, c, chipdb.KindRegister))
		hasChildren = true
	}
	for _, c := range d.Children(id, chipdb.KindField) {
		name, _ := d.Name(c)
		children.Fields.Set(name, encodeType(d, c, chipdb.KindField))
		hasChildren = true
	}
	for _, c := range d.Children(id, chipdb.KindMode) {
		name, _ := d.Name(c)
		children.Modes.Set(name, encodeType(d, c, chipdb.KindMode))
		hasChildren = true
	}
	for _, c := range d.Children(id, chipdb.KindEnum) {
		// Anonymous enums are never hoisted into children.enums; they
		// live only inline at the field that references them.
		if name, hasName := d.Name(c); hasName {
			children.Enums.Set(name, encodeType(d, c, chipdb.KindEnum))
			hasChildren = true
		}
	}
	if hasChildren {
		td.Children = children
	}
	return td
}

// modeName returns the plain mode name a register or field's modes
// array entry is, per spec.md §4.3 - just the name, not the mode's own
// {value, qualifier} payload (already encoded separately on the
// type.mode entity itself), matching resolveModePath's counterpart on
// the decode side.
func modeName(d *chipdb.Database, modeID chipdb.EntityID) string {
	name, _ := d.Name(modeID)
	return name
}
