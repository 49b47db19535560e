package jsoncodec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chipdesc/chipdesc/chipdb"
)

// Decode reads a canonical JSON document from r and rebuilds an
// equivalent Database, creating entities in the same parent-before-child
// traversal order the generator expects (spec.md §4.3's round-trip
// requirement, R1).
func Decode(r io.Reader) (*chipdb.Database, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("jsoncodec: decode: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument rebuilds a Database from an already-parsed Document, the
// counterpart to ToDocument. internal/cache uses this to restore a
// database from its msgpack-decoded cache entry without re-parsing JSON.
func FromDocument(doc Document) (*chipdb.Database, error) {
	d := chipdb.New()

	if doc.Types != nil {
		for _, e := range doc.Types.Peripherals {
			decodeType(d, 0, chipdb.KindPeripheral, e.Name, e.Value)
		}
	}

	for _, e := range doc.Devices {
		decodeDevice(d, e.Name, e.Value)
	}

	return d, d.Validate()
}

func decodeDevice(d *chipdb.Database, name string, doc DeviceDoc) {
	dev := d.CreateDevice(name)
	if doc.Version != "" {
		d.SetVersion(dev, doc.Version)
	}
	for _, e := range doc.Peripherals {
		decodeInstance(d, dev, e.Name, e.Value)
	}
	for _, e := range doc.Interrupts {
		inst := d.CreateInterruptInstance(dev, e.Name)
		if e.Value.Offset != nil {
			d.SetOffset(inst, *e.Value.Offset)
		}
	}
}

func decodeInstance(d *chipdb.Database, dev chipdb.EntityID, name string, td TypeDoc) {
	var typeID chipdb.EntityID
	if td.Type != "" {
		if id, err := d.ByName(chipdb.KindPeripheral, td.Type); err == nil {
			typeID = id
		} else if id, err := d.ByName(chipdb.KindRegisterGroup, td.Type); err == nil {
			typeID = id
		}
	} else {
		// Anonymous target: rebuild the embedded body as an unnamed
		// type.peripheral that exists only to be targeted by this one
		// instance.
		typeID = decodeType(d, 0, chipdb.KindPeripheral, "", td)
	}
	inst := d.CreatePeripheralInstance(dev, name, typeID)
	if td.Offset != nil {
		d.SetOffset(inst, *td.Offset)
	}
}

// decodeType rebuilds one type.* subtree and returns its id. parent is 0
// for a top-level, unparented type (hoisted peripheral types).
func decodeType(d *chipdb.Database, parent chipdb.EntityID, kind chipdb.Kind, name string, td TypeDoc) chipdb.EntityID {
	var id chipdb.EntityID
	switch kind {
	case chipdb.KindPeripheral:
		id = d.CreatePeripheral(parent, name)
	case chipdb.KindRegisterGroup:
		id = d.CreateRegisterGroup(parent, name)
	case chipdb.KindRegister:
		id = d.CreateRegister(parent, name)
	case chipdb.KindField:
		id = d.CreateField(parent, name)
	default:
		panic(fmt.Sprintf("jsoncodec: decodeType called with unsupported kind %s", kind))
	}

	applyScalarAttrs(d, id, td)

	if kind == chipdb.KindRegister || kind == chipdb.KindField {
		if td.EnumRef != "" {
			if enumID, err := d.ByName(chipdb.KindEnum, td.EnumRef); err == nil {
				d.SetEnumRef(id, enumID)
			}
		} else if td.Enum != nil {
			enumID := decodeEnum(d, 0, "", *td.Enum)
			d.SetEnumRef(id, enumID)
		}
	}

	if td.Children != nil {
		// Modes and enums are rebuilt first so the modes and enum_ref
		// entries of the registers and fields below can resolve them.
		for _, e := range td.Children.Modes {
			d.CreateMode(id, e.Name, chipdb.ModePayload{Value: e.Value.Value, Qualifier: e.Value.Qualifier})
		}
		for _, e := range td.Children.Enums {
			decodeEnum(d, id, e.Name, e.Value)
		}
		for _, e := range td.Children.RegisterGroups {
			decodeType(d, id, chipdb.KindRegisterGroup, e.Name, e.Value)
		}
		for _, e := range td.Children.Registers {
			decodeType(d, id, chipdb.KindRegister, e.Name, e.Value)
		}
		for _, e := range td.Children.Fields {
			decodeType(d, id, chipdb.KindField, e.Name, e.Value)
		}
	}

	for _, path := range td.Modes {
		if modeID, ok := resolveModePath(d, parent, id, path); ok {
			d.AddMode(id, modeID)
		}
	}

	return id
}

func decodeEnum(d *chipdb.Database, parent chipdb.EntityID, name string, td TypeDoc) chipdb.EntityID {
	id := d.CreateEnum(parent, name)
	if td.Size != nil {
		d.SetSize(id, *td.Size)
	}
	for _, e := range td.Values {
		d.CreateEnumField(id, e.Name, e.Value)
	}
	return id
}

func applyScalarAttrs(d *chipdb.Database, id chipdb.EntityID, td TypeDoc) {
	if td.Description != "" {
		d.SetDescription(id, td.Description)
	}
	if td.Offset != nil {
		d.SetOffset(id, *td.Offset)
	}
	if td.Size != nil {
		d.SetSize(id, *td.Size)
	}
	if td.Access != "" {
		d.SetAccess(id, chipdb.Access(td.Access))
	} else {
		d.SetAccess(id, chipdb.AccessReadWrite)
	}
	if td.ResetValue != nil {
		d.SetResetValue(id, *td.ResetValue)
	}
	if td.ResetMask != nil {
		d.SetResetMask(id, *td.ResetMask)
	}
	if td.Version != "" {
		d.SetVersion(id, td.Version)
	}
}

// resolveModePath resolves a "ModeGroup.qualifier"-or-plain-name path
// against the owning peripheral's (or register_group's) type.mode
// children, the same scope chosen by load.ResolveModeNames at load time.
func resolveModePath(d *chipdb.Database, scope, leaf chipdb.EntityID, path string) (chipdb.EntityID, bool) {
	name := path
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			name = path[:i]
			break
		}
	}
	for _, anc := range append([]chipdb.EntityID{scope}, d.Ancestors(leaf)...) {
		for _, m := range d.Children(anc, chipdb.KindMode) {
			if n, _ := d.Name(m); n == name {
				return m, true
			}
		}
	}
	return 0, false
}
