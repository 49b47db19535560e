// Package atdf loads Atmel/Microchip ATDF vendor description documents
// into a chipdb.Database, per spec.md §6's ATDF dialect keys.
package atdf

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/load"
)

const component = "atdf"

type xmlRoot struct {
	XMLName xml.Name      `xml:"avr-tools-device-file"`
	Modules []xmlModule   `xml:"modules>module"`
	Devices []xmlDevice   `xml:"devices>device"`
}

type xmlModule struct {
	Name           string            `xml:"name,attr"`
	Caption        string            `xml:"caption,attr"`
	RegisterGroups []xmlRegisterGroup `xml:"register-group"`
	ValueGroups    []xmlValueGroup    `xml:"value-group"`
	Modes          []xmlMode          `xml:"modes>mode"`
}

type xmlMode struct {
	Name      string `xml:"name,attr"`
	Qualifier string `xml:"qualifier,attr"`
	Value     string `xml:"value,attr"`
	Caption   string `xml:"caption,attr"`
}

type xmlRegisterGroup struct {
	Name      string             `xml:"name,attr"`
	Registers []xmlRegister      `xml:"register"`
	Groups    []xmlRegisterGroup `xml:"register-group"`
}

type xmlRegister struct {
	Name      string        `xml:"name,attr"`
	Caption   string        `xml:"caption,attr"`
	Offset    string        `xml:"offset,attr"`
	Size      string        `xml:"size,attr"`
	RW        string        `xml:"rw,attr"`
	Mask      string        `xml:"mask,attr"`
	Modes     string        `xml:"modes,attr"`
	Bitfields []xmlBitfield `xml:"bitfield"`
}

type xmlBitfield struct {
	Name    string `xml:"name,attr"`
	Caption string `xml:"caption,attr"`
	Mask    string `xml:"mask,attr"`
	Modes   string `xml:"modes,attr"`
	Values  string `xml:"values,attr"`
}

type xmlValueGroup struct {
	Name   string     `xml:"name,attr"`
	Values []xmlValue `xml:"value"`
}

type xmlValue struct {
	Name    string `xml:"name,attr"`
	Value   string `xml:"value,attr"`
	Caption string `xml:"caption,attr"`
}

type xmlDevice struct {
	Name         string                  `xml:"name,attr"`
	Architecture string                  `xml:"architecture,attr"`
	Family       string                  `xml:"family,attr"`
	Series       string                  `xml:"series,attr"`
	Peripherals  []xmlPeripheralModule   `xml:"peripherals>module"`
	Interrupts   []xmlInterrupt          `xml:"interrupts>interrupt"`
}

// xmlPeripheralModule is a <module> entry under a device's <peripherals>,
// one per module this device instantiates; it is distinct from the
// top-level <modules><module> type declaration that shares its "name".
type xmlPeripheralModule struct {
	Name      string              `xml:"name,attr"`
	Instances []xmlModuleInstance `xml:"instance"`
}

type xmlModuleInstance struct {
	Name          string                   `xml:"name,attr"`
	RegisterGroup []xmlInstanceRegisterRef `xml:"register-group"`
}

type xmlInstanceRegisterRef struct {
	NameRef string `xml:"name-in-module,attr"`
	Offset  string `xml:"offset,attr"`
}

type xmlInterrupt struct {
	Name    string `xml:"name,attr"`
	Index   string `xml:"index,attr"`
	Caption string `xml:"caption,attr"`
}

// Loader implements load.Loader for the ATDF dialect.
type Loader struct{}

var _ load.Loader = Loader{}

func (Loader) Load(ctx context.Context, r io.Reader) (*chipdb.Database, error) {
	var doc xmlRoot
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("atdf: decode: %w", err)
	}
	if len(doc.Devices) == 0 {
		return nil, &load.ErrMissingIdentity{Dialect: component, Missing: "name"}
	}

	d := chipdb.New()
	modulesByName := make(map[string]chipdb.EntityID)
	// groupsByModule[moduleName][groupName] resolves an instance's
	// name-in-module reference to the concrete type.peripheral or
	// type.register_group it targets (I6's only instance->type edge).
	// A module name is also its own key, mapping to the peripheral
	// itself, covering both the inlined case and an instance that
	// targets the whole peripheral directly.
	groupsByModule := make(map[string]map[string]chipdb.EntityID)
	valueGroupsByName := make(map[string][]xmlValue)

	for _, m := range doc.Modules {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if m.Name == "" {
			continue
		}
		for _, vg := range m.ValueGroups {
			valueGroupsByName[vg.Name] = vg.Values
		}
		per := d.CreatePeripheral(0, m.Name)
		modulesByName[m.Name] = per
		groups := map[string]chipdb.EntityID{m.Name: per}
		groupsByModule[m.Name] = groups

		for _, xm := range m.Modes {
			if xm.Name == "" {
				continue
			}
			d.CreateMode(per, xm.Name, chipdb.ModePayload{Value: xm.Value, Qualifier: xm.Qualifier})
		}

		// Inlining rule: a single register-group named like the module
		// is flattened directly into the peripheral.
		if len(m.RegisterGroups) == 1 && m.RegisterGroups[0].Name == m.Name {
			loadRegisterGroup(d, per, per, m.RegisterGroups[0], valueGroupsByName)
			for _, sub := range m.RegisterGroups[0].Groups {
				loadNamedRegisterGroup(d, per, per, sub, valueGroupsByName, groups)
			}
		} else {
			for _, rg := range m.RegisterGroups {
				loadNamedRegisterGroup(d, per, per, rg, valueGroupsByName, groups)
			}
		}
	}

	for _, xd := range doc.Devices {
		if xd.Name == "" {
			d.Diagnostics.Skip(component, "device with no name", 0)
			continue
		}
		device := d.CreateDevice(xd.Name)
		if xd.Architecture == "" {
			return nil, &load.ErrMissingIdentity{Dialect: component, Missing: "architecture"}
		}
		d.SetDescription(device, fmt.Sprintf("%s/%s/%s", xd.Architecture, xd.Family, xd.Series))

		for _, mod := range xd.Peripherals {
			groups, ok := groupsByModule[mod.Name]
			if !ok {
				d.Diagnostics.Skip(component, "instance references unknown module "+mod.Name, device)
				continue
			}
			for _, mi := range mod.Instances {
				nameInModule := mod.Name
				var offsetStr string
				if len(mi.RegisterGroup) > 0 {
					if mi.RegisterGroup[0].NameRef != "" {
						nameInModule = mi.RegisterGroup[0].NameRef
					}
					offsetStr = mi.RegisterGroup[0].Offset
				}
				typeID, ok := groups[nameInModule]
				if !ok {
					d.Diagnostics.Skip(component, "instance "+mi.Name+" references unknown register-group "+nameInModule, device)
					continue
				}
				inst := d.CreatePeripheralInstance(device, mi.Name, typeID)
				if off, err := parseInt(offsetStr); err == nil {
					d.SetOffset(inst, off)
				}
			}
		}
		for _, xi := range xd.Interrupts {
			if xi.Name == "" {
				continue
			}
			irq := d.CreateInterruptInstance(device, xi.Name)
			if v, err := parseInt(xi.Index); err == nil {
				d.SetOffset(irq, v)
			}
			if xi.Caption != "" {
				d.SetDescription(irq, xi.Caption)
			}
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func loadNamedRegisterGroup(d *chipdb.Database, topScope, parent chipdb.EntityID, rg xmlRegisterGroup, valueGroups map[string][]xmlValue, groups map[string]chipdb.EntityID) {
	group := d.CreateRegisterGroup(parent, rg.Name)
	if groups != nil && rg.Name != "" {
		groups[rg.Name] = group
	}
	loadRegisterGroup(d, topScope, group, rg, valueGroups)
	for _, sub := range rg.Groups {
		loadNamedRegisterGroup(d, topScope, group, sub, valueGroups, groups)
	}
}

func loadRegisterGroup(d *chipdb.Database, topScope, scope chipdb.EntityID, rg xmlRegisterGroup, valueGroups map[string][]xmlValue) {
	for _, reg := range rg.Registers {
		loadRegister(d, topScope, scope, reg, valueGroups)
	}
}

func loadRegister(d *chipdb.Database, topScope, parent chipdb.EntityID, xr xmlRegister, valueGroups map[string][]xmlValue) {
	if xr.Name == "" {
		d.Diagnostics.Skip(component, "register with no name", parent)
		return
	}
	size, err := parseInt(xr.Size)
	if err != nil {
		size = 1 // ATDF encodes register size in bytes; default to a byte register
	}
	sizeBits := size * 8
	offset, err := parseInt(xr.Offset)
	if err != nil {
		d.Diagnostics.Skip(component, "register "+xr.Name+": invalid offset: "+err.Error(), parent)
		return
	}
	reg := d.CreateRegister(parent, xr.Name)
	if xr.Caption != "" {
		d.SetDescription(reg, xr.Caption)
	}
	d.SetOffset(reg, offset)
	d.SetSize(reg, sizeBits)
	if a, ok := parseAccess(xr.RW); ok {
		d.SetAccess(reg, a)
	}
	if xr.Modes != "" {
		load.ResolveModeNames(d, component, topScope, reg, xr.Modes)
	}

	for _, bf := range xr.Bitfields {
		loadBitfield(d, topScope, reg, bf, valueGroups)
	}
}

func loadBitfield(d *chipdb.Database, topScope, reg chipdb.EntityID, bf xmlBitfield, valueGroups map[string][]xmlValue) {
	if bf.Name == "" {
		d.Diagnostics.Skip(component, "bitfield with no name", reg)
		return
	}
	mask, err := parseInt(bf.Mask)
	if err != nil {
		d.Diagnostics.Skip(component, "bitfield "+bf.Name+": invalid mask: "+err.Error(), reg)
		return
	}

	ranges, isSplit := load.SplitDiscontiguousMask(mask)
	if len(ranges) == 0 {
		d.Diagnostics.Skip(component, "bitfield "+bf.Name+": empty mask", reg)
		return
	}

	if !isSplit {
		fld := d.CreateField(reg, bf.Name)
		if bf.Caption != "" {
			d.SetDescription(fld, bf.Caption)
		}
		d.SetOffset(fld, uint64(ranges[0].Lsb))
		d.SetSize(fld, uint64(ranges[0].Width()))
		if bf.Modes != "" {
			load.ResolveModeNames(d, component, topScope, fld, bf.Modes)
		}
		if bf.Values != "" {
			attachEnum(d, topScope, fld, bf.Values, valueGroups)
		}
		return
	}

	// Discontiguous mask: split into N width-1 fields named "<Name>_bitK".
	// Enum attachment is dropped for split fields, per spec.md §4.2.
	for _, rng := range ranges {
		name := fmt.Sprintf("%s_bit%d", bf.Name, rng.Lsb)
		fld := d.CreateField(reg, name)
		d.SetOffset(fld, uint64(rng.Lsb))
		d.SetSize(fld, uint64(rng.Width()))
		if bf.Modes != "" {
			load.ResolveModeNames(d, component, topScope, fld, bf.Modes)
		}
	}
}

func attachEnum(d *chipdb.Database, topScope, fld chipdb.EntityID, valueGroupName string, valueGroups map[string][]xmlValue) {
	values, ok := valueGroups[valueGroupName]
	if !ok {
		d.Diagnostics.Warn(component, "unresolved value-group "+valueGroupName, fld)
		return
	}
	enum := d.CreateEnum(topScope, valueGroupName)
	for _, v := range values {
		if v.Name == "" {
			continue
		}
		n, err := parseInt(v.Value)
		if err != nil {
			d.Diagnostics.Warn(component, "value "+v.Name+": "+err.Error(), enum)
			continue
		}
		d.CreateEnumField(enum, v.Name, int64(n))
	}
	d.SetEnumRef(fld, enum)
}

func parseAccess(rw string) (chipdb.Access, bool) {
	switch strings.ToUpper(rw) {
	case "R":
		return chipdb.AccessReadOnly, true
	case "W":
		return chipdb.AccessWriteOnly, true
	case "RW", "":
		return chipdb.AccessReadWrite, rw != ""
	default:
		return "", false
	}
}

func parseInt(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty integer literal")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
