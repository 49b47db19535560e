// Package gen walks a chipdb.Database and emits the Zig-flavored
// register DSL described in spec.md §4.4: a `devices` namespace of
// typed pointers and a `types` namespace of packed struct/union
// peripheral records, relying on an external `mmio` import for
// Mmio(size, T) and an external pretty-printer for final formatting
// (the trailing NUL byte this package appends is that printer's parse
// sentinel).
package gen

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chipdesc/chipdesc/chipdb"
)

const prologue = "const mmio = @import(\"mmio\");\nconst Mmio = mmio.Mmio;\nconst ptr = mmio.ptr;\n\n"

// Generator holds the read-only state threaded through one emission
// pass. It is not safe for concurrent use; create a fresh Generator (via
// Generate) per database.
type Generator struct {
	d *chipdb.Database
}

// Generate writes d's canonical Zig-flavored source text to w, per
// spec.md §4.4's emission order: prologue, devices block, types block,
// trailing NUL. It calls d.Validate first and returns its error without
// writing anything when d breaks an invariant.
func Generate(w io.Writer, d *chipdb.Database) error {
	if err := d.Validate(); err != nil {
		return err
	}
	g := &Generator{d: d}
	var buf strings.Builder
	buf.WriteString(prologue)

	if devices := d.Iter(chipdb.KindDevice); len(devices) > 0 {
		g.emitDevicesBlock(&buf, devices)
	}

	named := namedTopLevelPeripherals(d)
	if len(named) > 0 {
		g.emitTypesBlock(&buf, named)
	}

	buf.WriteByte(0)
	_, err := io.WriteString(w, buf.String())
	return err
}

// NamedPeripherals returns every top-level, named type.peripheral in d,
// in the same order Generate would emit them in. The split-file writer
// (SplitWriter in gen/writer.go) uses this to fan one file-write per
// peripheral out across workers.
func NamedPeripherals(d *chipdb.Database) []chipdb.EntityID {
	return namedTopLevelPeripherals(d)
}

// GeneratePeripheralFile writes a single named peripheral's record to w,
// wrapped in its own "types" namespace, for --split-dir mode where each
// peripheral gets its own file instead of one shared stream. The
// peripheral must be one returned by NamedPeripherals.
func GeneratePeripheralFile(w io.Writer, d *chipdb.Database, id chipdb.EntityID) error {
	g := &Generator{d: d}
	name, ok := d.Name(id)
	if !ok {
		return fmt.Errorf("gen: peripheral %d has no name", id)
	}
	record, err := g.safePeripheralRecord(id)
	if err != nil {
		return fmt.Errorf("gen: peripheral %q: %w", name, err)
	}
	var buf strings.Builder
	buf.WriteString(prologue)
	buf.WriteString("pub const types = struct {\n")
	buf.WriteString(indent(record))
	buf.WriteString("\n};\n")
	_, err = io.WriteString(w, buf.String())
	return err
}

// GenerateDevicesFile writes the devices block alone to w, for
// --split-dir mode's shared devices.zig file.
func GenerateDevicesFile(w io.Writer, d *chipdb.Database) error {
	g := &Generator{d: d}
	var buf strings.Builder
	buf.WriteString(prologue)
	if devices := d.Iter(chipdb.KindDevice); len(devices) > 0 {
		g.emitDevicesBlock(&buf, devices)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func namedTopLevelPeripherals(d *chipdb.Database) []chipdb.EntityID {
	var out []chipdb.EntityID
	for _, per := range d.Iter(chipdb.KindPeripheral) {
		if _, ok := d.Name(per); ok {
			out = append(out, per)
		}
	}
	return out
}

func (g *Generator) emitDevicesBlock(buf *strings.Builder, devices []chipdb.EntityID) {
	buf.WriteString("pub const devices = struct {\n")
	for _, dev := range devices {
		name, _ := g.d.Name(dev)
		fmt.Fprintf(buf, "    pub const %s = struct {\n", name)
		for _, inst := range g.d.Children(dev, chipdb.KindPeripheralInst) {
			line, err := g.safeInstanceLine(inst)
			if err != nil {
				g.d.Diagnostics.Skip("gen", fmt.Sprintf("instance %d: %v", inst, err), inst)
				continue
			}
			buf.WriteString("        ")
			buf.WriteString(line)
			buf.WriteString("\n")
		}
		buf.WriteString("    };\n")
	}
	buf.WriteString("};\n")
}

// safeInstanceLine renders one "pub const NAME = ptr(...)" line,
// recovering from a panic in the underlying peripheral body emission so
// one malformed instance cannot take down the whole devices block.
func (g *Generator) safeInstanceLine(inst chipdb.EntityID) (line string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	instName, ok := g.d.Name(inst)
	if !ok {
		return "", fmt.Errorf("instance has no name")
	}
	off, ok := g.d.Offset(inst)
	if !ok {
		return "", fmt.Errorf("instance has no offset")
	}
	typeID, ok := g.d.InstanceType(inst)
	if !ok {
		return "", fmt.Errorf("instance has no type")
	}
	var typeExpr string
	if _, named := g.d.Name(typeID); named {
		typeExpr = g.typePath(typeID)
	} else {
		typeExpr = g.emitAnonymousInline(typeID)
	}
	return fmt.Sprintf("pub const %s = ptr(%s, 0x%x);", instName, typeExpr, off), nil
}

func (g *Generator) emitTypesBlock(buf *strings.Builder, named []chipdb.EntityID) {
	buf.WriteString("pub const types = struct {\n")
	for _, per := range named {
		record, err := g.safePeripheralRecord(per)
		if err != nil {
			name, _ := g.d.Name(per)
			g.d.Diagnostics.Skip("gen", fmt.Sprintf("peripheral %q: %v", name, err), per)
			continue
		}
		buf.WriteString(indent(record))
		buf.WriteString("\n")
	}
	buf.WriteString("};\n")
}

// safePeripheralRecord recovers from a panic while emitting one
// peripheral's record, per spec.md §4.4's per-peripheral failure
// isolation.
func (g *Generator) safePeripheralRecord(id chipdb.EntityID) (record string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	name, _ := g.d.Name(id)
	return g.emitPeripheralRecord(id, name), nil
}

// typePath constructs the fully-qualified "types.A.B.C" reference for
// id by walking its parent chain to the root and joining names with ".".
func (g *Generator) typePath(id chipdb.EntityID) string {
	var names []string
	cur := id
	for {
		name, _ := g.d.Name(cur)
		names = append([]string{name}, names...)
		p, ok := g.d.Parent(cur)
		if !ok {
			break
		}
		cur = p
	}
	return "types." + strings.Join(names, ".")
}

func (g *Generator) emitAnonymousInline(id chipdb.EntityID) string {
	qualifier, body := g.emitPeripheralBody(id)
	if body == "" {
		return fmt.Sprintf("%sstruct {}", qualifier)
	}
	return fmt.Sprintf("%sstruct {\n%s\n}", qualifier, indent(body))
}

func (g *Generator) emitPeripheralRecord(id chipdb.EntityID, name string) string {
	if modes := g.d.Children(id, chipdb.KindMode); len(modes) > 0 {
		return g.emitModeUnion(id, name, modes)
	}
	qualifier, body := g.emitPeripheralBody(id)
	if body == "" {
		return fmt.Sprintf("pub const %s = %sstruct {};", name, qualifier)
	}
	return fmt.Sprintf("pub const %s = %sstruct {\n%s\n};", name, qualifier, indent(body))
}

// emitPeripheralBody renders a peripheral or register_group's own
// members: named enum declarations, un-offset nested register groups
// (pure namespaces, always present, never cursor-positioned), then the
// byte-offset-cursor layout of its offset-bearing registers and
// register groups. It reports whether the type counts as zero-sized per
// spec.md §4.4 ("no registers and no offset-bearing register groups").
func (g *Generator) emitPeripheralBody(id chipdb.EntityID) (qualifier, body string) {
	var parts []string

	for _, e := range g.d.Children(id, chipdb.KindEnum) {
		if n, ok := g.d.Name(e); ok {
			parts = append(parts, g.emitEnum(e, n))
		}
	}

	for _, rg := range g.d.Children(id, chipdb.KindRegisterGroup) {
		if _, hasOffset := g.d.Offset(rg); hasOffset {
			continue // positioned by the cursor layout below instead
		}
		name, _ := g.d.Name(rg)
		sub, _ := g.groupLayout(rg)
		if sub == "" {
			parts = append(parts, fmt.Sprintf("%s: packed struct {},", name))
		} else {
			parts = append(parts, fmt.Sprintf("%s: packed struct {\n%s\n},", name, indent(sub)))
		}
	}

	units := g.gatherUnits(id)
	layoutBody, _ := renderChosen(resolveOverlaps(units, g.d), g.d)
	if layoutBody != "" {
		parts = append(parts, layoutBody)
	}

	if len(units) == 0 {
		qualifier = ""
	} else {
		qualifier = "packed "
	}
	return qualifier, strings.Join(parts, "\n")
}

// layoutUnit is one candidate occupant of a byte-offset cursor walk: a
// register or an offset-bearing register_group.
type layoutUnit struct {
	id     chipdb.EntityID
	kind   chipdb.Kind
	offset uint64
	size   uint64 // bytes
	render func() string
}

// gatherUnits collects parent's offset-bearing register and
// register_group children as layout candidates, logging and dropping
// any that are missing the attributes the layout needs.
func (g *Generator) gatherUnits(parent chipdb.EntityID) []layoutUnit {
	var units []layoutUnit

	for _, r := range g.d.Children(parent, chipdb.KindRegister) {
		off, hasOff := g.d.Offset(r)
		if !hasOff {
			g.d.Diagnostics.Skip("gen", "register missing offset", r)
			continue
		}
		size, hasSize := g.d.Size(r)
		if !hasSize {
			g.d.Diagnostics.Skip("gen", "register missing size", r)
			continue
		}
		if size%8 != 0 {
			g.d.Diagnostics.Skip("gen", "register size is not a multiple of 8 bits", r)
			continue
		}
		id := r
		units = append(units, layoutUnit{
			id: id, kind: chipdb.KindRegister, offset: off, size: size / 8,
			render: func() string {
				name, _ := g.d.Name(id)
				return fmt.Sprintf("%s: %s,", name, g.emitRegisterBody(id))
			},
		})
	}

	for _, rg := range g.d.Children(parent, chipdb.KindRegisterGroup) {
		off, hasOff := g.d.Offset(rg)
		if !hasOff {
			continue // a pure namespace group, handled by emitPeripheralBody directly
		}
		id := rg
		body, size := g.groupLayout(id)
		name, _ := g.d.Name(id)
		units = append(units, layoutUnit{
			id: id, kind: chipdb.KindRegisterGroup, offset: off, size: size,
			render: func() string {
				if body == "" {
					return fmt.Sprintf("%s: packed struct {},", name)
				}
				return fmt.Sprintf("%s: packed struct {\n%s\n},", name, indent(body))
			},
		})
	}

	return units
}

// resolveOverlaps sorts units by offset and, at each offset shared by
// more than one unit, keeps the smallest (B2) and logs the rest as
// skipped.
func resolveOverlaps(units []layoutUnit, d *chipdb.Database) []layoutUnit {
	sort.SliceStable(units, func(i, j int) bool { return units[i].offset < units[j].offset })
	var chosen []layoutUnit
	for i := 0; i < len(units); {
		j := i
		for j < len(units) && units[j].offset == units[i].offset {
			j++
		}
		group := units[i:j]
		best := group[0]
		for _, u := range group[1:] {
			if u.size < best.size {
				best = u
			}
		}
		for _, u := range group {
			if u.id != best.id {
				d.Diagnostics.Skip("gen", fmt.Sprintf("overlapping unit at offset %#x, smallest size kept", u.offset), u.id)
			}
		}
		chosen = append(chosen, best)
		i = j
	}
	return chosen
}

// renderChosen walks chosen in offset order, emitting reservedN holes
// (B1) between units, and returns the joined member text plus the
// cursor's final byte extent.
func renderChosen(chosen []layoutUnit, d *chipdb.Database) (string, uint64) {
	var lines []string
	cursor := uint64(0)
	for _, u := range chosen {
		if u.offset > cursor {
			gap := u.offset - cursor
			lines = append(lines, fmt.Sprintf("reserved%d: [%d]u8 = undefined,", u.offset, gap))
			cursor = u.offset
		} else if u.offset < cursor {
			d.Diagnostics.Skip("gen", fmt.Sprintf("unit at offset %#x overlaps prior cursor %#x", u.offset, cursor), u.id)
			continue
		}
		lines = append(lines, u.render())
		cursor += u.size
	}
	return strings.Join(lines, "\n"), cursor
}

// groupLayout renders id's own offset-bearing registers/register_groups
// as a byte-offset-cursor body and returns its total byte extent.
func (g *Generator) groupLayout(id chipdb.EntityID) (string, uint64) {
	units := g.gatherUnits(id)
	return renderChosen(resolveOverlaps(units, g.d), g.d)
}

// emitRegisterBody renders a register's contents: a bare unsigned
// integer if it has no fields, otherwise an Mmio-wrapped packed struct.
func (g *Generator) emitRegisterBody(reg chipdb.EntityID) string {
	size, _ := g.d.Size(reg)
	if len(g.d.Children(reg, chipdb.KindField)) == 0 {
		return fmt.Sprintf("u%d", size)
	}
	body := g.emitFieldLayout(reg, size)
	return fmt.Sprintf("Mmio(%d, packed struct {\n%s\n})", size, indent(body))
}

type fieldCand struct {
	id     chipdb.EntityID
	offset uint64
	size   uint64
}

// emitFieldLayout renders a register's fields, cursor-walked in bits
// from 0 to regSize, with a trailing padding member for any unused
// tail bits.
func (g *Generator) emitFieldLayout(reg chipdb.EntityID, regSize uint64) string {
	var cands []fieldCand
	for _, f := range g.d.Children(reg, chipdb.KindField) {
		off, hasOff := g.d.Offset(f)
		size, hasSize := g.d.Size(f)
		if !hasOff || !hasSize {
			g.d.Diagnostics.Skip("gen", "field missing offset/size", f)
			continue
		}
		cands = append(cands, fieldCand{f, off, size})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].offset < cands[j].offset })

	var chosen []fieldCand
	for i := 0; i < len(cands); {
		j := i
		for j < len(cands) && cands[j].offset == cands[i].offset {
			j++
		}
		group := cands[i:j]
		best := group[0]
		for _, c := range group[1:] {
			if c.size < best.size {
				best = c
			}
		}
		for _, c := range group {
			if c.id != best.id {
				g.d.Diagnostics.Skip("gen", fmt.Sprintf("overlapping field at bit %d, smallest size kept", c.offset), c.id)
			}
		}
		chosen = append(chosen, best)
		i = j
	}

	var lines []string
	cursor := uint64(0)
	stopped := false
	for _, c := range chosen {
		if c.offset < cursor {
			g.d.Diagnostics.Skip("gen", fmt.Sprintf("field at bit %d overlaps cursor %d", c.offset, cursor), c.id)
			continue
		}
		if c.offset+c.size > regSize {
			g.d.Diagnostics.Warn("gen", fmt.Sprintf("field at bit %d extends past register bounds", c.offset), c.id)
			stopped = true
			break
		}
		if c.offset > cursor {
			gap := c.offset - cursor
			lines = append(lines, fmt.Sprintf("padding_bit%d: u%d = 0,", cursor, gap))
			cursor = c.offset
		}
		lines = append(lines, g.emitFieldMember(c.id))
		cursor += c.size
	}
	if !stopped && cursor < regSize {
		lines = append(lines, fmt.Sprintf("padding: u%d = 0,", regSize-cursor))
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) emitFieldMember(f chipdb.EntityID) string {
	name, _ := g.d.Name(f)
	size, _ := g.d.Size(f)
	enumID, hasEnum := g.d.EnumRef(f)
	if !hasEnum {
		return fmt.Sprintf("%s: u%d,", name, size)
	}
	if enumName, named := g.d.Name(enumID); named {
		return fmt.Sprintf("%s: packed union { raw: u%d, value: %s },", name, size, enumName)
	}
	inline := g.emitEnumBody(enumID, size)
	return fmt.Sprintf("%s: packed union { raw: u%d, value: enum(u%d) { %s } },", name, size, size, inline)
}

func (g *Generator) emitEnum(id chipdb.EntityID, name string) string {
	size, _ := g.d.Size(id)
	body := g.emitEnumBody(id, size)
	return fmt.Sprintf("pub const %s = enum(u%d) { %s };", name, size, body)
}

// emitEnumBody renders a type.enum's value list in insertion order,
// with a trailing non-exhaustive "_" sentinel (B3) when fewer values
// are listed than the declared width can represent.
func (g *Generator) emitEnumBody(id chipdb.EntityID, size uint64) string {
	fields := g.d.Children(id, chipdb.KindEnumField)
	parts := make([]string, 0, len(fields)+1)
	for _, ef := range fields {
		n, _ := g.d.Name(ef)
		v, _ := g.d.EnumFieldValue(ef)
		parts = append(parts, fmt.Sprintf("%s = 0x%x", n, v))
	}
	if size < 63 && uint64(len(fields)) < (uint64(1)<<size) {
		parts = append(parts, "_")
	}
	return strings.Join(parts, ", ")
}

// emitModeUnion renders a peripheral with type.mode children as a
// packed union: a Mode enum, a get_mode method, enum declarations,
// always-present namespace register groups, and one struct variant per
// mode.
func (g *Generator) emitModeUnion(id chipdb.EntityID, name string, modes []chipdb.EntityID) string {
	var modeNames []string
	for _, m := range modes {
		n, _ := g.d.Name(m)
		modeNames = append(modeNames, n)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "pub const %s = packed union {\n", name)
	fmt.Fprintf(&b, "    pub const Mode = enum { %s };\n\n", strings.Join(modeNames, ", "))
	b.WriteString(indent(g.emitGetMode(modes)))
	b.WriteString("\n\n")

	for _, e := range g.d.Children(id, chipdb.KindEnum) {
		if n, ok := g.d.Name(e); ok {
			b.WriteString(indent(g.emitEnum(e, n)))
			b.WriteString("\n")
		}
	}
	for _, rg := range g.d.Children(id, chipdb.KindRegisterGroup) {
		if _, hasOffset := g.d.Offset(rg); hasOffset {
			continue // laid out inside every variant by emitVariantBody instead
		}
		n, _ := g.d.Name(rg)
		sub, _ := g.groupLayout(rg)
		if sub == "" {
			b.WriteString(indent(fmt.Sprintf("%s: packed struct {},", n)))
		} else {
			b.WriteString(indent(fmt.Sprintf("%s: packed struct {\n%s\n},", n, indent(sub))))
		}
		b.WriteString("\n")
	}
	for _, m := range modes {
		n, _ := g.d.Name(m)
		variant := g.emitVariantBody(id, m)
		if variant == "" {
			b.WriteString(indent(fmt.Sprintf("pub const %s = packed struct {};", n)))
		} else {
			b.WriteString(indent(fmt.Sprintf("pub const %s = packed struct {\n%s\n};", n, indent(variant))))
		}
		b.WriteString("\n")
	}
	b.WriteString("};\n")
	return b.String()
}

// emitVariantBody renders the registers that apply to mode: those with
// no modes restriction (common to every variant) plus those whose
// modes set includes mode. Nested offset-bearing register groups are
// always shared across variants.
func (g *Generator) emitVariantBody(id, mode chipdb.EntityID) string {
	units := g.gatherUnits(id)
	var filtered []layoutUnit
	for _, u := range units {
		if u.kind == chipdb.KindRegisterGroup {
			filtered = append(filtered, u)
			continue
		}
		ms := g.d.Modes(u.id)
		if len(ms) == 0 {
			filtered = append(filtered, u)
			continue
		}
		for _, m := range ms {
			if m == mode {
				filtered = append(filtered, u)
				break
			}
		}
	}
	body, _ := renderChosen(resolveOverlaps(filtered, g.d), g.d)
	return body
}

// emitGetMode renders the get_mode method body described in spec.md
// §4.4: each mode's qualifier "Peripheral.middle...path.Field" is split
// to find the register access path and field, tried in declaration
// order against the declared whitespace-separated value literals, with
// a trailing unreachable sentinel.
func (g *Generator) emitGetMode(modes []chipdb.EntityID) string {
	var b strings.Builder
	b.WriteString("pub fn get_mode(self: *const @This()) Mode {\n")
	for _, m := range modes {
		name, _ := g.d.Name(m)
		payload, _ := g.d.ModePayload(m)
		accessPath, field := splitQualifier(payload.Qualifier)
		values := strings.Fields(payload.Value)
		conds := make([]string, 0, len(values))
		for _, v := range values {
			conds = append(conds, fmt.Sprintf("self.%s.read().%s == %s", accessPath, field, v))
		}
		fmt.Fprintf(&b, "    if (%s) return .%s;\n", strings.Join(conds, " or "), name)
	}
	b.WriteString("    unreachable;\n}")
	return b.String()
}

// splitQualifier splits a mode's "Peripheral.middle....Field" qualifier
// into the register access path (the dotted middle segments, left as-is
// since the loader already resolved them against the right scope) and
// the trailing field name.
func splitQualifier(q string) (accessPath, field string) {
	parts := strings.Split(q, ".")
	if len(parts) < 2 {
		return "", q
	}
	field = parts[len(parts)-1]
	accessPath = strings.Join(parts[1:len(parts)-1], ".")
	return accessPath, field
}

// indent prefixes every non-empty line of s with four spaces.
func indent(s string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "    " + l
		}
	}
	return strings.Join(lines, "\n")
}
