package gen

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/imports"

	"github.com/chipdesc/chipdesc/chipdb"
)

var titleCaser = cases.Title(language.English)

// GenerateGo renders d as idiomatic Go register-access code instead of
// the Zig-flavored DSL of Generate: one struct per named peripheral
// (fields ordered by offset, holes padded with byte arrays exactly as
// Generate's reservedN does), one unsafe.Pointer-backed variable per
// instance, and Shift/Mask constant pairs per field so callers can
// address bits without a bitfield struct tag library. Grounded on the
// teacher's jennifer-based schema generator
// (mirendev-runtime/pkg/entity/cmd/schemagen), finished with
// golang.org/x/tools/imports the same way that generator formats its
// output, instead of go/format: imports.Process also prunes/adds the
// "unsafe" import depending on whether any peripheral in d needed it.
func GenerateGo(w io.Writer, d *chipdb.Database, packageName string) error {
	if packageName == "" {
		packageName = "chipregs"
	}
	g := &Generator{d: d}
	f := jen.NewFile(packageName)
	f.HeaderComment("Code generated by chipdesc. DO NOT EDIT.")

	named := namedTopLevelPeripherals(d)
	sort.Slice(named, func(i, j int) bool {
		ni, _ := d.Name(named[i])
		nj, _ := d.Name(named[j])
		return ni < nj
	})
	for _, per := range named {
		g.emitGoPeripheral(f, per)
	}

	for _, dev := range d.Iter(chipdb.KindDevice) {
		for _, inst := range d.Children(dev, chipdb.KindPeripheralInst) {
			g.emitGoInstance(f, inst)
		}
	}

	var buf strings.Builder
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("gen: go: render: %w", err)
	}

	formatted, err := imports.Process("chipregs.go", []byte(buf.String()), nil)
	if err != nil {
		// Fall back to the unformatted render rather than failing the
		// whole run over a goimports quirk; the generator's own output
		// is always syntactically valid Go.
		g.d.Diagnostics.Warn("gen", "goimports: "+err.Error(), 0)
		formatted = []byte(buf.String())
	}

	_, err = w.Write(formatted)
	return err
}

// goName converts a hardware identifier (typically SCREAMING_SNAKE_CASE,
// but vendor files are not guaranteed to keep even that much discipline -
// names like "1WIRE" or "RESERVED-2" show up in the wild) into a valid,
// exported Go identifier: split on underscores, title-case each word with
// golang.org/x/text/cases the same way the teacher's own codegen titles
// words (schema/field/internal/gen.go's titleCaser), drop any rune that
// isn't a letter or digit, then prefix an underscore if the result would
// still start with a digit. Title wants lowercase input to title-case
// correctly, hence the ToLower before splitting.
func goName(raw string) string {
	parts := strings.Split(strings.ToLower(raw), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(titleCaser.String(sanitizeIdentPart(p)))
	}
	name := b.String()
	if name == "" {
		return "Anonymous"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// sanitizeIdentPart drops every rune that isn't a letter or digit, so a
// word like "reserved-2" title-cases to "Reserved2" instead of leaking a
// hyphen into the generated identifier.
func sanitizeIdentPart(p string) string {
	var b strings.Builder
	for _, r := range p {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (g *Generator) emitGoPeripheral(f *jen.File, id chipdb.EntityID) {
	name, _ := g.d.Name(id)
	defer func() {
		if r := recover(); r != nil {
			g.d.Diagnostics.Skip("gen", fmt.Sprintf("go: peripheral %q: %v", name, r), id)
		}
	}()

	fields, _ := g.goStructFields(id)
	f.Type().Id(goName(name)).Struct(fields...)

	for _, reg := range g.d.Children(id, chipdb.KindRegister) {
		g.emitGoFieldConsts(f, reg)
	}
	for _, grp := range g.d.Children(id, chipdb.KindRegisterGroup) {
		for _, reg := range g.d.Children(grp, chipdb.KindRegister) {
			g.emitGoFieldConsts(f, reg)
		}
	}
	for _, enum := range g.d.Children(id, chipdb.KindEnum) {
		g.emitGoEnum(f, enum)
	}
}

// goStructFields lays out id's offset-bearing registers in byte-cursor
// order, the same algorithm groupLayout uses for the Zig target, padding
// holes with a "_ [N]byte" member instead of Zig's "reservedN".
func (g *Generator) goStructFields(id chipdb.EntityID) ([]jen.Code, uint64) {
	units := resolveOverlaps(g.gatherUnits(id), g.d)
	var fields []jen.Code
	cursor := uint64(0)
	for _, u := range units {
		if u.offset > cursor {
			fields = append(fields, jen.Id("_").Index(jen.Lit(int(u.offset-cursor))).Byte())
			cursor = u.offset
		} else if u.offset < cursor {
			continue
		}
		name, _ := g.d.Name(u.id)
		size, _ := g.d.Size(u.id)
		fields = append(fields, jen.Id(goName(name)).Add(goIntType(size)).Comment(fmt.Sprintf("offset 0x%x", u.offset)))
		cursor += u.size
	}
	return fields, cursor
}

func goIntType(bits uint64) *jen.Statement {
	switch {
	case bits <= 8:
		return jen.Uint8()
	case bits <= 16:
		return jen.Uint16()
	case bits <= 32:
		return jen.Uint32()
	default:
		return jen.Uint64()
	}
}

func (g *Generator) emitGoFieldConsts(f *jen.File, reg chipdb.EntityID) {
	regName, _ := g.d.Name(reg)
	fields := g.d.Children(reg, chipdb.KindField)
	if len(fields) == 0 {
		return
	}
	sort.Slice(fields, func(i, j int) bool {
		oi, _ := g.d.Offset(fields[i])
		oj, _ := g.d.Offset(fields[j])
		return oi < oj
	})
	var defs []jen.Code
	for _, fld := range fields {
		fldName, _ := g.d.Name(fld)
		off, hasOff := g.d.Offset(fld)
		size, hasSize := g.d.Size(fld)
		if !hasOff || !hasSize {
			continue
		}
		base := goName(regName) + goName(fldName)
		mask := uint64(1)<<size - 1
		defs = append(defs,
			jen.Id(base+"Shift").Op("=").Lit(int(off)),
			jen.Id(base+"Mask").Op("=").Lit(int(mask)),
		)
	}
	if len(defs) > 0 {
		f.Const().Defs(defs...)
	}
}

func (g *Generator) emitGoEnum(f *jen.File, id chipdb.EntityID) {
	name, hasName := g.d.Name(id)
	if !hasName {
		return
	}
	fields := g.d.Children(id, chipdb.KindEnumField)
	if len(fields) == 0 {
		return
	}
	var defs []jen.Code
	for _, ef := range fields {
		efName, _ := g.d.Name(ef)
		v, _ := g.d.EnumFieldValue(ef)
		defs = append(defs, jen.Id(goName(name)+goName(efName)).Op("=").Lit(int(v)))
	}
	f.Const().Defs(defs...)
}

func (g *Generator) emitGoInstance(f *jen.File, inst chipdb.EntityID) {
	name, ok := g.d.Name(inst)
	if !ok {
		return
	}
	off, ok := g.d.Offset(inst)
	if !ok {
		return
	}
	typeID, ok := g.d.InstanceType(inst)
	if !ok {
		return
	}
	typeName, hasName := g.d.Name(typeID)
	if !hasName {
		g.d.Diagnostics.Skip("gen", fmt.Sprintf("go: instance %q targets an anonymous type, skipped", name), inst)
		return
	}

	f.Var().Id(goName(name)).Op("=").Parens(jen.Op("*").Id(goName(typeName))).Call(
		jen.Qual("unsafe", "Pointer").Call(jen.Id("uintptr").Call(jen.Lit(int(off)))),
	)
}
