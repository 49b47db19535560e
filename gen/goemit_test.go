package gen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/gen"
)

func generateGo(t *testing.T, d *chipdb.Database) string {
	t.Helper()
	var buf strings.Builder
	require.NoError(t, gen.GenerateGo(&buf, d, ""))
	return buf.String()
}

func TestGenerateGoStructAndFieldConsts(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TEST_PERIPHERAL")
	reg := d.CreateRegister(per, "TEST_REGISTER")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 32)
	fld := d.CreateField(reg, "TEST_FIELD")
	d.SetOffset(fld, 4)
	d.SetSize(fld, 2)

	out := generateGo(t, d)
	assert.Contains(t, out, "type TestPeripheral struct")
	assert.Contains(t, out, "TestRegister")
	assert.Contains(t, out, "TestRegisterTestFieldShift = 4")
	assert.Contains(t, out, "TestRegisterTestFieldMask = 3")
}

func TestGenerateGoPadsHoleBetweenRegisters(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "P")
	reg := d.CreateRegister(per, "R")
	d.SetOffset(reg, 4)
	d.SetSize(reg, 8)

	out := generateGo(t, d)
	assert.Contains(t, out, "[4]byte")
}

func TestGenerateGoInstanceUsesUnsafePointer(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TEST_PERIPHERAL")
	dev := d.CreateDevice("TEST_DEVICE")
	inst := d.CreatePeripheralInstance(dev, "INST0", per)
	d.SetOffset(inst, 0x1000)

	out := generateGo(t, d)
	assert.Contains(t, out, "Inst0")
	assert.Contains(t, out, "unsafe.Pointer")
	assert.Contains(t, out, "4096")
}

func TestGenerateGoEnumConstants(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TEST_PERIPHERAL")
	enum := d.CreateEnum(per, "TEST_ENUM")
	d.SetSize(enum, 1)
	d.CreateEnumField(enum, "ENUM_FIELD_ONE", 0)
	d.CreateEnumField(enum, "ENUM_FIELD_TWO", 1)

	out := generateGo(t, d)
	assert.Contains(t, out, "TestEnumEnumFieldOne = 0")
	assert.Contains(t, out, "TestEnumEnumFieldTwo = 1")
}

func TestGenerateGoAnonymousInstanceTypeIsSkippedNotFatal(t *testing.T) {
	d := chipdb.New()
	anon := d.CreatePeripheral(0, "")
	dev := d.CreateDevice("TEST_DEVICE")
	inst := d.CreatePeripheralInstance(dev, "INST0", anon)
	d.SetOffset(inst, 0x1000)

	var buf strings.Builder
	err := gen.GenerateGo(&buf, d, "")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "Inst0")
}

func TestGenerateGoSanitizesInvalidIdentifierCharacters(t *testing.T) {
	d := chipdb.New()
	d.CreatePeripheral(0, "1WIRE")
	d.CreatePeripheral(0, "RESERVED-2")

	out := generateGo(t, d)
	assert.Contains(t, out, "type _1Wire struct")
	assert.Contains(t, out, "type Reserved2 struct")
	assert.NotContains(t, out, "type 1Wire")
	assert.NotContains(t, out, "Reserved-2")
}

func TestGenerateGoDeterministicPeripheralOrdering(t *testing.T) {
	d := chipdb.New()
	d.CreatePeripheral(0, "ZEBRA")
	d.CreatePeripheral(0, "ALPHA")

	out := generateGo(t, d)
	assert.Less(t, strings.Index(out, "type Alpha struct"), strings.Index(out, "type Zebra struct"))
}
