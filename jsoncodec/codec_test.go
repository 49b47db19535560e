package jsoncodec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/jsoncodec"
)

func buildSample() *chipdb.Database {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TIMER")
	reg := d.CreateRegister(per, "CTRL")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 1)
	d.SetAccess(reg, chipdb.AccessReadWrite)

	enum := d.CreateEnum(per, "MODE_SELECT")
	d.CreateEnumField(enum, "OFF", 0)
	d.CreateEnumField(enum, "ON", 1)

	field := d.CreateField(reg, "ENABLE")
	d.SetOffset(field, 0)
	d.SetSize(field, 1)
	d.SetEnumRef(field, enum)

	dev := d.CreateDevice("TEST_DEVICE")
	inst := d.CreatePeripheralInstance(dev, "TIMER0", per)
	d.SetOffset(inst, 0x4000)
	return d
}

func TestEncodeOmitsDefaultAccess(t *testing.T) {
	d := buildSample()
	var buf bytes.Buffer
	require.NoError(t, jsoncodec.Encode(&buf, d))
	assert.NotContains(t, buf.String(), `"access"`)
	assert.Contains(t, buf.String(), `"enum_ref": "MODE_SELECT"`)
}

func TestRoundTrip(t *testing.T) {
	d := buildSample()
	var buf bytes.Buffer
	require.NoError(t, jsoncodec.Encode(&buf, d))

	restored, err := jsoncodec.Decode(strings.NewReader(buf.String()))
	require.NoError(t, err)

	var buf2 bytes.Buffer
	require.NoError(t, jsoncodec.Encode(&buf2, restored))
	assert.Equal(t, buf.String(), buf2.String())
}

func TestAnonymousEnumEmbedsInline(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "GPIO")
	reg := d.CreateRegister(per, "DIR")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 1)
	field := d.CreateField(reg, "BITS")
	d.SetOffset(field, 0)
	d.SetSize(field, 1)
	enum := d.CreateEnum(0, "") // anonymous: not attached as a named child
	d.CreateEnumField(enum, "LOW", 0)
	d.SetEnumRef(field, enum)

	var buf bytes.Buffer
	require.NoError(t, jsoncodec.Encode(&buf, d))
	out := buf.String()
	assert.Contains(t, out, `"enum": {`)
	assert.NotContains(t, out, `"enum_ref"`)
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	_, err := jsoncodec.Decode(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestEncodeModesArrayIsPlainNamesNotQualifiedPaths(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TEST_PERIPHERAL")
	reg := d.CreateRegister(per, "COMMON_REGISTER")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 8)
	fld := d.CreateField(reg, "TEST_FIELD")
	d.SetOffset(fld, 0)
	d.SetSize(fld, 8)

	mode1 := d.CreateMode(per, "TEST_MODE1", chipdb.ModePayload{
		Value: "0", Qualifier: "TEST_PERIPHERAL.TEST_MODE1.COMMON_REGISTER.TEST_FIELD",
	})
	d.AddMode(reg, mode1)

	var buf bytes.Buffer
	require.NoError(t, jsoncodec.Encode(&buf, d))
	out := buf.String()
	assert.Contains(t, out, `"TEST_MODE1"`)
	assert.NotContains(t, out, "TEST_MODE1.TEST_PERIPHERAL.TEST_MODE1.COMMON_REGISTER.TEST_FIELD")

	restored, err := jsoncodec.Decode(strings.NewReader(out))
	require.NoError(t, err)
	regs := restored.Children(restored.Iter(chipdb.KindPeripheral)[0], chipdb.KindRegister)
	require.Len(t, regs, 1)
	assert.Len(t, restored.Modes(regs[0]), 1)
}
