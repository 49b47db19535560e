package gen_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/gen"
)

func buildSplitFixture() *chipdb.Database {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TEST_PERIPHERAL")
	reg := d.CreateRegister(per, "TEST_REGISTER")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 32)
	fld := d.CreateField(reg, "TEST_FIELD")
	d.SetOffset(fld, 0)
	d.SetSize(fld, 1)

	dev := d.CreateDevice("TEST_DEVICE")
	inst := d.CreatePeripheralInstance(dev, "INST0", per)
	d.SetOffset(inst, 0x1000)
	return d
}

func TestSplitWriterWritesDevicesFileAndOnePerPeripheral(t *testing.T) {
	d := buildSplitFixture()
	outDir := t.TempDir()

	require.NoError(t, gen.NewSplitWriter(d, outDir).WriteAll(context.Background()))

	devicesContents, err := os.ReadFile(filepath.Join(outDir, "devices.zig"))
	require.NoError(t, err)
	assert.Contains(t, string(devicesContents), "INST0")

	perContents, err := os.ReadFile(filepath.Join(outDir, "TEST_PERIPHERAL.zig"))
	require.NoError(t, err)
	assert.Contains(t, string(perContents), "pub const types = struct {")
	assert.Contains(t, string(perContents), "TEST_REGISTER")
}

func TestSplitWriterCreatesOutputDirectory(t *testing.T) {
	d := buildSplitFixture()
	outDir := filepath.Join(t.TempDir(), "nested", "zig")

	require.NoError(t, gen.NewSplitWriter(d, outDir).WriteAll(context.Background()))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSplitWriterWithWorkersClampsToPositive(t *testing.T) {
	d := buildSplitFixture()
	outDir := t.TempDir()

	w := gen.NewSplitWriter(d, outDir).WithWorkers(0).WithWorkers(-1).WithWorkers(1)
	require.NoError(t, w.WriteAll(context.Background()))

	_, err := os.Stat(filepath.Join(outDir, "devices.zig"))
	require.NoError(t, err)
}

func TestSplitWriterNoPeripheralsStillWritesDevicesFile(t *testing.T) {
	d := chipdb.New()
	d.CreateDevice("EMPTY_DEVICE")
	outDir := t.TempDir()

	require.NoError(t, gen.NewSplitWriter(d, outDir).WriteAll(context.Background()))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
