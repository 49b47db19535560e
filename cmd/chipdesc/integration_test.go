package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const svdFixture = `<?xml version="1.0"?>
<device>
  <name>TEST_DEVICE</name>
  <peripherals>
    <peripheral>
      <name>TEST_PERIPHERAL</name>
      <baseAddress>0x40000000</baseAddress>
      <registers>
        <register>
          <name>TEST_REGISTER</name>
          <addressOffset>0x0</addressOffset>
          <size>32</size>
          <fields>
            <field>
              <name>TEST_FIELD</name>
              <lsb>0</lsb>
              <msb>0</msb>
            </field>
          </fields>
        </register>
      </registers>
    </peripheral>
  </peripherals>
</device>`

func TestLoadDialectSVDByExtension(t *testing.T) {
	*fSchema = ""
	d, err := loadDialect(context.Background(), "chip.svd", []byte(svdFixture))
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestLoadDialectXMLSniffsSVD(t *testing.T) {
	*fSchema = "xml"
	defer func() { *fSchema = "" }()
	d, err := loadDialect(context.Background(), "chip.xml", []byte(svdFixture))
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestLoadDialectUnknownSchema(t *testing.T) {
	*fSchema = "cowgol"
	defer func() { *fSchema = "" }()
	_, err := loadDialect(context.Background(), "chip.bin", []byte("whatever"))
	assert.Error(t, err)
}

func TestLoadDialectJSON(t *testing.T) {
	*fSchema = ""
	const doc = `{"version":"1","types":{"peripherals":{"TEST_PERIPHERAL":{}}}}`
	d, err := loadDialect(context.Background(), "chip.json", []byte(doc))
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestRunOnceEndToEndProducesZigOutput(t *testing.T) {
	dir := t.TempDir()
	inputPath := dir + "/chip.svd"
	require.NoError(t, os.WriteFile(inputPath, []byte(svdFixture), 0o644))

	outputPath := dir + "/chip.zig"
	*fSchema = ""
	*fOutput = outputPath
	*fJSON = false
	*fTarget = "zig"
	*fSplitDir = ""
	defer func() {
		*fOutput = ""
	}()

	require.NoError(t, runOnce(context.Background(), inputPath))

	out, err := readInput(outputPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "TEST_REGISTER"))
}
