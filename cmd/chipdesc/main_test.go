package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFromExtension(t *testing.T) {
	cases := map[string]string{
		"chip.svd":    "svd",
		"chip.ATDF":   "atdf",
		"chip.json":   "json",
		"chip.dslite": "dslite",
		"chip.xml":    "xml",
		"chip.txt":    "",
		"chip":        "",
	}
	for path, want := range cases {
		assert.Equal(t, want, dialectFromExtension(path), path)
	}
}

func TestSniffXMLDialectSVD(t *testing.T) {
	dialect, err := sniffXMLDialect([]byte(`<?xml version="1.0"?><device><name>X</name></device>`))
	require.NoError(t, err)
	assert.Equal(t, "svd", dialect)
}

func TestSniffXMLDialectATDF(t *testing.T) {
	dialect, err := sniffXMLDialect([]byte(`<?xml version="1.0"?><avr-tools-device-file></avr-tools-device-file>`))
	require.NoError(t, err)
	assert.Equal(t, "atdf", dialect)
}

func TestSniffXMLDialectUnrecognizedRoot(t *testing.T) {
	_, err := sniffXMLDialect([]byte(`<?xml version="1.0"?><something-else/>`))
	assert.Error(t, err)
}

func TestSniffXMLDialectMalformed(t *testing.T) {
	_, err := sniffXMLDialect([]byte(`not xml at all`))
	assert.Error(t, err)
}

func TestWriteAtomicCreatesFileAndNoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, writeAtomic(path, []byte("hello")))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the .tmp sibling must be renamed away, not left behind")
}

func TestWriteAtomicCreatesParentDirsForRelativePaths(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	require.NoError(t, writeAtomic(filepath.Join("nested", "out.txt"), []byte("hi")))

	contents, err := os.ReadFile(filepath.Join(dir, "nested", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(contents))
}
