package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/internal/cache"
)

func buildSample() *chipdb.Database {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TIMER")
	reg := d.CreateRegister(per, "CTRL")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 32)
	fld := d.CreateField(reg, "ENABLE")
	d.SetOffset(fld, 0)
	d.SetSize(fld, 1)
	return d
}

func TestSetThenGetRoundTrips(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	d := buildSample()
	key := cache.Key([]byte("some raw document bytes"))
	require.NoError(t, c.Set(key, d))

	restored, hit := c.Get(key)
	require.True(t, hit)

	per, err := restored.ByName(chipdb.KindPeripheral, "TIMER")
	require.NoError(t, err)
	regs := restored.Children(per, chipdb.KindRegister)
	require.Len(t, regs, 1)
	name, _ := restored.Name(regs[0])
	assert.Equal(t, "CTRL", name)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	_, hit := c.Get(cache.Key([]byte("never stored")))
	assert.False(t, hit)
}

func TestKeyIsStableForIdenticalBytes(t *testing.T) {
	a := cache.Key([]byte("identical"))
	b := cache.Key([]byte("identical"))
	c := cache.Key([]byte("different"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	d := buildSample()
	key := cache.Key([]byte("raw"))
	require.NoError(t, c.Set(key, d))
	require.NoError(t, c.Delete(key))

	_, hit := c.Get(key)
	assert.False(t, hit)
}

func TestDeleteMissingEntryIsNotAnError(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, c.Delete(cache.Key([]byte("never stored"))))
}
