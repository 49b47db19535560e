package svd_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/load/svd"
)

const oneRegisterOneField = `<?xml version="1.0"?>
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

func TestLoadSingleRegisterSingleField(t *testing.T) {
	d, err := svd.Loader{}.Load(context.Background(), strings.NewReader(oneRegisterOneField))
	require.NoError(t, err)

	pers := d.Iter(chipdb.KindPeripheral)
	require.Len(t, pers, 1)
	name, _ := d.Name(pers[0])
	assert.Equal(t, "TEST_PERIPHERAL", name)

	regs := d.Children(pers[0], chipdb.KindRegister)
	require.Len(t, regs, 1)
	size, _ := d.Size(regs[0])
	assert.EqualValues(t, 32, size)
	offset, _ := d.Offset(regs[0])
	assert.EqualValues(t, 0, offset)

	fields := d.Children(regs[0], chipdb.KindField)
	require.Len(t, fields, 1)
	fsize, _ := d.Size(fields[0])
	assert.EqualValues(t, 1, fsize)
}

const twoInstancesSharedType = `<?xml version="1.0"?>
<device>
  <name>TEST_DEVICE</name>
  <peripherals>
    <peripheral>
      <name>TEST_PERIPHERAL</name>
      <baseAddress>0x1000</baseAddress>
      <registers>
        <register><name>R</name><addressOffset>0x0</addressOffset><size>32</size></register>
      </registers>
    </peripheral>
    <peripheral>
      <name>TEST_PERIPHERAL</name>
      <baseAddress>0x2000</baseAddress>
      <registers>
        <register><name>R</name><addressOffset>0x0</addressOffset><size>32</size></register>
      </registers>
    </peripheral>
  </peripherals>
</device>`

func TestLoadTwoInstances(t *testing.T) {
	d, err := svd.Loader{}.Load(context.Background(), strings.NewReader(twoInstancesSharedType))
	require.NoError(t, err)

	insts := d.Iter(chipdb.KindPeripheralInst)
	require.Len(t, insts, 2)
	o0, _ := d.Offset(insts[0])
	o1, _ := d.Offset(insts[1])
	assert.EqualValues(t, 0x1000, o0)
	assert.EqualValues(t, 0x2000, o1)
}

func TestLoadMissingNameFails(t *testing.T) {
	_, err := svd.Loader{}.Load(context.Background(), strings.NewReader(`<device></device>`))
	require.Error(t, err)
}

const twoClustersWithOffsets = `<?xml version="1.0"?>
<device>
  <name>TEST_DEVICE</name>
  <peripherals>
    <peripheral>
      <name>TEST_PERIPHERAL</name>
      <baseAddress>0x40000000</baseAddress>
      <registers>
        <cluster>
          <name>CLUSTER_A</name>
          <addressOffset>0x10</addressOffset>
          <register><name>R</name><addressOffset>0x0</addressOffset><size>32</size></register>
        </cluster>
        <cluster>
          <name>CLUSTER_B</name>
          <addressOffset>0x20</addressOffset>
          <register><name>R</name><addressOffset>0x0</addressOffset><size>32</size></register>
        </cluster>
      </registers>
    </peripheral>
  </peripherals>
</device>`

func TestLoadClusterAddressOffsetPositionsRegisterGroup(t *testing.T) {
	d, err := svd.Loader{}.Load(context.Background(), strings.NewReader(twoClustersWithOffsets))
	require.NoError(t, err)

	pers := d.Iter(chipdb.KindPeripheral)
	require.Len(t, pers, 1)
	groups := d.Children(pers[0], chipdb.KindRegisterGroup)
	require.Len(t, groups, 2)

	for _, group := range groups {
		name, _ := d.Name(group)
		offset, ok := d.Offset(group)
		require.True(t, ok, "cluster %q must carry its addressOffset", name)
		switch name {
		case "CLUSTER_A":
			assert.EqualValues(t, 0x10, offset)
		case "CLUSTER_B":
			assert.EqualValues(t, 0x20, offset)
		default:
			t.Fatalf("unexpected group %q", name)
		}
	}
}

func TestLoadSkipsNonByte8Register(t *testing.T) {
	doc := `<?xml version="1.0"?>
<device>
  <name>D</name>
  <peripherals>
    <peripheral>
      <name>P</name>
      <baseAddress>0x0</baseAddress>
      <registers>
        <register><name>BAD</name><addressOffset>0x0</addressOffset><size>12</size></register>
      </registers>
    </peripheral>
  </peripherals>
</device>`
	d, err := svd.Loader{}.Load(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	pers := d.Iter(chipdb.KindPeripheral)
	require.Len(t, pers, 1)
	assert.Empty(t, d.Children(pers[0], chipdb.KindRegister))
	assert.NotEmpty(t, d.Diagnostics)
}
