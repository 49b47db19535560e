package atdf_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/load/atdf"
)

const discontiguousMask = `<?xml version="1.0"?>
<avr-tools-device-file>
  <modules>
    <module name="PORT" caption="Port">
      <register-group name="PORT">
        <register name="PIN" offset="0x00" size="1" rw="RW" mask="0x0">
          <bitfield name="GAP" mask="0x05" caption="discontiguous"/>
        </register>
      </register-group>
    </module>
  </modules>
  <devices>
    <device name="TEST_DEVICE" architecture="AVR8" family="test" series="test">
      <peripherals>
        <module name="PORT">
          <instance name="PORTB">
            <register-group name-in-module="PORT" offset="0x23"/>
          </instance>
        </module>
      </peripherals>
    </device>
  </devices>
</avr-tools-device-file>`

func TestDiscontiguousMaskSplit(t *testing.T) {
	d, err := atdf.Loader{}.Load(context.Background(), strings.NewReader(discontiguousMask))
	require.NoError(t, err)

	pers := d.Iter(chipdb.KindPeripheral)
	require.Len(t, pers, 1)
	regs := d.Children(pers[0], chipdb.KindRegister)
	require.Len(t, regs, 1)
	fields := d.Children(regs[0], chipdb.KindField)
	require.Len(t, fields, 2)

	names := []string{}
	for _, f := range fields {
		n, _ := d.Name(f)
		names = append(names, n)
	}
	assert.ElementsMatch(t, []string{"GAP_bit0", "GAP_bit2"}, names)
}

const twoNamedGroups = `<?xml version="1.0"?>
<avr-tools-device-file>
  <modules>
    <module name="PORT" caption="Port">
      <register-group name="PORTB">
        <register name="COMMON_REGISTER" offset="0x00" size="1" rw="RW" mask="0xFF"/>
      </register-group>
      <register-group name="PORTC">
        <register name="COMMON_REGISTER" offset="0x00" size="1" rw="RW" mask="0xFF"/>
      </register-group>
    </module>
  </modules>
  <devices>
    <device name="TEST_DEVICE" architecture="AVR8" family="test" series="test">
      <peripherals>
        <module name="PORT">
          <instance name="PORTB">
            <register-group name-in-module="PORTB" offset="0x23"/>
          </instance>
          <instance name="PORTC">
            <register-group name-in-module="PORTC" offset="0x26"/>
          </instance>
        </module>
      </peripherals>
    </device>
  </devices>
</avr-tools-device-file>`

func TestNamespacedRegisterGroups(t *testing.T) {
	d, err := atdf.Loader{}.Load(context.Background(), strings.NewReader(twoNamedGroups))
	require.NoError(t, err)

	pers := d.Iter(chipdb.KindPeripheral)
	require.Len(t, pers, 1)
	groups := d.Children(pers[0], chipdb.KindRegisterGroup)
	require.Len(t, groups, 2)

	insts := d.Iter(chipdb.KindPeripheralInst)
	require.Len(t, insts, 2)
	o0, _ := d.Offset(insts[0])
	o1, _ := d.Offset(insts[1])
	assert.EqualValues(t, 0x23, o0)
	assert.EqualValues(t, 0x26, o1)

	t0, ok := d.InstanceType(insts[0])
	require.True(t, ok)
	assert.True(t, d.EntityIs(t0, chipdb.KindRegisterGroup))
}

func TestMissingArchitectureFails(t *testing.T) {
	doc := `<?xml version="1.0"?>
<avr-tools-device-file>
  <devices>
    <device name="D"></device>
  </devices>
</avr-tools-device-file>`
	_, err := atdf.Loader{}.Load(context.Background(), strings.NewReader(doc))
	require.Error(t, err)
}
