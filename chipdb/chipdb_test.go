package chipdb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/chipdb"
)

func TestCreatePeripheralRegisterField(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "TEST_PERIPHERAL")
	reg := d.CreateRegister(per, "TEST_REGISTER")
	d.SetOffset(reg, 0)
	d.SetSize(reg, 32)
	fld := d.CreateField(reg, "TEST_FIELD")
	d.SetOffset(fld, 0)
	d.SetSize(fld, 1)

	require.NoError(t, d.Validate())

	name, ok := d.Name(per)
	require.True(t, ok)
	assert.Equal(t, "TEST_PERIPHERAL", name)

	kids := d.Children(per, chipdb.KindRegister)
	require.Len(t, kids, 1)
	assert.Equal(t, reg, kids[0])

	p, ok := d.Parent(fld)
	require.True(t, ok)
	assert.Equal(t, reg, p)
}

func TestByNameNotFound(t *testing.T) {
	d := chipdb.New()
	d.CreatePeripheral(0, "FOO")
	_, err := d.ByName(chipdb.KindPeripheral, "BAR")
	require.Error(t, err)
	assert.ErrorIs(t, err, chipdb.ErrNameNotFoundKind)
}

func TestSetAttributeTwicePanics(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "FOO")
	assert.Panics(t, func() {
		d.SetName(per, "BAR")
	})
}

func TestValidateDetectsKindMismatch(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "FOO")
	reg := d.CreateEntity()
	d.RegisterKind(reg, chipdb.KindField) // wrong kind for the edge below
	d.AddChild(per, reg, chipdb.KindRegister)

	err := d.Validate()
	require.Error(t, err)
	var verr *chipdb.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Violations)
}

func TestValidateDetectsCycle(t *testing.T) {
	d := chipdb.New()
	a := d.CreatePeripheral(0, "A")
	b := d.CreateRegisterGroup(a, "B")
	// Force a cycle: A's parent becomes B, even though B is A's child.
	d.AddChild(b, a, chipdb.KindPeripheral)

	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, chipdb.ErrCycleDetected)
}

func TestModeScopeViolation(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "FOO")
	reg := d.CreateRegister(per, "REG")
	other := d.CreateEntity()
	d.RegisterKind(other, chipdb.KindMode)
	d.AddMode(reg, other) // other is a type.mode, but not a child of any ancestor of reg

	err := d.Validate()
	require.Error(t, err)
}

func TestEnumScopeViolation(t *testing.T) {
	d := chipdb.New()
	per := d.CreatePeripheral(0, "FOO")
	reg := d.CreateRegister(per, "REG")
	fld := d.CreateField(reg, "FLD")

	otherPer := d.CreatePeripheral(0, "OTHER")
	enum := d.CreateEnum(otherPer, "E")
	d.SetEnumRef(fld, enum)

	err := d.Validate()
	require.Error(t, err)
}
