package load_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/load"
)

func TestParseRevisionValid(t *testing.T) {
	rev, err := load.ParseRevision("r1p2")
	require.NoError(t, err)
	assert.Equal(t, load.Revision{Release: 1, Part: 2}, rev)
	assert.Equal(t, "r1p2", rev.String())
}

func TestParseRevisionMalformed(t *testing.T) {
	for _, s := range []string{"r", "p", ""} {
		_, err := load.ParseRevision(s)
		require.Error(t, err)
		assert.ErrorIs(t, err, load.ErrMalformedRevision)
	}
}

func TestParseRevisionInvalidDigits(t *testing.T) {
	for _, s := range []string{"rp", "r1p", "rp2"} {
		_, err := load.ParseRevision(s)
		require.Error(t, err)
		assert.NotErrorIs(t, err, load.ErrMalformedRevision)
		var numErr *strconv.NumError
		assert.ErrorAs(t, err, &numErr)
	}
}
