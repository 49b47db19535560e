// Package dslite is a stub for the DSLite vendor dialect. spec.md §9's
// open question (b) marks DSLite support as a TODO: fixtures for it were
// never part of the retrieval pack this module was built against, so the
// loader is wired into the CLI's dialect selector (spec.md §6 lists
// "dslite" as a valid -s value) but returns an explicit not-implemented
// error rather than guessing at a schema.
package dslite

import (
	"context"
	"errors"
	"io"

	"github.com/chipdesc/chipdesc/chipdb"
	"github.com/chipdesc/chipdesc/load"
)

// ErrNotImplemented is returned by every call to Loader.Load.
var ErrNotImplemented = errors.New("dslite: loader not implemented")

// Loader implements load.Loader for the (stubbed) DSLite dialect.
type Loader struct{}

var _ load.Loader = Loader{}

// TODO: implement once a DSLite fixture is available to pin the element
// schema down; until then returning early avoids silently emitting an
// empty database for real DSLite input.
func (Loader) Load(_ context.Context, _ io.Reader) (*chipdb.Database, error) {
	return nil, ErrNotImplemented
}
