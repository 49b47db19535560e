// Package load defines the shared contract implemented by every dialect
// loader (SVD, ATDF, DSLite) and the bits of parsing logic — the
// revision literal grammar, the discontiguous-mask field splitter, mode
// qualifier resolution — that are genuinely dialect-independent.
package load

import (
	"context"
	"io"

	"github.com/chipdesc/chipdesc/chipdb"
)

// Loader parses a DOM rooted at a vendor document (supplied as a byte
// stream; tokenization is internal to each dialect) and populates a
// fresh chipdb.Database. A Loader never mutates an existing database; it
// always starts from chipdb.New().
type Loader interface {
	Load(ctx context.Context, r io.Reader) (*chipdb.Database, error)
}

// ErrMissingIdentity is the structural, document-level failure described
// in spec.md §4.2: the root device element lacks mandatory identity
// (name, architecture).
type ErrMissingIdentity struct {
	Dialect string
	Missing string // which field was missing: "name", "architecture", ...
}

func (e *ErrMissingIdentity) Error() string {
	return "load: " + e.Dialect + ": missing mandatory root identity: " + e.Missing
}
