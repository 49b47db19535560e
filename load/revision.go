package load

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Revision is a parsed CPU revision literal of the form "r<release>p<part>".
type Revision struct {
	Release int
	Part    int
}

// ErrMalformedRevision is returned when the input does not even contain
// the 'r' and 'p' separators in the expected positions (e.g. "r", "p",
// the empty string).
var ErrMalformedRevision = errors.New("load: malformed revision literal")

// ParseRevision parses a vendor CPU revision literal per spec.md §6.
// "r1p2" -> {1, 2}. "r", "p" (and any string missing either separator,
// or with them out of order) -> ErrMalformedRevision. "rp", "r1p",
// "rp2" -> a wrapped strconv.ErrSyntax, since the grammar is recognized
// but one of the two integers is empty.
func ParseRevision(s string) (Revision, error) {
	if !strings.HasPrefix(s, "r") {
		return Revision{}, fmt.Errorf("%w: %q: does not start with 'r'", ErrMalformedRevision, s)
	}
	rest := s[1:]
	pIdx := strings.IndexByte(rest, 'p')
	if pIdx < 0 {
		return Revision{}, fmt.Errorf("%w: %q: missing 'p'", ErrMalformedRevision, s)
	}
	releasePart := rest[:pIdx]
	partPart := rest[pIdx+1:]

	release, err := strconv.Atoi(releasePart)
	if err != nil {
		return Revision{}, fmt.Errorf("load: revision %q: invalid release digits: %w", s, err)
	}
	part, err := strconv.Atoi(partPart)
	if err != nil {
		return Revision{}, fmt.Errorf("load: revision %q: invalid part digits: %w", s, err)
	}
	return Revision{Release: release, Part: part}, nil
}

// String renders the revision back to its canonical literal form.
func (r Revision) String() string {
	return fmt.Sprintf("r%dp%d", r.Release, r.Part)
}
