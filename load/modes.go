package load

import (
	"strings"

	"github.com/chipdesc/chipdesc/chipdb"
)

// ResolveModeNames resolves a space-separated list of mode names against
// the type.mode children of scope (the enclosing parent, per spec.md
// §4.2), adding each resolved id to owner's modes set via d.AddMode.
// Unresolved names are warned and skipped rather than failing the load.
func ResolveModeNames(d *chipdb.Database, component string, scope, owner chipdb.EntityID, names string) {
	for _, name := range strings.Fields(names) {
		id, err := findModeChild(d, scope, name)
		if err != nil {
			d.Diagnostics.Warn(component, "unresolved mode name "+name, owner)
			continue
		}
		d.AddMode(owner, id)
	}
}

func findModeChild(d *chipdb.Database, scope chipdb.EntityID, name string) (chipdb.EntityID, error) {
	for _, id := range d.Children(scope, chipdb.KindMode) {
		if n, ok := d.Name(id); ok && n == name {
			return id, nil
		}
	}
	return 0, chipdb.ErrNameNotFoundKind
}
