// Package chipdb is the entity-attribute store that sits between the
// dialect loaders and the code generator. Every peripheral, register,
// field, enum and device discovered while loading a vendor description
// lands here as an opaque entity id; sparse attribute tables and
// insertion-ordered child-sets carry everything the generator needs to
// know about it.
package chipdb

import "fmt"

// EntityID identifies a single entity in a Database. The zero value is
// never a valid id; the first entity created has id 1.
type EntityID uint32

// Kind partitions entities into the reusable "type.*" templates and the
// concrete "instance.*" placements described in the data model.
type Kind string

// Type kinds are reusable templates; Instance kinds are concrete
// placements that reference a type kind (see I6).
const (
	KindPeripheral    Kind = "type.peripheral"
	KindRegisterGroup Kind = "type.register_group"
	KindRegister      Kind = "type.register"
	KindField         Kind = "type.field"
	KindEnum          Kind = "type.enum"
	KindEnumField     Kind = "type.enum_field"
	KindMode          Kind = "type.mode"

	KindDevice           Kind = "instance.device"
	KindPeripheralInst   Kind = "instance.peripheral"
	KindInterruptInst    Kind = "instance.interrupt"
)

// Access is the read/write discipline of a register or field.
type Access string

const (
	AccessReadOnly  Access = "read-only"
	AccessWriteOnly Access = "write-only"
	AccessReadWrite Access = "read-write"
)

// ModePayload is the {value, qualifier} payload carried by a type.mode
// entity in the kind table itself, per spec.md §3.
type ModePayload struct {
	Value     string
	Qualifier string
}

// Database is the single shared store described in spec.md §3. All
// public mutation happens through create/register/attach calls; queries
// are read-only. The zero value is not usable; use New.
type Database struct {
	nextID EntityID
	arena  []string // owns every string handed to the database, for parity with the source's bump arena

	kindOf map[EntityID]Kind
	byKind map[Kind][]EntityID // insertion order, per kind

	// sparse attribute tables, keyed by entity id
	name         map[EntityID]string
	description  map[EntityID]string
	offset       map[EntityID]uint64
	size         map[EntityID]uint64
	access       map[EntityID]Access
	resetValue   map[EntityID]uint64
	resetMask    map[EntityID]uint64
	version      map[EntityID]string
	enumRef      map[EntityID]EntityID
	modes        map[EntityID][]EntityID // insertion-ordered set
	parent       map[EntityID]EntityID
	enumValue    map[EntityID]int64    // type.enum_field payload
	modePayload  map[EntityID]ModePayload

	// children.<kind>: parent id -> insertion-ordered child ids of that kind
	children map[EntityID]map[Kind][]EntityID

	instanceType map[EntityID]EntityID // instance.peripheral -> type.peripheral|type.register_group (I6)

	nameIndex map[Kind]map[string]EntityID // lookup-by-name within a kind

	Diagnostics Diagnostics
}

// New returns an empty, mutable database.
func New() *Database {
	return &Database{
		kindOf:      make(map[EntityID]Kind),
		byKind:      make(map[Kind][]EntityID),
		name:        make(map[EntityID]string),
		description: make(map[EntityID]string),
		offset:      make(map[EntityID]uint64),
		size:        make(map[EntityID]uint64),
		access:      make(map[EntityID]Access),
		resetValue:  make(map[EntityID]uint64),
		resetMask:   make(map[EntityID]uint64),
		version:     make(map[EntityID]string),
		enumRef:     make(map[EntityID]EntityID),
		modes:       make(map[EntityID][]EntityID),
		parent:      make(map[EntityID]EntityID),
		enumValue:   make(map[EntityID]int64),
		modePayload: make(map[EntityID]ModePayload),
		children:    make(map[EntityID]map[Kind][]EntityID),
		instanceType: make(map[EntityID]EntityID),
		nameIndex:   make(map[Kind]map[string]EntityID),
	}
}

// CreateEntity allocates a fresh id without registering it in any kind
// table. Callers normally prefer the Create* convenience builders in
// builders.go, which call it; CreateEntity exists for callers that must
// attach attributes before the entity's final kind is known.
func (d *Database) CreateEntity() EntityID {
	d.nextID++
	return d.nextID
}

// intern copies s into the database's arena so the loader's own buffers
// (often reused DOM tokenizer scratch space) can be freed or reused.
func (d *Database) intern(s string) string {
	d.arena = append(d.arena, s)
	return d.arena[len(d.arena)-1]
}

// RegisterKind files id into kind's table. Calling it twice for the same
// id is a programming error (id already belongs to a kind table, I1).
func (d *Database) RegisterKind(id EntityID, kind Kind) {
	if existing, ok := d.kindOf[id]; ok {
		panic(fmt.Sprintf("chipdb: entity %d already registered as %s", id, existing))
	}
	d.kindOf[id] = kind
	d.byKind[kind] = append(d.byKind[kind], id)
}

// EntityIs reports whether id is registered as kind.
func (d *Database) EntityIs(id EntityID, kind Kind) bool {
	return d.kindOf[id] == kind
}

// KindOf returns the kind id is registered as, and whether it is
// registered at all.
func (d *Database) KindOf(id EntityID) (Kind, bool) {
	k, ok := d.kindOf[id]
	return k, ok
}

// Iter returns the ids registered as kind, in insertion order. The
// returned slice must not be mutated by the caller.
func (d *Database) Iter(kind Kind) []EntityID {
	return d.byKind[kind]
}

// byNameTable lazily creates the name index for kind and returns it.
func (d *Database) byNameTable(kind Kind) map[string]EntityID {
	t, ok := d.nameIndex[kind]
	if !ok {
		t = make(map[string]EntityID)
		d.nameIndex[kind] = t
	}
	return t
}

// ByName looks up the entity registered as kind with the given name.
// The returned error wraps ErrNameNotFoundKind (defined in errors.go).
func (d *Database) ByName(kind Kind, name string) (EntityID, error) {
	id, ok := d.byNameTable(kind)[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrNameNotFoundKind, kind, name)
	}
	return id, nil
}
