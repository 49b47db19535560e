package chipdb

import "fmt"

// Validate enforces invariants I1-I6 of spec.md §3 and returns a
// *ValidationError aggregating every violation found, or nil. It is
// called automatically after every loader's Load and before every
// gen.Generate/jsoncodec.Encode call, per spec.md §7's "Contract" error
// category.
func (d *Database) Validate() error {
	var v ValidationError

	// I1: every live entity id is a key in exactly one kind table. Our
	// representation makes this true by construction (RegisterKind
	// panics on a re-register), so we only need to check that every id
	// referenced elsewhere (children, enum_ref, modes, instanceType) was
	// actually registered. Parent ids are not checked for registration.
	registered := func(id EntityID) bool {
		_, ok := d.kindOf[id]
		return ok
	}

	// I2: referential integrity of children/parent, plus edge-kind check.
	for parent, byKind := range d.children {
		for childKind, ids := range byKind {
			for _, child := range ids {
				if !registered(child) {
					v.Violations = append(v.Violations, &Violation{
						Entity: child, Message: fmt.Sprintf("child of %d not registered in any kind table", parent), Cause: ErrKindMismatch,
					})
					continue
				}
				actualKind := d.kindOf[child]
				if actualKind != childKind {
					v.Violations = append(v.Violations, &Violation{
						Entity: child, Kind: actualKind,
						Message: fmt.Sprintf("expected child kind %s under parent %d, got %s", childKind, parent, actualKind),
						Cause:   ErrKindMismatch,
					})
				}
				if parentKind, ok := d.kindOf[parent]; ok {
					if allowed, ok := edgeTable[parentKind]; !ok || !allowed[childKind] {
						v.Violations = append(v.Violations, &Violation{
							Entity: child, Kind: actualKind,
							Message: fmt.Sprintf("edge %s -> %s is not a supported relation", parentKind, childKind),
							Cause:   ErrKindMismatch,
						})
					}
				}
				if got, ok := d.parent[child]; !ok || got != parent {
					v.Violations = append(v.Violations, &Violation{
						Entity: child, Message: fmt.Sprintf("parent attribute mismatch: expected %d", parent),
						Cause: ErrKindMismatch,
					})
				}
			}
		}
	}

	// I3: acyclic parent relation (the graph is a forest).
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[EntityID]int)
	var walk func(id EntityID) bool
	walk = func(id EntityID) bool {
		switch color[id] {
		case black:
			return true
		case gray:
			return false
		}
		color[id] = gray
		if p, ok := d.parent[id]; ok {
			if !walk(p) {
				return false
			}
		}
		color[id] = black
		return true
	}
	for id := range d.kindOf {
		if !walk(id) {
			v.Violations = append(v.Violations, &Violation{Entity: id, Message: "parent relation contains a cycle", Cause: ErrCycleDetected})
			break // one report is enough; the cycle involves every entity on it
		}
	}

	// I4: mode scope - every id in a modes set must be a type.mode child
	// of an ancestor of the entity carrying the set.
	for owner, modeIDs := range d.modes {
		ancestors := append([]EntityID{owner}, d.Ancestors(owner)...)
		for _, m := range modeIDs {
			if !registered(m) || d.kindOf[m] != KindMode {
				v.Violations = append(v.Violations, &Violation{Entity: owner, Message: fmt.Sprintf("mode %d is not a type.mode entity", m), Cause: ErrKindMismatch})
				continue
			}
			modeParent, ok := d.parent[m]
			found := false
			if ok {
				for _, a := range ancestors {
					if a == modeParent {
						found = true
						break
					}
				}
			}
			if !found {
				v.Violations = append(v.Violations, &Violation{Entity: owner, Message: fmt.Sprintf("mode %d is not scoped to an ancestor of entity %d", m, owner), Cause: ErrKindMismatch})
			}
		}
	}

	// I5: enum scope - enum_ref must name a type.enum that is either a
	// child of one of the field's ancestors (a named enum declared at
	// peripheral or register_group scope), or unattached entirely (an
	// anonymous enum that exists only to be pointed at by this one
	// enum_ref, never hoisted into any children.enums list).
	for field, enum := range d.enumRef {
		if !registered(enum) || d.kindOf[enum] != KindEnum {
			v.Violations = append(v.Violations, &Violation{Entity: field, Message: fmt.Sprintf("enum_ref %d is not a type.enum entity", enum), Cause: ErrKindMismatch})
			continue
		}
		enumParent, hasParent := d.parent[enum]
		if !hasParent {
			continue // anonymous, unattached enum: always in scope
		}
		ancestors := d.Ancestors(field)
		found := false
		for _, a := range ancestors {
			if a == enumParent {
				found = true
				break
			}
		}
		if !found {
			v.Violations = append(v.Violations, &Violation{Entity: field, Message: fmt.Sprintf("enum %d is not scoped to an ancestor of field %d", enum, field), Cause: ErrKindMismatch})
		}
	}

	// I6: instance typing - instance.peripheral must target a
	// type.peripheral or type.register_group.
	for inst, typ := range d.instanceType {
		if !registered(typ) || (d.kindOf[typ] != KindPeripheral && d.kindOf[typ] != KindRegisterGroup) {
			v.Violations = append(v.Violations, &Violation{Entity: inst, Message: fmt.Sprintf("instance targets entity %d which is neither type.peripheral nor type.register_group", typ), Cause: ErrKindMismatch})
		}
	}

	if len(v.Violations) == 0 {
		return nil
	}
	return &v
}
