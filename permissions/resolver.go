package permissions

import "sort"

// Override is a single per-user (permission, effect) pair as stored. Both
// fields are raw strings: resolution must tolerate values that were valid
// when written but have since been retired from the catalog.
type Override struct {
	Permission string
	Effect     string
}

// Set is a resolved collection of permissions with set semantics.
type Set map[Permission]struct{}

// Has reports whether the set contains the given permission.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether the set contains at least one of the given permissions.
func (s Set) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every one of the given permissions.
func (s Set) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Missing returns the subset of the given permissions absent from the set,
// in the order they were asked for.
func (s Set) Missing(perms ...Permission) []Permission {
	var missing []Permission
	for _, p := range perms {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Slice returns the set's permissions as a sorted slice, for stable JSON
// output and comparisons.
func (s Set) Slice() []Permission {
	perms := make([]Permission, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Resolve computes a user's effective permission set from their role, their
// superuser flag, and their stored overrides:
//
//   - superusers get the full catalog; role and overrides are irrelevant
//   - everyone else starts from the role's defaults (empty for unknown roles)
//   - overrides partition into allows and denies; entries whose permission
//     string is not in the catalog, or whose effect is unknown, are skipped
//     silently
//   - the result is (defaults ∪ allows) − denies, so a deny always beats an
//     allow for the same permission no matter which override was created first
//
// Resolve is a pure function of its arguments: it never touches storage and
// returns the same set for the same (role, superuser, overrides) triple.
func Resolve(role Role, isSuperuser bool, overrides []Override) Set {
	if isSuperuser {
		full := make(Set, len(allPermissions))
		for _, p := range allPermissions {
			full[p] = struct{}{}
		}
		return full
	}

	effective := make(Set)
	for _, p := range RoleDefaults[role] {
		effective[p] = struct{}{}
	}

	allows := make(Set)
	denies := make(Set)
	for _, ov := range overrides {
		perm, ok := Parse(ov.Permission)
		if !ok {
			// stale or retired permission string, skip
			continue
		}
		switch Effect(ov.Effect) {
		case EffectAllow:
			allows[perm] = struct{}{}
		case EffectDeny:
			denies[perm] = struct{}{}
		}
	}

	for p := range allows {
		effective[p] = struct{}{}
	}
	for p := range denies {
		delete(effective, p)
	}

	return effective
}
