package pipeline

import "context"

// Unit is one thing targets run against, e.g. a Go package. The engine only
// reads its name; everything else is between the unit supplier and targets.
type Unit interface {
	Name() string
}

// generatedUnit is implemented by units that can tell whether they consist
// of generated code.
type generatedUnit interface {
	Generated() bool
}

// IsGenerated reports whether u declares itself as generated code.
func IsGenerated(u Unit) bool {
	g, ok := u.(generatedUnit)
	return ok && g.Generated()
}

// UnitResolver supplies units at run time, already ordered.
type UnitResolver func(ctx context.Context) ([]Unit, error)

// NamedUnit is a Unit carrying only a name.
type NamedUnit string

// Name implements Unit.
func (n NamedUnit) Name() string { return string(n) }

// Units wraps names as NamedUnits.
func Units(names ...string) []Unit {
	units := make([]Unit, len(names))
	for i, n := range names {
		units[i] = NamedUnit(n)
	}
	return units
}
