package environment

import "fmt"

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// String implements the fmt.Stringer interface
func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	}
	return fmt.Sprintf("SpecType(%d)", int(s))
}

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type
// and size of an action or observation in an environment. The size of
// a discrete action Spec is the number of actions.
type Spec struct {
	Type SpecType
	Size int
	Cardinality
}

// NewSpec constructs a new environment specification
func NewSpec(t SpecType, size int, cardinality Cardinality) (Spec, error) {
	if size <= 0 {
		return Spec{}, fmt.Errorf("newSpec: %v spec must have positive "+
			"size, have %d", t, size)
	}
	return Spec{Type: t, Size: size, Cardinality: cardinality}, nil
}
