// Package solver wraps Gorgonia Solvers so that they can be JSON
// serialized into configuration files and driven with a learning rate
// that is chosen once per optimization epoch.
package solver

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
//
// Gorgonia Solvers fix their learning rate at construction. A Solver
// therefore rebuilds its underlying Gorgonia Solver whenever Update is
// called with a learning rate different from the one it was built
// with. Adaptive solvers (Adam, RMSProp) lose their moment estimates
// when this happens, so schedules that change the rate every epoch
// restart the moments every epoch.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if c.Rate() <= 0 {
		return nil, fmt.Errorf("newSolver: step size must be positive")
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// Update takes a single gradient step over model with the given
// learning rate. Only the ValueGrads in model are changed.
func (s *Solver) Update(learningRate float64, model []G.ValueGrad) error {
	if learningRate <= 0 {
		return fmt.Errorf("update: learning rate must be positive, have %v",
			learningRate)
	}
	if learningRate != s.Config.Rate() {
		s.Config = s.Config.WithRate(learningRate)
		s.Solver = s.Config.Create()
	}
	if err := s.Step(model); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	return nil
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(Vanilla): reflect.TypeOf(VanillaConfig{}),
			string(Adam):    reflect.TypeOf(AdamConfig{}),
			string(RMSProp): reflect.TypeOf(RMSPropConfig{}),
		})
	if err != nil {
		return err
	}

	s.Type = typeName
	s.Config = config
	s.Solver = s.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalConfig: missing solver type")
	}
	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalConfig: unknown solver type %q",
			typeName)
	}
	value := reflect.New(ty)

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, value.Interface()); err != nil {
		return nil, "", err
	}

	return value.Elem().Interface().(Config), Type(typeName), nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	// Rate returns the learning rate of the configuration and WithRate
	// returns a copy of the configuration using a new learning rate.
	Rate() float64
	WithRate(float64) Config
}
