// Package initwfn wraps Gorgonia weight initializers so that network
// configurations can be JSON serialized and so that initialization can
// be made reproducible with an explicit seed.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU       Type = "GlorotU"
	GlorotN       Type = "GlorotN"
	SeededGlorotU Type = "SeededGlorotU"
	SeededUniform Type = "SeededUniform"
	Zeroes        Type = "Zeroes"
	Ones          Type = "Ones"
	Constant      Type = "Constant"
)

// registered maps each Type to the concrete Config used to decode it
var registered = map[string]reflect.Type{
	string(GlorotU):       reflect.TypeOf(GlorotUConfig{}),
	string(GlorotN):       reflect.TypeOf(GlorotNConfig{}),
	string(SeededGlorotU): reflect.TypeOf(SeededGlorotUConfig{}),
	string(SeededUniform): reflect.TypeOf(SeededUniformConfig{}),
	string(Zeroes):        reflect.TypeOf(ZeroesConfig{}),
	string(Ones):          reflect.TypeOf(OnesConfig{}),
	string(Constant):      reflect.TypeOf(ConstantConfig{}),
}

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var typeName string
	if err := json.Unmarshal(m["Type"], &typeName); err != nil {
		return fmt.Errorf("unmarshalJSON: could not decode type: %v", err)
	}
	ty, ok := registered[typeName]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown initializer %q", typeName)
	}

	value := reflect.New(ty)
	if raw, ok := m["Config"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, value.Interface()); err != nil {
			return fmt.Errorf("unmarshalJSON: could not decode config: %v",
				err)
		}
	}

	i.Config = value.Elem().Interface().(Config)
	i.Type = Type(typeName)
	i.initWFn = i.Config.Create()
	return nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}
