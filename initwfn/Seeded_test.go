package initwfn

import (
	"encoding/json"
	"reflect"
	"testing"

	"gorgonia.org/tensor"
)

func TestSeededGlorotUReproducible(t *testing.T) {
	init, err := NewSeededGlorotU(1.0, 42)
	if err != nil {
		t.Fatal(err)
	}

	first := init.Config.Create()(tensor.Float64, 4, 3).([]float64)
	second := init.Config.Create()(tensor.Float64, 4, 3).([]float64)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical draws from identical seeds")
	}

	limit := 1.0 * 0.9258200997725514 // sqrt(6 / 7)
	for _, w := range first {
		if w < -limit || w > limit {
			t.Errorf("weight %v outside Glorot limit %v", w, limit)
		}
	}
}

func TestInitWFnJSONRoundTrip(t *testing.T) {
	init, err := NewSeededUniform(-0.1, 0.1, 7)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(init)
	if err != nil {
		t.Fatal(err)
	}

	var decoded InitWFn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != SeededUniform {
		t.Errorf("expected type %v but got %v", SeededUniform, decoded.Type)
	}
	if !reflect.DeepEqual(decoded.Config, init.Config) {
		t.Errorf("expected config %v but got %v", init.Config, decoded.Config)
	}
	if decoded.InitWFn() == nil {
		t.Error("initializer not created on unmarshal")
	}
}

func TestNewSeededUniformRejectsEmptyRange(t *testing.T) {
	if _, err := NewSeededUniform(1, 0, 1); err == nil {
		t.Error("expected error for high < low")
	}
}
