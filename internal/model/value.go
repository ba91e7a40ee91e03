package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a scalar that may be undefined, e.g. an SMA-200 over 150 bars.
// Undefined values encode as JSON null.
type Value struct {
	V       float64
	Defined bool
}

// Some wraps a defined value.
func Some(v float64) Value { return Value{V: v, Defined: true} }

// None is the undefined value.
func None() Value { return Value{} }

// Get returns the value and whether it is defined.
func (v Value) Get() (float64, bool) { return v.V, v.Defined }

// Or returns the value, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.Defined {
		return fallback
	}
	return v.V
}

// Format renders the value with a printf verb, or "N/A".
func (v Value) Format(verb string) string {
	if !v.Defined {
		return "N/A"
	}
	return fmt.Sprintf(verb, v.V)
}

// MarshalJSON writes null for undefined and non-finite values.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined || math.IsNaN(v.V) || math.IsInf(v.V, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = None()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
