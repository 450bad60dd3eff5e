package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// OptFloat is a float64 that may be absent. The zero value is absent.
type OptFloat struct {
	V     float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) OptFloat {
	return OptFloat{V: v, Valid: true}
}

// None returns an absent value.
func None() OptFloat {
	return OptFloat{}
}

// Get returns the value and whether it is present.
func (o OptFloat) Get() (float64, bool) {
	return o.V, o.Valid
}

// Ptr returns nil when absent.
func (o OptFloat) Ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.V
	return &v
}

// FromPtr converts a nullable pointer.
func FromPtr(p *float64) OptFloat {
	if p == nil {
		return None()
	}
	return Some(*p)
}

func (o OptFloat) String() string {
	if !o.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(o.V, 'f', -1, 64)
}

func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.V)
}

func (o *OptFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
