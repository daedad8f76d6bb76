package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// Nullable separates three PATCH states for a JSON field: absent
// (Valid=false), explicit null (Valid=true, Value=nil) and a value.
type Nullable[T any] struct {
	Valid bool
	Value *T
}

// NullableUUID carries an optional foreign key such as a product's category.
type NullableUUID = Nullable[uuid.UUID]

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		n.Valid = true
		n.Value = nil
		return nil
	}

	var parsed T
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Valid = true
	n.Value = &parsed
	return nil
}

// Apply writes the field onto dst when it was present in the payload and
// reports whether dst changed.
func (n Nullable[T]) Apply(dst **T) bool {
	if !n.Valid {
		return false
	}
	if n.Value == nil {
		*dst = nil
		return true
	}
	v := *n.Value
	*dst = &v
	return true
}

// Set is shorthand for a present, non-null value.
func Set[T any](v T) Nullable[T] {
	return Nullable[T]{Valid: true, Value: &v}
}

// Null is shorthand for an explicit JSON null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Valid: true}
}
