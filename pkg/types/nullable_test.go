package types

import (
	"encoding/json"
	"testing"
)

func TestNullableUUIDUnmarshal(t *testing.T) {
	type payload struct {
		ID NullableUUID `json:"id"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"id": "00000000-0000-0000-0000-000000000001"}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.ID.Valid || got.ID.Value == nil {
		t.Fatalf("expected valid uuid, got %v", got.ID)
	}
	if got.ID.Value.String() != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected uuid %s", got.ID.Value)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"id": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.ID.Valid || got.ID.Value != nil {
		t.Fatalf("expected null to be valid but nil, got %v", got.ID)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.ID.Valid {
		t.Fatalf("expected invalid flag for missing field, got %+v", got.ID)
	}
}

func TestNullableApply(t *testing.T) {
	type patch struct {
		Note Nullable[string] `json:"note"`
	}
	current := "gift wrap"
	dst := &current

	var p patch
	if err := json.Unmarshal([]byte(`{}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Note.Apply(&dst) || dst == nil || *dst != "gift wrap" {
		t.Fatalf("absent field must leave destination untouched, got %v", dst)
	}

	if err := json.Unmarshal([]byte(`{"note": "leave at door"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Note.Apply(&dst) || *dst != "leave at door" {
		t.Fatalf("expected value applied, got %v", dst)
	}
	if current != "gift wrap" {
		t.Fatal("apply must not write through the old pointer")
	}

	if !Null[string]().Apply(&dst) || dst != nil {
		t.Fatalf("expected null to clear destination, got %v", dst)
	}
	if v := Set(3); !v.Valid || *v.Value != 3 {
		t.Fatalf("unexpected Set result %+v", v)
	}
}

func TestNullableRejectsWrongType(t *testing.T) {
	var n NullableUUID
	if err := json.Unmarshal([]byte(`"not-a-uuid"`), &n); err == nil {
		t.Fatal("expected error for invalid uuid")
	}
}
