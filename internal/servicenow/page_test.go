// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package servicenow

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParsePage(t *testing.T) {
	body := []byte(`{"result": [
		{"sys_id": "abc123", "number": "INC0000001", "active": "true"},
		{"sys_id": "def456", "number": "INC0000002", "active": "false"}
	]}`)

	page, err := parsePage(body)
	if err != nil {
		t.Fatalf("parsePage() error = %v", err)
	}

	if page.Count() != 2 {
		t.Errorf("expected 2 rows, got %d", page.Count())
	}
	if page.TotalCount != -1 {
		t.Errorf("expected total count -1 without header, got %d", page.TotalCount)
	}
	if got := page.Rows[0]["number"]; got != "INC0000001" {
		t.Errorf("expected first row number INC0000001, got %v", got)
	}
}

func TestParsePage_ColumnOrder(t *testing.T) {
	// Keys deliberately not in alphabetical order. The column order must
	// follow the document, not a sorted map iteration.
	body := []byte(`{"result": [
		{"number": "INC0000001", "active": "true", "sys_id": "abc123", "category": "network"}
	]}`)

	page, err := parsePage(body)
	if err != nil {
		t.Fatalf("parsePage() error = %v", err)
	}

	want := []string{"number", "active", "sys_id", "category"}
	if !reflect.DeepEqual(page.Columns, want) {
		t.Errorf("expected columns %v, got %v", want, page.Columns)
	}
}

func TestParsePage_EmptyResult(t *testing.T) {
	page, err := parsePage([]byte(`{"result": []}`))
	if err != nil {
		t.Fatalf("parsePage() error = %v", err)
	}
	if page.Count() != 0 {
		t.Errorf("expected 0 rows, got %d", page.Count())
	}
	if page.Columns != nil {
		t.Errorf("expected no columns for an empty page, got %v", page.Columns)
	}
}

func TestParsePage_BadResult(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing result", `{"error": {"message": "User Not Authenticated"}}`},
		{"null result", `{"result": null}`},
		{"result not an array", `{"result": {"sys_id": "abc123"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePage([]byte(tt.body))
			if !errors.Is(err, ErrBadResult) {
				t.Errorf("expected ErrBadResult, got %v", err)
			}
		})
	}
}

func TestParsePage_InvalidJSON(t *testing.T) {
	if _, err := parsePage([]byte(`<html>Gateway Timeout</html>`)); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestDecodeRow_NumbersStayText(t *testing.T) {
	row, err := decodeRow(json.RawMessage(`{"order": 100, "reassignment_count": 0.50}`))
	if err != nil {
		t.Fatalf("decodeRow() error = %v", err)
	}

	num, ok := row["order"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", row["order"])
	}
	if num.String() != "100" {
		t.Errorf("expected 100, got %s", num.String())
	}
	if got := row["reassignment_count"].(json.Number).String(); got != "0.50" {
		t.Errorf("expected 0.50 to round-trip exactly, got %s", got)
	}
}

func TestObjectKeys_SkipsNestedValues(t *testing.T) {
	raw := json.RawMessage(`{"a": {"nested": [1, 2, {"deep": true}]}, "b": "x", "c": [{"k": "v"}]}`)
	keys, err := objectKeys(raw)
	if err != nil {
		t.Fatalf("objectKeys() error = %v", err)
	}

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("expected keys %v, got %v", want, keys)
	}
}

func TestObjectKeys_NotAnObject(t *testing.T) {
	if _, err := objectKeys(json.RawMessage(`["a", "b"]`)); err == nil {
		t.Error("expected error for a non-object record")
	}
}
