package restrt

import (
	"encoding/json"
	"testing"
)

func TestSerializeLeafValue_PassThroughPrimitives(t *testing.T) {
	rt := newTestRuntime(t)
	cases := []any{"s", true, int(1), int32(2), int64(3), float32(1.5), float64(2.5)}
	for _, in := range cases {
		out, err := rt.SerializeLeafValue(t.Context(), "", in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != in {
			t.Fatalf("pass-through failed: in=%v (%T) out=%v (%T)", in, in, out, out)
		}
	}
}

func TestSerializeLeafValue_Nil(t *testing.T) {
	rt := newTestRuntime(t)
	out, err := rt.SerializeLeafValue(t.Context(), "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil, got %v (%T)", out, out)
	}
}

func TestSerializeLeafValue_BytesBase64(t *testing.T) {
	rt := newTestRuntime(t)
	in := []byte{0x01, 0x02, 0xFF}
	out, err := rt.SerializeLeafValue(t.Context(), "Bytes", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := out.(string); !ok || s != "AQL/" {
		t.Fatalf("expected base64 'AQL/', got %v (%T)", out, out)
	}
}

func TestSerializeLeafValue_NumberAsInt(t *testing.T) {
	rt := newTestRuntime(t)

	out, err := rt.SerializeLeafValue(t.Context(), "Int", json.Number("42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != int64(42) {
		t.Fatalf("expected int64(42), got %v (%T)", out, out)
	}

	if _, err := rt.SerializeLeafValue(t.Context(), "Int", json.Number("1.5")); err == nil {
		t.Fatalf("expected error for fractional Int")
	}
}

func TestSerializeLeafValue_NumberAsFloat(t *testing.T) {
	rt := newTestRuntime(t)
	out, err := rt.SerializeLeafValue(t.Context(), "Float", json.Number("1.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != float64(1.5) {
		t.Fatalf("expected 1.5, got %v (%T)", out, out)
	}
}

func TestSerializeLeafValue_NumberAsID_KeepsDigits(t *testing.T) {
	rt := newTestRuntime(t)
	// Larger than 2^53; would lose precision through float64.
	out, err := rt.SerializeLeafValue(t.Context(), "ID", json.Number("9007199254740993"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "9007199254740993" {
		t.Fatalf("expected string id, got %v (%T)", out, out)
	}
}

func TestSerializeLeafValue_NumberAsCustomScalar(t *testing.T) {
	rt := newTestRuntime(t)

	out, err := rt.SerializeLeafValue(t.Context(), "Timestamp", json.Number("3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != int64(3) {
		t.Fatalf("expected int64(3), got %v (%T)", out, out)
	}

	out, err = rt.SerializeLeafValue(t.Context(), "Timestamp", json.Number("2.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != float64(2.5) {
		t.Fatalf("expected 2.5, got %v (%T)", out, out)
	}
}
