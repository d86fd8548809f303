package metadata

import (
	"testing"

	"github.com/bep/imagemeta"
)

type fakeRational struct{ num, den float64 }

func (r fakeRational) Float64() float64 { return r.num / r.den }

func TestAsFloat(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
		ok    bool
	}{
		{"float64", float64(2.8), 2.8, true},
		{"float32", float32(1.5), 1.5, true},
		{"int", int(-3), -3, true},
		{"uint16", uint16(200), 200, true},
		{"uint32", uint32(4000), 4000, true},
		{"int64", int64(7), 7, true},
		{"rational", fakeRational{1, 4}, 0.25, true},
		{"slice takes first", []interface{}{uint16(100), uint16(200)}, 100, true},
		{"empty slice", []interface{}{}, 0, false},
		{"string", "2.8", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asFloat(tt.value)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !almostEqual(got, tt.want) {
				t.Errorf("value = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestTagString(t *testing.T) {
	tags := map[string]imagemeta.TagInfo{
		"Make":    {Tag: "Make", Value: "  Canon\x00"},
		"Model":   {Tag: "Model", Value: ""},
		"Weird":   {Tag: "Weird", Value: uint16(5)},
		"Padding": {Tag: "Padding", Value: "\x00\x00"},
	}

	if got, ok := tagString(tags, "Make"); !ok || got != "Canon" {
		t.Errorf("Make = %q/%v, want Canon/true", got, ok)
	}
	if _, ok := tagString(tags, "Model"); ok {
		t.Error("empty string value should report false")
	}
	if _, ok := tagString(tags, "Weird"); ok {
		t.Error("non-string value should report false")
	}
	if _, ok := tagString(tags, "Padding"); ok {
		t.Error("NUL padding should report false")
	}
	if _, ok := tagString(tags, "Missing"); ok {
		t.Error("missing tag should report false")
	}
}

func TestTagInt(t *testing.T) {
	tags := map[string]imagemeta.TagInfo{
		"Orientation": {Tag: "Orientation", Value: uint16(6)},
		"Bad":         {Tag: "Bad", Value: "six"},
	}

	if got, ok := tagInt(tags, "Orientation"); !ok || got != 6 {
		t.Errorf("Orientation = %d/%v, want 6/true", got, ok)
	}
	if _, ok := tagInt(tags, "Bad"); ok {
		t.Error("non-numeric value should report false")
	}
}
