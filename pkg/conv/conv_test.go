package conv

import "testing"

func TestToInt(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int
		wantOK bool
	}{
		{"int", 8, 8, true},
		{"int64", int64(-1), -1, true},
		{"whole float", 8.0, 8, true},
		{"fractional float", 8.5, 0, false},
		{"string", "8", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ToInt(%v) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"float64", 0.1, 0.1, true},
		{"int", 3, 3, true},
		{"bool", true, 0, false},
		{"string", "0.1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ToFloat64(%v) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToBoolAndString(t *testing.T) {
	if b, ok := ToBool("True"); !ok || !b {
		t.Errorf("ToBool(\"True\") = (%v, %v)", b, ok)
	}
	if _, ok := ToBool(1); ok {
		t.Error("ToBool(1) should not convert")
	}
	if s, ok := ToString(20200101); !ok || s != "20200101" {
		t.Errorf("ToString(20200101) = (%q, %v)", s, ok)
	}
	if _, ok := ToString(1.5); ok {
		t.Error("ToString(1.5) should not convert")
	}
}
