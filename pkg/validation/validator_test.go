package validation

import (
	"math"
	"strings"
	"testing"
)

type passRecord struct {
	Name   string  `validate:"required,oneof=wall soil"`
	Radius float64 `validate:"gt=0"`
	K      int     `validate:"min=1,max=64"`
	Offset float64 `validate:"finite"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   passRecord
		wantErr string
	}{
		{"Valid", passRecord{Name: "wall", Radius: 0.5, K: 8}, ""},
		{"MissingName", passRecord{Radius: 0.5, K: 8}, "field is required"},
		{"UnknownName", passRecord{Name: "roof", Radius: 0.5, K: 8}, "must be one of"},
		{"ZeroRadius", passRecord{Name: "soil", K: 8}, "greater than 0"},
		{"KTooSmall", passRecord{Name: "soil", Radius: 1}, "at least 1"},
		{"KTooLarge", passRecord{Name: "soil", Radius: 1, K: 65}, "must not exceed 64"},
		{"NaNOffset", passRecord{Name: "soil", Radius: 1, K: 8, Offset: math.NaN()}, "must be a finite number"},
		{"InfOffset", passRecord{Name: "soil", Radius: 1, K: 8, Offset: math.Inf(1)}, "must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStructNil(t *testing.T) {
	if err := Struct(nil); err == nil {
		t.Error("expected error for nil value")
	}
}
