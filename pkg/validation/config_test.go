package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("OutputConfig")
	cv.Required("Path", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("OutputConfig")
	cv2.Required("Path", "out.json")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_Numeric(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(*ConfigValidator)
		expectErr bool
	}{
		{"Positive zero", func(cv *ConfigValidator) { cv.Positive("KMax", 0) }, true},
		{"NonNegative negative", func(cv *ConfigValidator) { cv.NonNegative("RetryBudget", -1) }, true},
		{"NonNegative zero", func(cv *ConfigValidator) { cv.NonNegative("RetryBudget", 0) }, false},
		{"PositiveFloat zero", func(cv *ConfigValidator) { cv.PositiveFloat("InitialRadius", 0) }, true},
		{"PositiveFloat ok", func(cv *ConfigValidator) { cv.PositiveFloat("InitialRadius", 0.5) }, false},
		{"NonNegativeFloat negative", func(cv *ConfigValidator) { cv.NonNegativeFloat("FallbackMaxDistance", -2) }, true},
		{"MinDuration below", func(cv *ConfigValidator) { cv.MinDuration("Timeout", time.Millisecond, time.Second) }, true},
		{"MinDuration equal", func(cv *ConfigValidator) { cv.MinDuration("Timeout", time.Second, time.Second) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			tt.apply(cv)
			if cv.HasErrors() != tt.expectErr {
				t.Errorf("HasErrors() = %v, want %v (%v)", cv.HasErrors(), tt.expectErr, cv.Errors())
			}
		})
	}
}

func TestConfigValidator_FieldError(t *testing.T) {
	cv := NewConfigValidator("Config")
	cv.Required("SoilSlaves", "")

	var fe *FieldError
	if !errors.As(cv.Validate(), &fe) {
		t.Fatalf("expected a *FieldError, got %v", cv.Validate())
	}
	if fe.Config != "Config" || fe.Field != "SoilSlaves" {
		t.Errorf("unexpected address %s.%s", fe.Config, fe.Field)
	}
	if !strings.HasPrefix(fe.Error(), "Config.SoilSlaves: ") {
		t.Errorf("error should name the field: %v", fe)
	}
}

func TestConfigValidator_CustomWraps(t *testing.T) {
	sentinel := errors.New("radius order")
	cv := NewConfigValidator("PassConfig")
	cv.Custom("MaxRadius", func() error { return sentinel })

	if !errors.Is(cv.Validate(), sentinel) {
		t.Errorf("Validate() should wrap the custom error: %v", cv.Validate())
	}
}

func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("OutputConfig")
	cv.When(false, func(cv *ConfigValidator) { cv.Required("Bucket", "") })
	if cv.HasErrors() {
		t.Error("When(false) should skip validations")
	}
	cv.When(true, func(cv *ConfigValidator) { cv.Required("Bucket", "") })
	if !cv.HasErrors() {
		t.Error("When(true) should apply validations")
	}
}

func TestConfigValidator_ValidateJoinsAll(t *testing.T) {
	cv := NewConfigValidator("PassConfig")
	cv.PositiveFloat("InitialRadius", 0).Positive("KMax", 0).Positive("MinNeighbors", 3)

	if len(cv.Errors()) != 2 {
		t.Fatalf("Errors() = %d, want 2", len(cv.Errors()))
	}
	msg := cv.Validate().Error()
	if !strings.Contains(msg, "InitialRadius") || !strings.Contains(msg, "KMax") {
		t.Errorf("joined error missing a field: %s", msg)
	}
	if NewConfigValidator("Empty").Validate() != nil {
		t.Error("Validate() on a clean validator should be nil")
	}
}

func TestDefaultOr(t *testing.T) {
	if DefaultOr("", "json") != "json" {
		t.Error("DefaultOr should fall back for the zero value")
	}
	if DefaultOr(0.25, 0.1) != 0.25 {
		t.Error("DefaultOr should keep a non-zero value")
	}
}
