package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

func TestBuiltinValidators(t *testing.T) {
	validators := builtinValidators()

	tests := []struct {
		validator string
		input     string
		want      any
		wantErr   bool
	}{
		{ValidatorText, "  Ada ", "Ada", false},
		{ValidatorText, "   ", nil, true},
		{ValidatorNumber, "3.5", 3.5, false},
		{ValidatorNumber, "three", nil, true},
		{ValidatorNumber, "NaN", nil, true},
		{ValidatorNumber, "-Inf", nil, true},
		{ValidatorNumber, "1e999", nil, true},
		{ValidatorInteger, " 42", 42, false},
		{ValidatorInteger, "4.2", nil, true},
		{ValidatorConfirm, "Yes!", true, false},
		{ValidatorConfirm, "nope", false, false},
		{ValidatorConfirm, "maybe", nil, true},
		{ValidatorEmail, "Ada <ada@example.com>", "ada@example.com", false},
		{ValidatorEmail, "not-an-address", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.validator+"/"+tt.input, func(t *testing.T) {
			got, err := validators[tt.validator](context.Background(), tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}
