package runtime

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// Built-in prompt validator names.
const (
	ValidatorText    = "text"
	ValidatorNumber  = "number"
	ValidatorInteger = "integer"
	ValidatorConfirm = "confirm"
	ValidatorEmail   = "email"
)

func builtinValidators() map[string]ports.Validator {
	return map[string]ports.Validator{
		ValidatorText:    validateText,
		ValidatorNumber:  validateNumber,
		ValidatorInteger: validateInteger,
		ValidatorConfirm: validateConfirm,
		ValidatorEmail:   validateEmail,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func validateText(_ context.Context, input string) (any, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, invalid("empty input")
	}
	return s, nil
}

func validateNumber(_ context.Context, input string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid("%q is not a number", input)
	}
	return f, nil
}

func validateInteger(_ context.Context, input string) (any, error) {
	i, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return nil, invalid("%q is not an integer", input)
	}
	return i, nil
}

var confirmWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true, "true": true,
	"no": false, "n": false, "nope": false, "nah": false, "false": false,
}

func validateConfirm(_ context.Context, input string) (any, error) {
	word := strings.Trim(strings.ToLower(strings.TrimSpace(input)), ".!")
	v, ok := confirmWords[word]
	if !ok {
		return nil, invalid("%q is neither yes nor no", input)
	}
	return v, nil
}

func validateEmail(_ context.Context, input string) (any, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(input))
	if err != nil {
		return nil, invalid("%q is not an email address", input)
	}
	return addr.Address, nil
}
