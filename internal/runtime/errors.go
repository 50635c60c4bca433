package runtime

import (
	"fmt"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// UnknownDialogError is returned when a step or the root references a
// dialog that was never registered.
type UnknownDialogError struct {
	Dialog string
	From   string
}

func (e *UnknownDialogError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("unknown dialog %q", e.Dialog)
	}
	return fmt.Sprintf("dialog %q references unknown dialog %q", e.From, e.Dialog)
}

func (e *UnknownDialogError) Unwrap() error {
	return domain.ErrUnknownDialog
}

// ExpressionError reports an expression that failed or produced the wrong type.
type ExpressionError struct {
	Dialog string
	Expr   string
	Err    error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("dialog %q: expression %q: %v", e.Dialog, e.Expr, e.Err)
}

func (e *ExpressionError) Unwrap() []error {
	return []error{domain.ErrExpression, e.Err}
}

// StepLimitError is returned when a turn executes more steps than allowed,
// which usually means dialogs transfer to each other without ever waiting
// for input.
type StepLimitError struct {
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("turn exceeded %d steps without suspending", e.Limit)
}
