package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/chartview/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	out := h.Out
	if out == nil {
		out = os.Stderr
	}

	var groveErr *errors.GroveError
	hasDetails := stderrors.As(err, &groveErr)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(out, "❌ Configuration not found. Pass --config or create chartview.yml in the working directory.\n")

	case errors.ErrCodeConfigValidation, errors.ErrCodeConfigInvalid:
		fmt.Fprintf(out, "❌ %v\n", err)
		fmt.Fprintf(out, "Run 'chartview config schema' to see the accepted settings.\n")

	case errors.ErrCodeTransport:
		if hasDetails {
			fmt.Fprintf(out, "❌ Could not reach feed at %v\n", groveErr.Details["url"])
			fmt.Fprintf(out, "Check that the relay or producer is running ('chartview relay').\n")
		}

	case errors.ErrCodeInvalidVariable:
		if hasDetails {
			fmt.Fprintf(out, "❌ Variable '%v' not found. Available: %v\n",
				groveErr.Details["variable"], groveErr.Details["available"])
		}

	default:
		fmt.Fprintf(out, "❌ Error: %v\n", err)
	}

	if h.Verbose && hasDetails {
		fmt.Fprintf(out, "\nError details:\n%s\n", groveErr.ToJSON())
	}
	return err
}
