package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/c360studio/specgov/validation"
)

// renderDiagnostics prints a change set's diagnostics in a compact
// human-readable form, one finding per line.
func renderDiagnostics(w io.Writer, change string, diags []validation.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintf(w, "%s: ok\n", change)
		return
	}
	fmt.Fprintf(w, "%s:\n", change)
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d.String())
	}
}

func asExitError(err error, target **ExitError) bool {
	return errors.As(err, target)
}
