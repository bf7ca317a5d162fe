package imgsetup_lib

import "fmt"

// ExternalToolError reports a non-zero exit from an invoked system tool.
// The tools give no structured error payloads, so the exit status is all
// there is to carry.
type ExternalToolError struct {
	Tool string
	Err  error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("external tool '%s' failed: %s", e.Tool, e.Err.Error())
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
