package imgsetup_lib

import (
	"bytes"
	"os"
	"os/exec"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
)

type StdoutLogger struct {
	wzlib_logger.WzLogger
}

func (sl *StdoutLogger) Write(p []byte) (n int, err error) {
	sl.GetLogger().Info(strings.TrimSpace(string(p)))
	return len(p), nil
}

// LoggedExec runs an external tool, routing its stdout through the logger.
// A non-zero exit is returned as ExternalToolError.
func LoggedExec(cmd string, args ...string) error {
	wzlib_logger.GetCurrentLogger().Debugf("Calling: %s %v", cmd, args)
	out := exec.Command(cmd, args...)
	out.Stdin = os.Stdin
	out.Stdout = &StdoutLogger{}
	out.Stderr = os.Stderr
	if err := out.Run(); err != nil {
		return &ExternalToolError{Tool: cmd, Err: err}
	}
	return nil
}

// OutputExec runs an external tool and returns its trimmed stdout.
func OutputExec(cmd string, args ...string) (string, error) {
	wzlib_logger.GetCurrentLogger().Debugf("Calling: %s %v", cmd, args)
	var buff bytes.Buffer
	out := exec.Command(cmd, args...)
	out.Stdout = &buff
	out.Stderr = os.Stderr
	if err := out.Run(); err != nil {
		return "", &ExternalToolError{Tool: cmd, Err: err}
	}
	return strings.TrimSpace(buff.String()), nil
}

// InputExec runs an external tool feeding the given data to its stdin.
// Used for tools like chpasswd that only take credentials this way.
func InputExec(input string, cmd string, args ...string) error {
	out := exec.Command(cmd, args...)
	out.Stdin = strings.NewReader(input)
	out.Stdout = &StdoutLogger{}
	out.Stderr = os.Stderr
	if err := out.Run(); err != nil {
		return &ExternalToolError{Tool: cmd, Err: err}
	}
	return nil
}
