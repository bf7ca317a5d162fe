package imgsetup_pm

import (
	"fmt"
	"os"
	"strings"

	wzlib_subprocess "github.com/infra-whizz/wzlib/subprocess"

	imgsetup_lib "github.com/drauger-os-development/img-setup/lib"
)

// BasePackageManager mixin
type BasePackageManager struct {
	env map[string]string
}

func (bpm *BasePackageManager) callPackageManager(name string, args ...string) error {
	cmd := wzlib_subprocess.ExecCommand(name, args...)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stderr // keep stdout free for the progress line
	cmd.Stdin = os.Stdin

	if bpm.env != nil {
		cmd.Env = os.Environ()
		for ek, ev := range bpm.env {
			if strings.Contains(ev, " ") {
				ev = fmt.Sprintf("\"%s\"", ev)
			}
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", strings.TrimSpace(ek), ev))
		}
	}

	if err := cmd.Run(); err != nil {
		return &imgsetup_lib.ExternalToolError{Tool: name, Err: err}
	}
	return nil
}
