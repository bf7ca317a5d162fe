package imgsetup_actions

import (
	"fmt"
	"io"
	"os"
	"time"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	imgsetup_settings "github.com/drauger-os-development/img-setup/settings"
)

// Report lists, per action, success (nil) or the captured error. The
// orchestrator never decides whether a failure is fatal; that is left to
// the caller.
type Report struct {
	Results map[string]error
}

func NewReport() *Report {
	return &Report{Results: map[string]error{}}
}

// Failed returns the subset of actions that reported an error.
func (r *Report) Failed() map[string]error {
	failed := map[string]error{}
	for name, err := range r.Results {
		if err != nil {
			failed[name] = err
		}
	}
	return failed
}

// Orchestrator launches independent configuration actions concurrently
// and tracks their completion by polling. The settings record is read-only
// once Run starts, so the actions need no synchronization between them.
type Orchestrator struct {
	progress     io.Writer
	pollInterval time.Duration

	wzlib_logger.WzLogger
}

func NewOrchestrator() *Orchestrator {
	orc := new(Orchestrator)
	orc.progress = os.Stdout
	orc.pollInterval = 50 * time.Millisecond
	return orc
}

// SetProgressWriter redirects the progress line (default: stdout).
// Diagnostics go to the logger, never here.
func (orc *Orchestrator) SetProgressWriter(out io.Writer) *Orchestrator {
	orc.progress = out
	return orc
}

// Run resolves each action's declared fields against the settings,
// launches everything runnable and polls until all actions have joined.
// There is no ordering guarantee between actions. An action failing,
// whether at field resolution or during its work, never disturbs its
// siblings.
func (orc *Orchestrator) Run(actions []*Action, settings imgsetup_settings.Record) *Report {
	report := NewReport()
	total := len(actions)
	if total == 0 {
		return report
	}

	completed := 0
	pending := map[string]chan error{}

	for _, action := range actions {
		args, err := orc.resolve(action, settings)
		if err != nil {
			// Checked at launch time, not deep inside the action.
			report.Results[action.Name] = err
			completed++
			continue
		}

		done := make(chan error, 1)
		pending[action.Name] = done
		go orc.launch(action, args, done)
	}

	orc.render(completed, total)
	for len(pending) > 0 {
		for name, done := range pending {
			select {
			case err := <-done:
				report.Results[name] = err
				delete(pending, name)
				completed++
				orc.render(completed, total)
			default:
			}
		}
		if len(pending) > 0 {
			time.Sleep(orc.pollInterval)
		}
	}
	fmt.Fprintln(orc.progress)

	return report
}

// resolve maps an action's declared field names onto their values.
func (orc *Orchestrator) resolve(action *Action, settings imgsetup_settings.Record) ([]string, error) {
	args := make([]string, 0, len(action.Fields))
	for _, field := range action.Fields {
		value, err := settings.Get(field)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}
	return args, nil
}

func (orc *Orchestrator) launch(action *Action, args []string, done chan error) {
	done <- func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("action '%s' panicked: %v", action.Name, r)
			}
		}()
		return action.Run(args)
	}()
}

// render overwrites the single progress line. The counter only ever grows
// and lands exactly on 100 when the last action joins.
func (orc *Orchestrator) render(completed int, total int) {
	fmt.Fprintf(orc.progress, "\r %d %%", completed*100/total)
}
