package imgsetup_chroot

import (
	"fmt"
	"os"
	"path"
	"sync"
	"syscall"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
)

// MountSetupError reports a failure switching the process root in or out
// of the target. This is fatal for the whole installation.
type MountSetupError struct {
	Op  string
	Err error
}

func (e *MountSetupError) Error() string {
	return fmt.Sprintf("chroot setup failed on %s: %s", e.Op, e.Err.Error())
}

func (e *MountSetupError) Unwrap() error {
	return e.Err
}

// The process root and mount namespace are global, so only one session
// may be active per process.
var sessionMu sync.Mutex
var sessionActive bool

// Session switches the process into the target root and back. Enter and
// Exit come strictly in pairs: the caller defers Exit immediately after a
// successful Enter so teardown runs on every path.
type Session struct {
	target   string
	table    *MountTable
	realRoot *os.File

	openRootFn func() (*os.File, error)
	chdirFn    func(dir string) error
	fdChdirFn  func(fd *os.File) error
	chrootFn   func(dir string) error

	wzlib_logger.WzLogger
}

func NewSession(target string) *Session {
	s := new(Session)
	s.target = path.Clean(target)
	s.table = NewMountTable(s.target)
	s.openRootFn = func() (*os.File, error) { return os.Open("/") }
	s.chdirFn = os.Chdir
	s.fdChdirFn = func(fd *os.File) error { return fd.Chdir() }
	s.chrootFn = syscall.Chroot
	return s
}

// Target root of the session
func (s *Session) Target() string {
	return s.target
}

// Enter captures a handle to the real root, mounts the pseudo-filesystems
// and switches the process root to the target. The handle is taken before
// any mount or root switch: it is the only way back once both the working
// directory and the root have changed.
func (s *Session) Enter() error {
	sessionMu.Lock()
	if sessionActive {
		sessionMu.Unlock()
		return fmt.Errorf("another chroot session is already active in this process")
	}
	sessionActive = true
	sessionMu.Unlock()

	root, err := s.openRootFn()
	if err != nil {
		s.release()
		return &MountSetupError{Op: "open real root", Err: err}
	}
	s.realRoot = root

	s.table.MountAll(PseudoFilesystems())

	if err := s.chdirFn(s.target); err != nil {
		s.abortEnter()
		return &MountSetupError{Op: "chdir", Err: err}
	}
	if err := s.chrootFn(s.target); err != nil {
		s.abortEnter()
		return &MountSetupError{Op: "chroot", Err: err}
	}

	s.GetLogger().Debugf("Entered chroot at %s", s.target)
	return nil
}

// Exit reverses Enter: unmounts in reverse order, returns to the captured
// real root and releases the handle. Unmount failures are tolerated so that
// every teardown step still runs, but they are reported as an incomplete
// teardown. A failure restoring the root itself is fatal.
func (s *Session) Exit() error {
	if s.realRoot == nil {
		return fmt.Errorf("chroot session is not active")
	}
	defer s.release()

	teardownErr := s.table.UnmountAll()

	if err := s.fdChdirFn(s.realRoot); err != nil {
		return &MountSetupError{Op: "fchdir to real root", Err: err}
	}
	if err := s.chrootFn("."); err != nil {
		return &MountSetupError{Op: "chroot back", Err: err}
	}

	s.GetLogger().Debugf("Left chroot at %s", s.target)
	return teardownErr
}

// abortEnter rolls back a partially entered session before the root switch
// succeeded: the real root is still in place, only mounts need reversing.
func (s *Session) abortEnter() {
	if err := s.table.UnmountAll(); err != nil {
		s.GetLogger().Warn(err.Error())
	}
	s.release()
}

func (s *Session) release() {
	if s.realRoot != nil {
		s.realRoot.Close()
		s.realRoot = nil
	}
	sessionMu.Lock()
	sessionActive = false
	sessionMu.Unlock()
}
