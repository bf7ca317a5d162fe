package imgsetup_chroot

import (
	"fmt"
	"os"
	"path"
	"strings"
	"syscall"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"golang.org/x/sys/unix"

	imgsetup_lib "github.com/drauger-os-development/img-setup/lib"
)

// MountEntry describes one pseudo-filesystem bound into the target root.
type MountEntry struct {
	Source string
	Target string // relative to the chroot root
	FSType string
	Flags  uintptr
	Data   string

	// Conditional entries are only mounted when the target path already
	// exists under the root (efivars on non-UEFI systems).
	Conditional bool
}

// PseudoFilesystems returns the fixed, ordered mount list the tools inside
// the chroot expect. Teardown walks this in reverse.
func PseudoFilesystems() []MountEntry {
	return []MountEntry{
		{Source: "proc", Target: "/proc", FSType: "proc",
			Flags: syscall.MS_NOSUID | syscall.MS_NOEXEC | syscall.MS_NODEV},
		{Source: "sys", Target: "/sys", FSType: "sysfs",
			Flags: syscall.MS_NOSUID | syscall.MS_NOEXEC | syscall.MS_NODEV | syscall.MS_RDONLY},
		{Source: "efivars", Target: "/sys/firmware/efi/efivars", FSType: "efivarfs",
			Flags:       syscall.MS_NOSUID | syscall.MS_NOEXEC | syscall.MS_NODEV,
			Conditional: true},
		{Source: "udev", Target: "/dev", FSType: "devtmpfs",
			Flags: syscall.MS_NOSUID, Data: "mode=0755"},
		{Source: "devpts", Target: "/dev/pts", FSType: "devpts",
			Flags: syscall.MS_NOSUID | syscall.MS_NOEXEC, Data: "mode=0620,gid=5"},
		{Source: "shm", Target: "/dev/shm", FSType: "tmpfs",
			Flags: syscall.MS_NOSUID | syscall.MS_NOEXEC | syscall.MS_NODEV},
		{Source: "/run", Target: "/run",
			Flags: syscall.MS_BIND},
		{Source: "tmp", Target: "/tmp", FSType: "tmpfs",
			Flags: syscall.MS_NODEV | syscall.MS_NOSUID | syscall.MS_STRICTATIME, Data: "mode=1777"},
	}
}

// MountTable owns the pseudo-filesystem mounts of one target root.
// All operations touch the global mount namespace, so a table is not
// reentrant for the same root.
type MountTable struct {
	root   string
	active []MountEntry

	mountFn     func(source string, target string, fstype string, flags uintptr, data string) error
	unmountFn   func(target string, flags int) error
	isMountedFn func(target string) bool

	wzlib_logger.WzLogger
}

func NewMountTable(root string) *MountTable {
	mt := new(MountTable)
	mt.root = root
	mt.mountFn = syscall.Mount
	mt.unmountFn = syscall.Unmount
	mt.isMountedFn = imgsetup_lib.IsMounted
	return mt
}

// MountAll attempts every entry in order. Individual failures are tolerated:
// some entries are optional or already satisfied by the caller's environment.
// Successfully mounted entries are tracked for teardown.
func (mt *MountTable) MountAll(entries []MountEntry) {
	for _, entry := range entries {
		target := path.Join(mt.root, entry.Target)
		if entry.Conditional {
			if _, err := os.Stat(target); os.IsNotExist(err) {
				mt.GetLogger().Debugf("Skipping %s: not present on this system", target)
				continue
			}
		}
		mt.GetLogger().Debugf("Mounting %s...", target)
		if err := mt.mountFn(entry.Source, target, entry.FSType, entry.Flags, entry.Data); err != nil {
			mt.GetLogger().Warnf("Unable to mount %s: %s", target, err.Error())
			continue
		}
		mt.active = append(mt.active, entry)
	}
}

// UnmountAll tears down the active mounts in exact reverse order of
// mounting. Every entry is attempted regardless of earlier failures;
// a non-nil return means the teardown is incomplete.
func (mt *MountTable) UnmountAll() error {
	var leftover []string
	for i := len(mt.active) - 1; i >= 0; i-- {
		target := path.Join(mt.root, mt.active[i].Target)
		if err := mt.unmount(target); err != nil {
			mt.GetLogger().Warnf("Unable to unmount %s: %s", target, err.Error())
			leftover = append(leftover, target)
		}
	}
	mt.active = nil

	if len(leftover) > 0 {
		return fmt.Errorf("teardown incomplete, still mounted: %s", strings.Join(leftover, ", "))
	}
	return nil
}

// unmount attempts a normal unmount and retries with a lazy detach.
// An already unmounted target counts as success, but only when the mount
// table agrees: EINVAL or ENOENT on a target /proc/mounts still lists
// would silently leak the mount otherwise.
func (mt *MountTable) unmount(target string) error {
	err := mt.unmountFn(target, 0)
	if (err == nil || err == syscall.EINVAL || err == syscall.ENOENT) && !mt.isMountedFn(target) {
		return nil
	}
	if err := mt.unmountFn(target, syscall.MNT_DETACH|unix.UMOUNT_NOFOLLOW); err != nil {
		return err
	}
	if mt.isMountedFn(target) {
		return fmt.Errorf("%s is still mounted after lazy detach", target)
	}
	return nil
}
