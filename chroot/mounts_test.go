package imgsetup_chroot

import (
	"math/rand"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unconditionalEntries drops the efivars entry, which depends on the
// target filesystem layout.
func unconditionalEntries() []MountEntry {
	entries := []MountEntry{}
	for _, entry := range PseudoFilesystems() {
		if !entry.Conditional {
			entries = append(entries, entry)
		}
	}
	return entries
}

type mountRecorder struct {
	mounted   []string
	unmounted []string
}

func (mr *mountRecorder) attach(mt *MountTable) {
	mt.mountFn = func(source, target, fstype string, flags uintptr, data string) error {
		mr.mounted = append(mr.mounted, target)
		return nil
	}
	mt.unmountFn = func(target string, flags int) error {
		mr.unmounted = append(mr.unmounted, target)
		return nil
	}
	mt.isMountedFn = func(target string) bool {
		return false
	}
}

func TestUnmountOrderIsReverseOfMountOrder(t *testing.T) {
	full := unconditionalEntries()
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		subset := []MountEntry{}
		for _, entry := range full {
			if rnd.Intn(2) == 0 {
				subset = append(subset, entry)
			}
		}

		mt := NewMountTable("/target")
		rec := &mountRecorder{}
		rec.attach(mt)

		mt.MountAll(subset)
		require.NoError(t, mt.UnmountAll())

		require.Len(t, rec.unmounted, len(rec.mounted))
		for i, target := range rec.mounted {
			assert.Equal(t, target, rec.unmounted[len(rec.unmounted)-1-i])
		}
	}
}

func TestMountFailureIsToleratedAndSkippedOnTeardown(t *testing.T) {
	mt := NewMountTable("/target")
	rec := &mountRecorder{}
	rec.attach(mt)

	failing := "/target/dev"
	inner := mt.mountFn
	mt.mountFn = func(source, target, fstype string, flags uintptr, data string) error {
		if target == failing {
			return syscall.EACCES
		}
		return inner(source, target, fstype, flags, data)
	}

	mt.MountAll(unconditionalEntries())
	require.NoError(t, mt.UnmountAll())

	assert.NotContains(t, rec.mounted, failing)
	assert.NotContains(t, rec.unmounted, failing)
	assert.NotEmpty(t, rec.mounted)
}

func TestConditionalEntryRequiresExistingTarget(t *testing.T) {
	root := t.TempDir()
	mt := NewMountTable(root)
	rec := &mountRecorder{}
	rec.attach(mt)

	mt.MountAll(PseudoFilesystems())
	assert.NotContains(t, rec.mounted, root+"/sys/firmware/efi/efivars")
}

func TestUnmountRetriesWithLazyDetach(t *testing.T) {
	mt := NewMountTable("/target")
	rec := &mountRecorder{}
	rec.attach(mt)

	detached := []int{}
	mt.unmountFn = func(target string, flags int) error {
		if flags == 0 {
			return syscall.EBUSY
		}
		detached = append(detached, flags)
		return nil
	}

	mt.MountAll(unconditionalEntries())
	require.NoError(t, mt.UnmountAll())
	assert.Len(t, detached, len(rec.mounted))
}

func TestAlreadyUnmountedCountsAsSuccess(t *testing.T) {
	mt := NewMountTable("/target")
	rec := &mountRecorder{}
	rec.attach(mt)

	calls := 0
	mt.unmountFn = func(target string, flags int) error {
		calls++
		return syscall.EINVAL
	}

	mt.MountAll(unconditionalEntries())
	require.NoError(t, mt.UnmountAll())
	// no lazy retry for a target that is simply not mounted anymore
	assert.Equal(t, len(rec.mounted), calls)
}

// ENOENT alone is not proof of a clean teardown: the verdict has to agree
// with the mount table, otherwise a mount whose directory vanished from
// under it would leak silently.
func TestUnmountSuccessIsVerifiedAgainstMountTable(t *testing.T) {
	mt := NewMountTable("/target")
	rec := &mountRecorder{}
	rec.attach(mt)

	leaked := "/target/dev/shm"
	attempts := map[string]int{}
	mt.unmountFn = func(target string, flags int) error {
		attempts[target]++
		if target == leaked {
			return syscall.ENOENT
		}
		return nil
	}
	mt.isMountedFn = func(target string) bool {
		return target == leaked
	}

	mt.MountAll(unconditionalEntries())
	err := mt.UnmountAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teardown incomplete")
	assert.Contains(t, err.Error(), leaked)
	// the leaked target still got the lazy detach attempt
	assert.Equal(t, 2, attempts[leaked])
}

func TestIncompleteTeardownIsReportedAfterAllAttempts(t *testing.T) {
	mt := NewMountTable("/target")
	rec := &mountRecorder{}
	rec.attach(mt)

	attempts := map[string]int{}
	mt.unmountFn = func(target string, flags int) error {
		attempts[target]++
		return syscall.EBUSY
	}

	mt.MountAll(unconditionalEntries())
	mounted := len(rec.mounted)

	err := mt.UnmountAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teardown incomplete")
	// every target got the normal attempt plus the lazy one
	require.Len(t, attempts, mounted)
	for _, count := range attempts {
		assert.Equal(t, 2, count)
	}
}
