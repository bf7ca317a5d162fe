package imgsetup_boot

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestArtifactPrefersHigherVersion(t *testing.T) {
	names := []string{"vmlinuz-5.4.0-3", "vmlinuz-5.10.0-9", "config-5.4.0-3", "grub"}

	latest, ok := LatestArtifact(names, "vmlinuz-")
	require.True(t, ok)
	assert.Equal(t, "vmlinuz-5.10.0-9", latest)

	latest, ok = LatestArtifact(names, "config-")
	require.True(t, ok)
	assert.Equal(t, "config-5.4.0-3", latest)

	_, ok = LatestArtifact(names, "System.map-")
	assert.False(t, ok)
}

func stageBootDir(t *testing.T, bi *Installer, versions ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(bi.bootDir, 0755))
	require.NoError(t, os.MkdirAll(path.Join(bi.espDir, bi.vendor), 0755))
	for _, version := range versions {
		for _, prefix := range []string{"vmlinuz-", "config-", "initrd.img-", "System.map-"} {
			name := path.Join(bi.bootDir, prefix+version)
			require.NoError(t, ioutil.WriteFile(name, []byte(prefix+version), 0644))
		}
	}
}

func newSyncInstaller(t *testing.T) *Installer {
	t.Helper()
	tmp := t.TempDir()
	return NewInstaller("systemd-boot", "/dev/sda2").
		SetBootDir(path.Join(tmp, "boot")).
		SetESPDir(path.Join(tmp, "efi"))
}

func TestSyncKernelArtifactsCopiesNewest(t *testing.T) {
	bi := newSyncInstaller(t)
	stageBootDir(t, bi, "5.4.0-3", "5.10.0-9")

	require.NoError(t, bi.syncKernelArtifacts())

	for name, content := range map[string]string{
		"vmlinuz":    "vmlinuz-5.10.0-9",
		"config":     "config-5.10.0-9",
		"initrd.img": "initrd.img-5.10.0-9",
		"System.map": "System.map-5.10.0-9",
	} {
		data, err := ioutil.ReadFile(path.Join(bi.espDir, bi.vendor, name))
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}
}

func TestSyncKernelArtifactsSkipsExistingDestination(t *testing.T) {
	bi := newSyncInstaller(t)
	stageBootDir(t, bi, "5.10.0-9")

	placed := path.Join(bi.espDir, bi.vendor, "vmlinuz")
	require.NoError(t, ioutil.WriteFile(placed, []byte("already in place"), 0644))

	require.NoError(t, bi.syncKernelArtifacts())

	data, err := ioutil.ReadFile(placed)
	require.NoError(t, err)
	assert.Equal(t, "already in place", string(data))
}

func TestSyncKernelArtifactsMissingSourceIsFatal(t *testing.T) {
	bi := newSyncInstaller(t)
	stageBootDir(t, bi, "5.10.0-9")
	require.NoError(t, os.Remove(path.Join(bi.bootDir, "System.map-5.10.0-9")))

	err := bi.syncKernelArtifacts()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing bootable")
}
