package imgsetup_boot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParentDisk(t *testing.T) {
	for device, disk := range map[string]string{
		"/dev/sda3":      "/dev/sda",
		"/dev/sda":       "/dev/sda",
		"/dev/nvme0n1p2": "/dev/nvme0n1",
		"/dev/mmcblk0p1": "/dev/mmcblk0",
		"/dev/vda12":     "/dev/vda",
	} {
		assert.Equal(t, disk, ParentDisk(device), "device %s", device)
	}
}

func TestInstallGrubCommandSequence(t *testing.T) {
	bi := NewInstaller("grub-pc", "/dev/sda3")
	commands := [][]string{}
	bi.runFn = func(cmd string, args ...string) error {
		commands = append(commands, append([]string{cmd}, args...))
		return nil
	}

	require.NoError(t, bi.installGrub())
	require.Len(t, commands, 3)
	assert.Equal(t, []string{"grub-mkdevicemap", "--verbose"}, commands[0])
	assert.Equal(t, []string{"grub-install", "--verbose", "--force", "--target=i386-pc", "/dev/sda"}, commands[1])
	assert.Equal(t, []string{"grub-mkconfig", "-o", "/boot/grub/grub.cfg"}, commands[2])
}

func TestInstallGrubToolFailureIsFatal(t *testing.T) {
	bi := NewInstaller("grub-pc", "/dev/sda3")
	bi.runFn = func(cmd string, args ...string) error {
		if cmd == "grub-install" {
			return fmt.Errorf("exit status 1")
		}
		return nil
	}

	require.Error(t, bi.installGrub())
}
