package imgsetup_boot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePackageManager struct {
	installed []string
	upgraded  bool
	fail      bool
}

func (pm *fakePackageManager) Name() string {
	return "apt"
}

func (pm *fakePackageManager) Install(pkg string) error {
	if pm.fail {
		return fmt.Errorf("unable to install %s", pkg)
	}
	pm.installed = append(pm.installed, pkg)
	return nil
}

func (pm *fakePackageManager) Upgrade() error {
	pm.upgraded = true
	return nil
}

func TestSelectStrategy(t *testing.T) {
	for id, strategy := range map[string]Strategy{
		"systemd-boot":    StrategySystemdBoot,
		"grub-pc":         StrategyGrub,
		"grub-efi-amd64":  StrategyGrub,
		"u-boot-rockchip": StrategyUBoot,
		"u-boot-rpi":      StrategyUBoot,
		"u-boot-tegra":    StrategyUBoot,
	} {
		got, err := SelectStrategy(id)
		require.NoError(t, err, id)
		assert.Equal(t, strategy, got, id)
	}
}

func TestSelectStrategyUnknown(t *testing.T) {
	_, err := SelectStrategy("lilo")
	require.Error(t, err)
	var unsupported *UnsupportedBootloaderError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "lilo", unsupported.ID)
}

func TestInstallUnknownBootloaderTouchesNothing(t *testing.T) {
	pm := &fakePackageManager{}
	bi := NewInstaller("lilo", "/dev/sda1").SetPackageManager(pm)
	bi.runFn = func(cmd string, args ...string) error {
		t.Errorf("unexpected tool call: %s", cmd)
		return nil
	}

	require.Error(t, bi.Install())
	assert.Empty(t, pm.installed)
}

func TestInstallUBootOnlyInstallsPackage(t *testing.T) {
	pm := &fakePackageManager{}
	bi := NewInstaller("u-boot-rpi", "/dev/mmcblk0p2").SetPackageManager(pm)
	bi.runFn = func(cmd string, args ...string) error {
		t.Errorf("unexpected tool call: %s", cmd)
		return nil
	}

	require.NoError(t, bi.Install())
	assert.Equal(t, []string{"u-boot-rpi"}, pm.installed)
}

func TestInstallGrubFamilyInstallsPackageFirst(t *testing.T) {
	pm := &fakePackageManager{}
	bi := NewInstaller("grub-pc", "/dev/sda3").SetPackageManager(pm)
	commands := []string{}
	bi.runFn = func(cmd string, args ...string) error {
		commands = append(commands, cmd)
		return nil
	}

	require.NoError(t, bi.Install())
	assert.Equal(t, []string{"grub-pc"}, pm.installed)
	assert.Equal(t, []string{"grub-mkdevicemap", "grub-install", "grub-mkconfig"}, commands)
}

func TestInstallGrubFamilyAbortsOnPackageFailure(t *testing.T) {
	pm := &fakePackageManager{fail: true}
	bi := NewInstaller("grub-pc", "/dev/sda3").SetPackageManager(pm)
	bi.runFn = func(cmd string, args ...string) error {
		t.Errorf("unexpected tool call after package failure: %s", cmd)
		return nil
	}

	require.Error(t, bi.Install())
}
