package imgsetup_boot

import (
	"fmt"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/thoas/go-funk"

	imgsetup_lib "github.com/drauger-os-development/img-setup/lib"
	imgsetup_pm "github.com/drauger-os-development/img-setup/pm"
)

// Strategy of bootloader installation. The variants are mutually
// exclusive per run.
type Strategy int

const (
	StrategySystemdBoot Strategy = iota
	StrategyGrub
	StrategyUBoot
)

// UnsupportedBootloaderError reports a bootloader package identifier that
// matches none of the known strategies.
type UnsupportedBootloaderError struct {
	ID string
}

func (e *UnsupportedBootloaderError) Error() string {
	return fmt.Sprintf("unsupported bootloader '%s'", e.ID)
}

var ubootPackages = []string{"u-boot-rockchip", "u-boot-rpi", "u-boot-tegra"}

// SelectStrategy classifies the bootloader package identifier: UEFI
// targets carry systemd-boot, BIOS targets a grub family package and the
// embedded boards one of the u-boot variants.
func SelectStrategy(id string) (Strategy, error) {
	switch {
	case id == "systemd-boot":
		return StrategySystemdBoot, nil
	case strings.Contains(id, "grub"):
		return StrategyGrub, nil
	case funk.ContainsString(ubootPackages, id):
		return StrategyUBoot, nil
	}
	return 0, &UnsupportedBootloaderError{ID: id}
}

// Installer drives the install/verify sequence of the selected strategy.
// It runs inside the chroot, so all paths are target-relative.
type Installer struct {
	bootloader string
	rootDevice string
	vendor     string
	bootDir    string
	espDir     string
	bootStub   string
	envFile    string
	kernelHook string

	pkgman   imgsetup_pm.PackageManager
	warnings []error

	runFn    func(cmd string, args ...string) error
	outputFn func(cmd string, args ...string) (string, error)

	wzlib_logger.WzLogger
}

func NewInstaller(bootloader string, rootDevice string) *Installer {
	bi := new(Installer)
	bi.bootloader = bootloader
	bi.rootDevice = rootDevice
	bi.vendor = "Drauger_OS"
	bi.bootDir = "/boot"
	bi.espDir = "/boot/efi"
	bi.bootStub = bootStub
	bi.envFile = envFile
	bi.kernelHook = kernelHook
	bi.runFn = imgsetup_lib.LoggedExec
	bi.outputFn = imgsetup_lib.OutputExec
	return bi
}

// SetVendor directory name under the ESP
func (bi *Installer) SetVendor(vendor string) *Installer {
	if vendor != "" {
		bi.vendor = vendor
	}
	return bi
}

// SetPackageManager used for grub/u-boot package installation
func (bi *Installer) SetPackageManager(pkgman imgsetup_pm.PackageManager) *Installer {
	bi.pkgman = pkgman
	return bi
}

// SetBootDir overrides the staged kernel directory
func (bi *Installer) SetBootDir(dir string) *Installer {
	bi.bootDir = dir
	return bi
}

// SetESPDir overrides the EFI system partition mount point
func (bi *Installer) SetESPDir(dir string) *Installer {
	bi.espDir = dir
	return bi
}

// Warnings accumulated during Install: degraded-but-bootable conditions
// like a missing recovery entry. Distinct from the fatal return of Install.
func (bi *Installer) Warnings() []error {
	return bi.warnings
}

func (bi *Installer) warn(err error) {
	bi.GetLogger().Warn(err.Error())
	bi.warnings = append(bi.warnings, err)
}

// Install runs the strategy's state sequence. A non-nil return means the
// system will not boot; degraded conditions end up in Warnings instead.
func (bi *Installer) Install() error {
	strategy, err := SelectStrategy(bi.bootloader)
	if err != nil {
		return err
	}

	switch strategy {
	case StrategySystemdBoot:
		if err := bi.installSystemdBoot(); err != nil {
			return err
		}
		if err := bi.verifyEntries(); err != nil {
			return err
		}
		return bi.syncKernelArtifacts()
	case StrategyGrub:
		if err := bi.installPackage(); err != nil {
			return err
		}
		return bi.installGrub()
	case StrategyUBoot:
		return bi.installPackage()
	}

	return nil
}

func (bi *Installer) installPackage() error {
	if bi.pkgman == nil {
		return fmt.Errorf("no package manager available to install '%s'", bi.bootloader)
	}
	bi.GetLogger().Infof("Installing bootloader package %s", bi.bootloader)
	return bi.pkgman.Install(bi.bootloader)
}
