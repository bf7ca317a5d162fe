package imgsetup_pm

import (
	"fmt"

	"github.com/elastic/go-sysinfo"
)

// PackageManager is the package installation tool of the target system.
// It is always invoked inside the chroot, so platform detection sees the
// target's os-release, not the host's.
type PackageManager interface {
	// Return a name of the package manager. E.g. on Ubuntu or Debian it will return "apt".
	Name() string

	// Install a single package by name
	Install(pkg string) error

	// Upgrade everything that is currently installed
	Upgrade() error
}

// GetCurrentPackageManager dispatches on the detected platform.
func GetCurrentPackageManager() (PackageManager, error) {
	info, err := sysinfo.Host()
	if err != nil {
		return nil, fmt.Errorf("unable to detect platform: %s", err.Error())
	}

	platform := info.Info().OS.Platform
	switch platform {
	case "ubuntu", "debian", "drauger":
		return NewAptPackageManager(), nil
	}

	return nil, fmt.Errorf("the '%s' platform is not supported", platform)
}
