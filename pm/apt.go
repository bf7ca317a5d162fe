package imgsetup_pm

// AptPackageManager drives apt/dpkg on Debian-family targets
type AptPackageManager struct {
	BasePackageManager
}

func NewAptPackageManager() *AptPackageManager {
	pm := new(AptPackageManager)
	pm.env = map[string]string{
		"DEBIAN_FRONTEND": "noninteractive",
	}
	return pm
}

// Name of the package manager
func (pm *AptPackageManager) Name() string {
	return "apt"
}

// Install a package
func (pm *AptPackageManager) Install(pkg string) error {
	return pm.callPackageManager("apt", "install", "-y", pkg)
}

// Upgrade the whole system
func (pm *AptPackageManager) Upgrade() error {
	if err := pm.callPackageManager("apt", "update"); err != nil {
		return err
	}
	return pm.callPackageManager("apt", "full-upgrade", "-y")
}
