package imgsetup

import (
	"errors"
	"path"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/isbm/go-nanoconf"

	imgsetup_actions "github.com/drauger-os-development/img-setup/actions"
	imgsetup_boot "github.com/drauger-os-development/img-setup/boot"
	imgsetup_chroot "github.com/drauger-os-development/img-setup/chroot"
	imgsetup_lib "github.com/drauger-os-development/img-setup/lib"
	imgsetup_pm "github.com/drauger-os-development/img-setup/pm"
	imgsetup_settings "github.com/drauger-os-development/img-setup/settings"
)

// Helper scripts the frontend may have staged into the target root.
// They are removed after the chroot is left; absence is fine.
var stagedHelpers = []string{"/make_user.sh", "/install_updates.sh"}

// Configurator runs the whole first-boot configuration of an unpacked
// root filesystem: settings defaulting, chroot entry, the concurrent
// configuration actions, kernel and bootloader setup, teardown, cleanup.
type Configurator struct {
	settings imgsetup_settings.Record
	target   string
	vendor   string
	theme    string
	conf     *nanoconf.Config

	wzlib_logger.WzLogger
}

func NewConfigurator(settings imgsetup_settings.Record, target string) *Configurator {
	cf := new(Configurator)
	cf.settings = settings
	cf.target = path.Clean(target)
	return cf
}

// SetConfig supplies the optional distro configuration file.
func (cf *Configurator) SetConfig(conf *nanoconf.Config) *Configurator {
	cf.conf = conf
	if conf != nil {
		cf.vendor = conf.Root().String("vendor", "")
		cf.theme = conf.Root().String("theme", "")
	}
	return cf
}

// Run performs the installation. The settings record is defaulted once
// here and read-only afterwards. Whatever happens inside the chroot, the
// session is left again before Run returns.
func (cf *Configurator) Run() error {
	imgsetup_settings.NewDefaulter().SetConfig(cf.conf).Apply(cf.settings)

	session := imgsetup_chroot.NewSession(cf.target)
	if err := session.Enter(); err != nil {
		return err
	}

	runErr := func() (err error) {
		defer func() {
			exitErr := session.Exit()
			if exitErr == nil {
				return
			}
			var fatal *imgsetup_chroot.MountSetupError
			if errors.As(exitErr, &fatal) {
				if err == nil {
					err = exitErr
				} else {
					cf.GetLogger().Error(exitErr.Error())
				}
			} else {
				// Teardown incomplete: warn the operator, the
				// configuration itself is done.
				cf.GetLogger().Warn(exitErr.Error())
			}
		}()
		return cf.configure()
	}()
	if runErr != nil {
		return runErr
	}

	return cf.cleanup()
}

// configure does the work inside the chroot.
func (cf *Configurator) configure() error {
	pkgman, err := imgsetup_pm.GetCurrentPackageManager()
	if err != nil {
		return err
	}

	actions := imgsetup_actions.NewActionSet().SetPackageManager(pkgman).Actions()
	report := imgsetup_actions.NewOrchestrator().Run(actions, cf.settings)
	for name, actionErr := range report.Failed() {
		cf.GetLogger().Warnf("Configuration action '%s' failed: %s", name, actionErr.Error())
	}

	if err := imgsetup_boot.NewKernelSetup().SetTheme(cf.theme).Run(); err != nil {
		return err
	}

	rootDevice, err := cf.settings.Get(imgsetup_settings.KeyRootDevice)
	if err != nil {
		return err
	}
	bootloader, err := cf.settings.Get(imgsetup_settings.KeyBootloader)
	if err != nil {
		return err
	}

	installer := imgsetup_boot.NewInstaller(bootloader, rootDevice).
		SetVendor(cf.vendor).
		SetPackageManager(pkgman)
	if err := installer.Install(); err != nil {
		return err
	}
	for _, warning := range installer.Warnings() {
		cf.GetLogger().Warn(warning.Error())
	}

	return nil
}

// cleanup removes helper files staged into the target root. Runs after
// the chroot is left, so paths are prefixed with the target again.
func (cf *Configurator) cleanup() error {
	for _, helper := range stagedHelpers {
		staged := path.Join(cf.target, helper)
		removed, err := imgsetup_lib.RemoveIfExists(staged)
		if err != nil {
			return err
		}
		if removed {
			cf.GetLogger().Debugf("Removed staged helper %s", staged)
		}
	}
	return nil
}
