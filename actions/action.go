package imgsetup_actions

import (
	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	imgsetup_pm "github.com/drauger-os-development/img-setup/pm"
	imgsetup_settings "github.com/drauger-os-development/img-setup/settings"
)

// Action is one named, independent configuration step. Fields declares
// which settings the step consumes, in the order Run expects them. The
// declaration is resolved against the settings record at launch time, so
// a missing field fails the action before it ever starts.
type Action struct {
	Name   string
	Fields []string
	Run    func(args []string) error
}

// ActionSet carries the shared collaborators of the appliers and exposes
// the static descriptor table. The steps are independent: each touches its
// own files or subsystem, so they can run concurrently.
type ActionSet struct {
	pkgman imgsetup_pm.PackageManager

	xkbRulesPath string
	lightdmConf  string
	homeBase     string

	wzlib_logger.WzLogger
}

func NewActionSet() *ActionSet {
	as := new(ActionSet)
	as.xkbRulesPath = "/usr/share/X11/xkb/rules/base.lst"
	as.lightdmConf = "/etc/lightdm/lightdm.conf.d/10-autologin.conf"
	as.homeBase = "/home"
	return as
}

// SetPackageManager of the target system
func (as *ActionSet) SetPackageManager(pkgman imgsetup_pm.PackageManager) *ActionSet {
	as.pkgman = pkgman
	return as
}

// Actions returns the descriptor table.
func (as *ActionSet) Actions() []*Action {
	return []*Action{
		{
			Name:   "hostname",
			Fields: []string{imgsetup_settings.KeyHostname},
			Run:    func(args []string) error { return as.SetHostname(args[0]) },
		},
		{
			Name:   "timezone",
			Fields: []string{imgsetup_settings.KeyTimezone},
			Run:    func(args []string) error { return as.SetTimezone(args[0]) },
		},
		{
			Name:   "locale",
			Fields: []string{imgsetup_settings.KeyLocale},
			Run:    func(args []string) error { return as.SetLocale(args[0]) },
		},
		{
			Name:   "keyboard",
			Fields: []string{imgsetup_settings.KeyKbModel, imgsetup_settings.KeyKbLayout, imgsetup_settings.KeyKbVariant},
			Run:    func(args []string) error { return as.SetKeyboard(args[0], args[1], args[2]) },
		},
		{
			Name:   "user",
			Fields: []string{imgsetup_settings.KeyUsername, imgsetup_settings.KeyPassword},
			Run:    func(args []string) error { return as.CreateUser(args[0], args[1]) },
		},
		{
			Name:   "root-password",
			Fields: []string{imgsetup_settings.KeyPassword},
			Run:    func(args []string) error { return as.SetRootPassword(args[0]) },
		},
		{
			Name:   "autologin",
			Fields: []string{imgsetup_settings.KeyAutologin, imgsetup_settings.KeyUsername},
			Run:    func(args []string) error { return as.ConfigureAutologin(args[0], args[1]) },
		},
		{
			Name:   "updates",
			Fields: []string{imgsetup_settings.KeyUpdates, imgsetup_settings.KeyInternet},
			Run:    func(args []string) error { return as.InstallUpdates(args[0], args[1]) },
		},
		{
			Name:   "remove-launcher",
			Fields: []string{imgsetup_settings.KeyUsername},
			Run:    func(args []string) error { return as.RemoveLauncher(args[0]) },
		},
	}
}
