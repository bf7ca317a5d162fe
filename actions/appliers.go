package imgsetup_actions

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strconv"
	"strings"

	imgsetup_lib "github.com/drauger-os-development/img-setup/lib"
	imgsetup_settings "github.com/drauger-os-development/img-setup/settings"
)

// SetHostname writes the host name and the matching hosts entry.
func (as *ActionSet) SetHostname(hostname string) error {
	as.GetLogger().Infof("Setting hostname to %s", hostname)
	if err := ioutil.WriteFile("/etc/hostname", []byte(hostname+"\n"), 0644); err != nil {
		return err
	}
	return ioutil.WriteFile("/etc/hosts", []byte(fmt.Sprintf("127.0.0.1 %s\n", hostname)), 0644)
}

// SetTimezone points /etc/localtime at the zoneinfo entry, records the
// zone name and enables NTP sync. A failing timedatectl is tolerated:
// there is no running systemd inside the chroot.
func (as *ActionSet) SetTimezone(zone string) error {
	if _, err := imgsetup_lib.RemoveIfExists("/etc/localtime"); err != nil {
		return err
	}
	if err := os.Symlink("/usr/share/zoneinfo/"+zone, "/etc/localtime"); err != nil {
		return err
	}
	if err := ioutil.WriteFile("/etc/timezone", []byte(zone+"\n"), 0644); err != nil {
		return err
	}
	if err := imgsetup_lib.LoggedExec("timedatectl", "set-ntp", "true"); err != nil {
		as.GetLogger().Warnf("Unable to enable NTP sync: %s", err.Error())
	}
	return nil
}

// SetLocale uncomments the locale in /etc/locale.gen and regenerates.
func (as *ActionSet) SetLocale(locale string) error {
	data, err := ioutil.ReadFile("/etc/locale.gen")
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	for idx, line := range lines {
		if line == fmt.Sprintf("# %s UTF-8", locale) {
			lines[idx] = fmt.Sprintf("%s UTF-8", locale)
			break
		}
	}

	if err := ioutil.WriteFile("/etc/locale.gen", []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}
	if err := imgsetup_lib.LoggedExec("locale-gen"); err != nil {
		return err
	}
	return imgsetup_lib.LoggedExec("update-locale", fmt.Sprintf("LANG=%s", locale), "LANGUAGE")
}

// SetKeyboard resolves the human-readable model/layout/variant names
// against the xkb rules catalog and writes the keyboard defaults.
func (as *ActionSet) SetKeyboard(model string, layout string, variant string) error {
	if model == imgsetup_settings.NoKeyboardConfig {
		as.GetLogger().Debug("Keyboard left unconfigured")
		return nil
	}

	data, err := ioutil.ReadFile(as.xkbRulesPath)
	if err != nil {
		return err
	}

	var xkbModel, xkbLayout, xkbVariant string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := strings.Join(fields[1:], " ")
		switch name {
		case model:
			xkbModel = fields[0]
		case layout:
			xkbLayout = fields[0]
		case variant:
			xkbVariant = fields[0]
		}
	}

	var buff strings.Builder
	for _, line := range []string{
		fmt.Sprintf("XKBMODEL=\"%s\"", xkbModel),
		fmt.Sprintf("XKBLAYOUT=\"%s\"", xkbLayout),
		fmt.Sprintf("XKBVARIANT=\"%s\"", xkbVariant),
		"XKBOPTIONS=\"\"", "", "BACKSPACE=\"guess\"",
	} {
		buff.WriteString(line + "\n")
	}

	if err := ioutil.WriteFile("/etc/default/keyboard", []byte(buff.String()), 0644); err != nil {
		return err
	}

	if err := imgsetup_lib.LoggedExec("udevadm", "trigger", "--subsystem-match=input", "--action=change"); err != nil {
		as.GetLogger().Warnf("Unable to trigger input device rescan: %s", err.Error())
	}
	return nil
}

// CreateUser adds the main user and sets its password.
func (as *ActionSet) CreateUser(username string, password string) error {
	if err := imgsetup_lib.LoggedExec("useradd", "-m", "-s", "/bin/bash", "-G", "sudo", username); err != nil {
		return err
	}
	return imgsetup_lib.InputExec(fmt.Sprintf("%s:%s", username, password), "chpasswd")
}

// SetRootPassword via chpasswd
func (as *ActionSet) SetRootPassword(password string) error {
	return imgsetup_lib.InputExec(fmt.Sprintf("root:%s", password), "chpasswd")
}

// ConfigureAutologin enables or disables lightdm autologin for the user.
func (as *ActionSet) ConfigureAutologin(autologin string, username string) error {
	enabled, _ := strconv.ParseBool(autologin)
	if !enabled {
		_, err := imgsetup_lib.RemoveIfExists(as.lightdmConf)
		return err
	}

	if err := os.MkdirAll(path.Dir(as.lightdmConf), 0755); err != nil {
		return err
	}
	conf := fmt.Sprintf("[Seat:*]\nautologin-user=%s\nautologin-user-timeout=0\n", username)
	return ioutil.WriteFile(as.lightdmConf, []byte(conf), 0644)
}

// RemoveLauncher drops the installer's own launcher from the new user's
// desktop, falling back to the xfce panel launcher directory. A launcher
// that cannot be found anywhere only costs a warning: the user removes it
// by hand.
func (as *ActionSet) RemoveLauncher(username string) error {
	desktop := path.Join(as.homeBase, username, "Desktop/system-installer.desktop")
	removed, err := imgsetup_lib.RemoveIfExists(desktop)
	if err != nil {
		return err
	}
	if removed {
		return nil
	}

	panel := path.Join(as.homeBase, username, ".config/xfce4/panel/launcher-3")
	if _, err := os.Stat(panel); os.IsNotExist(err) {
		as.GetLogger().Warn("Cannot find launcher for system-installer. User will need to remove manually.")
		return nil
	}
	return os.RemoveAll(panel)
}

// InstallUpdates upgrades the target, gated on both the user's choice and
// network availability.
func (as *ActionSet) InstallUpdates(updates string, internet string) error {
	wanted, _ := strconv.ParseBool(updates)
	online, _ := strconv.ParseBool(internet)
	if !wanted {
		return nil
	}
	if !online {
		as.GetLogger().Warn("Cannot install updates. No internet.")
		return nil
	}
	if as.pkgman == nil {
		return fmt.Errorf("no package manager available for updates")
	}
	return as.pkgman.Upgrade()
}
