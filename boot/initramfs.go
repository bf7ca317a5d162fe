package imgsetup_boot

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"

	imgsetup_lib "github.com/drauger-os-development/img-setup/lib"
)

// KernelSetup builds the initramfs for the running kernel release and
// points the unversioned boot symlinks at it. Runs inside the chroot,
// before the bootloader stage.
type KernelSetup struct {
	bootDir string
	theme   string

	runFn func(cmd string, args ...string) error

	wzlib_logger.WzLogger
}

func NewKernelSetup() *KernelSetup {
	ks := new(KernelSetup)
	ks.bootDir = "/boot"
	ks.theme = "drauger-theme"
	ks.runFn = imgsetup_lib.LoggedExec
	return ks
}

// SetTheme of the boot splash
func (ks *KernelSetup) SetTheme(theme string) *KernelSetup {
	if theme != "" {
		ks.theme = theme
	}
	return ks
}

// Release returns the running kernel release string.
func (ks *KernelSetup) Release() (string, error) {
	var uname syscall.Utsname
	if err := syscall.Uname(&uname); err != nil {
		return "", fmt.Errorf("error reading uname: %v", err)
	}
	return utsString(uname.Release), nil
}

// utsString converts a fixed utsname field to a string for syscalls
func utsString(data [65]int8) string {
	var buf [65]byte
	for i, b := range data {
		buf[i] = byte(b)
	}
	str := string(buf[:])
	if i := strings.Index(str, "\x00"); i != -1 {
		str = str[:i]
	}
	return str
}

// Run sets the boot splash theme, builds the initramfs and refreshes the
// unversioned kernel symlinks. A failing initramfs build is fatal.
func (ks *KernelSetup) Run() error {
	release, err := ks.Release()
	if err != nil {
		return err
	}

	ks.setPlymouthTheme()

	ks.GetLogger().Infof("Making initramfs for %s", release)
	if err := ks.runFn("mkinitramfs", "-o", fmt.Sprintf("%s/initrd.img-%s", ks.bootDir, release)); err != nil {
		return err
	}

	for _, link := range []string{"initrd.img", "vmlinuz"} {
		target := fmt.Sprintf("%s/%s-%s", ks.bootDir, link, release)
		name := fmt.Sprintf("%s/%s", ks.bootDir, link)
		if _, err := imgsetup_lib.RemoveIfExists(name); err != nil {
			return err
		}
		if err := os.Symlink(target, name); err != nil {
			return err
		}
	}

	return nil
}

// setPlymouthTheme registers and selects the distribution splash theme.
// Failures only cost the splash screen, not the boot.
func (ks *KernelSetup) setPlymouthTheme() {
	themeBase := fmt.Sprintf("/usr/share/plymouth/themes/%s/%s", ks.theme, ks.theme)
	if err := ks.runFn("update-alternatives", "--install",
		"/usr/share/plymouth/themes/default.plymouth", "default.plymouth",
		themeBase+".plymouth", "100", "--slave",
		"/usr/share/plymouth/themes/default.grub", "default.plymouth.grub",
		themeBase+".grub"); err != nil {
		ks.GetLogger().Warnf("Unable to register splash theme: %s", err.Error())
		return
	}

	if err := imgsetup_lib.InputExec("2\n", "update-alternatives", "--config", "default.plymouth"); err != nil {
		ks.GetLogger().Warnf("Unable to select splash theme: %s", err.Error())
	}
}
