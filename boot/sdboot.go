package imgsetup_boot

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/isbm/go-shutil"
)

const bootStub = "/usr/lib/systemd/boot/efi/systemd-bootx64.efi"
const kernelHook = "/etc/kernel/postinst.d/zz-update-systemd-boot"
const envFile = "/etc/environment"

// installSystemdBoot prepares the loader directory tree and installs the
// boot manager, falling back to a manual EFI file copy when bootctl
// refuses the partition.
func (bi *Installer) installSystemdBoot() error {
	for _, dir := range []string{
		bi.espDir,
		path.Join(bi.espDir, "loader"),
		path.Join(bi.espDir, "loader/entries"),
		path.Join(bi.espDir, bi.vendor),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// The ESP of these images is not always flagged the way bootctl
	// expects, so the check is relaxed for this run and for the kernel
	// hook runs that follow later.
	os.Setenv("SYSTEMD_RELAX_ESP_CHECKS", "1")
	if err := bi.appendEnvironment("export SYSTEMD_RELAX_ESP_CHECKS=1\n"); err != nil {
		bi.GetLogger().Warnf("Unable to update %s: %s", bi.envFile, err.Error())
	}

	if err := bi.runFn("bootctl", fmt.Sprintf("--path=%s", bi.espDir), "install"); err != nil {
		bi.GetLogger().Warnf("bootctl failed: %s", err.Error())
		bi.GetLogger().Warn("Performing manual installation of systemd-boot.")
		if err := bi.manualSystemdBoot(); err != nil {
			return err
		}
	}

	if err := bi.writeLoaderConf(); err != nil {
		// The loader still boots its default entry without this file,
		// but menu and recovery selection may be compromised.
		bi.warn(fmt.Errorf("unable to write loader configuration: %s", err.Error()))
	}

	return bi.installKernelHook()
}

// manualSystemdBoot copies the boot stub into both the generic and the
// vendor-specific boot paths. The stub is copied as-is; whether it matches
// the loader version the kernel hook expects is not checked here.
func (bi *Installer) manualSystemdBoot() error {
	for _, dir := range []string{"EFI", "EFI/systemd", "EFI/BOOT", "EFI/Linux"} {
		if err := os.MkdirAll(path.Join(bi.espDir, dir), 0755); err != nil {
			return err
		}
	}

	for _, target := range []string{"EFI/BOOT/BOOTX64.EFI", "EFI/systemd/systemd-bootx64.efi"} {
		target = path.Join(bi.espDir, target)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := shutil.CopyFile(bi.bootStub, target, false); err != nil {
			return fmt.Errorf("unable to place boot stub at %s: %s", target, err.Error())
		}
	}

	return nil
}

func (bi *Installer) writeLoaderConf() error {
	conf := path.Join(bi.espDir, "loader/loader.conf")
	content := fmt.Sprintf("default %s\ntimeout 5\neditor 1\n", bi.vendor)
	if err := ioutil.WriteFile(conf, []byte(content), 0644); err != nil {
		return err
	}

	if err := bi.runFn("chattr", "-i", conf); err != nil {
		bi.GetLogger().Warnf("chattr failed on loader.conf, setting octal permissions to 444")
		return os.Chmod(conf, 0444)
	}
	return nil
}

// installKernelHook places the kernel postinstall hook that keeps the ESP
// kernel images current after upgrades, then runs it once for the staged
// kernel.
func (bi *Installer) installKernelHook() error {
	if _, err := os.Stat(bi.kernelHook); os.IsNotExist(err) {
		var script string
		script += "#!/bin/sh\n"
		script += "# refresh the systemd-boot kernel images after a kernel change\n"
		script += "export SYSTEMD_RELAX_ESP_CHECKS=1\n"
		script += fmt.Sprintf("esp=\"%s/%s\"\n", bi.espDir, bi.vendor)
		script += fmt.Sprintf("boot=\"%s\"\n", bi.bootDir)
		script += "cp \"$boot/$(ls \"$boot\" | grep '^vmlinuz-' | sort | tail -n 1)\" \"$esp/vmlinuz\"\n"
		script += "cp \"$boot/$(ls \"$boot\" | grep '^initrd.img-' | sort | tail -n 1)\" \"$esp/initrd.img\"\n"

		if err := os.MkdirAll(path.Dir(bi.kernelHook), 0755); err != nil {
			return err
		}
		if err := ioutil.WriteFile(bi.kernelHook, []byte(script), 0755); err != nil {
			return err
		}
	}

	return bi.runFn(bi.kernelHook)
}

func (bi *Installer) appendEnvironment(line string) error {
	fh, err := os.OpenFile(bi.envFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer fh.Close()

	if _, err := fh.WriteString(line); err != nil {
		return err
	}
	return nil
}
