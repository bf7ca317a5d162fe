package imgsetup_boot

import (
	"path"
	"strings"
)

// ParentDisk strips the partition suffix from a block device path to get
// the disk grub installs onto: digits are scanned off the end, then a
// trailing 'p' separator if one is left (/dev/sda3 -> /dev/sda,
// /dev/nvme0n1p2 -> /dev/nvme0n1).
func ParentDisk(device string) string {
	end := len(device)
	for end > 0 && device[end-1] >= '0' && device[end-1] <= '9' {
		end--
	}
	disk := device[:end]
	if strings.HasSuffix(disk, "p") {
		disk = disk[:len(disk)-1]
	}
	return disk
}

// installGrub is retained for BIOS systems: device map, loader install on
// the parent disk, then config generation. Any tool failure is fatal.
func (bi *Installer) installGrub() error {
	disk := ParentDisk(bi.rootDevice)
	bi.GetLogger().Infof("Installing GRUB on %s", disk)

	if err := bi.runFn("grub-mkdevicemap", "--verbose"); err != nil {
		return err
	}
	if err := bi.runFn("grub-install", "--verbose", "--force", "--target=i386-pc", disk); err != nil {
		return err
	}
	return bi.runFn("grub-mkconfig", "-o", path.Join(bi.bootDir, "grub/grub.cfg"))
}
