package imgsetup_boot

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strings"
)

const rootFlags = "quiet splash"
const recoveryFlags = "ro recovery nomodeset"

// PrimaryBootEntryError means the primary boot entry could not be
// written: the installed system would not boot.
type PrimaryBootEntryError struct {
	Err error
}

func (e *PrimaryBootEntryError) Error() string {
	return fmt.Sprintf("cannot write primary boot entry, installation will not boot: %s", e.Err.Error())
}

func (e *PrimaryBootEntryError) Unwrap() error {
	return e.Err
}

// RecoveryBootEntryError means the recovery entry could not be written.
// The system still boots, but is not recoverable from the loader menu.
type RecoveryBootEntryError struct {
	Err error
}

func (e *RecoveryBootEntryError) Error() string {
	return fmt.Sprintf("cannot write recovery boot entry, installation will not be recoverable: %s", e.Err.Error())
}

func (e *RecoveryBootEntryError) Unwrap() error {
	return e.Err
}

// verifyEntries synthesizes any missing loader entry for the target's
// partition UUID. Entries already present are left untouched, which makes
// repeated runs produce identical files.
func (bi *Installer) verifyEntries() error {
	uuid, err := bi.outputFn("blkid", "-s", "PARTUUID", "-o", "value", bi.rootDevice)
	if err != nil {
		return &PrimaryBootEntryError{Err: err}
	}

	primary := path.Join(bi.espDir, "loader/entries", bi.vendor+".conf")
	if _, err := os.Stat(primary); os.IsNotExist(err) {
		bi.GetLogger().Info("Standard boot entry non-existent, synthesizing")
		if err := bi.writeEntry(primary, bi.title(), uuid, rootFlags); err != nil {
			return &PrimaryBootEntryError{Err: err}
		}
	} else {
		bi.GetLogger().Debug("Standard boot entry checks out")
	}

	recovery := path.Join(bi.espDir, "loader/entries", bi.vendor+"_Recovery.conf")
	if _, err := os.Stat(recovery); os.IsNotExist(err) {
		bi.GetLogger().Info("Recovery boot entry non-existent, synthesizing")
		if err := bi.writeEntry(recovery, bi.title()+" Recovery", uuid, recoveryFlags); err != nil {
			bi.warn(&RecoveryBootEntryError{Err: err})
		}
	} else {
		bi.GetLogger().Debug("Recovery boot entry checks out")
	}

	return nil
}

func (bi *Installer) writeEntry(target string, title string, uuid string, flags string) error {
	var buff strings.Builder
	buff.WriteString(fmt.Sprintf("title   %s\n", title))
	buff.WriteString(fmt.Sprintf("linux   /%s/vmlinuz\n", bi.vendor))
	buff.WriteString(fmt.Sprintf("initrd  /%s/initrd.img\n", bi.vendor))
	buff.WriteString(fmt.Sprintf("options root=PARTUUID=%s %s\n", uuid, flags))
	return ioutil.WriteFile(target, []byte(buff.String()), 0644)
}

func (bi *Installer) title() string {
	return strings.ReplaceAll(bi.vendor, "_", " ")
}
