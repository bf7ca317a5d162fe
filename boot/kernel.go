package imgsetup_boot

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/isbm/go-shutil"
	"github.com/karrick/godirwalk"
)

// artifactNames maps the staged file prefix in /boot to the fixed name
// the boot manager looks the file up under.
var artifactNames = map[string]string{
	"vmlinuz-":    "vmlinuz",
	"config-":     "config",
	"initrd.img-": "initrd.img",
	"System.map-": "System.map",
}

// LatestArtifact picks the newest staged file for a prefix. Multiple
// kernel versions may be staged; the greatest name in version order is
// assumed current. Digit runs compare numerically, so vmlinuz-5.10.0-9
// sorts after vmlinuz-5.4.0-3.
func LatestArtifact(names []string, prefix string) (string, bool) {
	candidates := []string{}
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return versionLess(candidates[i], candidates[j])
	})
	return candidates[len(candidates)-1], true
}

// versionChunks splits a name into maximal digit and non-digit runs.
func versionChunks(name string) []string {
	chunks := []string{}
	start := 0
	for i := 1; i <= len(name); i++ {
		if i == len(name) || isDigit(name[i]) != isDigit(name[i-1]) {
			chunks = append(chunks, name[start:i])
			start = i
		}
	}
	return chunks
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func versionLess(a string, b string) bool {
	ac, bc := versionChunks(a), versionChunks(b)
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if ac[i] == bc[i] {
			continue
		}
		an, aErr := strconv.Atoi(ac[i])
		bn, bErr := strconv.Atoi(bc[i])
		if aErr == nil && bErr == nil {
			return an < bn
		}
		return ac[i] < bc[i]
	}
	return len(ac) < len(bc)
}

// syncKernelArtifacts copies the newest kernel image, config, initramfs
// and symbol map into the boot manager's vendor directory, skipping files
// already in place so a re-run changes nothing.
func (bi *Installer) syncKernelArtifacts() error {
	names, err := godirwalk.ReadDirnames(bi.bootDir, nil)
	if err != nil {
		return err
	}

	for prefix, destName := range artifactNames {
		source, ok := LatestArtifact(names, prefix)
		if !ok {
			return fmt.Errorf("no %s* file found in %s, nothing bootable", prefix, bi.bootDir)
		}

		dest := path.Join(bi.espDir, bi.vendor, destName)
		if _, err := os.Stat(dest); err == nil {
			bi.GetLogger().Debugf("%s checks out", destName)
			continue
		}

		bi.GetLogger().Infof("Copying %s to %s", source, dest)
		if err := shutil.CopyFile(path.Join(bi.bootDir, source), dest, false); err != nil {
			return err
		}
	}

	return nil
}
