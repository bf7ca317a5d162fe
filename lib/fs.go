package imgsetup_lib

import (
	"io/ioutil"
	"os"
	"strings"
)

// IsMounted checks if a directory is still mounted or not
func IsMounted(pth string) bool {
	data, err := ioutil.ReadFile("/proc/mounts")
	if err != nil {
		// This should not happen, so we panic
		panic(err)
	}

	for _, l := range strings.Split(string(data), "\n") {
		fields := strings.Fields(l)
		if len(fields) > 1 && fields[1] == pth {
			return true
		}
	}

	return false
}

// RemoveIfExists removes a file that may legitimately be absent.
// Absence is not an error: the boolean tells whether anything was removed.
func RemoveIfExists(pth string) (bool, error) {
	if err := os.Remove(pth); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
