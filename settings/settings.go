package imgsetup_settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Setting names, matching the keys of the serialized settings object
// handed over by the installer frontend.
const (
	KeyUsername   = "USERNAME"
	KeyPassword   = "PASSWORD"
	KeyHostname   = "COMPUTER_NAME"
	KeyTimezone   = "TIME_ZONE"
	KeyLocale     = "LANG"
	KeyKbModel    = "MODEL"
	KeyKbLayout   = "LAYOUT"
	KeyKbVariant  = "VARIANT"
	KeyAutologin  = "LOGIN"
	KeyUpdates    = "UPDATES"
	KeyRootDevice = "ROOT"
	KeyBootloader = "EFI"
	KeyInternet   = "INTERNET"
)

// MissingSettingError names a settings field that an action requires
// but which is absent or empty.
type MissingSettingError struct {
	Field string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("required setting '%s' is missing", e.Field)
}

// Record maps setting names to their values. It is produced once by the
// frontend, defaulted once by the Defaulter and read-only afterwards.
type Record map[string]string

// NewRecordFromJSON parses the frontend's settings object. Booleans and
// numbers are flattened to strings so every consumer sees one value type.
func NewRecordFromJSON(data []byte) (Record, error) {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse settings: %s", err.Error())
	}

	settings := Record{}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			settings[key] = v
		case bool:
			settings[key] = strconv.FormatBool(v)
		case float64:
			settings[key] = strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 2, 64), "0"), ".")
		case nil:
			settings[key] = ""
		default:
			return nil, fmt.Errorf("setting '%s' has unsupported type", key)
		}
	}

	return settings, nil
}

// Get returns the value of a field, or MissingSettingError if the field
// is absent or empty.
func (r Record) Get(field string) (string, error) {
	value, ok := r[field]
	if !ok || value == "" {
		return "", &MissingSettingError{Field: field}
	}
	return value, nil
}

// GetBool reads a flag field. Anything unparseable counts as false.
func (r Record) GetBool(field string) bool {
	flag, _ := strconv.ParseBool(r[field])
	return flag
}
