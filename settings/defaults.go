package imgsetup_settings

import (
	"io/ioutil"
	"os"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/isbm/go-nanoconf"
)

const (
	// NoKeyboardConfig is the model value that leaves the keyboard alone.
	NoKeyboardConfig = "Do not configure keyboard"

	DefaultHostname = "drauger-os"
	DefaultLayout   = "English (US)"
	DefaultLocale   = "en_US.UTF-8"
	DefaultTimezone = "Etc/UTC"
)

// Defaulter fills absent or empty optional settings with documented
// defaults before orchestration. It never fails, it only substitutes
// and warns. This is the only place a missing value may be synthesized.
type Defaulter struct {
	hostname     string
	layout       string
	timezonePath string

	wzlib_logger.WzLogger
}

func NewDefaulter() *Defaulter {
	df := new(Defaulter)
	df.hostname = DefaultHostname
	df.layout = DefaultLayout
	df.timezonePath = "/etc/timezone"
	return df
}

// SetConfig overrides the literal defaults from an optional config file.
func (df *Defaulter) SetConfig(conf *nanoconf.Config) *Defaulter {
	if conf != nil {
		df.hostname = conf.Root().String("hostname", df.hostname)
		df.layout = conf.Root().String("layout", df.layout)
	}
	return df
}

// Apply mutates the record in place, one deterministic substitution per
// recognized optional field.
func (df *Defaulter) Apply(settings Record) {
	df.substitute(settings, KeyHostname, df.hostname)
	df.substitute(settings, KeyLocale, df.hostLocale())
	df.substitute(settings, KeyTimezone, df.hostTimezone())
	df.substitute(settings, KeyKbModel, NoKeyboardConfig)

	// Layout and variant only make sense once a model is actually
	// being configured.
	if settings[KeyKbModel] != NoKeyboardConfig {
		df.substitute(settings, KeyKbLayout, df.layout)
		df.substitute(settings, KeyKbVariant, df.layout)
	}

	for _, flag := range []string{KeyAutologin, KeyUpdates, KeyInternet} {
		df.substitute(settings, flag, "false")
	}
}

func (df *Defaulter) substitute(settings Record, field string, value string) {
	if settings[field] != "" {
		return
	}
	df.GetLogger().Warnf("Setting '%s' is missing, defaulting to '%s'", field, value)
	settings[field] = value
}

// hostLocale falls back to the ambient language of the environment
// the installer itself runs in.
func (df *Defaulter) hostLocale() string {
	if lang := os.Getenv("LANG"); lang != "" {
		return lang
	}
	return DefaultLocale
}

// hostTimezone reuses the time zone previously recorded on the host.
func (df *Defaulter) hostTimezone() string {
	data, err := ioutil.ReadFile(df.timezonePath)
	if err != nil {
		return DefaultTimezone
	}
	if tz := strings.TrimSpace(string(data)); tz != "" {
		return tz
	}
	return DefaultTimezone
}
