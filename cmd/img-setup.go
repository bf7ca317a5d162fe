package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	wzlib_logger "github.com/infra-whizz/wzlib/logger"
	"github.com/isbm/go-nanoconf"
	"github.com/sirupsen/logrus"
	"github.com/thoas/go-funk"
	"github.com/urfave/cli/v2"

	imgsetup "github.com/drauger-os-development/img-setup"
	imgsetup_settings "github.com/drauger-os-development/img-setup/settings"
)

func init() {
	// setup logger
	if funk.Contains(os.Args, "--verbose") || funk.Contains(os.Args, "-v") {
		wzlib_logger.GetCurrentLogger().SetLevel(logrus.TraceLevel)
	} else {
		wzlib_logger.GetCurrentLogger().SetLevel(logrus.InfoLevel)
	}
}

// Exit if the current user is not root
func exitOnNonRootUID() {
	if !funk.Contains(os.Args, "-h") && !funk.Contains(os.Args, "--help") {
		if err := imgsetup.CheckUser(0, 0); err != nil {
			wzlib_logger.GetCurrentLogger().Error("Root privileges are required to run this command.")
			os.Exit(1)
		}
	}
}

// loadSettings accepts the settings object inline or as @/path/to/file.
func loadSettings(arg string) (imgsetup_settings.Record, error) {
	if arg == "" {
		return nil, fmt.Errorf("the settings object is missing")
	}

	data := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		var err error
		data, err = ioutil.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
	}

	return imgsetup_settings.NewRecordFromJSON(data)
}

func runSetup(ctx *cli.Context) error {
	exitOnNonRootUID()

	settings, err := loadSettings(ctx.String("settings"))
	if err != nil {
		return err
	}

	confpath := nanoconf.NewNanoconfFinder("img-setup").DefaultSetup(nil)
	conf := nanoconf.NewConfig(confpath.SetDefaultConfig(confpath.FindFirst()).FindDefault())

	return imgsetup.NewConfigurator(settings, ctx.String("target")).SetConfig(conf).Run()
}

func main() {
	app := &cli.App{
		Version: "0.1 Alpha",
		Name:    "img-setup",
		Usage:   "Configure an unpacked root filesystem image for first boot",
	}

	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "Run the configuration inside the target root",
			Action: runSetup,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "settings",
					Aliases: []string{"s"},
					Usage:   "Settings object as JSON, or @/path/to/settings.json",
				},
				&cli.StringFlag{
					Name:    "target",
					Aliases: []string{"t"},
					Value:   "/mnt",
					Usage:   "Path of the unpacked root filesystem",
				},
				&cli.BoolFlag{
					Name:    "verbose",
					Aliases: []string{"v"},
					Usage:   "Show debugging log",
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		wzlib_logger.GetCurrentLogger().Errorf("General error: %s", err.Error())
		os.Exit(1)
	}
}
