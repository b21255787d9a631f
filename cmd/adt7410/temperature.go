package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/thermal/adt7410"
	"github.com/mklimuk/thermal/cmd/adt7410/console"
)

var temperatureCmd = cli.Command{
	Name:    "temperature",
	Aliases: []string{"temp"},
	Usage:   "read the temperature",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "once",
			Usage: "trigger a one-shot conversion instead of reading the last result",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "also print the raw register value",
		},
	},
	Action: withSession(func(c *cli.Context, s *session) error {
		var temp float32
		var err error
		if c.Bool("once") {
			temp, err = s.dev.MeasureOnce(s.ctx)
		} else {
			temp, err = s.dev.GetTemperature(s.ctx)
		}
		if err != nil {
			return console.Exit(console.ExitError, "error getting temperature read: %s", console.Red(err))
		}
		console.PInfof(console.PictoThermometer, "%s °C", console.White(formatCelsius(temp)))
		if c.Bool("raw") {
			raw, err := s.dev.RawTemperature(s.ctx)
			if err != nil {
				return console.Exit(console.ExitError, "error reading raw temperature: %s", console.Red(err))
			}
			console.Printf("raw: %#04x (%s)\n", raw, s.dev.CachedConfiguration().Resolution)
		}
		return nil
	}),
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read the status register",
	Action: withSession(func(c *cli.Context, s *session) error {
		status, err := s.dev.Status(s.ctx)
		if err != nil {
			return console.Exit(console.ExitError, "error reading status: %s", console.Red(err))
		}
		console.Printf("%s\n", formatStatus(status))
		return nil
	}),
}

func formatCelsius(c float32) string {
	return trimFloat(float64(c))
}

func formatStatus(status adt7410.Status) string {
	ready := console.Yellow("converting")
	if status.Ready {
		ready = console.Green("ready")
	}
	return ready + " " +
		console.Flag("T_LOW", status.Low) + " " +
		console.Flag("T_HIGH", status.High) + " " +
		console.Flag("T_CRIT", status.Critical)
}
