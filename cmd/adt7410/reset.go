package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/thermal/cmd/adt7410/console"
)

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "software reset: all registers return to power-on values",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: withSession(func(c *cli.Context, s *session) error {
		if !c.Bool("yes") {
			ok, err := console.Confirm("reset the sensor? configuration and limits will be lost")
			if err != nil {
				return console.Exit(console.ExitAborted, "%s", err)
			}
			if !ok {
				console.PInfof(console.PictoStop, "aborted")
				return nil
			}
		}
		if err := s.dev.Reset(s.ctx); err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		console.Infof("sensor %s reset", console.White(s.dev))
		return nil
	}),
}
