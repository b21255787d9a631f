package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/thermal/adt7410"
	"github.com/mklimuk/thermal/cmd/adt7410/console"
	"github.com/mklimuk/thermal/profile"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "read or change the configuration register",
	Subcommands: cli.Commands{
		&configGetCmd,
		&configSetCmd,
	},
}

var configGetCmd = cli.Command{
	Name: "get",
	Action: withSession(func(c *cli.Context, s *session) error {
		cfg, err := s.dev.Configuration(s.ctx)
		if err != nil {
			return console.Exit(console.ExitError, "error reading configuration: %s", console.Red(err))
		}
		printConfiguration(cfg)
		return nil
	}),
}

var configSetCmd = cli.Command{
	Name:  "set",
	Usage: "change selected fields, others keep their value",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "resolution", Usage: "13bit or 16bit"},
		&cli.StringFlag{Name: "mode", Usage: "continuous, one-shot, 1sps or shutdown"},
		&cli.IntFlag{Name: "fault-queue", Usage: "consecutive faults before alert (1-4)"},
		&cli.StringFlag{Name: "ct-polarity", Usage: "active-low or active-high"},
		&cli.StringFlag{Name: "int-polarity", Usage: "active-low or active-high"},
		&cli.StringFlag{Name: "int-mode", Usage: "interrupt or comparator"},
	},
	Action: withSession(func(c *cli.Context, s *session) error {
		// profile.Sensor treats a zero fault queue as unset
		if c.IsSet("fault-queue") {
			if _, err := adt7410.FaultQueueOf(c.Int("fault-queue")); err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
		}
		sensor := profile.Sensor{
			Resolution:    c.String("resolution"),
			Mode:          c.String("mode"),
			FaultQueue:    c.Int("fault-queue"),
			CTPolarity:    c.String("ct-polarity"),
			INTPolarity:   c.String("int-polarity"),
			InterruptMode: c.String("int-mode"),
		}
		if _, err := sensor.Configure(adt7410.Configuration{}); err != nil {
			return console.Exit(console.ExitError, "%s", console.Red(err))
		}
		p := profile.Profile{Sensor: sensor}
		if err := p.Apply(s.ctx, s.dev); err != nil {
			return console.Exit(console.ExitError, "error writing configuration: %s", console.Red(err))
		}
		printConfiguration(s.dev.CachedConfiguration())
		return nil
	}),
}

func printConfiguration(cfg adt7410.Configuration) {
	console.Printf("resolution:     %s\n", console.White(cfg.Resolution))
	console.Printf("mode:           %s\n", console.White(cfg.OperationMode))
	console.Printf("fault queue:    %s\n", console.White(cfg.FaultQueue))
	console.Printf("ct polarity:    %s\n", console.White(cfg.CTPolarity))
	console.Printf("int polarity:   %s\n", console.White(cfg.INTPolarity))
	console.Printf("interrupt mode: %s\n", console.White(cfg.InterruptMode))
	console.Printf("raw:            %s\n", console.White("0b"+pad8(strconv.FormatUint(uint64(adt7410.EncodeConfiguration(cfg)), 2))))
}

func pad8(s string) string {
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}
