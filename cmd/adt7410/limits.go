package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/thermal/adt7410"
	"github.com/mklimuk/thermal/cmd/adt7410/console"
	"github.com/mklimuk/thermal/profile"
)

var limitsCmd = cli.Command{
	Name:  "limits",
	Usage: "read or change the alert setpoints",
	Subcommands: cli.Commands{
		&limitsGetCmd,
		&limitsSetCmd,
	},
}

var limitsGetCmd = cli.Command{
	Name: "get",
	Action: withSession(func(c *cli.Context, s *session) error {
		for _, l := range []adt7410.Limit{adt7410.LimitHigh, adt7410.LimitLow, adt7410.LimitCritical} {
			v, err := s.dev.Limit(s.ctx, l)
			if err != nil {
				return console.Exit(console.ExitError, "error reading limits: %s", console.Red(err))
			}
			console.Printf("%-10s %s °C\n", l.String()+":", console.White(formatCelsius(v)))
		}
		h, err := s.dev.Hysteresis(s.ctx)
		if err != nil {
			return console.Exit(console.ExitError, "error reading hysteresis: %s", console.Red(err))
		}
		console.Printf("%-10s %s °C\n", "hysteresis:", console.White(h))
		return nil
	}),
}

var limitsSetCmd = cli.Command{
	Name:  "set",
	Usage: "write selected setpoints (encoded with the current resolution)",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "high", Usage: "T_HIGH in °C"},
		&cli.Float64Flag{Name: "low", Usage: "T_LOW in °C"},
		&cli.Float64Flag{Name: "critical", Usage: "T_CRIT in °C"},
		&cli.UintFlag{Name: "hysteresis", Usage: "hysteresis in °C (0-15)"},
	},
	Action: withSession(func(c *cli.Context, s *session) error {
		var limits profile.Limits
		for name, dst := range map[string]**float32{"high": &limits.High, "low": &limits.Low, "critical": &limits.Critical} {
			if c.IsSet(name) {
				v := float32(c.Float64(name))
				*dst = &v
			}
		}
		if c.IsSet("hysteresis") {
			h := c.Uint("hysteresis")
			if h > 15 {
				return console.Exit(console.ExitError, "invalid hysteresis %d (expected 0-15)", h)
			}
			hb := byte(h)
			limits.Hysteresis = &hb
		}
		p := profile.Profile{Limits: limits}
		if err := p.Apply(s.ctx, s.dev); err != nil {
			return console.Exit(console.ExitError, "error writing limits: %s", console.Red(err))
		}
		console.Infof("limits written (%s)", s.dev.CachedConfiguration().Resolution)
		return nil
	}),
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}
