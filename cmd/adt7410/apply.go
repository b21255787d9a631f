package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/thermal/cmd/adt7410/console"
	"github.com/mklimuk/thermal/profile"
)

var applyCmd = cli.Command{
	Name:      "apply",
	Usage:     "write the sensor and limits sections of a profile",
	ArgsUsage: "[profile.yaml]",
	Action: withSession(func(c *cli.Context, s *session) error {
		p := s.profile
		if c.NArg() > 0 {
			var err error
			p, err = profile.Load(c.Args().First())
			if err != nil {
				return console.Exit(console.ExitError, "profile error: %s", console.Red(err))
			}
		}
		if p == nil {
			return console.Exit(console.ExitError, "no profile given (use --profile or an argument)")
		}
		if err := p.Apply(s.ctx, s.dev); err != nil {
			return console.Exit(console.ExitError, "error applying profile: %s", console.Red(err))
		}
		printConfiguration(s.dev.CachedConfiguration())
		return nil
	}),
}

var dumpCmd = cli.Command{
	Name:  "dump",
	Usage: "print the current device setup as a profile",
	Action: withSession(func(c *cli.Context, s *session) error {
		p, err := profile.FromDevice(s.ctx, s.dev)
		if err != nil {
			return console.Exit(console.ExitError, "error reading device: %s", console.Red(err))
		}
		p.Bus.Adapter = c.String("adapter")
		out, err := p.Encode()
		if err != nil {
			return console.Exit(console.ExitError, "encoding error: %s", console.Red(err))
		}
		console.Printf("%s", out)
		return nil
	}),
}
