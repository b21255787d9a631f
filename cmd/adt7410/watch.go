package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/thermal/cmd/adt7410/console"
	"github.com/mklimuk/thermal/gpio"
)

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "poll temperature and alarm flags until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: time.Second},
		&cli.StringFlag{Name: "expander", Usage: "MCP23017 address (hex) the CT/INT pins are wired to"},
		&cli.IntFlag{Name: "ct-pin", Value: 0, Usage: "expander pin of CT (0-15)"},
		&cli.IntFlag{Name: "int-pin", Value: 1, Usage: "expander pin of INT (0-15)"},
	},
	Action: withSession(func(c *cli.Context, s *session) error {
		interval := c.Duration("interval")
		if interval <= 0 {
			return console.Exit(console.ExitError, "invalid interval %s", interval)
		}
		var lines *gpio.AlertLines
		if c.IsSet("expander") {
			addr, err := parseAddress(c.String("expander"))
			if err != nil {
				return console.Exit(console.ExitError, "%s", console.Red(err))
			}
			cfg := s.dev.CachedConfiguration()
			lines = &gpio.AlertLines{
				Expander:    gpio.NewMCP23017(s.bus, addr),
				CTPin:       c.Int("ct-pin"),
				INTPin:      c.Int("int-pin"),
				CTPolarity:  cfg.CTPolarity,
				INTPolarity: cfg.INTPolarity,
			}
			if err := lines.Configure(s.ctx); err != nil {
				return console.Exit(console.ExitError, "could not configure expander: %s", console.Red(err))
			}
		}
		ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := watchOnce(ctx, s, lines); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}),
}

func watchOnce(ctx context.Context, s *session, lines *gpio.AlertLines) error {
	temp, err := s.dev.GetTemperature(ctx)
	if err != nil {
		return console.Exit(console.ExitError, "error getting temperature read: %s", console.Red(err))
	}
	status, err := s.dev.Status(ctx)
	if err != nil {
		return console.Exit(console.ExitError, "error reading status: %s", console.Red(err))
	}
	line := time.Now().Format(time.TimeOnly) + " " + console.White(formatCelsius(temp)+" °C") + " " + formatStatus(status)
	if lines != nil {
		alert, err := lines.Read(ctx)
		if err != nil {
			console.Warnf("could not read alert lines: %s", err)
		} else {
			line += " " + console.Flag("CT", alert.CT) + " " + console.Flag("INT", alert.INT)
		}
	}
	if status.Critical || status.High || status.Low {
		console.PInfof(console.PictoAlarm, "%s", line)
		return nil
	}
	console.PInfof(console.PictoThermometer, "%s", line)
	return nil
}
