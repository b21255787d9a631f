package adt7410_test

import (
	"context"
	"fmt"
	"log"

	"github.com/mklimuk/thermal/adt7410"
	"github.com/mklimuk/thermal/sim"
)

func Example() {
	ctx := context.Background()
	// Any thermal.I2CBus works here: i2c.GenericBus, adapter.MCP2221 or i2c.NeoBus.
	bus := sim.NewADT7410(func(ctx context.Context) (float32, error) { return 23.5, nil })
	dev, err := adt7410.New(ctx, bus, adt7410.WithModeDelay(0))
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.SetResolution(ctx, adt7410.Resolution16Bit); err != nil {
		log.Fatal(err)
	}
	if err := dev.SetLimit(ctx, adt7410.LimitHigh, 30); err != nil {
		log.Fatal(err)
	}
	t, err := dev.GetTemperature(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%.2f\n", t)
	// Output: 23.50
}
