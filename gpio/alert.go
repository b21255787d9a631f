package gpio

import (
	"context"
	"fmt"

	"github.com/mklimuk/thermal/adt7410"
)

// Alert is the state of the ADT7410 open-drain outputs.
type Alert struct {
	// CT is asserted while the temperature is above the critical limit.
	CT bool
	// INT is asserted on high/low limit events.
	INT bool
}

func (a Alert) String() string {
	return fmt.Sprintf("ct=%t int=%t", a.CT, a.INT)
}

// AlertLines samples the ADT7410 CT and INT pins wired to an MCP23017.
// Pins 0-7 are on set A, 8-15 on set B. Polarities must match the sensor configuration.
type AlertLines struct {
	Expander    *MCP23017
	CTPin       int
	INTPin      int
	CTPolarity  adt7410.Polarity
	INTPolarity adt7410.Polarity
}

// Configure makes every expander pin an input and enables pull-ups on the alert pins,
// which the sensor drives open-drain.
func (l AlertLines) Configure(ctx context.Context) error {
	if err := l.validate(); err != nil {
		return err
	}
	var pullUp [2]byte
	pullUp[l.CTPin/8] |= 1 << (l.CTPin % 8)
	pullUp[l.INTPin/8] |= 1 << (l.INTPin % 8)
	if err := l.Expander.InitA(ctx, 0xFF); err != nil {
		return err
	}
	if err := l.Expander.InitB(ctx, 0xFF); err != nil {
		return err
	}
	if err := l.Expander.PullUpA(ctx, pullUp[0]); err != nil {
		return err
	}
	return l.Expander.PullUpB(ctx, pullUp[1])
}

// Read samples both ports and decodes the alert pins.
func (l AlertLines) Read(ctx context.Context) (Alert, error) {
	if err := l.validate(); err != nil {
		return Alert{}, err
	}
	levels, err := l.Expander.Read(ctx)
	if err != nil {
		return Alert{}, err
	}
	return Alert{
		CT:  asserted(levels, l.CTPin, l.CTPolarity),
		INT: asserted(levels, l.INTPin, l.INTPolarity),
	}, nil
}

func (l AlertLines) validate() error {
	if l.Expander == nil {
		return fmt.Errorf("no expander configured")
	}
	for _, pin := range []int{l.CTPin, l.INTPin} {
		if pin < 0 || pin > 15 {
			return fmt.Errorf("invalid expander pin %d", pin)
		}
	}
	return nil
}

func asserted(levels []byte, pin int, polarity adt7410.Polarity) bool {
	high := levels[pin/8]&(1<<(pin%8)) != 0
	return high == (polarity == adt7410.ActiveHigh)
}
