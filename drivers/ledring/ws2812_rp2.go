//go:build rp2040

// drivers/ledring/ws2812_rp2.go
package ledring

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// NewWS2812 wires the ring to a WS2812 strip on the given pin.
func NewWS2812(pin int, numLeds int) *Ring {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	strip := ws2812.NewWS2812(p)
	return New(strip, numLeds)
}
