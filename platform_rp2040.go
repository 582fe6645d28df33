//go:build rp2040

package main

import (
	"context"

	"smartknob-go/drivers/ledring"
	"smartknob-go/drivers/motorloop"
)

const (
	ledRingPin  = 7
	ledRingLeds = 24
)

func newPlatform(ctx context.Context) platform {
	loop := motorloop.New()

	ring := ledring.NewWS2812(ledRingPin, ledRingLeds)
	ring.Start(ctx, 0)

	return platform{
		driver:      loop,
		display:     logRenderer{},
		ledRing:     ring,
		knob:        loop.Reports(),
		menuEntries: []string{"Lights", "Thermostat", "Volume"},
	}
}
