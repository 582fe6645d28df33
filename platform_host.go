//go:build !rp2040

package main

import (
	"context"
	"image/color"

	"smartknob-go/drivers/ledring"
	"smartknob-go/drivers/motorloop"
)

func newPlatform(ctx context.Context) platform {
	loop := motorloop.New()

	ring := ledring.New(nopStrip{}, 24)
	ring.Start(ctx, 0)

	return platform{
		driver:      loop,
		display:     logRenderer{},
		ledRing:     ring,
		knob:        loop.Reports(),
		menuEntries: []string{"Lights", "Thermostat", "Volume"},
	}
}

type nopStrip struct{}

func (nopStrip) WriteColors(buf []color.RGBA) error { return nil }
