// drivers/ledring/ring.go
package ledring

import (
	"context"
	"image/color"
	"sync"
	"time"

	"smartknob-go/types"
	"smartknob-go/x/ramp"
)

// Frame period for the animation loop. Fast enough for the lighthouse sweep
// to look continuous, slow enough not to fight the control loop for CPU.
const defaultFramePeriod = 33 * time.Millisecond

// lightHousePeriodFrames is one full rotation of the beacon.
const lightHousePeriodFrames = 90

// Strip pushes one frame of colors to the physical LEDs. Satisfied by the
// ws2812 driver on hardware and by fakes in tests.
type Strip interface {
	WriteColors(buf []color.RGBA) error
}

// Ring renders LedEffect settings onto an addressable LED strip. SetEffect
// only stores the target; the frame loop owns all animation, so the
// supervisory loop never blocks on LED timing.
type Ring struct {
	strip Strip
	buf   []color.RGBA

	mu     sync.Mutex
	effect types.LedEffect

	cur       uint16 // ramped brightness
	lastColor uint32 // color kept through the fade after LedsOff
	phase     int
}

func New(strip Strip, numLeds int) *Ring {
	if numLeds <= 0 {
		numLeds = 1
	}
	return &Ring{
		strip: strip,
		buf:   make([]color.RGBA, numLeds),
	}
}

// SetEffect replaces the target effect. Transitions are ramped by the frame
// loop rather than cut hard.
func (r *Ring) SetEffect(e types.LedEffect) {
	r.mu.Lock()
	r.effect = e
	r.mu.Unlock()
}

// Start runs the frame loop until ctx is cancelled. period <= 0 selects the
// default frame rate.
func (r *Ring) Start(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = defaultFramePeriod
	}
	go func() {
		tick := time.NewTicker(period)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				r.blank()
				return
			case <-tick.C:
				r.Frame()
			}
		}
	}()
}

// Frame computes and pushes one frame.
func (r *Ring) Frame() {
	r.mu.Lock()
	eff := r.effect
	r.mu.Unlock()

	var target uint16
	switch eff.Type {
	case types.EffectToBrightness, types.EffectLightHouse:
		target = eff.Brightness
	}
	r.cur = ramp.StepToward(r.cur, target, 0xffff, 256)

	switch eff.Type {
	case types.EffectLightHouse:
		r.phase = (r.phase + 1) % lightHousePeriodFrames
		r.lastColor = eff.MainColor
		r.renderLightHouse(eff)
	case types.EffectLedsOff:
		// Fade the previous color down instead of cutting to black.
		r.renderSolid(r.lastColor)
	default:
		r.lastColor = eff.MainColor
		r.renderSolid(eff.MainColor)
	}
	_ = r.strip.WriteColors(r.buf)
}

func (r *Ring) renderSolid(rgb uint32) {
	c := scale(rgb, r.cur)
	for i := range r.buf {
		r.buf[i] = c
	}
}

// renderLightHouse sweeps one bright pixel with a two-pixel tail around the
// ring; everything else stays dark.
func (r *Ring) renderLightHouse(eff types.LedEffect) {
	n := len(r.buf)
	head := r.phase * n / lightHousePeriodFrames
	for i := range r.buf {
		r.buf[i] = color.RGBA{}
	}
	r.buf[head] = scale(eff.MainColor, r.cur)
	r.buf[(head+n-1)%n] = scale(eff.MainColor, r.cur/4)
	r.buf[(head+n-2)%n] = scale(eff.MainColor, r.cur/16)
}

func (r *Ring) blank() {
	for i := range r.buf {
		r.buf[i] = color.RGBA{}
	}
	_ = r.strip.WriteColors(r.buf)
}

// scale applies a 16-bit brightness to a packed 0xRRGGBB color.
func scale(rgb uint32, bright uint16) color.RGBA {
	b := uint32(bright)
	return color.RGBA{
		R: uint8((rgb >> 16 & 0xff) * b / 0xffff),
		G: uint8((rgb >> 8 & 0xff) * b / 0xffff),
		B: uint8((rgb & 0xff) * b / 0xffff),
		A: 0xff,
	}
}
