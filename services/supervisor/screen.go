// services/supervisor/screen.go
package supervisor

import (
	"smartknob-go/types"
	"smartknob-go/x/mathx"
	"smartknob-go/x/ramp"
)

// Engagement timeout windows, milliseconds. Physical engagement (rotation,
// presses) holds the screen awake longer than a proximity wave.
const (
	engagedTimeoutPhysicalMs  = 4000
	engagedTimeoutProximityMs = 2000
)

// Proximity readings closer than this count as engagement.
const proximityEngageMM = 200

// brightnessSnapBand ends the falling ramp early instead of trailing off
// one count at a time.
const brightnessSnapBand = 64

// screenControl recomputes wake/sleep and brightness idempotently from
// wall-clock reads every tick.
type screenControl struct {
	state   types.ScreenState
	powered bool // strain path powered up
}

// engage marks the screen engaged and extends the awake window to at least
// holdMs from now.
func (s *screenControl) engage(nowMs int64, holdMs int64) {
	s.state.HasBeenEngaged = true
	until := nowMs + holdMs
	if s.state.AwakeUntilMs < until {
		s.state.AwakeUntilMs = until
	}
}

// engageHold picks the physical-engagement hold window given the configured
// screen timeout.
func engageHold(cfg types.ScreenSettings) int64 {
	return mathx.Max(int64(engagedTimeoutPhysicalMs/2), int64(cfg.TimeoutMs))
}

// tick advances wake/sleep and brightness one control period. It powers the
// strain path up while engaged and down when the screen goes back to sleep.
func (s *screenControl) tick(nowMs int64, cfg types.ScreenSettings, strain types.StrainPower) {
	if s.state.HasBeenEngaged {
		if s.state.Brightness != cfg.MaxBright {
			s.state.Brightness = cfg.MaxBright
			if strain != nil && !s.powered {
				strain.PowerUp()
				s.powered = true
			}
		}
		if nowMs > s.state.AwakeUntilMs {
			s.state.HasBeenEngaged = false
			if strain != nil && s.powered {
				strain.PowerDown()
				s.powered = false
			}
		}
		return
	}

	target := cfg.MaxBright
	if cfg.Dim {
		target = cfg.MinBright
	}
	s.state.Brightness = ramp.StepToward(s.state.Brightness, target, cfg.MaxBright, brightnessSnapBand)
}
