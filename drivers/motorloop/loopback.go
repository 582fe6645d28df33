// drivers/motorloop/loopback.go
package motorloop

import (
	"sync"

	"smartknob-go/types"
	"smartknob-go/x/mathx"
)

// Loopback is a motor driver that closes the control loop in software: each
// applied profile snaps the simulated rotor to the profile's position and a
// knob report echoing the profile identity comes back on the report channel.
// It stands in wherever a real torque controller is absent, on the host
// always and on hardware until one is wired.
type Loopback struct {
	mu      sync.Mutex
	profile types.MotorProfile
	has     bool
	pos     int32
	sub     float32

	reports chan types.KnobState
}

func New() *Loopback {
	return &Loopback{reports: make(chan types.KnobState, 16)}
}

// Reports is the knob-state stream, wired into the supervisory loop.
func (l *Loopback) Reports() <-chan types.KnobState { return l.reports }

func (l *Loopback) SetProfile(p types.MotorProfile) {
	l.mu.Lock()
	l.profile = p
	l.has = true
	l.pos = mathx.Clamp(p.Position, p.MinPosition, p.MaxPosition)
	l.sub = 0
	l.mu.Unlock()
	l.emit()
}

func (l *Loopback) PlayHaptic(press, long bool) {
	if long {
		println("Info: motorloop: haptic long press=", press)
	} else {
		println("Info: motorloop: haptic press=", press)
	}
}

func (l *Loopback) RunCalibration() {
	println("Info: motorloop: calibration requested (no-op)")
}

// Turn advances the simulated rotor by delta detent units. Sub-detent
// remainder is carried in SubPositionUnit the way the encoder path reports
// it.
func (l *Loopback) Turn(delta float32) {
	l.mu.Lock()
	if !l.has {
		l.mu.Unlock()
		return
	}
	v := float32(l.pos) + l.sub + delta
	min := float32(l.profile.MinPosition)
	max := float32(l.profile.MaxPosition) + 0.999
	v = mathx.Clamp(v, min, max)
	l.pos = int32(v)
	l.sub = v - float32(l.pos)
	l.mu.Unlock()
	l.emit()
}

func (l *Loopback) emit() {
	l.mu.Lock()
	st := types.KnobState{
		CurrentPosition: l.pos,
		SubPositionUnit: l.sub,
		ProfileID:       l.profile.ID,
	}
	l.mu.Unlock()
	select {
	case l.reports <- st:
	default:
	}
}
