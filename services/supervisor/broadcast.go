// services/supervisor/broadcast.go
package supervisor

import (
	"time"

	"smartknob-go/types"
	"smartknob-go/x/mathx"
	"smartknob-go/x/timex"
)

// broadcastGate decides whether a state snapshot may be published outward.
// The minimum interval is a hard floor on outbound bandwidth; no change
// condition bypasses it. Within the floor, a publish happens only for a
// semantically meaningful change: enough position delta, a press, or an
// active-profile switch. Nothing starves; the next tick after the floor
// elapses re-evaluates the same delta.
type broadcastGate struct {
	enabled       bool
	minInterval   time.Duration
	positionDelta float32

	lastSent   types.KnobState
	lastSentAt time.Time
	everSent   bool
}

func newBroadcastGate(cfg types.BroadcastSettings) *broadcastGate {
	g := &broadcastGate{}
	g.configure(cfg)
	return g
}

func (g *broadcastGate) configure(cfg types.BroadcastSettings) {
	g.enabled = cfg.Enabled
	g.minInterval = timex.PeriodFromHz(cfg.RateHz)
	g.positionDelta = cfg.PositionDelta
}

// shouldPublish applies the gate rule to the current snapshot.
func (g *broadcastGate) shouldPublish(now time.Time, cur types.KnobState) bool {
	if !g.enabled {
		return false
	}
	if !g.everSent {
		return true
	}
	if now.Sub(g.lastSentAt) < g.minInterval {
		return false
	}
	positionChanged := mathx.Abs(cur.SubPositionUnit-g.lastSent.SubPositionUnit) >= g.positionDelta
	pressChanged := cur.PressNonce != g.lastSent.PressNonce
	identityChanged := cur.ProfileID != g.lastSent.ProfileID
	return positionChanged || pressChanged || identityChanged
}

func (g *broadcastGate) markSent(now time.Time, cur types.KnobState) {
	g.lastSent = cur
	g.lastSentAt = now
	g.everSent = true
}
