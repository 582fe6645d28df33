// services/motor/notifier.go
package motor

import (
	"sync"

	"smartknob-go/types"
)

// Applier receives the one effective motor profile per control-loop tick.
type Applier func(p types.MotorProfile)

// Notifier coalesces profile-push requests into at most one applied push
// per tick, last write wins. Reconfiguration of the motor is expensive and
// can jitter mechanically when issued repeatedly inside one control period;
// callers request eagerly and the supervisory loop flushes once.
type Notifier struct {
	mu      sync.Mutex
	pending types.MotorProfile
	dirty   bool
	apply   Applier
}

func NewNotifier(apply Applier) *Notifier {
	return &Notifier{apply: apply}
}

// Request records a profile to be applied at the next LoopTick, replacing
// any profile requested earlier in the same tick.
func (n *Notifier) Request(p types.MotorProfile) {
	n.mu.Lock()
	n.pending = p
	n.dirty = true
	n.mu.Unlock()
}

// LoopTick applies the most recent requested profile, if any. Only the
// supervisory loop calls this; nothing else writes to the motor subsystem.
func (n *Notifier) LoopTick() {
	n.mu.Lock()
	if !n.dirty {
		n.mu.Unlock()
		return
	}
	p := n.pending
	n.dirty = false
	n.mu.Unlock()
	n.apply(p)
}
