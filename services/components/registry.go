// services/components/registry.go
package components

import (
	"sync"
	"time"

	"smartknob-go/errcode"
	"smartknob-go/types"
)

// structuralLockWait bounds how long a protocol-path structural operation
// waits for the registry lock before failing with Busy. The caller retries
// on the next message; the supervisory loop is never blocked this long.
const structuralLockWait = 5 * time.Millisecond

// Outcome distinguishes a fresh create from a reconfigure of an existing id.
type Outcome uint8

const (
	OutcomeCreated Outcome = iota
	OutcomeReconfigured
)

// Registry owns every component instance by id plus the single active
// reference, stored as an id so a destroy racing an activate can never leave
// a dangling handle. Structural mutations are serialized behind one lock
// whose critical section covers only the map and active-id updates; render
// and motor pushes happen after the lock is released. Component field access
// is the component's own concern: each instance carries its own mutex, so
// post-unlock announces never race the knob routing path.
type Registry struct {
	mu       sync.Mutex
	deps     Deps
	comps    map[string]Component
	activeID string
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:  deps,
		comps: map[string]Component{},
	}
}

// lockFor acquires the structural lock with a bounded wait.
func (r *Registry) lockFor(d time.Duration) bool {
	if r.mu.TryLock() {
		return true
	}
	deadline := time.Now().Add(d)
	for {
		time.Sleep(200 * time.Microsecond)
		if r.mu.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
	}
}

// CreateOrReconfigure creates a component for an unseen id or reconfigures
// the existing one. Success implies activation: a client configuring a
// component expects immediate haptic and visual feedback.
func (r *Registry) CreateOrReconfigure(cfg Config) (Outcome, error) {
	if cfg.ID == "" || len(cfg.ID) > maxIDLen {
		println("Error: registry: invalid component id")
		return 0, errcode.InvalidConfig
	}
	b, typeKnown := lookupBuilder(cfg.Type)

	if !r.lockFor(structuralLockWait) {
		return 0, errcode.Busy
	}

	existing, exists := r.comps[cfg.ID]
	if exists {
		if cfg.Type != existing.Type() {
			r.mu.Unlock()
			println("Error: registry: component", cfg.ID, "type change from", existing.Type(), "to", cfg.Type)
			return 0, errcode.InvalidConfig
		}
		if err := existing.Configure(cfg); err != nil {
			r.mu.Unlock()
			return 0, err
		}
		r.activeID = cfg.ID
		r.mu.Unlock()
		r.announce(existing)
		println("Info: registry: component", cfg.ID, "reconfigured")
		return OutcomeReconfigured, nil
	}

	if !typeKnown {
		r.mu.Unlock()
		println("Error: registry: unknown component type", cfg.Type)
		return 0, errcode.InvalidConfig
	}
	comp := b.Build(BuildInput{ID: cfg.ID, Deps: r.deps})
	if err := comp.Configure(cfg); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	r.comps[cfg.ID] = comp
	r.activeID = cfg.ID
	r.mu.Unlock()
	r.announce(comp)
	println("Info: registry: component", cfg.ID, "created")
	return OutcomeCreated, nil
}

// announce performs the unconditional post-activation render and motor
// push, outside the structural lock.
func (r *Registry) announce(comp Component) {
	comp.Render()
	r.deps.Motor.Request(comp.MotorProfile())
}

// Activate repoints the active reference. The previous active component
// needs no teardown; not being pointed at is its only inactive state. The
// render and motor push run even when the new profile is numerically
// identical to the old one, so a switch is always visible.
func (r *Registry) Activate(id string) error {
	if !r.lockFor(structuralLockWait) {
		return errcode.Busy
	}
	comp, ok := r.comps[id]
	if !ok {
		r.mu.Unlock()
		println("Warn: registry: cannot activate unknown component", id)
		return errcode.UnknownComponent
	}
	r.activeID = id
	r.mu.Unlock()
	r.announce(comp)
	println("Info: registry: component", id, "activated")
	return nil
}

// DeactivateAll clears the active reference; used when falling back to the
// legacy menu mode.
func (r *Registry) DeactivateAll() {
	r.mu.Lock()
	r.activeID = ""
	r.mu.Unlock()
}

// Destroy removes a component. If it was active the active reference is
// cleared; nothing is implicitly activated in its place.
func (r *Registry) Destroy(id string) error {
	if !r.lockFor(structuralLockWait) {
		return errcode.Busy
	}
	if _, ok := r.comps[id]; !ok {
		r.mu.Unlock()
		println("Warn: registry: component", id, "not found for destruction")
		return errcode.UnknownComponent
	}
	delete(r.comps, id)
	if r.activeID == id {
		r.activeID = ""
	}
	r.mu.Unlock()
	println("Info: registry: component", id, "destroyed")
	return nil
}

// Update routes one knob report to the active component. It is a no-op when
// nothing is active, when the report's identity tag does not match the
// active profile (a stale report from before a switch, dropped by policy),
// or when the lock is contended this tick. The structural lock covers only
// the active-component lookup; the component synchronizes its own fields,
// so its render never stalls structural operations.
func (r *Registry) Update(st types.KnobState) types.StateUpdate {
	var update types.StateUpdate
	if !r.mu.TryLock() {
		// Structural op in flight; skip this tick.
		return update
	}
	comp, ok := r.comps[r.activeID]
	r.mu.Unlock()
	if !ok {
		return update
	}
	if comp.MotorProfile().ID != st.ProfileID {
		return update
	}
	return comp.OnKnobUpdate(st)
}

// SetComponentState applies an opaque external state payload to a
// component. The lookup takes the structural lock; the component itself
// serializes the state change against concurrent knob routing.
func (r *Registry) SetComponentState(id, state string) error {
	if !r.lockFor(structuralLockWait) {
		return errcode.Busy
	}
	comp, ok := r.comps[id]
	r.mu.Unlock()
	if !ok {
		return errcode.UnknownComponent
	}
	return comp.SetState(state)
}

// HasActive reports whether a component currently owns the knob.
func (r *Registry) HasActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID != ""
}

// ActiveID returns the id of the active component, or "".
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Get returns a component by id.
func (r *Registry) Get(id string) (Component, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comps[id]
	return c, ok
}

// Count returns the number of registered components.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.comps)
}

// IDs returns the registered component ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.comps))
	for id := range r.comps {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns every component's opaque state keyed by id. Serves
// RequestCurrentState, which bypasses the broadcast gate.
func (r *Registry) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.comps))
	for id, c := range r.comps {
		out[id] = c.State()
	}
	return out
}
