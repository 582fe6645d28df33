// services/components/toggle.go
package components

import (
	"encoding/json"
	"math"
	"sync"

	"smartknob-go/errcode"
	"smartknob-go/types"
	"smartknob-go/x/mathx"
)

// toggleHysteresis is the full width of the band around the commit centre
// inside which rotation does not flip the state. Suppresses chatter from
// encoder noise at the threshold.
const toggleHysteresis float32 = 0.1

const toggleWidthRadians = float32(60 * math.Pi / 180)

func init() {
	RegisterBuilder(TypeToggle, toggleBuilder{})
}

type toggleBuilder struct{}

func (toggleBuilder) Build(in BuildInput) Component {
	return &toggleComponent{id: in.ID, deps: in.Deps}
}

// toggleComponent has two positions {0,1} with independent labels and LED
// hues. The snap point plus bias set the commit centre; crossing the centre
// by half the hysteresis band flips the state.
//
// mu guards every mutable field: the supervisory tick and the protocol path
// call into the same instance concurrently. Display and motor pushes happen
// after mu is released, so no collaborator latency is ever inside a lock.
type toggleComponent struct {
	id   string
	deps Deps

	mu          sync.Mutex
	cfg         ToggleConfig
	displayName string
	configured  bool

	position     int32
	lastPosition int32
	arcValue     int32
	profile      types.MotorProfile
}

func (t *toggleComponent) ID() string   { return t.id }
func (t *toggleComponent) Type() string { return TypeToggle }

func (t *toggleComponent) Configure(cfg Config) error {
	if cfg.Toggle == nil {
		println("Error: toggle", t.id, "missing toggle configuration")
		return errcode.InvalidConfig
	}
	tc := *cfg.Toggle
	if tc.SnapPoint <= 0 || tc.SnapPoint >= 1 {
		tc.SnapPoint = 0.5
	}
	if tc.DetentStrength <= 0 {
		tc.DetentStrength = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = tc
	t.displayName = cfg.DisplayName
	if !t.configured {
		// Initial position comes from config only once; reconfiguring an
		// existing instance keeps its domain state.
		if tc.InitialState {
			t.position = 1
		} else {
			t.position = 0
		}
		t.lastPosition = t.position
		t.configured = true
	}
	t.rebuildProfileLocked()
	return nil
}

func (t *toggleComponent) rebuildProfileLocked() {
	t.profile = types.MotorProfile{
		Position:             t.position,
		PositionNonce:        uint8(t.position),
		MinPosition:          0,
		MaxPosition:          1,
		PositionWidthRadians: toggleWidthRadians,
		DetentStrength:       t.cfg.DetentStrength,
		EndstopStrength:      t.cfg.DetentStrength,
		SnapPoint:            t.cfg.SnapPoint,
		SnapPointBias:        t.cfg.SnapPointBias,
		LedHue:               t.currentHueLocked(),
		ID:                   t.id,
	}
}

func (t *toggleComponent) currentHueLocked() int32 {
	if t.position == 0 {
		return t.cfg.OffLedHue
	}
	return t.cfg.OnLedHue
}

// commitCentreLocked is the normalized position past which rotation commits
// to the other state. Bias shifts it, making one direction easier.
func (t *toggleComponent) commitCentreLocked() float32 {
	half := toggleHysteresis / 2
	return mathx.Clamp(t.cfg.SnapPoint+t.cfg.SnapPointBias, half, 1-half)
}

func (t *toggleComponent) OnKnobUpdate(st types.KnobState) types.StateUpdate {
	var update types.StateUpdate

	t.mu.Lock()
	if !t.configured {
		t.mu.Unlock()
		return update
	}

	v := float32(st.CurrentPosition) + st.SubPositionUnit
	centre := t.commitCentreLocked()
	half := toggleHysteresis / 2

	switch {
	case t.position == 0 && v >= centre+half:
		t.position = 1
	case t.position == 1 && v <= centre-half:
		t.position = 0
	}

	// Arc fill tracks travel between the two rest positions.
	t.arcValue = int32(mathx.Clamp(v, 0, 1) * 100)

	changed := t.position != t.lastPosition
	var profile types.MotorProfile
	var view types.ComponentView
	var label string
	if changed {
		t.lastPosition = t.position
		t.profile.Position = t.position
		t.profile.PositionNonce = uint8(t.position)
		t.profile.LedHue = t.currentHueLocked()
		profile = t.profile
		view = t.viewLocked()
		label = t.onOffLabelLocked()
		update = types.StateUpdate{
			ComponentID: t.id,
			State:       t.stateLocked(),
			Changed:     true,
		}
	}
	t.mu.Unlock()

	if changed {
		t.deps.Motor.Request(profile)
		t.renderView(view)
		println("Info: toggle", t.id, "state changed to", label)
	}
	return update
}

func (t *toggleComponent) Render() {
	t.mu.Lock()
	view := t.viewLocked()
	t.mu.Unlock()
	t.renderView(view)
}

func (t *toggleComponent) viewLocked() types.ComponentView {
	arc := t.arcValue
	if arc == 0 && t.position == 1 {
		arc = 100
	}
	return types.ComponentView{
		ComponentID: t.id,
		Title:       t.displayName,
		Primary:     t.onOffLabelLocked(),
		ArcValue:    arc,
		Accent:      t.position == 1,
	}
}

func (t *toggleComponent) renderView(view types.ComponentView) {
	if t.deps.Display == nil {
		return
	}
	t.deps.Display.Render(view)
}

type toggleState struct {
	State bool   `json:"state"`
	Label string `json:"label"`
}

func (t *toggleComponent) State() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *toggleComponent) stateLocked() string {
	b, err := json.Marshal(toggleState{State: t.position == 1, Label: t.onOffLabelLocked()})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (t *toggleComponent) SetState(state string) error {
	var in struct {
		State *bool `json:"state"`
	}
	if err := json.Unmarshal([]byte(state), &in); err != nil {
		return errcode.InvalidPayload
	}
	if in.State == nil {
		return errcode.InvalidPayload
	}
	var pos int32
	if *in.State {
		pos = 1
	}

	t.mu.Lock()
	if pos == t.position {
		t.mu.Unlock()
		return nil
	}
	t.position = pos
	t.lastPosition = pos
	t.profile.Position = pos
	t.profile.PositionNonce = uint8(pos)
	t.profile.LedHue = t.currentHueLocked()
	profile := t.profile
	view := t.viewLocked()
	t.mu.Unlock()

	t.deps.Motor.Request(profile)
	t.renderView(view)
	return nil
}

func (t *toggleComponent) MotorProfile() types.MotorProfile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.profile
}

func (t *toggleComponent) onOffLabelLocked() string {
	if t.position == 0 {
		return t.cfg.OffLabel
	}
	return t.cfg.OnLabel
}
