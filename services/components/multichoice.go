// services/components/multichoice.go
package components

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"
	"unicode/utf8"

	"smartknob-go/errcode"
	"smartknob-go/types"
	"smartknob-go/x/mathx"
)

// maxOptions is the clamp limit for option lists. Longer lists are
// truncated, never rejected.
const maxOptions = 20

// stateTextLimit bounds selected-option text embedded in state JSON.
const stateTextLimit = 30

const multiChoiceWidthRadians = float32(12 * math.Pi / 180)

func init() {
	RegisterBuilder(TypeMultiChoice, multiChoiceBuilder{})
}

type multiChoiceBuilder struct{}

func (multiChoiceBuilder) Build(in BuildInput) Component {
	return &multiChoiceComponent{id: in.ID, deps: in.Deps}
}

// multiChoiceComponent maps N detent positions 1:1 onto an ordered list of
// text options. Position resolution is round-to-nearest, clamped into the
// option range. Zero options is a visible error state, not a config failure.
//
// mu guards the mutable fields against concurrent access from the
// supervisory tick and the protocol path; display and motor pushes run
// after it is released.
type multiChoiceComponent struct {
	id   string
	deps Deps

	mu          sync.Mutex
	cfg         MultiChoiceConfig
	displayName string
	configured  bool

	position     int32
	lastPosition int32
	profile      types.MotorProfile
}

func (m *multiChoiceComponent) ID() string   { return m.id }
func (m *multiChoiceComponent) Type() string { return TypeMultiChoice }

func (m *multiChoiceComponent) Configure(cfg Config) error {
	if cfg.MultiChoice == nil {
		println("Error: multi_choice", m.id, "missing multi choice configuration")
		return errcode.InvalidConfig
	}
	mc := *cfg.MultiChoice
	if len(mc.Options) > maxOptions {
		println("Warn: multi_choice", m.id, "excessive options count", len(mc.Options), "limiting to", maxOptions)
		mc.Options = mc.Options[:maxOptions]
	}
	if mc.DetentStrength <= 0 {
		mc.DetentStrength = 1
	}
	if mc.EndstopStrength <= 0 {
		mc.EndstopStrength = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = mc
	m.displayName = cfg.DisplayName
	n := int32(len(mc.Options))
	if !m.configured {
		m.position = mathx.Clamp(int32(mc.InitialIndex), 0, mathx.Max(n-1, 0))
		m.lastPosition = m.position
		m.configured = true
	} else {
		// Keep the current selection valid against the new list.
		m.position = mathx.Clamp(m.position, 0, mathx.Max(n-1, 0))
		m.lastPosition = m.position
	}
	m.rebuildProfileLocked()
	return nil
}

func (m *multiChoiceComponent) rebuildProfileLocked() {
	maxPos := int32(len(m.cfg.Options)) - 1
	if maxPos < 0 {
		maxPos = 0
	}
	m.profile = types.MotorProfile{
		Position:             m.position,
		PositionNonce:        uint8(m.position),
		MinPosition:          0,
		MaxPosition:          maxPos,
		PositionWidthRadians: multiChoiceWidthRadians,
		DetentStrength:       m.cfg.DetentStrength * 2, // stronger detents for list scrubbing
		EndstopStrength:      m.cfg.EndstopStrength,
		SnapPoint:            0.5,
		LedHue:               m.cfg.LedHue,
		ID:                   m.id,
	}
}

func (m *multiChoiceComponent) OnKnobUpdate(st types.KnobState) types.StateUpdate {
	var update types.StateUpdate

	m.mu.Lock()
	if !m.configured || len(m.cfg.Options) == 0 {
		m.mu.Unlock()
		return update
	}

	v := float64(st.CurrentPosition) + float64(st.SubPositionUnit)
	newPos := mathx.Clamp(int32(math.Round(v)), 0, int32(len(m.cfg.Options))-1)
	if newPos == m.position {
		m.mu.Unlock()
		return update
	}

	m.position = newPos
	m.lastPosition = newPos
	m.profile.Position = newPos
	m.profile.PositionNonce = uint8(newPos)
	profile := m.profile
	view := m.viewLocked()
	update = types.StateUpdate{
		ComponentID: m.id,
		State:       m.stateJSONLocked(true),
		Changed:     true,
	}
	m.mu.Unlock()

	m.deps.Motor.Request(profile)
	m.renderView(view)
	println("Info: multi_choice", m.id, "selection changed to index", int(newPos))
	return update
}

func (m *multiChoiceComponent) Render() {
	m.mu.Lock()
	view := m.viewLocked()
	m.mu.Unlock()
	m.renderView(view)
}

func (m *multiChoiceComponent) viewLocked() types.ComponentView {
	if len(m.cfg.Options) == 0 {
		return types.ComponentView{
			ComponentID: m.id,
			Title:       m.displayName,
			Primary:     "No options",
			Error:       true,
		}
	}
	view := types.ComponentView{
		ComponentID: m.id,
		Title:       m.displayName,
		Primary:     m.selectedTextLocked(),
	}
	if n := len(m.cfg.Options); n > 1 {
		view.Secondary = strconv.Itoa(int(m.position)+1) + "/" + strconv.Itoa(n)
	}
	return view
}

func (m *multiChoiceComponent) renderView(view types.ComponentView) {
	if m.deps.Display == nil {
		return
	}
	m.deps.Display.Render(view)
}

type multiChoiceState struct {
	SelectedIndex int    `json:"selected_index"`
	SelectedText  string `json:"selected_text"`
	OptionsCount  *int   `json:"options_count,omitempty"`
}

func (m *multiChoiceComponent) stateJSONLocked(brief bool) string {
	s := multiChoiceState{
		SelectedIndex: int(m.position),
		SelectedText:  truncate(m.selectedTextLocked(), stateTextLimit),
	}
	if !brief {
		n := len(m.cfg.Options)
		s.OptionsCount = &n
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (m *multiChoiceComponent) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return "{}"
	}
	return m.stateJSONLocked(false)
}

func (m *multiChoiceComponent) SetState(state string) error {
	var in struct {
		SelectedIndex *int `json:"selected_index"`
	}
	if err := json.Unmarshal([]byte(state), &in); err != nil {
		return errcode.InvalidPayload
	}
	if in.SelectedIndex == nil {
		return errcode.InvalidPayload
	}

	m.mu.Lock()
	if !m.configured {
		m.mu.Unlock()
		return errcode.NotConfigured
	}
	if len(m.cfg.Options) == 0 {
		m.mu.Unlock()
		return errcode.InvalidPayload
	}
	newPos := mathx.Clamp(int32(*in.SelectedIndex), 0, int32(len(m.cfg.Options))-1)
	if newPos == m.position {
		m.mu.Unlock()
		return nil
	}
	m.position = newPos
	m.lastPosition = newPos
	m.profile.Position = newPos
	m.profile.PositionNonce = uint8(newPos)
	profile := m.profile
	view := m.viewLocked()
	m.mu.Unlock()

	m.deps.Motor.Request(profile)
	m.renderView(view)
	return nil
}

func (m *multiChoiceComponent) MotorProfile() types.MotorProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *multiChoiceComponent) selectedTextLocked() string {
	if m.position < 0 || int(m.position) >= len(m.cfg.Options) {
		return ""
	}
	return m.cfg.Options[m.position]
}

// truncate shortens s to at most limit bytes, replacing the tail with "...".
// The cut backs up to a rune boundary so multi-byte text never yields a
// mangled final character.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
