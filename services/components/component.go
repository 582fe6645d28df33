// services/components/component.go
package components

import (
	"sync"

	"smartknob-go/types"
)

// Component type tags. New variants extend this set and register a builder;
// there is no open-ended subclassing.
const (
	TypeToggle      = "toggle"
	TypeMultiChoice = "multi_choice"
)

// Identifier length bound, in bytes.
const maxIDLen = 32

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is one remote configuration message for a component. Identity is
// ID; Type is immutable once a component exists under that ID. Exactly one
// of the type-specific payloads must be set, matching Type.
type Config struct {
	ID          string             `json:"component_id"`
	DisplayName string             `json:"display_name"`
	Type        string             `json:"type"`
	Toggle      *ToggleConfig      `json:"toggle,omitempty"`
	MultiChoice *MultiChoiceConfig `json:"multi_choice,omitempty"`
}

type ToggleConfig struct {
	OffLabel       string  `json:"off_label"`
	OnLabel        string  `json:"on_label"`
	InitialState   bool    `json:"initial_state"`
	SnapPoint      float32 `json:"snap_point"`
	SnapPointBias  float32 `json:"snap_point_bias"`
	DetentStrength float32 `json:"detent_strength_unit"`
	OffLedHue      int32   `json:"off_led_hue"`
	OnLedHue       int32   `json:"on_led_hue"`
}

type MultiChoiceConfig struct {
	Options         []string `json:"options"`
	InitialIndex    int      `json:"initial_index"`
	DetentStrength  float32  `json:"detent_strength_unit"`
	EndstopStrength float32  `json:"endstop_strength_unit"`
	LedHue          int32    `json:"led_hue"`
}

// -----------------------------------------------------------------------------
// Capability contract
// -----------------------------------------------------------------------------

// Component is the capability contract every interactive element implements.
// A component owns its runtime state and derives a MotorProfile from its
// configuration; it never talks to the motor subsystem directly but requests
// pushes through the notifier it was built with.
type Component interface {
	ID() string
	Type() string

	// Configure validates and (re)applies settings and recomputes the
	// derived motor profile. It must be idempotent for an unchanged config.
	Configure(cfg Config) error

	// OnKnobUpdate maps a raw knob report to domain meaning. Changed is set
	// only when the domain-visible value actually moved.
	OnKnobUpdate(st types.KnobState) types.StateUpdate

	// Render pushes current domain state to the display collaborator.
	Render()

	// State/SetState are the opaque external inspection/control surface,
	// independent of knob input.
	State() string
	SetState(state string) error

	MotorProfile() types.MotorProfile
}

// -----------------------------------------------------------------------------
// Collaborator handles passed to components at build time
// -----------------------------------------------------------------------------

// MotorRequester accepts coalesced motor-profile push requests.
type MotorRequester interface {
	Request(p types.MotorProfile)
}

// Deps carries the collaborators a component needs. Display may be nil in
// tests; components must tolerate that.
type Deps struct {
	Motor   MotorRequester
	Display types.Renderer
}

// BuildInput is passed to a component builder.
type BuildInput struct {
	ID   string
	Deps Deps
}

// Builder creates an unconfigured component instance.
type Builder interface {
	Build(in BuildInput) Component
}

var (
	builderMu sync.RWMutex
	builders  = map[string]Builder{}
)

// RegisterBuilder registers a component constructor for a type tag.
// Double registration is a programming error.
func RegisterBuilder(componentType string, b Builder) {
	builderMu.Lock()
	defer builderMu.Unlock()
	if _, exists := builders[componentType]; exists {
		panic("component builder already registered for type " + componentType)
	}
	builders[componentType] = b
}

func lookupBuilder(componentType string) (Builder, bool) {
	builderMu.RLock()
	defer builderMu.RUnlock()
	b, ok := builders[componentType]
	return b, ok
}
