package types

// ---- Service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // e.g. "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
	Error  string `json:"error,omitempty"`
}

// ---- Motor profile ----

// MotorProfile describes a haptic position space: the detent layout, the
// travel bounds and the feel parameters the motor controller applies.
// ID ties the profile to the component that produced it; knob reports echo
// it back so stale reports from a previous profile can be detected.
type MotorProfile struct {
	Position             int32   `json:"position"`
	PositionNonce        uint8   `json:"position_nonce"`
	MinPosition          int32   `json:"min_position"`
	MaxPosition          int32   `json:"max_position"`
	PositionWidthRadians float32 `json:"position_width_radians"`
	DetentStrength       float32 `json:"detent_strength"`
	EndstopStrength      float32 `json:"endstop_strength"`
	SnapPoint            float32 `json:"snap_point"`
	SnapPointBias        float32 `json:"snap_point_bias"`
	LedHue               int32   `json:"led_hue"`
	ID                   string  `json:"id"`
}

// ---- Knob state ----

// KnobState is one report from the motor/encoder path. ProfileID echoes the
// MotorProfile.ID that was in force when the report was produced.
type KnobState struct {
	CurrentPosition int32   `json:"current_position"`
	SubPositionUnit float32 `json:"sub_position_unit"`
	ProfileID       string  `json:"profile_id"`
	PressNonce      uint8   `json:"press_nonce"`
}

// ---- Component state updates ----

// StateUpdate carries a component's externally visible state after a knob
// update. Changed is false when the domain value did not move.
type StateUpdate struct {
	ComponentID string `json:"component_id"`
	State       string `json:"state"` // opaque JSON payload
	Changed     bool   `json:"changed"`
}

// ---- Render surface (display/LED collaborators, out of scope here) ----

// ComponentView is the opaque snapshot a component pushes at the display
// collaborator. What the display does with it is not this module's concern.
type ComponentView struct {
	ComponentID string `json:"component_id"`
	Title       string `json:"title"`
	Primary     string `json:"primary"`   // main label / selected option
	Secondary   string `json:"secondary"` // position indicator, error text
	ArcValue    int32  `json:"arc_value"` // 0..100
	Accent      bool   `json:"accent"`    // highlight state (toggle ON)
	Error       bool   `json:"error"`
}

// Renderer receives component views.
type Renderer interface {
	Render(view ComponentView)
	SetBrightness(raw uint16)
}

// ---- LED ring ----

type EffectType uint8

const (
	EffectLedsOff EffectType = iota
	EffectToBrightness
	EffectLightHouse
)

type LedEffect struct {
	Type        EffectType
	MainColor   uint32
	AccentColor uint32
	Brightness  uint16
}

// LedRing consumes effect settings once per supervisory decision.
type LedRing interface {
	SetEffect(e LedEffect)
}

// ---- Sensors ----

// Proximity status codes below this value count as a confident reading.
const ProximityConfident = 3

type ProximityState struct {
	RangeMilliMeter int32 `json:"range_mm"`
	RangeStatus     uint8 `json:"range_status"`
}

type PressKind uint8

const (
	PressIdle PressKind = iota
	PressShort
	PressLong
	PressShortReleased
	PressLongReleased
)

// SensorState is one drained entry from the sensors path.
type SensorState struct {
	Proximity ProximityState `json:"proximity"`
	Press     PressKind      `json:"press"`
}

// StrainPower lets the supervisor park the strain sensing path while the
// screen sleeps.
type StrainPower interface {
	PowerUp()
	PowerDown()
}

// StrainScale is optionally implemented by strain paths that can report a
// calibrated reading and re-tare on demand.
type StrainScale interface {
	WeighGrams() float32
	Tare()
}

// ---- Screen ----

type ScreenState struct {
	AwakeUntilMs   int64  `json:"awake_until_ms"`
	HasBeenEngaged bool   `json:"has_been_engaged"`
	Brightness     uint16 `json:"brightness"`
}
