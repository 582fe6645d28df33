// services/supervisor/supervisor.go
package supervisor

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"smartknob-go/bus"
	"smartknob-go/errcode"
	"smartknob-go/services/components"
	"smartknob-go/services/motor"
	"smartknob-go/types"
	"smartknob-go/x/timex"
)

// Reference control period.
const defaultPeriod = 10 * time.Millisecond

// MenuSurface is the legacy menu/app subsystem. It owns the knob whenever
// no component is active; the two modes are mutually exclusive and exactly
// one of them receives a given tick's knob state.
type MenuSurface interface {
	Update(st types.KnobState) types.StateUpdate
	HandleNavigation(long bool)
}

// Deps wires the supervisory loop to its collaborators. Display, LedRing,
// Strain and Menu may be nil; the loop degrades to skipping those surfaces.
type Deps struct {
	Registry *components.Registry
	Menu     MenuSurface
	Notifier *motor.Notifier
	Driver   motor.Driver
	Display  types.Renderer
	LedRing  types.LedRing
	Strain   types.StrainPower

	Knob      <-chan types.KnobState
	Sensors   <-chan types.SensorState
	Calibrate <-chan struct{}

	Period time.Duration
}

// Run executes the fixed-period control cycle until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, d Deps) {
	if d.Period <= 0 {
		d.Period = defaultPeriod
	}
	s := &service{
		conn:     conn,
		d:        d,
		settings: types.DefaultSettings(),
	}
	s.gate = newBroadcastGate(s.settings.Broadcast)
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	d    Deps

	settings types.Settings
	gate     *broadcastGate
	screen   screenControl

	latest        types.KnobState
	haveKnobState bool
	pressCount    uint8
	lastPress     types.PressKind

	subPos      float32
	subPosKnown bool
	sentBright  uint16
	lastEffect  types.LedEffect
	haveEffect  bool
}

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "settings"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"knob", "control", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("ready", "running", nil)

	tick := time.NewTicker(s.d.Period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.Settings
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "settings_decode_failed", err)
				continue
			}
			s.settings = cfg
			s.gate.configure(cfg.Broadcast)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-tick.C:
			s.runTick()
		}
	}
}

// runTick is one control cycle: drain inputs, dispatch the knob report to
// exactly one of the two mode surfaces, update screen and LED power state,
// flush the motor notifier, then evaluate the broadcast gate.
func (s *service) runTick() {
	nowMs := timex.NowMs()

	s.drainCalibration(nowMs)
	s.drainSensors(nowMs)

	st, ok := s.drainKnob()
	if ok {
		st.PressNonce = s.pressCount
		s.noteEngagement(nowMs, st)
		s.latest = st
		s.haveKnobState = true

		s.conn.Publish(s.conn.NewMessage(bus.Topic{"knob", "state"}, st, true))

		var ev types.StateUpdate
		if s.d.Registry.HasActive() {
			ev = s.d.Registry.Update(st)
		} else if s.d.Menu != nil {
			ev = s.d.Menu.Update(st)
		}
		if ev.Changed {
			s.conn.Publish(s.conn.NewMessage(
				bus.Topic{"component", "event", ev.ComponentID}, ev, false))
		}
	}

	s.d.Notifier.LoopTick()
	s.updateHardware()

	if s.haveKnobState {
		now := time.Now()
		if s.gate.shouldPublish(now, s.latest) {
			s.conn.Publish(s.conn.NewMessage(bus.Topic{"knob", "broadcast"}, s.latest, false))
			s.gate.markSent(now, s.latest)
		}
	}
}

func (s *service) drainCalibration(nowMs int64) {
	if s.d.Calibrate == nil {
		return
	}
	for {
		select {
		case <-s.d.Calibrate:
			s.screen.engage(nowMs, engageHold(s.settings.Screen))
			if s.d.Driver != nil {
				s.d.Driver.RunCalibration()
			}
		default:
			return
		}
	}
}

func (s *service) drainSensors(nowMs int64) {
	if s.d.Sensors == nil {
		return
	}
	for {
		select {
		case sen := <-s.d.Sensors:
			s.handleSensors(nowMs, sen)
		default:
			return
		}
	}
}

func (s *service) handleSensors(nowMs int64, sen types.SensorState) {
	// Confident close-range proximity wakes the screen without touching it.
	if sen.Proximity.RangeStatus < types.ProximityConfident &&
		sen.Proximity.RangeMilliMeter > 0 &&
		sen.Proximity.RangeMilliMeter < proximityEngageMM {
		s.screen.engage(nowMs, engagedTimeoutProximityMs)
	}

	if sen.Press == s.lastPress {
		return
	}
	s.lastPress = sen.Press
	switch sen.Press {
	case types.PressShort:
		s.screen.engage(nowMs, engageHold(s.settings.Screen))
		s.pressCount++
		if s.d.Driver != nil {
			s.d.Driver.PlayHaptic(true, false)
		}
	case types.PressLong:
		s.screen.engage(nowMs, engageHold(s.settings.Screen))
		s.pressCount++
		if s.d.Driver != nil {
			s.d.Driver.PlayHaptic(true, true)
		}
		if s.d.Menu != nil && !s.d.Registry.HasActive() {
			s.d.Menu.HandleNavigation(true)
		}
	case types.PressShortReleased:
		if s.d.Driver != nil {
			s.d.Driver.PlayHaptic(false, false)
		}
		if s.d.Menu != nil && !s.d.Registry.HasActive() {
			s.d.Menu.HandleNavigation(false)
		}
	case types.PressLongReleased:
		if s.d.Driver != nil {
			s.d.Driver.PlayHaptic(false, false)
		}
	}
}

// drainKnob empties the knob channel and keeps only the newest report.
func (s *service) drainKnob() (types.KnobState, bool) {
	var st types.KnobState
	got := false
	if s.d.Knob == nil {
		return st, false
	}
	for {
		select {
		case v := <-s.d.Knob:
			st = v
			got = true
		default:
			return st, got
		}
	}
}

// noteEngagement applies the rotation smoothing filter before deciding the
// knob has actually been touched since the last report.
func (s *service) noteEngagement(nowMs int64, st types.KnobState) {
	rounded := float32(math.Round(float64(st.SubPositionUnit)*3) / 3)
	if s.subPosKnown && s.subPos != rounded {
		s.screen.engage(nowMs, engageHold(s.settings.Screen))
	}
	s.subPosKnown = true
	s.subPos = rounded
}

// updateHardware advances screen brightness and the LED ring choreography.
func (s *service) updateHardware() {
	s.screen.tick(timex.NowMs(), s.settings.Screen, s.d.Strain)

	if s.d.Display != nil && s.screen.state.Brightness != s.sentBright {
		s.sentBright = s.screen.state.Brightness
		s.d.Display.SetBrightness(s.sentBright)
	}

	if s.d.LedRing == nil {
		return
	}
	eff := s.ledEffect()
	if !s.haveEffect || eff != s.lastEffect {
		s.haveEffect = true
		s.lastEffect = eff
		s.d.LedRing.SetEffect(eff)
	}
}

// ledEffect implements the three-way choreography: engaged (full on), idle
// in a bright room (fade down or off), idle in the dark (beacon).
func (s *service) ledEffect() types.LedEffect {
	led := s.settings.LedRing
	if !led.Enabled {
		return types.LedEffect{Type: types.EffectLedsOff}
	}
	bright := s.screen.state.Brightness
	switch {
	case bright > s.settings.Screen.MinBright || !led.Dim:
		return types.LedEffect{
			Type:        types.EffectToBrightness,
			MainColor:   led.Color,
			AccentColor: led.Beacon.Color,
			Brightness:  led.MaxBright,
		}
	case bright == s.settings.Screen.MinBright:
		return types.LedEffect{
			Type:        types.EffectToBrightness,
			MainColor:   led.Color,
			AccentColor: led.Beacon.Color,
			Brightness:  led.MinBright,
		}
	default:
		if led.Beacon.Enabled {
			return types.LedEffect{
				Type:        types.EffectLightHouse,
				MainColor:   led.Beacon.Color,
				AccentColor: led.Color,
				Brightness:  led.Beacon.Brightness,
			}
		}
		return types.LedEffect{Type: types.EffectLedsOff}
	}
}

// handleControl serves knob/control/<verb> requests.
func (s *service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 3 {
		return
	}
	verb, _ := msg.Topic[2].(string)
	switch verb {
	case "request_state":
		// Snapshot read bypassing the broadcast gate; always answered.
		s.replyOK(msg, map[string]any{
			"knob":       s.latest,
			"components": s.d.Registry.Snapshot(),
			"active":     s.d.Registry.ActiveID(),
		})
	case "calibrate":
		if s.d.Driver != nil {
			s.d.Driver.RunCalibration()
			s.replyOK(msg, nil)
		} else {
			s.replyErr(msg, errcode.Unsupported)
		}
	case "deactivate":
		s.d.Registry.DeactivateAll()
		// The menu takes the knob back; push its profile so the feel
		// changes immediately.
		if a, ok := s.d.Menu.(interface{ Activate() }); ok {
			a.Activate()
		}
		s.replyOK(msg, nil)
	case "weigh":
		if sc, ok := s.d.Strain.(types.StrainScale); ok {
			s.replyOK(msg, map[string]any{"grams": sc.WeighGrams()})
		} else {
			s.replyErr(msg, errcode.Unsupported)
		}
	case "tare":
		if sc, ok := s.d.Strain.(types.StrainScale); ok {
			sc.Tare()
			s.replyOK(msg, nil)
		} else {
			s.replyErr(msg, errcode.Unsupported)
		}
	default:
		s.replyErr(msg, errcode.InvalidTopic)
	}
}

// ---- helpers ----

func (s *service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"supervisor", "state"}, st, true))
}

func (s *service) replyOK(req *bus.Message, extra map[string]any) {
	if !req.CanReply() {
		return
	}
	m := map[string]any{"ok": true}
	for k, v := range extra {
		m[k] = v
	}
	s.conn.Reply(req, m, false)
}

func (s *service) replyErr(req *bus.Message, code errcode.Code) {
	if !req.CanReply() {
		return
	}
	s.conn.Reply(req, map[string]any{"ok": false, "error": string(code)}, false)
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		// Already-decoded payloads are re-encoded into T.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
