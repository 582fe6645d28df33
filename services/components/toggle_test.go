// services/components/toggle_test.go
package components

import (
	"strings"
	"testing"

	"smartknob-go/errcode"
	"smartknob-go/types"
)

func newToggle(t *testing.T, cfg Config) (Component, *fakeMotor, *fakeDisplay) {
	t.Helper()
	fm := &fakeMotor{}
	fd := &fakeDisplay{}
	comp := toggleBuilder{}.Build(BuildInput{ID: cfg.ID, Deps: Deps{Motor: fm, Display: fd}})
	if err := comp.Configure(cfg); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	return comp, fm, fd
}

func knobAt(id string, v float32) types.KnobState {
	pos := int32(v)
	return types.KnobState{
		CurrentPosition: pos,
		SubPositionUnit: v - float32(pos),
		ProfileID:       id,
	}
}

func TestToggleHysteresisSuppressesChatter(t *testing.T) {
	comp, fm, _ := newToggle(t, toggleCfg("t"))
	fm.reset()

	// Default snap point 0.5, band 0.1: 0.4 never crosses 0.55.
	for _, v := range []float32{0.0, 0.4, 0.0, 0.5, 0.0} {
		if up := comp.OnKnobUpdate(knobAt("t", v)); up.Changed {
			t.Fatalf("v=%v flipped the toggle", v)
		}
	}
	if fm.count() != 0 {
		t.Fatalf("no-flip rotation pushed motor %d times", fm.count())
	}
}

func TestToggleFlipsExactlyOncePerCrossing(t *testing.T) {
	comp, fm, _ := newToggle(t, toggleCfg("t"))
	fm.reset()

	up := comp.OnKnobUpdate(knobAt("t", 0.6))
	if !up.Changed {
		t.Fatal("0.6 should flip an off toggle on")
	}
	if !strings.Contains(up.State, "true") {
		t.Fatalf("state JSON does not reflect on: %s", up.State)
	}
	if fm.count() != 1 {
		t.Fatalf("flip should push motor once, got %d", fm.count())
	}
	if p := fm.last(); p.Position != 1 || p.LedHue != 200 {
		t.Fatalf("flipped profile wrong: pos=%d hue=%d", p.Position, p.LedHue)
	}

	// Holding past the threshold does not re-fire.
	if up := comp.OnKnobUpdate(knobAt("t", 0.7)); up.Changed {
		t.Fatal("repeated past-threshold report flipped again")
	}
	if fm.count() != 1 {
		t.Fatalf("repeated report pushed motor again: %d", fm.count())
	}

	// Coming back below centre-half flips off.
	if up := comp.OnKnobUpdate(knobAt("t", 0.4)); !up.Changed {
		t.Fatal("0.4 should flip the on toggle off")
	}
}

func TestToggleSnapPointBiasShiftsCentre(t *testing.T) {
	cfg := toggleCfg("t")
	cfg.Toggle.SnapPoint = 0.5
	cfg.Toggle.SnapPointBias = 0.2
	comp, _, _ := newToggle(t, cfg)

	// Centre at 0.7: 0.6 no longer flips, 0.8 does.
	if up := comp.OnKnobUpdate(knobAt("t", 0.6)); up.Changed {
		t.Fatal("biased toggle flipped below shifted centre")
	}
	if up := comp.OnKnobUpdate(knobAt("t", 0.8)); !up.Changed {
		t.Fatal("biased toggle failed to flip past shifted centre")
	}
}

func TestToggleOutOfRangeSnapPointDefaults(t *testing.T) {
	cfg := toggleCfg("t")
	cfg.Toggle.SnapPoint = 1.5
	comp, _, _ := newToggle(t, cfg)

	if sp := comp.MotorProfile().SnapPoint; sp != 0.5 {
		t.Fatalf("out-of-range snap point not defaulted: %v", sp)
	}
}

func TestToggleSetState(t *testing.T) {
	comp, fm, _ := newToggle(t, toggleCfg("t"))
	fm.reset()

	if err := comp.SetState(`{"state": true}`); err != nil {
		t.Fatalf("set state failed: %v", err)
	}
	if fm.count() != 1 {
		t.Fatalf("state change should push motor once, got %d", fm.count())
	}
	if comp.MotorProfile().Position != 1 {
		t.Fatal("set state did not move the profile position")
	}

	// Idempotent: same value again, no push.
	if err := comp.SetState(`{"state": true}`); err != nil {
		t.Fatal(err)
	}
	if fm.count() != 1 {
		t.Fatalf("no-op set state pushed motor: %d", fm.count())
	}

	if err := comp.SetState(`{"nope": 1}`); err != errcode.InvalidPayload {
		t.Fatalf("want InvalidPayload, got %v", err)
	}
	if err := comp.SetState(`not json`); err != errcode.InvalidPayload {
		t.Fatalf("want InvalidPayload for garbage, got %v", err)
	}
}

func TestToggleReconfigureKeepsDomainState(t *testing.T) {
	comp, _, _ := newToggle(t, toggleCfg("t"))

	if up := comp.OnKnobUpdate(knobAt("t", 0.6)); !up.Changed {
		t.Fatal("setup flip failed")
	}

	cfg := toggleCfg("t")
	cfg.Toggle.InitialState = false
	if err := comp.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if comp.MotorProfile().Position != 1 {
		t.Fatal("reconfigure reset the toggle position from initial_state")
	}
}

func TestToggleMissingSectionRejected(t *testing.T) {
	fm := &fakeMotor{}
	comp := toggleBuilder{}.Build(BuildInput{ID: "t", Deps: Deps{Motor: fm}})
	err := comp.Configure(Config{ID: "t", Type: TypeToggle})
	if err != errcode.InvalidConfig {
		t.Fatalf("want InvalidConfig, got %v", err)
	}
}
