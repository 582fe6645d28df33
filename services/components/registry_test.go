// services/components/registry_test.go
package components

import (
	"sync"
	"testing"
	"time"

	"smartknob-go/errcode"
	"smartknob-go/types"
)

// ---- Test fakes ----

type fakeMotor struct {
	mu       sync.Mutex
	requests []types.MotorProfile
}

func (f *fakeMotor) Request(p types.MotorProfile) {
	f.mu.Lock()
	f.requests = append(f.requests, p)
	f.mu.Unlock()
}

func (f *fakeMotor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeMotor) last() types.MotorProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeMotor) reset() {
	f.mu.Lock()
	f.requests = nil
	f.mu.Unlock()
}

type fakeDisplay struct {
	mu    sync.Mutex
	views []types.ComponentView
}

func (f *fakeDisplay) Render(v types.ComponentView) {
	f.mu.Lock()
	f.views = append(f.views, v)
	f.mu.Unlock()
}

func (f *fakeDisplay) SetBrightness(raw uint16) {}

func (f *fakeDisplay) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.views)
}

func (f *fakeDisplay) reset() {
	f.mu.Lock()
	f.views = nil
	f.mu.Unlock()
}

func newTestRegistry() (*Registry, *fakeMotor, *fakeDisplay) {
	fm := &fakeMotor{}
	fd := &fakeDisplay{}
	return NewRegistry(Deps{Motor: fm, Display: fd}), fm, fd
}

func toggleCfg(id string) Config {
	return Config{
		ID:          id,
		DisplayName: "Desk Lamp",
		Type:        TypeToggle,
		Toggle: &ToggleConfig{
			OffLabel:  "Off",
			OnLabel:   "On",
			OffLedHue: 30,
			OnLedHue:  200,
		},
	}
}

func multiCfg(id string, options ...string) Config {
	return Config{
		ID:          id,
		DisplayName: "Scene",
		Type:        TypeMultiChoice,
		MultiChoice: &MultiChoiceConfig{Options: options},
	}
}

// ---- Tests ----

func TestCreateActivatesAndAnnouncesOnce(t *testing.T) {
	reg, fm, fd := newTestRegistry()

	outcome, err := reg.CreateOrReconfigure(toggleCfg("lamp"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("want OutcomeCreated, got %v", outcome)
	}
	if !reg.HasActive() || reg.ActiveID() != "lamp" {
		t.Fatalf("create did not activate: active=%q", reg.ActiveID())
	}
	if fm.count() != 1 {
		t.Fatalf("want exactly 1 motor push, got %d", fm.count())
	}
	if fd.count() != 1 {
		t.Fatalf("want exactly 1 render, got %d", fd.count())
	}
	if fm.last().ID != "lamp" {
		t.Fatalf("pushed profile has wrong identity: %q", fm.last().ID)
	}
}

func TestReconfigureKeepsCountStable(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}
	outcome, err := reg.CreateOrReconfigure(toggleCfg("lamp"))
	if err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if outcome != OutcomeReconfigured {
		t.Fatalf("want OutcomeReconfigured, got %v", outcome)
	}
	if reg.Count() != 1 {
		t.Fatalf("reconfigure changed instance count: %d", reg.Count())
	}
}

func TestReconfigureTypeChangeRejected(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("x")); err != nil {
		t.Fatal(err)
	}
	_, err := reg.CreateOrReconfigure(multiCfg("x", "a", "b"))
	if err != errcode.InvalidConfig {
		t.Fatalf("want InvalidConfig on type change, got %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("rejected reconfigure mutated registry: count=%d", reg.Count())
	}
}

func TestInvalidIDRejected(t *testing.T) {
	reg, fm, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("")); err != errcode.InvalidConfig {
		t.Fatalf("empty id: want InvalidConfig, got %v", err)
	}
	long := make([]byte, 33)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := reg.CreateOrReconfigure(toggleCfg(string(long))); err != errcode.InvalidConfig {
		t.Fatalf("33-byte id: want InvalidConfig, got %v", err)
	}
	if fm.count() != 0 {
		t.Fatal("rejected create pushed a motor profile")
	}
}

func TestUnknownTypeRejected(t *testing.T) {
	reg, _, _ := newTestRegistry()

	cfg := Config{ID: "x", Type: "slider"}
	if _, err := reg.CreateOrReconfigure(cfg); err != errcode.InvalidConfig {
		t.Fatalf("want InvalidConfig for unknown type, got %v", err)
	}
}

func TestActivateUnknownLeavesActiveUnchanged(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Activate("ghost"); err != errcode.UnknownComponent {
		t.Fatalf("want UnknownComponent, got %v", err)
	}
	if reg.ActiveID() != "lamp" {
		t.Fatalf("failed activate disturbed active: %q", reg.ActiveID())
	}
}

func TestSwitchAnnouncesExactlyOnce(t *testing.T) {
	reg, fm, fd := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateOrReconfigure(multiCfg("b", "one", "two")); err != nil {
		t.Fatal(err)
	}
	fm.reset()
	fd.reset()

	if err := reg.Activate("a"); err != nil {
		t.Fatal(err)
	}
	if fm.count() != 1 {
		t.Fatalf("switch: want exactly 1 motor push, got %d", fm.count())
	}
	if fd.count() != 1 {
		t.Fatalf("switch: want exactly 1 render, got %d", fd.count())
	}
	if fm.last().ID != "a" {
		t.Fatalf("switch pushed wrong profile: %q", fm.last().ID)
	}
}

func TestDestroyActiveClearsActive(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("a")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Destroy("a"); err != nil {
		t.Fatal(err)
	}
	if reg.HasActive() {
		t.Fatal("destroying the active component left it active")
	}
	if err := reg.Destroy("a"); err != errcode.UnknownComponent {
		t.Fatalf("double destroy: want UnknownComponent, got %v", err)
	}
}

func TestUpdateDropsStaleProfileIdentity(t *testing.T) {
	reg, fm, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}
	fm.reset()

	// Report tagged with a previous profile: dropped.
	up := reg.Update(types.KnobState{CurrentPosition: 0, SubPositionUnit: 0.6, ProfileID: "old"})
	if up.Changed {
		t.Fatal("stale report produced a state change")
	}
	if fm.count() != 0 {
		t.Fatal("stale report pushed a motor profile")
	}

	// Same report tagged correctly: flips the toggle.
	up = reg.Update(types.KnobState{CurrentPosition: 0, SubPositionUnit: 0.6, ProfileID: "lamp"})
	if !up.Changed {
		t.Fatal("valid report did not flip the toggle")
	}
}

func TestUpdateWithNoActiveIsNoop(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}
	reg.DeactivateAll()
	up := reg.Update(types.KnobState{SubPositionUnit: 0.9, ProfileID: "lamp"})
	if up.Changed {
		t.Fatal("update routed to component while nothing active")
	}
}

func TestSetComponentState(t *testing.T) {
	reg, fm, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}
	fm.reset()

	if err := reg.SetComponentState("ghost", `{"state": true}`); err != errcode.UnknownComponent {
		t.Fatalf("want UnknownComponent, got %v", err)
	}
	if err := reg.SetComponentState("lamp", `{"state": true}`); err != nil {
		t.Fatalf("set state failed: %v", err)
	}
	if fm.count() != 1 {
		t.Fatalf("state change should push motor once, got %d", fm.count())
	}
}

// Exercises structural operations racing knob routing on the same
// component. Meaningful under the race detector; without it the assertion
// is simply that both sides keep making progress.
func TestConcurrentReconfigureAndKnobUpdates(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			// Busy under contention is fine; only corruption is not.
			_, _ = reg.CreateOrReconfigure(toggleCfg("lamp"))
		}
	}()

	flip := false
	for {
		select {
		case <-done:
			return
		default:
		}
		v := float32(0.6)
		if flip {
			v = 0.4
		}
		flip = !flip
		reg.Update(types.KnobState{SubPositionUnit: v, ProfileID: "lamp"})
	}
}

type blockingDisplay struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingDisplay() *blockingDisplay {
	return &blockingDisplay{
		entered: make(chan struct{}, 4),
		release: make(chan struct{}, 4),
	}
}

func (d *blockingDisplay) Render(types.ComponentView) {
	d.entered <- struct{}{}
	<-d.release
}

func (d *blockingDisplay) SetBrightness(raw uint16) {}

func TestSlowRenderDoesNotBlockStructuralOps(t *testing.T) {
	fm := &fakeMotor{}
	bd := newBlockingDisplay()
	reg := NewRegistry(Deps{Motor: fm, Display: bd})

	bd.release <- struct{}{} // lets the create announce render through
	if _, err := reg.CreateOrReconfigure(toggleCfg("lamp")); err != nil {
		t.Fatal(err)
	}
	<-bd.entered

	// Knob update whose render stalls inside the display collaborator.
	updated := make(chan struct{})
	go func() {
		defer close(updated)
		reg.Update(types.KnobState{SubPositionUnit: 0.6, ProfileID: "lamp"})
	}()
	<-bd.entered

	// Structural ops must not queue behind the stalled render.
	destroyed := make(chan error, 1)
	go func() { destroyed <- reg.Destroy("lamp") }()
	select {
	case err := <-destroyed:
		if err != nil {
			t.Fatalf("destroy failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("structural op blocked behind a slow display")
	}

	bd.release <- struct{}{}
	<-updated
}

func TestSnapshotCoversAllComponents(t *testing.T) {
	reg, _, _ := newTestRegistry()

	if _, err := reg.CreateOrReconfigure(toggleCfg("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateOrReconfigure(multiCfg("b", "x", "y")); err != nil {
		t.Fatal(err)
	}
	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot missing components: %v", snap)
	}
	for id, st := range snap {
		if st == "" {
			t.Fatalf("component %q has empty state", id)
		}
	}
}
