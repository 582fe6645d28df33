// services/legacy/menu_test.go
package legacy

import (
	"sync"
	"testing"

	"smartknob-go/types"
)

type fakeMotor struct {
	mu       sync.Mutex
	requests []types.MotorProfile
}

func (f *fakeMotor) Request(p types.MotorProfile) {
	f.mu.Lock()
	f.requests = append(f.requests, p)
	f.mu.Unlock()
}

type fakeDisplay struct {
	views []types.ComponentView
}

func (f *fakeDisplay) Render(v types.ComponentView) { f.views = append(f.views, v) }
func (f *fakeDisplay) SetBrightness(raw uint16)     {}

func TestMenuActivatePushesProfile(t *testing.T) {
	fm := &fakeMotor{}
	fd := &fakeDisplay{}
	m := NewMenu([]string{"a", "b", "c"}, fm, fd)

	m.Activate()
	if len(fm.requests) != 1 {
		t.Fatalf("activate should push one profile, got %d", len(fm.requests))
	}
	p := fm.requests[0]
	if p.ID != "menu" || p.MaxPosition != 2 {
		t.Fatalf("bad menu profile: %+v", p)
	}
}

func TestMenuUpdateMovesHighlight(t *testing.T) {
	fm := &fakeMotor{}
	fd := &fakeDisplay{}
	m := NewMenu([]string{"a", "b", "c"}, fm, fd)

	up := m.Update(types.KnobState{CurrentPosition: 2, ProfileID: "menu"})
	if !up.Changed {
		t.Fatal("moving to another entry should report a change")
	}
	if fd.views[len(fd.views)-1].Primary != "c" {
		t.Fatalf("highlight not rendered: %+v", fd.views)
	}

	// Same position again: silent.
	if up := m.Update(types.KnobState{CurrentPosition: 2, ProfileID: "menu"}); up.Changed {
		t.Fatal("unchanged position reported a change")
	}
}

func TestMenuIgnoresForeignProfileReports(t *testing.T) {
	m := NewMenu([]string{"a", "b"}, &fakeMotor{}, nil)

	if up := m.Update(types.KnobState{CurrentPosition: 1, ProfileID: "lamp"}); up.Changed {
		t.Fatal("menu consumed a report for another profile")
	}
}

func TestMenuNavigation(t *testing.T) {
	m := NewMenu([]string{"a", "b"}, &fakeMotor{}, nil)

	m.Update(types.KnobState{CurrentPosition: 1, ProfileID: "menu"})
	m.HandleNavigation(false)
	if m.Selected() != "b" {
		t.Fatalf("short press should select highlighted entry, got %q", m.Selected())
	}
	m.HandleNavigation(true)
	if m.Selected() != "" {
		t.Fatal("long press should clear the selection")
	}
}

func TestMenuEmptyEntries(t *testing.T) {
	fd := &fakeDisplay{}
	m := NewMenu(nil, &fakeMotor{}, fd)

	m.Activate()
	if !fd.views[len(fd.views)-1].Error {
		t.Fatal("empty menu should render an error view")
	}
	if up := m.Update(types.KnobState{ProfileID: "menu"}); up.Changed {
		t.Fatal("empty menu reacted to rotation")
	}
}
