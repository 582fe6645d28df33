// drivers/motorloop/loopback_test.go
package motorloop

import (
	"testing"
	"time"

	"smartknob-go/types"
)

func recvReport(t *testing.T, l *Loopback) types.KnobState {
	t.Helper()
	select {
	case st := <-l.Reports():
		return st
	case <-time.After(time.Second):
		t.Fatal("no knob report")
		return types.KnobState{}
	}
}

func TestLoopbackSetProfileSnapsAndEchoes(t *testing.T) {
	l := New()
	l.SetProfile(types.MotorProfile{Position: 2, MinPosition: 0, MaxPosition: 4, ID: "menu"})

	st := recvReport(t, l)
	if st.CurrentPosition != 2 || st.ProfileID != "menu" {
		t.Fatalf("bad echo: %+v", st)
	}
}

func TestLoopbackTurnClampsAtEndstops(t *testing.T) {
	l := New()
	l.SetProfile(types.MotorProfile{Position: 0, MinPosition: 0, MaxPosition: 2, ID: "m"})
	recvReport(t, l)

	l.Turn(10)
	st := recvReport(t, l)
	if st.CurrentPosition != 2 {
		t.Fatalf("overrun past max endstop: %+v", st)
	}

	l.Turn(-10)
	st = recvReport(t, l)
	if st.CurrentPosition != 0 || st.SubPositionUnit != 0 {
		t.Fatalf("overrun past min endstop: %+v", st)
	}
}

func TestLoopbackTurnCarriesSubPosition(t *testing.T) {
	l := New()
	l.SetProfile(types.MotorProfile{MinPosition: 0, MaxPosition: 3, ID: "m"})
	recvReport(t, l)

	l.Turn(1.5)
	st := recvReport(t, l)
	if st.CurrentPosition != 1 {
		t.Fatalf("want detent 1, got %+v", st)
	}
	if st.SubPositionUnit < 0.49 || st.SubPositionUnit > 0.51 {
		t.Fatalf("sub-position remainder lost: %+v", st)
	}
}

func TestLoopbackTurnBeforeProfileIsNoop(t *testing.T) {
	l := New()
	l.Turn(1)
	select {
	case st := <-l.Reports():
		t.Fatalf("unconfigured loopback emitted %+v", st)
	case <-time.After(50 * time.Millisecond):
	}
}
