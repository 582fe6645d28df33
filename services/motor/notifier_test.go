// services/motor/notifier_test.go
package motor

import (
	"strconv"
	"testing"

	"smartknob-go/types"
)

func TestNotifierCoalescesToLastWrite(t *testing.T) {
	var applied []types.MotorProfile
	n := NewNotifier(func(p types.MotorProfile) {
		applied = append(applied, p)
	})

	for i := 0; i < 5; i++ {
		n.Request(types.MotorProfile{Position: int32(i), ID: "p" + strconv.Itoa(i)})
	}
	n.LoopTick()

	if len(applied) != 1 {
		t.Fatalf("want exactly 1 apply for 5 requests, got %d", len(applied))
	}
	if applied[0].ID != "p4" {
		t.Fatalf("last write should win, applied %q", applied[0].ID)
	}
}

func TestNotifierIdleTickAppliesNothing(t *testing.T) {
	applies := 0
	n := NewNotifier(func(types.MotorProfile) { applies++ })

	n.LoopTick()
	n.LoopTick()
	if applies != 0 {
		t.Fatalf("idle ticks applied %d profiles", applies)
	}

	n.Request(types.MotorProfile{ID: "x"})
	n.LoopTick()
	n.LoopTick()
	if applies != 1 {
		t.Fatalf("one request should apply once total, got %d", applies)
	}
}

func TestNotifierRequestBetweenTicksAppliesAgain(t *testing.T) {
	var last types.MotorProfile
	n := NewNotifier(func(p types.MotorProfile) { last = p })

	n.Request(types.MotorProfile{ID: "a"})
	n.LoopTick()
	n.Request(types.MotorProfile{ID: "b"})
	n.LoopTick()

	if last.ID != "b" {
		t.Fatalf("second tick should apply the new request, got %q", last.ID)
	}
}
