package ramp

import (
	"smartknob-go/x/mathx"
)

// StepToward moves cur one tick toward target and returns the new level.
// Rising snaps straight to target; falling decays by an eighth of the
// remaining distance per tick so a bright screen fades rather than blinks
// off. A remainder smaller than snapBand snaps to target to avoid a long
// asymptotic tail.
func StepToward(cur, target, top uint16, snapBand uint16) uint16 {
	cur = mathx.Min(cur, top)
	target = mathx.Min(target, top)
	if cur <= target {
		return target
	}
	diff := cur - target
	if diff <= snapBand {
		return target
	}
	step := diff / 8
	if step == 0 {
		step = 1
	}
	return cur - step
}
