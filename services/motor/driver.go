// services/motor/driver.go
package motor

import "smartknob-go/types"

// Driver is the motor-control collaborator. Field-oriented control and
// torque computation live behind it and are not this module's concern.
type Driver interface {
	// SetProfile applies a haptic profile. Called at most once per
	// supervisory tick, from the notifier flush.
	SetProfile(p types.MotorProfile)

	// PlayHaptic emits a press/release buzz. Long selects the heavier
	// pattern.
	PlayHaptic(press, long bool)

	// RunCalibration starts encoder/pole calibration.
	RunCalibration()
}
