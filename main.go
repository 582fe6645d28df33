package main

import (
	"context"
	"time"

	"smartknob-go/bus"
	"smartknob-go/services/components"
	"smartknob-go/services/config"
	"smartknob-go/services/legacy"
	"smartknob-go/services/motor"
	"smartknob-go/services/protocol"
	"smartknob-go/services/supervisor"
	"smartknob-go/types"
)

const deviceID = "knob"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("Info: main: boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceID)
	b := bus.NewBus(16)

	hw := newPlatform(ctx)

	notifier := motor.NewNotifier(hw.driver.SetProfile)
	reg := components.NewRegistry(components.Deps{
		Motor:   notifier,
		Display: hw.display,
	})
	menu := legacy.NewMenu(hw.menuEntries, notifier, hw.display)
	menu.Activate()

	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	go protocol.Start(ctx, b.NewConnection("protocol"), reg)

	supervisor.Run(ctx, b.NewConnection("supervisor"), supervisor.Deps{
		Registry:  reg,
		Menu:      menu,
		Notifier:  notifier,
		Driver:    hw.driver,
		Display:   hw.display,
		LedRing:   hw.ledRing,
		Strain:    hw.strain,
		Knob:      hw.knob,
		Sensors:   hw.sensors,
		Calibrate: hw.calibrate,
	})
}

// platform is the per-target hardware surface, produced by a build-tagged
// newPlatform.
type platform struct {
	driver      motor.Driver
	display     types.Renderer
	ledRing     types.LedRing
	strain      types.StrainPower
	knob        <-chan types.KnobState
	sensors     <-chan types.SensorState
	calibrate   <-chan struct{}
	menuEntries []string
}

// logRenderer is the display collaborator until a pixel pipeline exists:
// views land in the log, brightness is accepted and dropped.
type logRenderer struct{}

func (logRenderer) Render(v types.ComponentView) {
	if v.Error {
		println("Info: display:", v.Title, "!", v.Primary)
		return
	}
	if v.Secondary != "" {
		println("Info: display:", v.Title, ">", v.Primary, "(", v.Secondary, ")")
		return
	}
	println("Info: display:", v.Title, ">", v.Primary)
}

func (logRenderer) SetBrightness(raw uint16) {}
