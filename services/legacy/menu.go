// services/legacy/menu.go
package legacy

import (
	"math"

	"smartknob-go/services/components"
	"smartknob-go/types"
	"smartknob-go/x/mathx"
)

const menuWidthRadians = float32(10 * math.Pi / 180)

// Menu is the pre-component menu subsystem kept as the fallback mode. It
// owns the knob whenever no component is active: a detent per entry, short
// press selects, long press backs out to the top.
type Menu struct {
	entries  []string
	index    int32
	selected int32 // -1 while browsing
	profile  types.MotorProfile

	motor   components.MotorRequester
	display types.Renderer
}

func NewMenu(entries []string, motor components.MotorRequester, display types.Renderer) *Menu {
	m := &Menu{
		entries:  entries,
		selected: -1,
		motor:    motor,
		display:  display,
	}
	m.profile = types.MotorProfile{
		MinPosition:          0,
		MaxPosition:          mathx.Max(int32(len(entries))-1, 0),
		PositionWidthRadians: menuWidthRadians,
		DetentStrength:       1,
		EndstopStrength:      1,
		SnapPoint:            0.55,
		ID:                   "menu",
	}
	return m
}

// Activate pushes the menu's motor profile and redraws; called when the
// supervisor falls back out of component mode.
func (m *Menu) Activate() {
	if m.motor != nil {
		m.motor.Request(m.profile)
	}
	m.render()
}

func (m *Menu) Update(st types.KnobState) types.StateUpdate {
	var update types.StateUpdate
	if len(m.entries) == 0 || st.ProfileID != m.profile.ID {
		return update
	}
	v := float64(st.CurrentPosition) + float64(st.SubPositionUnit)
	pos := mathx.Clamp(int32(math.Round(v)), 0, int32(len(m.entries))-1)
	if pos == m.index {
		return update
	}
	m.index = pos
	m.profile.Position = pos
	m.profile.PositionNonce = uint8(pos)
	if m.motor != nil {
		m.motor.Request(m.profile)
	}
	m.render()
	return types.StateUpdate{
		ComponentID: "menu",
		State:       `{"entry": "` + m.entries[pos] + `"}`,
		Changed:     true,
	}
}

// HandleNavigation reacts to press events: short selects the highlighted
// entry, long clears the selection.
func (m *Menu) HandleNavigation(long bool) {
	if long {
		m.selected = -1
	} else if len(m.entries) > 0 {
		m.selected = m.index
	}
	m.render()
}

// Selected returns the chosen entry, or "" while browsing.
func (m *Menu) Selected() string {
	if m.selected < 0 || int(m.selected) >= len(m.entries) {
		return ""
	}
	return m.entries[m.selected]
}

func (m *Menu) render() {
	if m.display == nil {
		return
	}
	view := types.ComponentView{
		ComponentID: "menu",
		Title:       "Menu",
		Accent:      m.selected >= 0,
	}
	if len(m.entries) == 0 {
		view.Primary = "Empty"
		view.Error = true
	} else {
		view.Primary = m.entries[m.index]
		view.ArcValue = int32(m.index) * 100 / mathx.Max(int32(len(m.entries))-1, 1)
	}
	m.display.Render(view)
}
