package types

// ---- Effective settings (published retained on config/settings) ----

type ScreenSettings struct {
	TimeoutMs int    `json:"timeout_ms"`
	Dim       bool   `json:"dim"`
	MinBright uint16 `json:"min_bright"`
	MaxBright uint16 `json:"max_bright"`
}

type BeaconSettings struct {
	Enabled    bool   `json:"enabled"`
	Color      uint32 `json:"color"`
	Brightness uint16 `json:"brightness"`
}

type LedRingSettings struct {
	Enabled   bool           `json:"enabled"`
	Dim       bool           `json:"dim"`
	Color     uint32         `json:"color"`
	MaxBright uint16         `json:"max_bright"`
	MinBright uint16         `json:"min_bright"`
	Beacon    BeaconSettings `json:"beacon"`
}

type BroadcastSettings struct {
	Enabled       bool    `json:"enabled"`
	RateHz        uint32  `json:"rate_hz"`
	PositionDelta float32 `json:"position_delta"`
}

type Settings struct {
	Screen    ScreenSettings    `json:"screen"`
	LedRing   LedRingSettings   `json:"led_ring"`
	Broadcast BroadcastSettings `json:"broadcast"`
}

// DefaultSettings is applied until config/settings arrives.
func DefaultSettings() Settings {
	return Settings{
		Screen: ScreenSettings{
			TimeoutMs: 4000,
			Dim:       true,
			MinBright: 3000,
			MaxBright: 65535,
		},
		LedRing: LedRingSettings{
			Enabled:   true,
			Dim:       true,
			Color:     0x808080,
			MaxBright: 65535,
			MinBright: 4000,
			Beacon:    BeaconSettings{Enabled: true, Color: 0x202040, Brightness: 2000},
		},
		Broadcast: BroadcastSettings{
			Enabled:       true,
			RateHz:        10,
			PositionDelta: 0.1,
		},
	}
}
