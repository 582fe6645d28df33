package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgKnob = `{
  "settings": {
    "screen": {
      "timeout_ms": 4000,
      "dim": true,
      "min_bright": 3000,
      "max_bright": 65535
    },
    "led_ring": {
      "enabled": true,
      "dim": true,
      "color": 8421504,
      "max_bright": 65535,
      "min_bright": 4000,
      "beacon": {"enabled": true, "color": 2105408, "brightness": 2000}
    },
    "broadcast": {
      "enabled": true,
      "rate_hz": 10,
      "position_delta": 0.1
    }
  },
  "protocol": {
    "transport": {
      "type": "uart",
      "uart": {"port": "uart0", "baud": 921600, "rx_pin": 1, "tx_pin": 0}
    }
  }
}`

var embeddedConfigs = map[string][]byte{
	"knob": []byte(cfgKnob),
}
