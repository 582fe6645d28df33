// services/protocol/transport.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// TransportConfig selects and parameterizes the serial link.
type TransportConfig struct {
	// "uart" (MCU builds), "serial" (host builds), or other names
	// registered via RegisterTransport.
	Type   string        `json:"type"`
	UART   *UARTConfig   `json:"uart,omitempty"`
	Serial *SerialConfig `json:"serial,omitempty"`
}

// UARTConfig carries enough information for an injected dialler to open the
// UART. Pin mapping and UART instance selection happen in UARTDial.
type UARTConfig struct {
	Port  string `json:"port"` // "uart0" or "uart1"
	Baud  uint32 `json:"baud"`
	RxPin int    `json:"rx_pin"`
	TxPin int    `json:"tx_pin"`
}

// SerialConfig selects a host serial device.
type SerialConfig struct {
	Device string `json:"device"` // e.g. "/dev/ttyACM0"
	Baud   int    `json:"baud"`
}

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu     sync.RWMutex
	reg       = map[string]transportFactory{}
	errNoDial = errors.New("UARTDial not implemented on this platform")
)

// RegisterTransport allows external packages to add transports.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := reg[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "uart":
		return newUARTTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// UARTDial is injected by platform code (a build-tagged file or main).
// It must open and return an io.ReadWriteCloser over the configured UART.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

type uartTransport struct {
	cfg TransportConfig
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, errors.New("uart transport requires uart config")
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// ---- retry helpers ----

func backoffSeq(start, cap time.Duration) func() time.Duration {
	cur := start
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > cap {
			cur = cap
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
