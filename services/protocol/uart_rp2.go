//go:build rp2040

// services/protocol/uart_rp2.go
package protocol

import (
	"context"
	"errors"
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

func init() {
	UARTDial = dialUART
}

func dialUART(ctx context.Context, cfg UARTConfig) (io.ReadWriteCloser, error) {
	var hw *uartx.UART
	switch cfg.Port {
	case "uart0", "":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil, errors.New("unknown uart port: " + cfg.Port)
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.Baud,
		TX:       machine.Pin(cfg.TxPin),
		RX:       machine.Pin(cfg.RxPin),
	}); err != nil {
		return nil, err
	}
	return &uartPort{u: hw, ctx: ctx}, nil
}

// uartPort adapts uartx to io.ReadWriteCloser. Read blocks in
// RecvSomeContext; cancelling the dial context unblocks it, which is how
// the link is torn down on reconfigure.
type uartPort struct {
	u   *uartx.UART
	ctx context.Context
}

func (p *uartPort) Read(b []byte) (int, error)  { return p.u.RecvSomeContext(p.ctx, b) }
func (p *uartPort) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p *uartPort) Close() error                { return nil }
