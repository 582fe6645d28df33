//go:build !rp2040

// services/protocol/serial_host.go
package protocol

import (
	"context"
	"errors"
	"io"

	"go.bug.st/serial"
)

// Host builds talk over a real serial device. Used for bench testing against
// a client on the other end of a USB-serial adapter.
func init() {
	RegisterTransport("serial", newSerialTransport)
}

type serialTransport struct {
	cfg SerialConfig
}

func newSerialTransport(cfg TransportConfig) (Transport, error) {
	if cfg.Serial == nil {
		return nil, errors.New("serial transport requires serial config")
	}
	return &serialTransport{cfg: *cfg.Serial}, nil
}

func (s *serialTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 115200
	}
	port, err := serial.Open(s.cfg.Device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return port, nil
}

func (s *serialTransport) String() string { return "serial" }
