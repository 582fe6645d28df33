// services/protocol/frames.go
package protocol

import (
	"errors"
	"io"
)

// Frame types on the serial link. The payload of the component frames is
// JSON; how a remote client encodes its own structures is its business.
const (
	framePing         byte = 0x01
	framePong         byte = 0x02
	frameConfigure    byte = 0x10
	frameDestroy      byte = 0x11
	frameActivate     byte = 0x12
	frameSetState     byte = 0x13
	frameRequestState byte = 0x14
	frameState        byte = 0x15
	frameEvent        byte = 0x16
	frameAck          byte = 0x20
	frameNack         byte = 0x21
	frameLine         byte = 0x30
	frameClose        byte = 0x7f
)

const maxFramePayload = 0xffff

var errFrameTooLarge = errors.New("frame payload too large")

// Frame is a simple length-prefixed frame: type byte, big-endian uint16
// payload length, payload.
type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }
type framedWriter struct{ w io.Writer }

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > maxFramePayload {
		return errFrameTooLarge
	}
	hdr := [3]byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload))}
	if _, err := fw.w.Write(hdr[:]); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := fw.w.Write(f.Payload)
	return err
}
