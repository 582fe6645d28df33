// services/protocol/protocol.go
package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"smartknob-go/bus"
	"smartknob-go/errcode"
	"smartknob-go/services/components"
	"smartknob-go/types"
	"smartknob-go/x/timex"
)

// Config is the JSON-encoded configuration expected on "config/protocol".
type Config struct {
	Transport TransportConfig `json:"transport"`
	// Console starts the link in plaintext console mode instead of framed
	// mode; a console "mode framed" command switches over at runtime.
	Console bool `json:"console,omitempty"`
}

// Start runs the protocol service. It blocks until ctx is cancelled.
// It listens for JSON config on topic {"config","protocol"} and
// (re)configures the serial link; component messages arriving on the link
// are dispatched synchronously into the registry.
func Start(ctx context.Context, conn *bus.Connection, reg *components.Registry) {
	s := &Service{
		conn:       conn,
		reg:        reg,
		stateTopic: bus.Topic{"protocol", "state"},
	}
	s.run(ctx)
}

type Service struct {
	conn       *bus.Connection
	reg        *components.Registry
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc

	// Latest knob state, cached from the supervisor's retained topic so
	// RequestCurrentState is answered without a round trip.
	latest atomic.Value // types.KnobState
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "protocol"})
	knobSub := s.conn.Subscribe(bus.Topic{"knob", "state"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(knobSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg := <-knobSub.Channel():
			var st types.KnobState
			if err := decodeJSON(msg.Payload, &st); err == nil {
				s.latest.Store(st)
			}
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			var cfg Config
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc, cfg.Console); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		_ = rwc.Close()
		return
	}
}

// link owns one active serial connection. A mutex serializes writes: the
// dispatch path and the outbound pump both produce frames.
type link struct {
	svc *Service
	wr  *framedWriter
	wmu sync.Mutex

	console atomic.Bool
}

func (l *link) writeFrame(f Frame) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	return l.wr.WriteFrame(f)
}

func (l *link) writeJSON(typ byte, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return l.writeFrame(Frame{Type: typ, Payload: b})
}

func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser, console bool) error {
	// One buffered reader serves both modes. Bytes the console buffers past
	// a "mode framed" line stay available to the framed reader.
	br := bufio.NewReaderSize(rwc, 4096)
	rd := newFramedReader(br)
	l := &link{svc: s, wr: newFramedWriter(rwc)}
	l.console.Store(console)

	// Reader: dispatch inbound frames synchronously into the registry.
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if l.console.Load() {
			if err := runConsole(br, rwc, l); err != nil {
				errCh <- err
				return
			}
			// Console handed the link over to framed mode.
		}
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			l.dispatch(f)
		}
	}()

	// Outbound pump: gate-authorized knob broadcasts and component events.
	bcastSub := s.conn.Subscribe(bus.Topic{"knob", "broadcast"})
	eventSub := s.conn.Subscribe(bus.Topic{"component", "event", "+"})
	defer s.conn.Unsubscribe(bcastSub)
	defer s.conn.Unsubscribe(eventSub)

	for {
		select {
		case <-ctx.Done():
			_ = l.writeFrame(Frame{Type: frameClose})
			return nil
		case err := <-errCh:
			return err
		case msg := <-bcastSub.Channel():
			if l.console.Load() {
				continue
			}
			if err := l.writeJSON(frameState, msg.Payload); err != nil {
				return err
			}
		case msg := <-eventSub.Channel():
			if l.console.Load() {
				continue
			}
			if err := l.writeJSON(frameEvent, msg.Payload); err != nil {
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Inbound dispatch
// -----------------------------------------------------------------------------

type ackPayload struct {
	ComponentID string `json:"component_id,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	Error       string `json:"error,omitempty"`
}

type idPayload struct {
	ComponentID string `json:"component_id"`
}

type setStatePayload struct {
	ComponentID string `json:"component_id"`
	State       string `json:"state"`
}

func (l *link) dispatch(f Frame) {
	switch f.Type {
	case framePing:
		_ = l.writeFrame(Frame{Type: framePong})

	case frameConfigure:
		var cfg components.Config
		if err := json.Unmarshal(f.Payload, &cfg); err != nil {
			l.nack("", errcode.InvalidPayload)
			return
		}
		outcome, err := l.svc.reg.CreateOrReconfigure(cfg)
		if err != nil {
			l.nack(cfg.ID, errcode.Of(err))
			return
		}
		name := "created"
		if outcome == components.OutcomeReconfigured {
			name = "reconfigured"
		}
		_ = l.writeJSON(frameAck, ackPayload{ComponentID: cfg.ID, Outcome: name})

	case frameDestroy:
		var p idPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			l.nack("", errcode.InvalidPayload)
			return
		}
		if err := l.svc.reg.Destroy(p.ComponentID); err != nil {
			l.nack(p.ComponentID, errcode.Of(err))
			return
		}
		_ = l.writeJSON(frameAck, ackPayload{ComponentID: p.ComponentID, Outcome: "destroyed"})

	case frameActivate:
		var p idPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			l.nack("", errcode.InvalidPayload)
			return
		}
		if err := l.svc.reg.Activate(p.ComponentID); err != nil {
			l.nack(p.ComponentID, errcode.Of(err))
			return
		}
		_ = l.writeJSON(frameAck, ackPayload{ComponentID: p.ComponentID, Outcome: "activated"})

	case frameSetState:
		var p setStatePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			l.nack("", errcode.InvalidPayload)
			return
		}
		if err := l.svc.reg.SetComponentState(p.ComponentID, p.State); err != nil {
			l.nack(p.ComponentID, errcode.Of(err))
			return
		}
		_ = l.writeJSON(frameAck, ackPayload{ComponentID: p.ComponentID, Outcome: "state_set"})

	case frameRequestState:
		// Always answered; bypasses the broadcast gate.
		_ = l.writeJSON(frameState, l.svc.snapshot())

	case frameLine:
		reply := l.consoleLine(string(f.Payload))
		if reply == modeFramedReply {
			reply = "ERR already framed"
		}
		_ = l.writeFrame(Frame{Type: frameLine, Payload: []byte(reply)})

	case frameClose, framePong:
		// Nothing to do.

	default:
		// Unknown frame types are skipped, not fatal.
	}
}

func (l *link) nack(id string, code errcode.Code) {
	_ = l.writeJSON(frameNack, ackPayload{ComponentID: id, Error: string(code)})
}

type snapshotPayload struct {
	Knob       types.KnobState   `json:"knob"`
	Components map[string]string `json:"components"`
	Active     string            `json:"active"`
}

func (s *Service) snapshot() snapshotPayload {
	var st types.KnobState
	if v, ok := s.latest.Load().(types.KnobState); ok {
		st = v
	}
	return snapshotPayload{
		Knob:       st,
		Components: s.reg.Snapshot(),
		Active:     s.reg.ActiveID(),
	}
}

// ---- helpers ----

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(s.stateTopic, st, true))
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
