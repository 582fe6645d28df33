// services/protocol/console.go
package protocol

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/google/shlex"

	"smartknob-go/bus"
	"smartknob-go/services/components"
)

// runConsole owns the link while it is in plaintext mode. Lines are parsed
// with shell quoting so a configure payload can be passed as one quoted JSON
// argument. Returns nil when the remote asked for framed mode, an error on
// link loss.
//
// rd is the link's shared buffered reader. Reading lines through it keeps
// any bytes pipelined behind a "mode framed" command available to the framed
// reader that takes over next.
func runConsole(rd *bufio.Reader, w io.Writer, l *link) error {
	out := func(s string) error {
		_, err := w.Write([]byte(s + "\r\n"))
		return err
	}
	if err := out("smartknob console. 'help' lists commands."); err != nil {
		return err
	}

	for {
		raw, err := rd.ReadString('\n')
		line := strings.TrimSpace(raw)
		if line != "" {
			reply := l.consoleLine(line)
			if reply == modeFramedReply {
				l.console.Store(false)
				return nil
			}
			if werr := out(reply); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

const modeFramedReply = "\x00framed"

// consoleLine executes one console command and returns the reply text. Also
// reachable in framed mode via line frames, so a host tool can poke at the
// device without dropping its framed session.
func (l *link) consoleLine(line string) string {
	// Single-key shortcuts kept for bare terminal use.
	switch line {
	case "c":
		line = "calibrate"
	case "w":
		line = "weigh"
	case "y":
		line = "tare"
	case "q":
		line = "mode framed"
	}

	args, err := shlex.Split(line)
	if err != nil {
		return "ERR parse: " + err.Error()
	}
	if len(args) == 0 {
		return ""
	}

	switch args[0] {
	case "help":
		return "commands: configure '<json>' | destroy <id> | activate <id> | " +
			"deactivate | state [id] | list | calibrate | weigh | tare | mode framed | help"

	case "configure":
		if len(args) != 2 {
			return "ERR usage: configure '<json>'"
		}
		var cfg components.Config
		if err := json.Unmarshal([]byte(args[1]), &cfg); err != nil {
			return "ERR json: " + err.Error()
		}
		outcome, err := l.svc.reg.CreateOrReconfigure(cfg)
		if err != nil {
			return "ERR " + err.Error()
		}
		if outcome == components.OutcomeReconfigured {
			return "OK reconfigured " + cfg.ID
		}
		return "OK created " + cfg.ID

	case "destroy":
		if len(args) != 2 {
			return "ERR usage: destroy <id>"
		}
		if err := l.svc.reg.Destroy(args[1]); err != nil {
			return "ERR " + err.Error()
		}
		return "OK destroyed " + args[1]

	case "activate":
		if len(args) != 2 {
			return "ERR usage: activate <id>"
		}
		if err := l.svc.reg.Activate(args[1]); err != nil {
			return "ERR " + err.Error()
		}
		return "OK activated " + args[1]

	case "deactivate":
		l.svc.reg.DeactivateAll()
		return "OK deactivated"

	case "state":
		if len(args) == 2 {
			comp, ok := l.svc.reg.Get(args[1])
			if !ok {
				return "ERR unknown component"
			}
			return comp.State()
		}
		b, err := json.Marshal(l.svc.snapshot())
		if err != nil {
			return "ERR " + err.Error()
		}
		return string(b)

	case "list":
		ids := l.svc.reg.IDs()
		if len(ids) == 0 {
			return "(no components)"
		}
		return strings.Join(ids, " ")

	case "calibrate":
		l.svc.conn.Publish(l.svc.conn.NewMessage(bus.Topic{"knob", "control", "calibrate"}, nil, false))
		return "OK calibrating"

	case "weigh", "tare":
		l.svc.conn.Publish(l.svc.conn.NewMessage(bus.Topic{"knob", "control", args[0]}, nil, false))
		return "OK " + args[0]

	case "mode":
		if len(args) == 2 && args[1] == "framed" {
			return modeFramedReply
		}
		return "ERR usage: mode framed"

	default:
		return "ERR unknown command: " + args[0]
	}
}
