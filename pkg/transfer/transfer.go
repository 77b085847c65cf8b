// Package transfer pushes sysex messages to hardware over a MIDI output port.
package transfer

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/sci0tools/sci2fb/pkg/converter"
)

// DefaultGap is the pause between sysex messages, long enough for the
// FB-01 to finish storing a bank before the next one arrives.
const DefaultGap = 2 * time.Second

// Ports lists the available MIDI output port names, in port order.
func Ports() ([]string, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names, nil
}

// FindPort returns the number of the first output port whose name contains
// nameFragment, case insensitively.
func FindPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

// Sender owns an open MIDI output port.
type Sender struct {
	out drivers.Out
	gap time.Duration
}

// Open opens the MIDI output port with the given index. The returned
// closer releases the port and the driver.
func Open(portIndex int) (*Sender, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	return &Sender{out: out, gap: DefaultGap}, closer, nil
}

// PortName returns the name of the open output port.
func (s *Sender) PortName() string {
	return s.out.String()
}

// SetGap overrides the pause between consecutive sysex messages.
func (s *Sender) SetGap(gap time.Duration) {
	if gap > 0 {
		s.gap = gap
	}
}

// Send transmits each sysex message in order, pausing between them so the
// receiver can keep up.
func (s *Sender) Send(messages ...[]byte) error {
	for i, msg := range messages {
		if err := converter.ValidateSyx(msg); err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
		if err := s.out.Send(msg); err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
		if i < len(messages)-1 {
			time.Sleep(s.gap)
		}
	}
	return nil
}
