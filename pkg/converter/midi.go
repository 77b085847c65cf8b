package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDIConverter wraps sysex bank dumps into Standard MIDI Files so any
// SMF-capable player or sequencer can push a bank to the synth.
type MIDIConverter struct {
	ticksPerQuarter uint16
	tempo           float64
	gapBeats        uint32
}

// NewMIDIConverter creates a new MIDI file converter
func NewMIDIConverter() *MIDIConverter {
	return &MIDIConverter{
		ticksPerQuarter: 480,
		tempo:           120.0,
		gapBeats:        4,
	}
}

// ParseMIDIFile reads a MIDI file and extracts its sysex messages
func (m *MIDIConverter) ParseMIDIFile(filename string) ([][]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI extracts every sysex message from Standard MIDI File data,
// reframed with their start and end bytes.
func (m *MIDIConverter) ParseMIDI(data []byte) ([][]byte, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	// Get ticks per quarter note from time format
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		m.ticksPerQuarter = mt.Resolution()
	}

	var messages [][]byte
	for _, track := range s.Tracks {
		for _, ev := range track {
			var payload []byte
			if !ev.Message.GetSysEx(&payload) {
				continue
			}
			msg := make([]byte, 0, len(payload)+2)
			msg = append(msg, SysExStart)
			msg = append(msg, payload...)
			messages = append(messages, append(msg, SysExEnd))
		}
	}
	return messages, nil
}

// GenerateMIDI builds a one-track MIDI file carrying the given sysex
// messages, with a few beats of silence between them so the receiver can
// finish storing one bank before the next arrives.
func (m *MIDIConverter) GenerateMIDI(messages [][]byte) ([]byte, error) {
	if len(messages) == 0 {
		return nil, errors.New("no sysex messages to write")
	}

	// Create SMF with one track
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track

	// Add tempo meta event
	microsecondsPerBeat := uint32(60000000.0 / m.tempo)
	tempoData := smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	})
	track.Add(0, tempoData)

	gap := uint32(m.ticksPerQuarter) * m.gapBeats
	for i, msg := range messages {
		if err := ValidateSyx(msg); err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		var delta uint32
		if i > 0 {
			delta = gap
		}
		// midi.SysEx reframes the payload with its start and end bytes
		track.Add(delta, midi.SysEx(msg[1:len(msg)-1]))
	}

	// Add end of track, leaving room after the last message
	track.Close(gap)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	// Write to buffer
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteMIDIFile writes sysex messages to a Standard MIDI File
func (m *MIDIConverter) WriteMIDIFile(messages [][]byte, filename string) error {
	data, err := m.GenerateMIDI(messages)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
