package converter

import (
	"errors"
	"fmt"
)

// SysEx constants
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7
)

// ValidateSyx validates sysex framing: start byte, end byte, and 7-bit
// clean data in between.
func ValidateSyx(data []byte) error {
	if len(data) < 2 {
		return errors.New("syx data too short")
	}

	if data[0] != SysExStart {
		return fmt.Errorf("invalid SysEx: expected start byte 0x%02X, got 0x%02X", SysExStart, data[0])
	}

	if data[len(data)-1] != SysExEnd {
		return fmt.Errorf("invalid SysEx: expected end byte 0x%02X, got 0x%02X", SysExEnd, data[len(data)-1])
	}

	// Check all data bytes are 7-bit (valid MIDI data)
	for i := 1; i < len(data)-1; i++ {
		if data[i] > 127 {
			return fmt.Errorf("invalid SysEx: byte at position %d is > 127 (0x%02X)", i, data[i])
		}
	}

	return nil
}

// SplitSyx splits raw data into individual sysex messages on their framing
// bytes. Anything outside an F0..F7 frame is rejected.
func SplitSyx(data []byte) ([][]byte, error) {
	var messages [][]byte
	i := 0
	for i < len(data) {
		if data[i] != SysExStart {
			return nil, fmt.Errorf("unexpected byte 0x%02X at offset %d, want sysex start", data[i], i)
		}
		j := i + 1
		for j < len(data) && data[j] != SysExEnd {
			j++
		}
		if j == len(data) {
			return nil, errors.New("unterminated sysex message")
		}
		messages = append(messages, data[i:j+1])
		i = j + 1
	}
	if len(messages) == 0 {
		return nil, errors.New("no sysex messages")
	}
	return messages, nil
}

// ExtractManufacturerID extracts the manufacturer ID from SysEx data
func ExtractManufacturerID(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("syx data too short for manufacturer ID")
	}

	if data[0] != SysExStart {
		return nil, errors.New("invalid SysEx start")
	}

	// Check if extended manufacturer ID (starts with 0x00)
	if data[1] == 0x00 {
		if len(data) < 5 {
			return nil, errors.New("syx data too short for extended manufacturer ID")
		}
		return data[1:4], nil
	}

	// Single byte manufacturer ID
	return data[1:2], nil
}

// IsFB01Bank checks if the SysEx data is an FB-01 voice bank dump
func IsFB01Bank(data []byte) bool {
	if len(data) < 7 {
		return false
	}

	// Yamaha manufacturer ID 43, FB-01 sub-status 75, bank number 0 or 1
	return data[0] == SysExStart &&
		data[1] == 0x43 &&
		data[2] == 0x75 &&
		data[4] == 0x00 &&
		data[5] == 0x00 &&
		data[6] <= 0x01
}

// ExtractBankID returns which of the two voice bank RAM slots a bank dump
// addresses.
func ExtractBankID(data []byte) (BankID, error) {
	if !IsFB01Bank(data) {
		return 0, errors.New("not an FB-01 voice bank dump")
	}
	return BankID(data[6]), nil
}
