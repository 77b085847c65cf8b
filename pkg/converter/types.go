// Package converter provides conversion between Sierra SCI0 patch resources
// and Yamaha FB-01 sysex bank files
package converter

import "fmt"

// BankID addresses one of the FB-01's two voice banks.
type BankID byte

const (
	BankA BankID = 0x00
	BankB BankID = 0x01
)

// Voice geometry shared by the patch container and the sysex banks.
const (
	VoiceSize  = 64 // raw bytes per instrument voice
	BankVoices = 48 // voices per bank
)

// VoicePayload is the ordered sequence of 64-byte voice records extracted
// from a patch resource. It holds either one bank (48 voices) or two
// (96 voices) and must not be modified after construction.
type VoicePayload struct {
	Title string // title string from the container header, if any
	data  []byte
	count int
}

// NewVoicePayload wraps raw voice data in a VoicePayload. The data must be
// exactly 48 or 96 voices long; anything else returns ErrInvalidPayloadSize.
func NewVoicePayload(data []byte) (*VoicePayload, error) {
	switch len(data) {
	case BankVoices * VoiceSize, 2 * BankVoices * VoiceSize:
	default:
		return nil, fmt.Errorf("%w: got %d bytes, want %d or %d",
			ErrInvalidPayloadSize, len(data), BankVoices*VoiceSize, 2*BankVoices*VoiceSize)
	}
	return &VoicePayload{data: data, count: len(data) / VoiceSize}, nil
}

// VoiceCount returns the number of voice records (48 or 96).
func (p *VoicePayload) VoiceCount() int {
	return p.count
}

// BankCount returns how many banks the payload spans (1 or 2).
func (p *VoicePayload) BankCount() int {
	return p.count / BankVoices
}

// Voice returns the 64-byte record for voice i (0-based across both banks).
func (p *VoicePayload) Voice(i int) []byte {
	return p.data[i*VoiceSize : (i+1)*VoiceSize]
}

// BankData returns the contiguous 3072 voice bytes belonging to one bank.
func (p *VoicePayload) BankData(id BankID) []byte {
	off := int(id) * BankVoices * VoiceSize
	return p.data[off : off+BankVoices*VoiceSize]
}

// Device interface for device-specific bank format handling
type Device interface {
	Name() string
	ID() uint8
	// GenerateBanks encodes the payload into one sysex bank file per bank.
	// names supplies the label source for each bank, usually the destination
	// file names; len(names) must equal payload.BankCount().
	GenerateBanks(payload *VoicePayload, names []string) ([][]byte, error)
	// ParseBanks decodes one or two sysex bank files back into a payload.
	ParseBanks(banks ...[]byte) (*VoicePayload, error)
}

// Converter handles format conversions
type Converter struct {
	device Device
}

// New creates a new Converter with the specified device
func New(device Device) *Converter {
	return &Converter{device: device}
}

// GetDevice returns the current device
func (c *Converter) GetDevice() Device {
	return c.device
}

// SetDevice sets the device for conversion
func (c *Converter) SetDevice(device Device) {
	c.device = device
}
