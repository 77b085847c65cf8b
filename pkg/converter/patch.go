package converter

import (
	"bytes"
	"fmt"
	"os"
)

// SCI0 patch container layout. An FB-01 patch resource looks like:
//
//	0x00   identifier byte 0x89
//	0x01   title string length (shifts every later offset)
//	0x02   title string, then 48 voices x 64 bytes (bank A)
//	       AB CD separator, two-bank containers only
//	       48 voices x 64 bytes (bank B)
//
// Total size is exactly 3074+titleLen for one bank or 6148+titleLen for two.
const (
	PatchID = 0x89 // SCI patch resource identifier

	patchHeaderSize = 2
	separatorSize   = 2

	OneBankPatchSize = patchHeaderSize + BankVoices*VoiceSize                   // 3074, before title
	TwoBankPatchSize = patchHeaderSize + 2*BankVoices*VoiceSize + separatorSize // 6148, before title
)

// Bank separator bytes between voice 48 and voice 49.
const (
	separatorByte1 = 0xAB
	separatorByte2 = 0xCD
)

// PatchReader handles SCI0 patch resource parsing and generation
type PatchReader struct{}

// NewPatchReader creates a new patch resource reader
func NewPatchReader() *PatchReader {
	return &PatchReader{}
}

// ParsePatchFile reads a patch resource file and extracts its voice payload
func (r *PatchReader) ParsePatchFile(filename string) (*VoicePayload, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch file: %w", err)
	}
	return r.ParsePatch(data)
}

// ParsePatch validates a patch resource container and extracts its voice
// payload. The container is only inspected, never modified.
func (r *PatchReader) ParsePatch(data []byte) (*VoicePayload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidHeader)
	}
	if data[0] != PatchID {
		return nil, fmt.Errorf("%w: identifier byte is 0x%02X, want 0x%02X", ErrInvalidHeader, data[0], PatchID)
	}
	if len(data) < patchHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, len(data))
	}

	// The title length at offset 1 shifts every subsequent offset.
	titleOffset := int(data[1])

	var banks int
	switch len(data) {
	case OneBankPatchSize + titleOffset:
		banks = 1
	case TwoBankPatchSize + titleOffset:
		banks = 2
	default:
		return nil, fmt.Errorf("%w: %d bytes with title length %d, want %d or %d",
			ErrInvalidSize, len(data), titleOffset,
			OneBankPatchSize+titleOffset, TwoBankPatchSize+titleOffset)
	}

	if banks == 2 {
		sep := patchHeaderSize + titleOffset + BankVoices*VoiceSize
		if data[sep] != separatorByte1 || data[sep+1] != separatorByte2 {
			return nil, fmt.Errorf("%w: got %02X %02X at offset %#x",
				ErrMissingSeparator, data[sep], data[sep+1], sep)
		}
	}

	// Copy the voice records out so the source buffer can be dropped. The
	// two-bank layout has exactly one gap: the separator before voice 49.
	voices := make([]byte, 0, banks*BankVoices*VoiceSize)
	pos := patchHeaderSize + titleOffset
	for i := 0; i < banks*BankVoices; i++ {
		if i == BankVoices {
			pos += separatorSize
		}
		voices = append(voices, data[pos:pos+VoiceSize]...)
		pos += VoiceSize
	}

	payload, err := NewVoicePayload(voices)
	if err != nil {
		return nil, err
	}
	payload.Title = string(bytes.TrimRight(data[patchHeaderSize:patchHeaderSize+titleOffset], "\x00"))
	return payload, nil
}

// GeneratePatch renders a payload back into an SCI0 patch resource
// container. Titles longer than 255 bytes are truncated to fit the
// single-byte length field.
func (r *PatchReader) GeneratePatch(payload *VoicePayload) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayloadSize)
	}

	title := []byte(payload.Title)
	if len(title) > 0xFF {
		title = title[:0xFF]
	}

	size := patchHeaderSize + len(title) + payload.VoiceCount()*VoiceSize
	if payload.BankCount() == 2 {
		size += separatorSize
	}

	out := make([]byte, 0, size)
	out = append(out, PatchID, byte(len(title)))
	out = append(out, title...)
	for i := 0; i < payload.VoiceCount(); i++ {
		if i == BankVoices && payload.BankCount() == 2 {
			out = append(out, separatorByte1, separatorByte2)
		}
		out = append(out, payload.Voice(i)...)
	}
	return out, nil
}

// WritePatchFile writes a payload to a patch resource file
func (r *PatchReader) WritePatchFile(payload *VoicePayload, filename string) error {
	data, err := r.GeneratePatch(payload)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
