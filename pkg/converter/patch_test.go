package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildPatch assembles a synthetic patch resource filled with sequential
// voice bytes so both nibbles of every value get exercised.
func buildPatch(t *testing.T, title string, banks int) []byte {
	t.Helper()

	data := []byte{PatchID, byte(len(title))}
	data = append(data, title...)
	for v := 0; v < banks*BankVoices; v++ {
		if v == BankVoices && banks == 2 {
			data = append(data, separatorByte1, separatorByte2)
		}
		for i := 0; i < VoiceSize; i++ {
			data = append(data, byte(v*VoiceSize+i))
		}
	}
	return data
}

func TestParsePatchSingleBank(t *testing.T) {
	data := buildPatch(t, "", 1)
	if len(data) != OneBankPatchSize {
		t.Fatalf("fixture length = %d, want %d", len(data), OneBankPatchSize)
	}

	payload, err := NewPatchReader().ParsePatch(data)
	if err != nil {
		t.Fatalf("ParsePatch() error = %v", err)
	}

	if payload.VoiceCount() != BankVoices {
		t.Errorf("VoiceCount() = %d, want %d", payload.VoiceCount(), BankVoices)
	}
	if payload.BankCount() != 1 {
		t.Errorf("BankCount() = %d, want 1", payload.BankCount())
	}
	if payload.Title != "" {
		t.Errorf("Title = %q, want empty", payload.Title)
	}

	// Sequential fill: voice v opens with byte value v*64 mod 256
	for v := 0; v < BankVoices; v++ {
		voice := payload.Voice(v)
		if len(voice) != VoiceSize {
			t.Fatalf("Voice(%d) length = %d, want %d", v, len(voice), VoiceSize)
		}
		if voice[0] != byte(v*VoiceSize) {
			t.Errorf("Voice(%d)[0] = 0x%02X, want 0x%02X", v, voice[0], byte(v*VoiceSize))
		}
	}
}

func TestParsePatchTwoBank(t *testing.T) {
	data := buildPatch(t, "SQ3 PATCH", 2)
	if len(data) != TwoBankPatchSize+9 {
		t.Fatalf("fixture length = %d, want %d", len(data), TwoBankPatchSize+9)
	}

	payload, err := NewPatchReader().ParsePatch(data)
	if err != nil {
		t.Fatalf("ParsePatch() error = %v", err)
	}

	if payload.VoiceCount() != 2*BankVoices {
		t.Errorf("VoiceCount() = %d, want %d", payload.VoiceCount(), 2*BankVoices)
	}
	if payload.BankCount() != 2 {
		t.Errorf("BankCount() = %d, want 2", payload.BankCount())
	}
	if payload.Title != "SQ3 PATCH" {
		t.Errorf("Title = %q, want %q", payload.Title, "SQ3 PATCH")
	}

	// Voice 48 sits right after the separator; its first byte continues
	// the sequential fill without picking up the marker bytes.
	if got, want := payload.Voice(BankVoices)[0], byte(BankVoices*VoiceSize%256); got != want {
		t.Errorf("Voice(48)[0] = 0x%02X, want 0x%02X", got, want)
	}

	bankB := payload.BankData(BankB)
	if len(bankB) != BankVoices*VoiceSize {
		t.Fatalf("BankData(BankB) length = %d, want %d", len(bankB), BankVoices*VoiceSize)
	}
	if !bytes.Equal(bankB[:VoiceSize], payload.Voice(BankVoices)) {
		t.Error("BankData(BankB) does not start at voice 48")
	}
}

func TestParsePatchTitleShiftsOffsets(t *testing.T) {
	for _, n := range []int{1, 16, 255} {
		title := strings.Repeat("T", n)
		t.Run(fmt.Sprintf("title length %d", n), func(t *testing.T) {
			payload, err := NewPatchReader().ParsePatch(buildPatch(t, title, 2))
			if err != nil {
				t.Fatalf("ParsePatch() error = %v", err)
			}
			if payload.VoiceCount() != 2*BankVoices {
				t.Errorf("VoiceCount() = %d, want %d", payload.VoiceCount(), 2*BankVoices)
			}
			if payload.Title != title {
				t.Errorf("Title length = %d, want %d", len(payload.Title), n)
			}
		})
	}
}

func TestParsePatchErrors(t *testing.T) {
	valid := buildPatch(t, "", 1)
	validTwo := buildPatch(t, "", 2)

	badHeader := append([]byte{}, valid...)
	badHeader[0] = 0x00

	truncated := append([]byte{}, valid[:len(valid)-1]...)
	oversized := append(append([]byte{}, valid...), 0x00)

	badSeparator := append([]byte{}, validTwo...)
	badSeparator[patchHeaderSize+BankVoices*VoiceSize] = 0x00

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty buffer", nil, ErrInvalidHeader},
		{"wrong identifier", badHeader, ErrInvalidHeader},
		{"truncated", truncated, ErrInvalidSize},
		{"oversized", oversized, ErrInvalidSize},
		{"corrupt separator", badSeparator, ErrMissingSeparator},
	}

	reader := NewPatchReader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := reader.ParsePatch(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParsePatch() error = %v, want %v", err, tt.wantErr)
			}
			if payload != nil {
				t.Error("ParsePatch() returned a payload alongside the error")
			}
		})
	}
}

func TestGeneratePatchRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		title string
		banks int
	}{
		{"single bank", "", 1},
		{"single bank with title", "KQ4", 1},
		{"two banks", "", 2},
		{"two banks with title", "SPACE QUEST III", 2},
	}

	reader := NewPatchReader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := buildPatch(t, tt.title, tt.banks)

			payload, err := reader.ParsePatch(original)
			if err != nil {
				t.Fatalf("ParsePatch() error = %v", err)
			}
			rebuilt, err := reader.GeneratePatch(payload)
			if err != nil {
				t.Fatalf("GeneratePatch() error = %v", err)
			}
			if !bytes.Equal(rebuilt, original) {
				t.Error("rebuilt container differs from the original")
			}
		})
	}
}

func TestGeneratePatchNilPayload(t *testing.T) {
	_, err := NewPatchReader().GeneratePatch(nil)
	if !errors.Is(err, ErrInvalidPayloadSize) {
		t.Errorf("GeneratePatch(nil) error = %v, want %v", err, ErrInvalidPayloadSize)
	}
}

func TestPatchFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PATCH.002")

	original := buildPatch(t, "SPACE QUEST", 2)
	if err := os.WriteFile(path, original, 0644); err != nil {
		t.Fatal(err)
	}

	reader := NewPatchReader()
	payload, err := reader.ParsePatchFile(path)
	if err != nil {
		t.Fatalf("ParsePatchFile() error = %v", err)
	}

	out := filepath.Join(dir, "rebuilt.pat")
	if err := reader.WritePatchFile(payload, out); err != nil {
		t.Fatalf("WritePatchFile() error = %v", err)
	}

	rebuilt, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rebuilt, original) {
		t.Error("file round trip altered the container")
	}
}
