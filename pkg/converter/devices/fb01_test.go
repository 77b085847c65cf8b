package devices

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sci0tools/sci2fb/pkg/converter"
)

// testPayload builds a payload of sequential voice bytes covering every
// value both nibbles can take.
func testPayload(t *testing.T, banks int) *converter.VoicePayload {
	t.Helper()

	data := make([]byte, banks*converter.BankVoices*converter.VoiceSize)
	for i := range data {
		data[i] = byte(i)
	}
	payload, err := converter.NewVoicePayload(data)
	if err != nil {
		t.Fatalf("NewVoicePayload() error = %v", err)
	}
	return payload
}

func TestNibbleRoundTrip(t *testing.T) {
	voice := make([]byte, converter.VoiceSize)
	for i := range voice {
		voice[i] = byte(i*37 + 11) // spread across the full byte range
	}

	nibbles := nibblize(nil, voice)
	if len(nibbles) != 2*converter.VoiceSize {
		t.Fatalf("nibblize() produced %d bytes, want %d", len(nibbles), 2*converter.VoiceSize)
	}
	for i, n := range nibbles {
		if n > 0x0F {
			t.Fatalf("nibble %d = 0x%02X, out of range", i, n)
		}
	}

	// Low nibble rides first on the wire
	if nibbles[0] != voice[0]&0x0F || nibbles[1] != voice[0]>>4 {
		t.Errorf("nibble order = %02X %02X, want %02X %02X",
			nibbles[0], nibbles[1], voice[0]&0x0F, voice[0]>>4)
	}

	back, err := denibblize(nibbles)
	if err != nil {
		t.Fatalf("denibblize() error = %v", err)
	}
	if !bytes.Equal(back, voice) {
		t.Error("denibblize(nibblize(v)) did not reproduce v")
	}
}

func TestDenibblizeRejectsBadInput(t *testing.T) {
	if _, err := denibblize([]byte{0x01}); err == nil {
		t.Error("denibblize() accepted an odd byte count")
	}
	if _, err := denibblize([]byte{0x10, 0x00}); err == nil {
		t.Error("denibblize() accepted a byte above 0x0F")
	}
}

func TestVoicePacketSilentVoice(t *testing.T) {
	packet := voicePacket(make([]byte, converter.VoiceSize))

	if len(packet) != VoicePacketSize {
		t.Fatalf("packet length = %d, want %d", len(packet), VoicePacketSize)
	}
	if packet[0] != 0x01 || packet[1] != 0x00 {
		t.Errorf("size prefix = % X, want 01 00", packet[:2])
	}

	// An all-zero voice encodes as 128 zero nibbles with a zero checksum
	for i := 2; i < len(packet); i++ {
		if packet[i] != 0x00 {
			t.Fatalf("packet byte %d = 0x%02X, want 0x00", i, packet[i])
		}
	}
}

func TestVoicePacketChecksum(t *testing.T) {
	voice := make([]byte, converter.VoiceSize)
	for i := range voice {
		voice[i] = byte(255 - i)
	}
	packet := voicePacket(voice)

	// The nibble sum plus the checksum cancels out in seven bits
	var sum byte
	for _, n := range packet[2 : VoicePacketSize-1] {
		sum += n
	}
	if got := (sum + packet[VoicePacketSize-1]) & 0x7F; got != 0 {
		t.Errorf("nibble sum plus checksum = 0x%02X, want 0x00", got)
	}
}

func TestBankLabel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		id     converter.BankID
		paired bool
		want   string
	}{
		{"single bank padded", "song", converter.BankA, false, "SONG    "},
		{"single bank truncated", "wonderland", converter.BankA, false, "WONDERLA"},
		{"single bank exact fit", "CASTLE12", converter.BankA, false, "CASTLE12"},
		{"paired bank A", "X", converter.BankA, true, "X      1"},
		{"paired bank B", "X", converter.BankB, true, "X      2"},
		{"paired truncated", "leisuresuit", converter.BankB, true, "LEISURE2"},
		{"multi byte name", "sköldpadda", converter.BankA, false, "SKÖLDPA"},
		{"rune straddles the cut", "protégés", converter.BankA, false, "PROTÉG "},
		{"paired rune straddle", "orchidée", converter.BankA, true, "ORCHID 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := bankLabel(tt.input, tt.id, tt.paired)
			if got := string(label[:labelNameSize]); got != tt.want {
				t.Errorf("bankLabel(%q) name field = %q, want %q", tt.input, got, tt.want)
			}
			for i := labelNameSize; i < labelBlockSize; i++ {
				if label[i] != 0x00 {
					t.Fatalf("label byte %d = 0x%02X, want zero padding", i, label[i])
				}
			}
		})
	}
}

func TestAssembleBank(t *testing.T) {
	fb01 := NewFB01()
	payload := testPayload(t, 1)

	bank, err := fb01.AssembleBank(payload.BankData(converter.BankA), converter.BankA, "test", false)
	if err != nil {
		t.Fatalf("AssembleBank() error = %v", err)
	}

	if len(bank) != BankFileSize {
		t.Errorf("bank file length = %d, want %d", len(bank), BankFileSize)
	}
	if !bytes.Equal(bank[:7], []byte{0xF0, 0x43, 0x75, 0x00, 0x00, 0x00, 0x00}) {
		t.Errorf("header = % X", bank[:7])
	}
	if bank[7] != 0x00 || bank[8] != 0x40 {
		t.Errorf("bank header size bytes = % X, want 00 40", bank[7:9])
	}
	if bank[len(bank)-1] != converter.SysExEnd {
		t.Errorf("last byte = 0x%02X, want 0x%02X", bank[len(bank)-1], converter.SysExEnd)
	}
	if err := converter.ValidateSyx(bank); err != nil {
		t.Errorf("bank file is not 7-bit clean: %v", err)
	}

	if _, err := fb01.AssembleBank(make([]byte, 100), converter.BankA, "test", false); !errors.Is(err, converter.ErrInvalidPayloadSize) {
		t.Errorf("AssembleBank(short slab) error = %v, want %v", err, converter.ErrInvalidPayloadSize)
	}
}

func TestGenerateBanks(t *testing.T) {
	fb01 := NewFB01()

	t.Run("single bank", func(t *testing.T) {
		banks, err := fb01.GenerateBanks(testPayload(t, 1), []string{"quest"})
		if err != nil {
			t.Fatalf("GenerateBanks() error = %v", err)
		}
		if len(banks) != 1 {
			t.Fatalf("GenerateBanks() returned %d banks, want 1", len(banks))
		}
		if len(banks[0]) != BankFileSize {
			t.Errorf("bank length = %d, want %d", len(banks[0]), BankFileSize)
		}
		// A lone bank always addresses slot 0
		if banks[0][6] != 0x00 {
			t.Errorf("bank number byte = 0x%02X, want 0x00", banks[0][6])
		}
	})

	t.Run("two banks", func(t *testing.T) {
		banks, err := fb01.GenerateBanks(testPayload(t, 2), []string{"quest", "quest"})
		if err != nil {
			t.Fatalf("GenerateBanks() error = %v", err)
		}
		if len(banks) != 2 {
			t.Fatalf("GenerateBanks() returned %d banks, want 2", len(banks))
		}
		for i, bank := range banks {
			if len(bank) != BankFileSize {
				t.Errorf("bank %d length = %d, want %d", i, len(bank), BankFileSize)
			}
			if bank[6] != byte(i) {
				t.Errorf("bank %d number byte = 0x%02X, want 0x%02X", i, bank[6], byte(i))
			}
		}
	})

	t.Run("name count mismatch", func(t *testing.T) {
		if _, err := fb01.GenerateBanks(testPayload(t, 2), []string{"one"}); err == nil {
			t.Error("GenerateBanks() accepted one name for two banks")
		}
	})

	t.Run("nil payload", func(t *testing.T) {
		if _, err := fb01.GenerateBanks(nil, nil); !errors.Is(err, converter.ErrInvalidPayloadSize) {
			t.Error("GenerateBanks(nil) did not report a payload error")
		}
	})
}

func TestParseBankRoundTrip(t *testing.T) {
	fb01 := NewFB01()
	payload := testPayload(t, 2)

	banks, err := fb01.GenerateBanks(payload, []string{"rt", "rt"})
	if err != nil {
		t.Fatalf("GenerateBanks() error = %v", err)
	}

	dump, err := fb01.ParseBank(banks[1])
	if err != nil {
		t.Fatalf("ParseBank() error = %v", err)
	}
	if dump.ID != converter.BankB {
		t.Errorf("ID = %d, want %d", dump.ID, converter.BankB)
	}
	if dump.Name != "RT     2" {
		t.Errorf("Name = %q, want %q", dump.Name, "RT     2")
	}
	if !bytes.Equal(dump.Voices, payload.BankData(converter.BankB)) {
		t.Error("decoded voices differ from the originals")
	}
}

func TestParseBanks(t *testing.T) {
	fb01 := NewFB01()
	payload := testPayload(t, 2)
	banks, err := fb01.GenerateBanks(payload, []string{"ord", "ord"})
	if err != nil {
		t.Fatalf("GenerateBanks() error = %v", err)
	}

	t.Run("reorders by bank number", func(t *testing.T) {
		got, err := fb01.ParseBanks(banks[1], banks[0])
		if err != nil {
			t.Fatalf("ParseBanks() error = %v", err)
		}
		if got.VoiceCount() != 2*converter.BankVoices {
			t.Fatalf("VoiceCount() = %d, want %d", got.VoiceCount(), 2*converter.BankVoices)
		}
		for v := 0; v < got.VoiceCount(); v++ {
			if !bytes.Equal(got.Voice(v), payload.Voice(v)) {
				t.Fatalf("voice %d differs after reordering", v)
			}
		}
	})

	t.Run("rejects duplicate bank numbers", func(t *testing.T) {
		if _, err := fb01.ParseBanks(banks[0], banks[0]); err == nil {
			t.Error("ParseBanks() accepted two copies of the same bank")
		}
	})

	t.Run("single bank", func(t *testing.T) {
		single, err := fb01.GenerateBanks(testPayload(t, 1), []string{"solo"})
		if err != nil {
			t.Fatalf("GenerateBanks() error = %v", err)
		}
		got, err := fb01.ParseBanks(single[0])
		if err != nil {
			t.Fatalf("ParseBanks() error = %v", err)
		}
		if got.VoiceCount() != converter.BankVoices {
			t.Errorf("VoiceCount() = %d, want %d", got.VoiceCount(), converter.BankVoices)
		}
	})

	t.Run("rejects zero files", func(t *testing.T) {
		if _, err := fb01.ParseBanks(); err == nil {
			t.Error("ParseBanks() accepted an empty file list")
		}
	})
}

func TestParseBankRejectsCorruption(t *testing.T) {
	fb01 := NewFB01()
	banks, err := fb01.GenerateBanks(testPayload(t, 1), []string{"chk"})
	if err != nil {
		t.Fatalf("GenerateBanks() error = %v", err)
	}
	good := banks[0]

	mutate := func(offset int, value byte) []byte {
		bad := append([]byte{}, good...)
		bad[offset] = value
		return bad
	}

	labelChecksumAt := 7 + 2 + 2*labelBlockSize
	firstVoiceAt := labelChecksumAt + 1

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"truncated", good[:len(good)-1], errNotSysex},
		{"no terminator", mutate(len(good)-1, 0x00), errNotSysex},
		{"wrong manufacturer", mutate(1, 0x42), errNotBankDump},
		{"wrong bank number", mutate(6, 0x05), errNotBankDump},
		{"label checksum", mutate(labelChecksumAt, good[labelChecksumAt]^0x01), errChecksum},
		{"voice packet prefix", mutate(firstVoiceAt, 0x02), errNotBankDump},
		{"voice nibble out of range", mutate(firstVoiceAt+2, 0x1F), errChecksum},
		{"voice checksum", mutate(firstVoiceAt+VoicePacketSize-1, good[firstVoiceAt+VoicePacketSize-1]^0x01), errChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fb01.ParseBank(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseBank() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPatchConversionEndToEnd(t *testing.T) {
	// Convert a two-bank patch resource to bank dumps and rebuild the
	// container from them. Voice data must survive unchanged; the title
	// has no home in the dumps, so a title-less original matches exactly.
	payload := testPayload(t, 2)
	reader := converter.NewPatchReader()
	original, err := reader.GeneratePatch(payload)
	if err != nil {
		t.Fatalf("GeneratePatch() error = %v", err)
	}

	conv := converter.New(NewFB01())
	banks, err := conv.PatchToSyx(original, []string{"e2e", "e2e"})
	if err != nil {
		t.Fatalf("PatchToSyx() error = %v", err)
	}

	rebuilt, err := conv.SyxToPatch(banks...)
	if err != nil {
		t.Fatalf("SyxToPatch() error = %v", err)
	}
	if !bytes.Equal(rebuilt, original) {
		t.Error("round trip altered the patch resource")
	}
}
