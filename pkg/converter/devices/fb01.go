package devices

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sci0tools/sci2fb/pkg/converter"
)

// Yamaha FB-01 voice bank dump framing
const (
	fb01Manufacturer = 0x43 // Yamaha
	fb01SubStatus    = 0x75

	// VoicePacketSize is one voice dump packet: a two-byte 7-bit size,
	// 128 nibblized data bytes, and a checksum.
	VoicePacketSize = 2 + 2*converter.VoiceSize + 1

	// BankFileSize is a complete bank dump: the seven-byte header, the
	// labelled bank header block, 48 voice packets, and EOX.
	BankFileSize = 7 + 2 + 2*labelBlockSize + 1 + converter.BankVoices*VoicePacketSize + 1

	labelBlockSize = 32 // bank header block, nibblizes to 64 bytes on the wire
	labelNameSize  = 8  // visible bank name field inside the block
)

var (
	errNotSysex    = errors.New("not a sysex message")
	errNotBankDump = errors.New("not an FB-01 voice bank dump")
	errChecksum    = errors.New("checksum mismatch")
)

// FB01 converts voice payloads to and from Yamaha FB-01 voice bank dumps
type FB01 struct{}

// NewFB01 creates a new FB-01 device
func NewFB01() *FB01 {
	return &FB01{}
}

// Name returns the device name
func (f *FB01) Name() string {
	return "Yamaha FB-01"
}

// ID returns the device system channel
func (f *FB01) ID() uint8 {
	return 0
}

// BankDump holds the decoded contents of one bank dump sysex file.
type BankDump struct {
	ID     converter.BankID
	Name   string
	Voices []byte
}

// GenerateBanks builds one bank dump sysex file per 48-voice bank in the
// payload, labelled with the matching entry of names.
func (f *FB01) GenerateBanks(payload *converter.VoicePayload, names []string) ([][]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", converter.ErrInvalidPayloadSize)
	}
	count := payload.BankCount()
	if len(names) != count {
		return nil, fmt.Errorf("want %d bank name(s), got %d", count, len(names))
	}

	paired := count == 2
	banks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		id := converter.BankID(i)
		bank, err := f.AssembleBank(payload.BankData(id), id, names[i], paired)
		if err != nil {
			return nil, err
		}
		banks = append(banks, bank)
	}
	return banks, nil
}

// AssembleBank builds the complete dump sysex file for one 48-voice bank.
// Paired marks the bank as half of a two-bank set, which reserves the last
// label column for the bank digit.
func (f *FB01) AssembleBank(voices []byte, id converter.BankID, name string, paired bool) ([]byte, error) {
	if len(voices) != converter.BankVoices*converter.VoiceSize {
		return nil, fmt.Errorf("%w: %d bytes for one bank, want %d",
			converter.ErrInvalidPayloadSize, len(voices), converter.BankVoices*converter.VoiceSize)
	}

	out := make([]byte, 0, BankFileSize)
	out = append(out, bankHeader(id)...)
	out = append(out, 0x00, 0x40) // bank header block size, 64 nibbles as 7-bit msb/lsb

	label := bankLabel(name, id, paired)
	mark := len(out)
	out = nibblize(out, label[:])
	out = append(out, checksum7(sumBytes(out[mark:])))

	for v := 0; v < converter.BankVoices; v++ {
		out = append(out, voicePacket(voices[v*converter.VoiceSize:(v+1)*converter.VoiceSize])...)
	}
	return append(out, converter.SysExEnd), nil
}

// ParseBanks reassembles a voice payload from one or two bank dump files.
// Two banks are ordered by their bank numbers, which must differ.
func (f *FB01) ParseBanks(banks ...[]byte) (*converter.VoicePayload, error) {
	if len(banks) < 1 || len(banks) > 2 {
		return nil, fmt.Errorf("want 1 or 2 bank files, got %d", len(banks))
	}

	dumps := make([]*BankDump, 0, len(banks))
	for i, b := range banks {
		dump, err := f.ParseBank(b)
		if err != nil {
			return nil, fmt.Errorf("bank file %d: %w", i+1, err)
		}
		dumps = append(dumps, dump)
	}

	if len(dumps) == 2 {
		if dumps[0].ID == dumps[1].ID {
			return nil, fmt.Errorf("both files carry bank number %d", dumps[0].ID)
		}
		if dumps[0].ID > dumps[1].ID {
			dumps[0], dumps[1] = dumps[1], dumps[0]
		}
	}

	voices := make([]byte, 0, len(dumps)*converter.BankVoices*converter.VoiceSize)
	for _, dump := range dumps {
		voices = append(voices, dump.Voices...)
	}
	return converter.NewVoicePayload(voices)
}

// ParseBank validates one bank dump sysex file and decodes its label and
// voice records.
func (f *FB01) ParseBank(data []byte) (*BankDump, error) {
	if len(data) < 2 || data[0] != converter.SysExStart || data[len(data)-1] != converter.SysExEnd {
		return nil, errNotSysex
	}
	if len(data) != BankFileSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", errNotBankDump, len(data), BankFileSize)
	}
	if !bytes.Equal(data[:6], bankHeader(converter.BankA)[:6]) {
		return nil, fmt.Errorf("%w: header % X", errNotBankDump, data[:6])
	}
	id := converter.BankID(data[6])
	if id != converter.BankA && id != converter.BankB {
		return nil, fmt.Errorf("%w: bank number byte 0x%02X", errNotBankDump, data[6])
	}

	pos := 7
	if data[pos] != 0x00 || data[pos+1] != 0x40 {
		return nil, fmt.Errorf("%w: bank header size bytes % X", errNotBankDump, data[pos:pos+2])
	}
	pos += 2

	labelNibbles := data[pos : pos+2*labelBlockSize]
	pos += 2 * labelBlockSize
	if got, want := data[pos], checksum7(sumBytes(labelNibbles)); got != want {
		return nil, fmt.Errorf("%w: bank header has 0x%02X, want 0x%02X", errChecksum, got, want)
	}
	pos++
	label, err := denibblize(labelNibbles)
	if err != nil {
		return nil, fmt.Errorf("bank header: %w", err)
	}

	voices := make([]byte, 0, converter.BankVoices*converter.VoiceSize)
	for v := 0; v < converter.BankVoices; v++ {
		packet := data[pos : pos+VoicePacketSize]
		pos += VoicePacketSize
		if packet[0] != 0x01 || packet[1] != 0x00 {
			return nil, fmt.Errorf("%w: voice %d size bytes % X", errNotBankDump, v, packet[:2])
		}
		nibbles := packet[2 : VoicePacketSize-1]
		if got, want := packet[VoicePacketSize-1], checksum7(sumBytes(nibbles)); got != want {
			return nil, fmt.Errorf("%w: voice %d has 0x%02X, want 0x%02X", errChecksum, v, got, want)
		}
		voice, err := denibblize(nibbles)
		if err != nil {
			return nil, fmt.Errorf("voice %d: %w", v, err)
		}
		voices = append(voices, voice...)
	}

	return &BankDump{
		ID:     id,
		Name:   strings.TrimRight(string(label[:labelNameSize]), " \x00"),
		Voices: voices,
	}, nil
}

// bankHeader returns the seven-byte sysex preamble addressing one of the
// FB-01's two voice bank RAM slots.
func bankHeader(id converter.BankID) []byte {
	return []byte{converter.SysExStart, fb01Manufacturer, fb01SubStatus, 0x00, 0x00, 0x00, byte(id)}
}

// bankLabel builds the 32-byte bank header block. The visible name occupies
// the first 8 columns, upper cased and space padded. Paired banks keep the
// eighth column for the bank digit, so "song" labels as "SONG   1".
func bankLabel(name string, id converter.BankID, paired bool) [labelBlockSize]byte {
	var label [labelBlockSize]byte

	width := labelNameSize
	if paired {
		width--
	}
	name = strings.ToUpper(name)
	if len(name) > width {
		// Never cut through a multi byte rune; drop it whole instead.
		cut := width
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}

	copy(label[:], name)
	for i := len(name); i < labelNameSize; i++ {
		label[i] = ' '
	}
	if paired {
		label[labelNameSize-1] = '1' + byte(id)
	}
	return label
}

// voicePacket wraps one 64-byte voice record into its 131-byte dump packet.
func voicePacket(voice []byte) []byte {
	packet := make([]byte, 0, VoicePacketSize)
	packet = append(packet, 0x01, 0x00) // 128 data bytes follow, as 7-bit msb/lsb
	packet = nibblize(packet, voice)
	return append(packet, checksum7(sumBytes(packet[2:])))
}

// nibblize appends each source byte as two wire bytes, low nibble first.
func nibblize(dst []byte, src []byte) []byte {
	for _, b := range src {
		dst = append(dst, b&0x0F, (b>>4)&0x0F)
	}
	return dst
}

// denibblize folds low/high nibble pairs back into whole bytes.
func denibblize(pairs []byte) ([]byte, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd nibble count %d", len(pairs))
	}
	out := make([]byte, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		lo, hi := pairs[i], pairs[i+1]
		if lo > 0x0F || hi > 0x0F {
			return nil, fmt.Errorf("nibble byte out of range at offset %d", i)
		}
		out = append(out, lo|hi<<4)
	}
	return out, nil
}

// checksum7 is the FB-01 packet checksum: the two's complement of the sum
// of the data bytes, kept to seven bits so the wire stays MIDI-clean.
func checksum7(sum byte) byte {
	return (^sum + 1) & 0x7F
}

// sumBytes returns the modular byte sum of b.
func sumBytes(b []byte) byte {
	var s byte
	for _, v := range b {
		s += v
	}
	return s
}
