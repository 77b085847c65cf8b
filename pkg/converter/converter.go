package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format represents a file format
type Format string

const (
	FormatPatch   Format = "pat"
	FormatSyx     Format = "syx"
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pat":
		return FormatPatch
	case ".syx":
		return FormatSyx
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content. Sierra ships
// patch resources under names like PATCH.002, so extension detection alone
// is not enough.
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	// Check for MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}

	// Check for SysEx (starts with F0)
	if data[0] == SysExStart {
		return FormatSyx
	}

	// SCI patch resources open with their resource identifier byte and
	// have one of two exact sizes once the title length is counted in
	if data[0] == PatchID {
		titleOffset := int(data[1])
		if len(data) == OneBankPatchSize+titleOffset || len(data) == TwoBankPatchSize+titleOffset {
			return FormatPatch
		}
	}

	return FormatUnknown
}

// LabelFromPath derives a bank label from a file path: the base name with
// the extension dropped.
func LabelFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FindBankPartner looks next to path for the other half of a two-bank dump
// pair, following the 1/2 digit naming the converter writes.
func FindBankPartner(path string) (string, bool) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if stem == "" {
		return "", false
	}

	var partner string
	switch stem[len(stem)-1] {
	case '1':
		partner = stem[:len(stem)-1] + "2" + ext
	case '2':
		partner = stem[:len(stem)-1] + "1" + ext
	default:
		return "", false
	}

	if _, err := os.Stat(partner); err != nil {
		return "", false
	}
	return partner, true
}

// PatchToSyx converts patch resource data into one bank dump per 48-voice
// bank, labelled with the matching entry of names.
func (c *Converter) PatchToSyx(data []byte, names []string) ([][]byte, error) {
	payload, err := NewPatchReader().ParsePatch(data)
	if err != nil {
		return nil, err
	}
	return c.device.GenerateBanks(payload, names)
}

// SyxToPatch rebuilds a patch resource from one or two bank dumps.
func (c *Converter) SyxToPatch(banks ...[]byte) ([]byte, error) {
	payload, err := c.device.ParseBanks(banks...)
	if err != nil {
		return nil, err
	}
	return NewPatchReader().GeneratePatch(payload)
}

// PatchToMIDI converts patch resource data into a Standard MIDI File that
// plays the bank dumps back to back. Every bank shares the same label stem.
func (c *Converter) PatchToMIDI(data []byte, name string) ([]byte, error) {
	payload, err := NewPatchReader().ParsePatch(data)
	if err != nil {
		return nil, err
	}
	names := make([]string, payload.BankCount())
	for i := range names {
		names[i] = name
	}
	banks, err := c.device.GenerateBanks(payload, names)
	if err != nil {
		return nil, err
	}
	return NewMIDIConverter().GenerateMIDI(banks)
}

// ConvertFile converts between patch resource, bank dump, and MIDI files.
// A two-bank patch resource writes one .syx file per bank, so that path
// takes two output paths; every other conversion takes exactly one.
func (c *Converter) ConvertFile(inputPath string, outputPaths ...string) error {
	if len(outputPaths) == 0 {
		return errors.New("no output path")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPaths[0])
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	switch {
	case inputFormat == FormatPatch && outputFormat == FormatSyx:
		payload, err := NewPatchReader().ParsePatch(data)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		if payload.BankCount() != len(outputPaths) {
			return fmt.Errorf("patch resource holds %d bank(s) but %d output path(s) given",
				payload.BankCount(), len(outputPaths))
		}
		names := make([]string, len(outputPaths))
		for i, p := range outputPaths {
			name := LabelFromPath(p)
			// Pair file names carry the bank digit; the label writer puts
			// that digit in its own column, so drop it here.
			if len(outputPaths) == 2 {
				if n := len(name); n > 1 && name[n-1] == byte('1'+i) {
					name = name[:n-1]
				}
			}
			names[i] = name
		}
		banks, err := c.device.GenerateBanks(payload, names)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		for i, bank := range banks {
			if err := os.WriteFile(outputPaths[i], bank, 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
		}
		return nil

	case inputFormat == FormatPatch && outputFormat == FormatMIDI:
		if len(outputPaths) != 1 {
			return errors.New("MIDI conversion writes a single file")
		}
		outputData, err := c.PatchToMIDI(data, LabelFromPath(outputPaths[0]))
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		if err := os.WriteFile(outputPaths[0], outputData, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil

	case inputFormat == FormatSyx && outputFormat == FormatPatch:
		if len(outputPaths) != 1 {
			return errors.New("patch resource conversion writes a single file")
		}
		// One .syx file can carry both bank dumps back to back
		messages, err := SplitSyx(data)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		outputData, err := c.SyxToPatch(messages...)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		if err := os.WriteFile(outputPaths[0], outputData, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"pat -> syx",
		"pat -> midi",
		"syx -> pat",
	}
}
