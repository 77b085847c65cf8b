// Package main is the entry point for the sci2fb CLI
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sci0tools/sci2fb/pkg/api"
	"github.com/sci0tools/sci2fb/pkg/converter"
	"github.com/sci0tools/sci2fb/pkg/converter/devices"
	"github.com/sci0tools/sci2fb/pkg/transfer"
	"github.com/sci0tools/sci2fb/pkg/tui"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile   string
	deviceName   string
	serverPort   int
	force        bool
	sendPort     int
	sendPortName string
	sendDelay    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sci2fb",
	Short: "Convert Sierra SCI0 patch resources to Yamaha FB-01 sysex banks",
	Long: `sci2fb is a tool for converting the FB-01 patch resources shipped with
Sierra SCI0 games into Yamaha FB-01 voice bank dumps, and back.

A patch resource holds one or two banks of 48 FM voice definitions. Each
bank becomes one .syx voice bank dump the FB-01 loads directly; a dump
pair can also be rebuilt into a patch resource, wrapped in a Standard
MIDI File, or pushed straight to hardware over a MIDI output port.

Examples:
  sci2fb pat2syx PATCH.002 -o song.syx
  sci2fb syx2pat song1.syx song2.syx
  sci2fb pat2mid PATCH.002
  sci2fb info song1.syx
  sci2fb send song1.syx song2.syx --port 1
  sci2fb tui
  sci2fb serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Automatically detects the input format and converts to the output format based on file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var pat2syxCmd = &cobra.Command{
	Use:   "pat2syx <input>",
	Short: "Convert a patch resource to FB-01 bank dumps",
	Long: `Converts an SCI0 patch resource into FB-01 voice bank dumps. A
single-bank resource writes one .syx file; a two-bank resource writes a
1/2 suffixed pair.`,
	Args: cobra.ExactArgs(1),
	RunE: runPatchToSyx,
}

var syx2patCmd = &cobra.Command{
	Use:   "syx2pat <input1.syx> [input2.syx]",
	Short: "Rebuild a patch resource from FB-01 bank dumps",
	Long: `Rebuilds an SCI0 patch resource from one or two FB-01 voice bank
dumps. With a single 1/2 suffixed input, the matching partner file is
picked up automatically when it sits next to it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSyxToPatch,
}

var pat2midCmd = &cobra.Command{
	Use:   "pat2mid <input>",
	Short: "Convert a patch resource to a Standard MIDI File",
	Long: `Converts an SCI0 patch resource into a Standard MIDI File carrying
the bank dumps as sysex events, for players without .syx support.`,
	Args: cobra.ExactArgs(1),
	RunE: runPatchToMIDI,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Describe a patch resource, sysex, or MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI output ports",
	RunE:  runPorts,
}

var sendCmd = &cobra.Command{
	Use:   "send <file.syx> [file2.syx...]",
	Short: "Send sysex files to a MIDI output port",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "fb01", "Target device (fb01)")

	// Convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	convertCmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files without asking")
	_ = convertCmd.MarkFlagRequired("output")

	// pat2syx command
	pat2syxCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .syx file path (base name for a two-bank pair)")
	pat2syxCmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files without asking")

	// syx2pat command
	syx2patCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .pat file path")
	syx2patCmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files without asking")

	// pat2mid command
	pat2midCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	pat2midCmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files without asking")

	// send command
	sendCmd.Flags().IntVarP(&sendPort, "port", "p", 0, "MIDI output port index (see ports)")
	sendCmd.Flags().StringVar(&sendPortName, "port-name", "", "Pick the first port whose name contains this text")
	sendCmd.Flags().IntVar(&sendDelay, "delay", 2, "Seconds to wait between sysex messages")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(pat2syxCmd)
	rootCmd.AddCommand(syx2patCmd)
	rootCmd.AddCommand(pat2midCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getDevice() converter.Device {
	switch strings.ToLower(deviceName) {
	case "fb01", "fb-01":
		return devices.NewFB01()
	default:
		return devices.NewFB01()
	}
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

// syxOutputPaths derives one output path per bank. A two-bank resource
// gets a 1/2 suffixed pair built from the requested base name.
func syxOutputPaths(input string, bankCount int) []string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if outputFile != "" {
		base = strings.TrimSuffix(outputFile, filepath.Ext(outputFile))
	}
	if bankCount == 1 {
		return []string{base + ".syx"}
	}
	return []string{base + "1.syx", base + "2.syx"}
}

// trimBankDigit drops the trailing 1/2 from a bank dump name so a dump
// pair collapses to one output name.
func trimBankDigit(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if n := len(stem); n > 1 && (stem[n-1] == '1' || stem[n-1] == '2') {
		stem = stem[:n-1]
	}
	return stem + ext
}

// confirmOverwrite asks before clobbering existing outputs unless --force
// is set.
func confirmOverwrite(paths ...string) error {
	if force {
		return nil
	}
	reader := bufio.NewReader(os.Stdin)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		fmt.Printf("%s exists. Overwrite? [y/N] ", p)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			return fmt.Errorf("aborted: %s already exists", p)
		}
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	conv := converter.New(getDevice())

	outputs := []string{outputFile}
	// A two-bank patch resource headed for .syx writes a 1/2 pair
	if converter.DetectFormat(outputFile) == converter.FormatSyx {
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		if payload, err := converter.NewPatchReader().ParsePatch(data); err == nil && payload.BankCount() == 2 {
			base := strings.TrimSuffix(outputFile, filepath.Ext(outputFile))
			outputs = []string{base + "1.syx", base + "2.syx"}
		}
	}

	if err := confirmOverwrite(outputs...); err != nil {
		return err
	}

	fmt.Printf("Converting %s -> %s\n", input, strings.Join(outputs, ", "))
	if err := conv.ConvertFile(input, outputs...); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runPatchToSyx(cmd *cobra.Command, args []string) error {
	input := args[0]

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	payload, err := converter.NewPatchReader().ParsePatch(data)
	if err != nil {
		return err
	}

	outputs := syxOutputPaths(input, payload.BankCount())
	if err := confirmOverwrite(outputs...); err != nil {
		return err
	}

	conv := converter.New(getDevice())
	if err := conv.ConvertFile(input, outputs...); err != nil {
		return err
	}

	fmt.Printf("Converted %s (%d voices) -> %s\n", input, payload.VoiceCount(), strings.Join(outputs, ", "))
	return nil
}

func runSyxToPatch(cmd *cobra.Command, args []string) error {
	inputs := args
	if len(inputs) == 1 {
		if partner, ok := converter.FindBankPartner(inputs[0]); ok {
			fmt.Printf("Found bank partner %s\n", partner)
			inputs = append(inputs, partner)
		}
	}

	var banks [][]byte
	for _, p := range inputs {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		messages, err := converter.SplitSyx(data)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		banks = append(banks, messages...)
	}

	conv := converter.New(getDevice())
	result, err := conv.SyxToPatch(banks...)
	if err != nil {
		return err
	}

	output := getOutputPath(trimBankDigit(inputs[0]), ".pat")
	if err := confirmOverwrite(output); err != nil {
		return err
	}
	if err := os.WriteFile(output, result, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", strings.Join(inputs, " + "), output)
	return nil
}

func runPatchToMIDI(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".mid")

	if err := confirmOverwrite(output); err != nil {
		return err
	}

	conv := converter.New(getDevice())
	if err := conv.ConvertFile(input, output); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	format := converter.DetectFormat(input)
	if format == converter.FormatUnknown {
		format = converter.DetectFormatFromContent(data)
	}

	switch format {
	case converter.FormatPatch:
		payload, err := converter.NewPatchReader().ParsePatch(data)
		if err != nil {
			return err
		}
		fmt.Printf("%s: SCI0 patch resource\n", input)
		fmt.Printf("  Size:   %d bytes\n", len(data))
		fmt.Printf("  Banks:  %d\n", payload.BankCount())
		fmt.Printf("  Voices: %d\n", payload.VoiceCount())
		if payload.Title != "" {
			fmt.Printf("  Title:  %s\n", payload.Title)
		}

	case converter.FormatSyx:
		messages, err := converter.SplitSyx(data)
		if err != nil {
			return err
		}
		fmt.Printf("%s: sysex file, %d message(s)\n", input, len(messages))
		describeSysEx(messages)

	case converter.FormatMIDI:
		messages, err := converter.NewMIDIConverter().ParseMIDI(data)
		if err != nil {
			return err
		}
		fmt.Printf("%s: Standard MIDI File, %d sysex message(s)\n", input, len(messages))
		describeSysEx(messages)

	default:
		return fmt.Errorf("unrecognized file format: %s", input)
	}
	return nil
}

// describeSysEx prints a line per message, decoding FB-01 bank dumps.
func describeSysEx(messages [][]byte) {
	fb01 := devices.NewFB01()
	for i, msg := range messages {
		if converter.IsFB01Bank(msg) {
			if dump, err := fb01.ParseBank(msg); err == nil {
				fmt.Printf("  [%d] %s voice bank %d, label %q, %d voices\n",
					i+1, fb01.Name(), dump.ID+1, dump.Name, len(dump.Voices)/converter.VoiceSize)
				continue
			}
		}
		id, err := converter.ExtractManufacturerID(msg)
		if err != nil {
			fmt.Printf("  [%d] %d bytes\n", i+1, len(msg))
			continue
		}
		fmt.Printf("  [%d] manufacturer % X, %d bytes\n", i+1, id, len(msg))
	}
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := transfer.Ports()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No MIDI output ports available")
		return nil
	}

	fmt.Println("Available MIDI output ports:")
	for i, name := range ports {
		fmt.Printf("  [%d] %s\n", i, name)
	}
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	index := sendPort
	if sendPortName != "" {
		found, err := transfer.FindPort(sendPortName)
		if err != nil {
			return err
		}
		index = found
	}

	sender, closer, err := transfer.Open(index)
	if err != nil {
		return err
	}
	defer closer()

	gap := time.Duration(sendDelay) * time.Second
	sender.SetGap(gap)

	fmt.Printf("Sending to %s\n", sender.PortName())
	for i, path := range args {
		if i > 0 {
			time.Sleep(gap)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		messages, err := converter.SplitSyx(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("  %s (%d message(s))\n", path, len(messages))
		if err := sender.Send(messages...); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	fmt.Println("Transfer complete!")
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
