// Package tui provides a terminal user interface for sci2fb
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sci0tools/sci2fb/pkg/converter"
	"github.com/sci0tools/sci2fb/pkg/converter/devices"
)

// FB-01 front panel color scheme (green phosphor display, amber accents)
var (
	// Primary colors - phosphor green and amber
	displayGreen = lipgloss.Color("#00FF66")
	amberGold    = lipgloss.Color("#FFB000")
	silverGray   = lipgloss.Color("#C0C0C0")
	darkGray     = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(displayGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(displayGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(amberGold).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(displayGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(displayGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	FromFormat  string
	ToFormat    string
}

var menuItems = []MenuItem{
	{Title: "PAT → SYX", Description: "Convert SCI0 patch resource to FB-01 bank dumps", FromFormat: "pat", ToFormat: "syx"},
	{Title: "SYX → PAT", Description: "Rebuild SCI0 patch resource from bank dumps", FromFormat: "syx", ToFormat: "pat"},
	{Title: "PAT → MID", Description: "Wrap FB-01 bank dumps in a Standard MIDI File", FromFormat: "pat", ToFormat: "midi"},
	{Title: "Exit", Description: "Exit the application", FromFormat: "", ToFormat: ""},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	detail       string
	conversion   MenuItem
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	detail     string
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New() Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".pat", ".002", ".syx"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(displayGreen)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		// Check for escape/quit keys first
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		// Pass all other messages to the file picker
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Check if file was selected
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.detail = msg.detail
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.conversion = menuItems[m.menuIndex]
		m.state = StateFilePicker

		// Set file picker filter based on input format
		switch m.conversion.FromFormat {
		case "pat":
			// Sierra resource naming includes PATCH.002 style suffixes
			m.filePicker.AllowedTypes = []string{".pat", ".002"}
		case "syx":
			m.filePicker.AllowedTypes = []string{".syx"}
		}

		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.detail = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	return func() tea.Msg {
		conv := converter.New(devices.NewFB01())
		base := strings.TrimSuffix(m.selectedFile, filepath.Ext(m.selectedFile))

		switch m.conversion.FromFormat + "2" + m.conversion.ToFormat {
		case "pat2syx":
			data, err := os.ReadFile(m.selectedFile)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			payload, err := converter.NewPatchReader().ParsePatch(data)
			if err != nil {
				return conversionDoneMsg{err: err}
			}

			outputs := []string{base + ".syx"}
			if payload.BankCount() == 2 {
				outputs = []string{base + "1.syx", base + "2.syx"}
			}
			if err := conv.ConvertFile(m.selectedFile, outputs...); err != nil {
				return conversionDoneMsg{err: err}
			}

			names := make([]string, len(outputs))
			for i, o := range outputs {
				names[i] = filepath.Base(o)
			}
			return conversionDoneMsg{
				outputFile: strings.Join(names, ", "),
				detail:     fmt.Sprintf("%d voices in %d bank(s)", payload.VoiceCount(), payload.BankCount()),
			}

		case "syx2pat":
			// Pick up the other half of a 1/2 pair automatically
			inputs := []string{m.selectedFile}
			if partner, ok := converter.FindBankPartner(m.selectedFile); ok {
				inputs = append(inputs, partner)
			}

			var banks [][]byte
			for _, p := range inputs {
				data, err := os.ReadFile(p)
				if err != nil {
					return conversionDoneMsg{err: err}
				}
				messages, err := converter.SplitSyx(data)
				if err != nil {
					return conversionDoneMsg{err: err}
				}
				banks = append(banks, messages...)
			}

			result, err := conv.SyxToPatch(banks...)
			if err != nil {
				return conversionDoneMsg{err: err}
			}

			outBase := base
			if n := len(outBase); n > 1 && (outBase[n-1] == '1' || outBase[n-1] == '2') {
				outBase = outBase[:n-1]
			}
			outputFile := outBase + ".pat"
			if err := os.WriteFile(outputFile, result, 0644); err != nil {
				return conversionDoneMsg{err: err}
			}

			detail := fmt.Sprintf("rebuilt from %d bank dump(s)", len(banks))
			if len(inputs) == 2 {
				detail += ", paired with " + filepath.Base(inputs[1])
			}
			return conversionDoneMsg{outputFile: filepath.Base(outputFile), detail: detail}

		case "pat2midi":
			outputFile := base + ".mid"
			if err := conv.ConvertFile(m.selectedFile, outputFile); err != nil {
				return conversionDoneMsg{err: err}
			}
			return conversionDoneMsg{
				outputFile: filepath.Base(outputFile),
				detail:     "bank dumps wrapped as sysex events",
			}
		}

		return conversionDoneMsg{err: fmt.Errorf("unsupported conversion")}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	// Header
	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT CONVERSION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(amberGold).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", strings.ToUpper(m.conversion.FromFormat))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.conversion.FromFormat, m.conversion.ToFormat)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s", m.outputFile))
		if m.detail != "" {
			s.WriteString("\n")
			s.WriteString(statusStyle.Render("  " + m.detail))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ____    ____  ___  ____   _____  ____
  / ___|  / ___||_ _||___ \ |  ___|| __ )
  \___ \ | |     | |   __) || |_   |  _ \
   ___) || |___  | |  / __/ |  _|  | |_) |
  |____/  \____||___||_____||_|    |____/
`
	return lipgloss.NewStyle().Foreground(displayGreen).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
