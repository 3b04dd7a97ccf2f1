package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mxf2proxy/internal/textutil"
)

// ErrAborted is returned when the operator quits a terminal prompt.
var ErrAborted = errors.New("prompt aborted")

// Terminal asks questions on an interactive terminal.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// ResolveDuplicate shows the five duplicate verdicts.
func (t *Terminal) ResolveDuplicate(ctx context.Context, req DuplicateRequest) (Verdict, error) {
	options := make([]option, 0, len(Verdicts()))
	for _, v := range Verdicts() {
		options = append(options, option{label: textutil.Title(string(v)), key: verdictKey(v), value: string(v)})
	}
	title := fmt.Sprintf("%s already exists", filepath.Base(req.Output))
	detail := fmt.Sprintf("clip %d of %d in %s", req.ClipIndex+1, req.ClipCount, req.Source)
	result, err := t.run(ctx, newChoiceModel(title, detail, options, ""))
	if err != nil {
		return "", err
	}
	return Verdict(result.value), nil
}

// ChooseDestination offers the default folder, a typed path, or cancel.
func (t *Terminal) ChooseDestination(ctx context.Context, req DestinationRequest) (DestinationChoice, error) {
	options := []option{
		{label: "Use " + req.Default, key: "d", value: string(DestinationDefault)},
		{label: "Choose another folder", key: "c", value: string(DestinationCustom)},
		{label: "Cancel", key: "x", value: string(DestinationCancel)},
	}
	title := fmt.Sprintf("Where should proxies for %s go?", filepath.Base(req.Source))
	detail := fmt.Sprintf("%d clip(s) to convert", req.Clips)
	result, err := t.run(ctx, newChoiceModel(title, detail, options, string(DestinationCustom)))
	if err != nil {
		return DestinationChoice{}, err
	}
	choice := DestinationChoice{Kind: DestinationKind(result.value)}
	if choice.Kind == DestinationCustom {
		choice.Path = result.text
		choice.PickerOpened = result.opened
	}
	return choice, nil
}

func (t *Terminal) run(ctx context.Context, model choiceModel) (choiceModel, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return choiceModel{}, ctx.Err()
		}
		return choiceModel{}, fmt.Errorf("run prompt: %w", err)
	}
	m, ok := final.(choiceModel)
	if !ok || !m.done {
		return choiceModel{}, ErrAborted
	}
	return m, nil
}

func verdictKey(v Verdict) string {
	switch v {
	case VerdictOverwrite:
		return "o"
	case VerdictSkip:
		return "s"
	case VerdictOverwriteAll:
		return "O"
	case VerdictSkipAll:
		return "S"
	default:
		return "c"
	}
}

type option struct {
	label string
	key   string
	value string
}

// choiceModel is a single-select list. Selecting the option whose value
// equals textValue switches to a text input before finishing.
type choiceModel struct {
	title     string
	detail    string
	options   []option
	cursor    int
	textValue string

	editing bool
	input   textinput.Model
	opened  time.Time
	errMsg  string

	value string
	text  string
	done  bool
}

func newChoiceModel(title, detail string, options []option, textValue string) choiceModel {
	input := textinput.New()
	input.Placeholder = "/path/to/folder"
	input.CharLimit = 4096
	input.Width = 60
	return choiceModel{
		title:     title,
		detail:    detail,
		options:   options,
		textValue: textValue,
		input:     input,
	}
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if keyMsg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.editing {
		return m.updateInput(keyMsg)
	}
	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.selectOption(m.cursor)
	case "q", "esc":
		return m, tea.Quit
	}
	for i, opt := range m.options {
		if keyMsg.String() == opt.key {
			return m.selectOption(i)
		}
	}
	return m, nil
}

func (m choiceModel) selectOption(i int) (tea.Model, tea.Cmd) {
	m.cursor = i
	m.value = m.options[i].value
	if m.textValue != "" && m.value == m.textValue {
		m.editing = true
		m.opened = time.Now()
		return m, m.input.Focus()
	}
	m.done = true
	return m, tea.Quit
}

func (m choiceModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.errMsg = ""
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.errMsg = "enter a folder path"
			return m, nil
		}
		m.text = text
		m.done = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m choiceModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if m.detail != "" {
		b.WriteString(dimStyle.Render(m.detail))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.errMsg != "" {
			b.WriteString(errorStyle.Render(m.errMsg))
			b.WriteString("\n")
		}
		b.WriteString(dimStyle.Render("enter confirm • esc back"))
		return b.String()
	}
	for i, opt := range m.options {
		line := fmt.Sprintf("[%s] %s", opt.key, opt.label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓ move • enter select • q quit"))
	return b.String()
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
