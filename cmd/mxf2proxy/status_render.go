package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// statusKind is the state column of a status line.
type statusKind struct {
	word  string
	color lipgloss.Color
}

var (
	statusInfo  = statusKind{word: "info", color: lipgloss.Color("12")}
	statusOK    = statusKind{word: "ok", color: lipgloss.Color("10")}
	statusWarn  = statusKind{word: "warn", color: lipgloss.Color("11")}
	statusError = statusKind{word: "error", color: lipgloss.Color("9")}

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

const labelColumn = 22

// renderStatusLine lays out "label: state message" in fixed columns. Only
// the state word is colored.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	state := fmt.Sprintf("%-5s", kind.word)
	if colorize {
		state = lipgloss.NewStyle().Foreground(kind.color).Bold(true).Render(state)
	}
	return strings.TrimRight(fmt.Sprintf("  %-*s %s %s", labelColumn, label+":", state, message), " ")
}

func renderInfoLine(label, value string) string {
	return fmt.Sprintf("  %-*s %s", labelColumn, label+":", value)
}

// renderSectionHeader returns the title and an underline of equal width.
func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	underline := strings.Repeat("=", lipgloss.Width(title))
	if colorize {
		title = sectionStyle.Render(title)
	}
	return []string{title, underline}
}

// shouldColorize reports whether writer is a terminal and NO_COLOR is unset.
func shouldColorize(writer io.Writer) bool {
	return os.Getenv("NO_COLOR") == "" && isTerminal(writer)
}

// isInteractive reports whether both ends of the command are a terminal.
func isInteractive(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok || !isatty.IsTerminal(inFile.Fd()) {
		return false
	}
	return isTerminal(out)
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
