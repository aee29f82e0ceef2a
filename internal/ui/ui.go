// Package ui renders ormctl output: styled messages, tables and markdown.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	keyColor     = color.New(color.FgCyan)
	keywordColor = color.New(color.FgMagenta, color.Bold)
)

var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "IN": true,
	"ANY": true, "VALUE": true, "AND": true, "OR": true,
}

// Printer writes to an output and an error stream.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New creates a printer.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

// Out returns the output stream.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Header prints a title with a subtitle under it.
func (p *Printer) Header(title, subtitle string) {
	fmt.Fprintln(p.out, lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(title),
		SecondaryStyle.Render(subtitle),
	))
	fmt.Fprintln(p.out)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message.
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Error prints an error message to the error stream.
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.err, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// KeyValue prints "key: value" with a highlighted key.
func (p *Printer) KeyValue(key string, value interface{}) {
	fmt.Fprintf(p.out, "%s: %v\n", keyColor.Sprint(key), value)
}

// Table prints a table with a header row.
func (p *Printer) Table(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, table)
	return err
}

// SQL prints a statement with highlighted keywords.
func (p *Printer) SQL(stmt string) {
	words := strings.Split(stmt, " ")
	for i, w := range words {
		if sqlKeywords[w] {
			words[i] = keywordColor.Sprint(w)
		}
	}
	fmt.Fprintln(p.out, strings.Join(words, " "))
}

// Markdown renders markdown for the terminal.
func (p *Printer) Markdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(p.out, out)
	return err
}
