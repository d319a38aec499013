// Package report prints release information for the user.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/ollama-updater/internal/domain/release"
	"github.com/oshokin/ollama-updater/internal/service/localversion"
)

// defaultWidth wraps rendered notes.
const defaultWidth = 100

// Summary is everything check mode reports.
type Summary struct {
	Installed  localversion.Installed
	Stable     *release.Release
	PreRelease *release.Release
}

// Writer prints summaries and release notes, as styled markdown or plain text.
type Writer struct {
	out      io.Writer
	markdown bool
	width    int

	renderer *glamour.TermRenderer
}

// NewWriter creates a writer. markdown enables glamour rendering and lipgloss headings.
func NewWriter(out io.Writer, markdown bool) *Writer {
	return &Writer{
		out:      out,
		markdown: markdown,
		width:    defaultWidth,
	}
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	markerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	absentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
)

// WriteCheck prints the installed version and both latest releases.
func (w *Writer) WriteCheck(s Summary) error {
	var builder strings.Builder

	builder.WriteString(w.heading("Installed version: "))
	builder.WriteString(string(s.Installed))
	builder.WriteString("\n\n")
	w.writeRelease(&builder, "Latest stable release: ", s.Installed, s.Stable)
	builder.WriteString("\n")
	w.writeRelease(&builder, "Latest pre-release: ", s.Installed, s.PreRelease)

	_, err := io.WriteString(w.out, builder.String())

	return err
}

// WriteInstalled prints only the installed version.
func (w *Writer) WriteInstalled(installed localversion.Installed) error {
	_, err := fmt.Fprintf(w.out, "%s%s\n", w.heading("Installed version: "), installed)

	return err
}

// WriteRelease prints one release with its notes.
func (w *Writer) WriteRelease(label string, installed localversion.Installed, r release.Release) error {
	var builder strings.Builder

	w.writeRelease(&builder, label, installed, &r)

	_, err := io.WriteString(w.out, builder.String())

	return err
}

func (w *Writer) writeRelease(builder *strings.Builder, label string, installed localversion.Installed, r *release.Release) {
	builder.WriteString(w.heading(label))

	if r == nil {
		builder.WriteString(w.style(absentStyle, "none"))
		builder.WriteString("\n")

		return
	}

	builder.WriteString(r.Tag)

	if installed.IsKnown() {
		if newer, err := release.IsNewer(string(installed), r.Tag); err == nil && newer {
			builder.WriteString(" ")
			builder.WriteString(w.style(markerStyle, "(update available)"))
		}
	}

	builder.WriteString("\n")

	notes := strings.TrimSpace(r.Notes)
	if notes == "" {
		return
	}

	builder.WriteString(w.notes(notes))

	if !strings.HasSuffix(builder.String(), "\n") {
		builder.WriteString("\n")
	}
}

// notes renders markdown when enabled and falls back to the raw text on failure.
func (w *Writer) notes(notes string) string {
	if !w.markdown {
		return notes
	}

	if w.renderer == nil {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(w.width))
		if err != nil {
			return notes
		}

		w.renderer = renderer
	}

	rendered, err := w.renderer.Render(notes)
	if err != nil {
		return notes
	}

	return rendered
}

func (w *Writer) heading(text string) string {
	return w.style(headingStyle, text)
}

func (w *Writer) style(style lipgloss.Style, text string) string {
	if !w.markdown {
		return text
	}

	return style.Render(text)
}

// String renders a summary as plain text, for logs.
func (s Summary) String() string {
	tag := func(r *release.Release) string {
		if r == nil {
			return "none"
		}

		return r.Tag
	}

	return fmt.Sprintf("installed=%s stable=%s pre-release=%s", s.Installed, tag(s.Stable), tag(s.PreRelease))
}
