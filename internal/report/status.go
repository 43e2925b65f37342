package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/bbseed/pkg/domain"
)

// StatusMarkdown summarizes a checkpoint as markdown.
func StatusMarkdown(name string, cp *domain.Checkpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run `%s`\n\n", name)

	state := "in progress"
	if cp.Complete {
		state = "complete"
	}
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run ID | `%s` |\n", cp.RunID)
	fmt.Fprintf(&b, "| State | %s |\n", state)
	fmt.Fprintf(&b, "| States | %d |\n", cp.Fingerprint.States)
	fmt.Fprintf(&b, "| Profile | %s |\n", cp.Fingerprint.Profile)
	fmt.Fprintf(&b, "| Step budget | %s |\n", Group(cp.Fingerprint.Steps))
	fmt.Fprintf(&b, "| Tape half-width | %s |\n", Group(uint64(cp.Fingerprint.Tape)))
	if cp.Fingerprint.CyclerSteps > 0 {
		fmt.Fprintf(&b, "| Cycler budget | %s |\n", Group(cp.Fingerprint.CyclerSteps))
		fmt.Fprintf(&b, "| Translated cycler budget | %s |\n", Group(cp.Fingerprint.TranslatedSteps))
	}
	fmt.Fprintf(&b, "| Frontier nodes | %s |\n", Group(uint64(len(cp.Frontier))))
	if !cp.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "| Last checkpoint | %s |\n", cp.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}

	b.WriteString("\n## Classifications\n\n| Class | Code | Machines |\n|---|---|---:|\n")
	for _, c := range domain.Classifications {
		fmt.Fprintf(&b, "| %s | `%c` | %s |\n", c, c.Code(), Group(cp.Counters.Get(c)))
	}
	fmt.Fprintf(&b, "| **total** | | **%s** |\n", Group(cp.Counters.Total))
	return b.String()
}

// Render writes markdown to w, styled with glamour when w is a terminal.
func Render(w io.Writer, markdown string) error {
	if !IsTerminal(w) {
		_, err := io.WriteString(w, markdown)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
