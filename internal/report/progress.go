// Package report prints run progress and renders checkpoint summaries.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/domain"
)

var classColors = map[domain.Classification]string{
	domain.Halt:       "#34d399",
	domain.Loop:       "#60a5fa",
	domain.Undecided:  "#f472b6",
	domain.Irrelevant: "#a1a1aa",
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Profile returns the colour profile to use for w: the environment's when
// w is a terminal, none otherwise.
func Profile(w io.Writer) termenv.Profile {
	if IsTerminal(w) {
		return termenv.EnvColorProfile()
	}
	return termenv.Ascii
}

// Printer writes one progress line per call.
type Printer struct {
	out     io.Writer
	profile termenv.Profile
	now     func() time.Time

	mu        sync.Mutex
	start     time.Time
	lastAt    time.Time
	lastTotal uint64
}

// NewPrinter creates a printer for out. Lines are coloured only when out is
// a terminal.
func NewPrinter(out io.Writer) *Printer {
	return NewPrinterWithProfile(out, Profile(out), time.Now)
}

// NewPrinterWithProfile uses an explicit colour profile and clock.
func NewPrinterWithProfile(out io.Writer, profile termenv.Profile, now func() time.Time) *Printer {
	t := now()
	return &Printer{out: out, profile: profile, now: now, start: t, lastAt: t}
}

// Baseline sets the total the run resumed from so that the first rate
// only counts new machines.
func (pr *Printer) Baseline(total uint64) {
	pr.mu.Lock()
	pr.lastTotal = total
	pr.mu.Unlock()
}

// Print writes the progress line for p. The rate is measured since the
// previous call and counts only machines classified by this process.
func (pr *Printer) Print(p scheduler.Progress) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	now := pr.now()
	var rate float64
	if d := now.Sub(pr.lastAt).Seconds(); d > 0 {
		if p.Counters.Total >= pr.lastTotal {
			rate = float64(p.Counters.Total-pr.lastTotal) / d
		}
	}
	pr.lastAt, pr.lastTotal = now, p.Counters.Total
	fmt.Fprintln(pr.out, pr.format(now.Sub(pr.start), rate, p))
}

func (pr *Printer) format(elapsed time.Duration, rate float64, p scheduler.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] total %s (%s/s)", formatElapsed(elapsed), Group(p.Counters.Total), Group(uint64(rate)))
	for _, c := range domain.Classifications {
		text := fmt.Sprintf("%c %s", c.Code(), Group(p.Counters.Get(c)))
		if pr.profile != termenv.Ascii {
			text = pr.profile.String(text).Foreground(pr.profile.Color(classColors[c])).String()
		}
		b.WriteString(" ")
		b.WriteString(text)
	}
	fmt.Fprintf(&b, " | frontier %s pool, %s local", Group(uint64(p.Pool)), Group(uint64(p.Local)))
	return b.String()
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Group formats n with thousands separators.
func Group(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
