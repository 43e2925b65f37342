package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/bbseed/internal/report"
	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/domain"
)

func TestGroup(t *testing.T) {
	cases := map[uint64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		47176870: "47,176,870",
		123456:   "123,456",
	}
	for n, want := range cases {
		assert.Equal(t, want, report.Group(n))
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	pr := report.NewPrinterWithProfile(&buf, termenv.Ascii, clock)
	pr.Baseline(1000)

	now = now.Add(10 * time.Second)
	pr.Print(scheduler.Progress{
		Counters: domain.Counters{Halt: 1500, Loop: 400, Undecided: 20, Irrelevant: 80, Total: 2000},
		Pool:     3,
		Local:    1200,
	})
	assert.Equal(t,
		"[00:00:10] total 2,000 (100/s) h 1,500 l 400 u 20 i 80 | frontier 3 pool, 1,200 local\n",
		buf.String())

	buf.Reset()
	now = now.Add(time.Hour + 2*time.Second)
	pr.Print(scheduler.Progress{Counters: domain.Counters{Halt: 2000, Total: 2000}})
	assert.True(t, strings.HasPrefix(buf.String(), "[01:00:12] total 2,000 (0/s)"), buf.String())
}

func TestStatusMarkdown(t *testing.T) {
	cp := &domain.Checkpoint{
		RunID:       "0b8c",
		Fingerprint: domain.Fingerprint{States: 5, Profile: "seed", Steps: 47176870, Tape: 12289},
		Counters:    domain.Counters{Halt: 10, Loop: 5, Undecided: 2, Irrelevant: 1, Total: 18},
		Frontier:    make([]domain.Node, 3),
		UpdatedAt:   time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
	}
	md := report.StatusMarkdown("bb5", cp)
	assert.Contains(t, md, "# Run `bb5`")
	assert.Contains(t, md, "| State | in progress |")
	assert.Contains(t, md, "| Step budget | 47,176,870 |")
	assert.Contains(t, md, "| undecided | `u` | 2 |")
	assert.Contains(t, md, "| **total** | | **18** |")
	assert.Contains(t, md, "| Frontier nodes | 3 |")
	assert.NotContains(t, md, "Cycler budget")

	cp.Complete = true
	assert.Contains(t, report.StatusMarkdown("bb5", cp), "| State | complete |")
}

func TestRender_PlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, "# Title\n"))
	assert.Equal(t, "# Title\n", buf.String())
	assert.False(t, report.IsTerminal(&buf))
}
