package classlog

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Entry is one decoded log line. Line numbers start at 1.
type Entry struct {
	Line    uint64
	Machine machine.Machine
	Class   domain.Classification
}

// Scan decodes every line of r and calls fn for it. It stops at the first
// malformed line or at the first error returned by fn.
func Scan(r io.Reader, states int, fn func(Entry) error) error {
	lineLen := machine.LineLen(states)
	compactLen := machine.CompactLen(states)
	br := bufio.NewReaderSize(r, 1<<20)
	buf := make([]byte, lineLen)

	for line := uint64(1); ; line++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("line %d: %w", line, err)
		}
		if buf[compactLen] != ' ' || buf[lineLen-1] != '\n' {
			return fmt.Errorf("line %d: malformed %q", line, buf)
		}
		m, err := machine.Parse(string(buf[:compactLen]))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		cl, err := domain.ParseCode(buf[compactLen+1])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(Entry{Line: line, Machine: m, Class: cl}); err != nil {
			return err
		}
	}
}

// Count tallies the classifications of the log at path.
func Count(path string, states int) (domain.Counters, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Counters{}, fmt.Errorf("failed to open classification log: %w", err)
	}
	defer f.Close()

	var c domain.Counters
	err = Scan(f, states, func(e Entry) error {
		c.Add(e.Class)
		return nil
	})
	return c, err
}
