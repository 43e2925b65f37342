// Package classlog writes and reads the classification log: one fixed-width
// line "<compact machine> <code>\n" per emitted machine, in emission order.
package classlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// ErrLogBehind is returned when the log holds fewer lines than the
// checkpoint counted. Machines would be missing from the log for good.
var ErrLogBehind = errors.New("classification log is shorter than the checkpoint")

// Log is an append-only classification log. It implements ports.Sink.
// It is not safe for concurrent use; the scheduler serializes Append.
type Log struct {
	f       *os.File
	w       *bufio.Writer
	states  int
	lineLen int
	lines   uint64
	line    []byte
}

// Open opens or creates the log of an n-state run. Call Reconcile before
// appending to a log that already holds lines.
func Open(path string, states int) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open classification log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat classification log: %w", err)
	}
	l := &Log{
		f:       f,
		w:       bufio.NewWriterSize(f, 1<<20),
		states:  states,
		lineLen: machine.LineLen(states),
	}
	l.lines = uint64(info.Size()) / uint64(l.lineLen)
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to seek classification log: %w", err)
	}
	return l, nil
}

// Path returns the file name.
func (l *Log) Path() string {
	return l.f.Name()
}

// Lines returns the number of complete lines, buffered ones included.
func (l *Log) Lines() uint64 {
	return l.lines
}

// Reconcile makes the log agree with a checkpoint that counted total
// machines. Lines written after that checkpoint, including a torn last line,
// are cut off; their subtrees are still in the checkpoint frontier and will
// be emitted again.
func (l *Log) Reconcile(total uint64) (dropped uint64, err error) {
	if err := l.w.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush classification log: %w", err)
	}
	info, err := l.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat classification log: %w", err)
	}
	want := int64(total) * int64(l.lineLen)
	size := info.Size()
	if size < want {
		return 0, fmt.Errorf("%w: %d bytes, checkpoint needs %d lines of %d bytes", ErrLogBehind, size, total, l.lineLen)
	}
	if size > want {
		if err := l.f.Truncate(want); err != nil {
			return 0, fmt.Errorf("failed to truncate classification log: %w", err)
		}
		if err := l.f.Sync(); err != nil {
			return 0, fmt.Errorf("failed to fsync classification log: %w", err)
		}
		dropped = uint64(size-want) / uint64(l.lineLen)
	}
	if _, err := l.f.Seek(want, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek classification log: %w", err)
	}
	l.lines = total
	return dropped, nil
}

// Append writes a batch of lines to the buffer.
func (l *Log) Append(batch []domain.Classified) error {
	for _, c := range batch {
		if c.Machine.States() != l.states {
			return fmt.Errorf("%w: %d-state machine %s in %d-state log", domain.ErrInvariant, c.Machine.States(), c.Machine, l.states)
		}
		l.line = c.Machine.AppendCompact(l.line[:0])
		l.line = append(l.line, ' ', c.Class.Code(), '\n')
		if _, err := l.w.Write(l.line); err != nil {
			return fmt.Errorf("failed to write classification log: %w", err)
		}
		l.lines++
	}
	return nil
}

// Sync flushes the buffer and fsyncs the file. A checkpoint may only be
// saved after the lines it counts are synced.
func (l *Log) Sync() error {
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush classification log: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("failed to fsync classification log: %w", err)
	}
	return nil
}

// Close syncs and closes the file.
func (l *Log) Close() error {
	return errors.Join(l.Sync(), l.f.Close())
}
