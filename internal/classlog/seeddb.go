package classlog

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
	"github.com/klauspost/compress/zip"
)

// SeedHeaderLen is the size of the global header that precedes the records
// of the published seed database.
const SeedHeaderLen = 30

type record [machine.SeedRecordLen]byte

// SeedDB is the sorted set of machines of the published seed database.
type SeedDB struct {
	records []record
}

// OpenSeedDB reads the database from its zip archive, which must contain a
// single file.
func OpenSeedDB(path string) (*SeedDB, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed database: %w", err)
	}
	defer zr.Close()

	if len(zr.File) != 1 {
		return nil, fmt.Errorf("seed database archive holds %d files, want 1", len(zr.File))
	}
	entry := zr.File[0]
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer rc.Close()
	return ReadSeedDB(rc, int64(entry.UncompressedSize64))
}

// ReadSeedDB reads a database of size bytes, header included.
func ReadSeedDB(r io.Reader, size int64) (*SeedDB, error) {
	body := size - SeedHeaderLen
	if body < 0 || body%machine.SeedRecordLen != 0 {
		return nil, fmt.Errorf("seed database size %d is not a header plus whole records", size)
	}
	if _, err := io.CopyN(io.Discard, r, SeedHeaderLen); err != nil {
		return nil, fmt.Errorf("failed to skip seed database header: %w", err)
	}

	db := &SeedDB{records: make([]record, body/machine.SeedRecordLen)}
	for i := range db.records {
		if _, err := io.ReadFull(r, db.records[i][:]); err != nil {
			return nil, fmt.Errorf("failed to read seed record %d: %w", i, err)
		}
		if _, err := machine.ReadSeedRecord(db.records[i][:]); err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
	}
	slices.SortFunc(db.records, compareRecords)
	return db, nil
}

func compareRecords(a, b record) int {
	return bytes.Compare(a[:], b[:])
}

// Len returns the number of records.
func (db *SeedDB) Len() int {
	return len(db.records)
}

// Contains reports whether m is in the database.
func (db *SeedDB) Contains(m machine.Machine) (bool, error) {
	var rec record
	if _, err := m.AppendSeedRecord(rec[:0]); err != nil {
		return false, err
	}
	_, found := slices.BinarySearchFunc(db.records, rec, compareRecords)
	return found, nil
}

// Mismatch is a log line whose classification disagrees with the database:
// an Undecided machine missing from it, or a decided machine listed in it.
type Mismatch struct {
	Entry
	InDatabase bool
}

func (m Mismatch) String() string {
	if m.InDatabase {
		return fmt.Sprintf("line %d: %s classified %s but listed as undecided", m.Line, m.Machine, m.Class)
	}
	return fmt.Sprintf("line %d: %s undecided but missing from the database", m.Line, m.Machine)
}

// maxMismatches caps the mismatches a report keeps.
const maxMismatches = 20

// SeedReport is the result of comparing a log against the database.
type SeedReport struct {
	Counters   domain.Counters
	Records    int
	Mismatches []Mismatch
	// MismatchCount counts every mismatch, including those not kept.
	MismatchCount uint64
}

// OK reports whether the log's Undecided machines are exactly the database.
// With no mismatch every Undecided line is a record; equal counts then make
// the two sets equal.
func (r SeedReport) OK() bool {
	return r.MismatchCount == 0 && r.Counters.Undecided == uint64(r.Records)
}

// CompareSeedDB checks every line of a 5-state log against db.
func CompareSeedDB(log io.Reader, db *SeedDB) (SeedReport, error) {
	report := SeedReport{Records: db.Len()}
	err := Scan(log, machine.SeedStates, func(e Entry) error {
		report.Counters.Add(e.Class)
		in, err := db.Contains(e.Machine)
		if err != nil {
			return fmt.Errorf("line %d: %w", e.Line, err)
		}
		if in != (e.Class == domain.Undecided) {
			report.MismatchCount++
			if len(report.Mismatches) < maxMismatches {
				report.Mismatches = append(report.Mismatches, Mismatch{Entry: e, InDatabase: in})
			}
		}
		return nil
	})
	return report, err
}
