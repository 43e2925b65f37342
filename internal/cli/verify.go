package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/bbseed/internal/classlog"
	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/internal/report"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// ErrVerifyFailed is returned when the log disagrees with the checkpoint or
// with the seed database.
var ErrVerifyFailed = errors.New("verification failed")

// VerifyOptions configure Verify.
type VerifyOptions struct {
	Config config.Config
	Stdout io.Writer
	Logger *slog.Logger
	// SeedDB is the path of the published seed database zip. Empty skips
	// the comparison.
	SeedDB string
}

// Verify checks that the classification log agrees with the checkpoint
// counters and, given a seed database, that the log's undecided machines
// are exactly the database records.
func Verify(ctx context.Context, opts VerifyOptions) error {
	cfg := opts.Config
	out := opts.Stdout
	logPath := cfg.ClassLogPath()

	counted, err := classlog.Count(logPath, cfg.States)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Log %s: %s machines (h %s, l %s, u %s, i %s)\n", logPath,
		report.Group(counted.Total), report.Group(counted.Halt), report.Group(counted.Loop),
		report.Group(counted.Undecided), report.Group(counted.Irrelevant))

	var failed []error
	if err := verifyCounters(ctx, opts, counted); err != nil {
		if !errors.Is(err, ErrVerifyFailed) {
			return err
		}
		failed = append(failed, err)
	}

	if opts.SeedDB != "" {
		if err := verifySeedDB(out, cfg, logPath, opts.SeedDB); err != nil {
			if !errors.Is(err, ErrVerifyFailed) {
				return err
			}
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		fmt.Fprintln(out, "OK")
	}
	return errors.Join(failed...)
}

func verifyCounters(ctx context.Context, opts VerifyOptions, counted domain.Counters) error {
	be, err := openBackend(opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer be.close()

	cp, err := be.store.Load(ctx, opts.Config.Checkpoint.Name)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		fmt.Fprintf(opts.Stdout, "No checkpoint for run %q, skipping the counter check\n", opts.Config.Checkpoint.Name)
		return nil
	}
	if err != nil {
		return err
	}
	if cp.Counters != counted {
		fmt.Fprintf(opts.Stdout, "Checkpoint counts %s machines (h %s, l %s, u %s, i %s)\n",
			report.Group(cp.Counters.Total), report.Group(cp.Counters.Halt), report.Group(cp.Counters.Loop),
			report.Group(cp.Counters.Undecided), report.Group(cp.Counters.Irrelevant))
		return fmt.Errorf("%w: log and checkpoint counters differ", ErrVerifyFailed)
	}
	fmt.Fprintln(opts.Stdout, "Log matches the checkpoint counters")
	return nil
}

func verifySeedDB(out io.Writer, cfg config.Config, logPath, dbPath string) error {
	if cfg.States != machine.SeedStates {
		return fmt.Errorf("the seed database holds %d-state machines, run has %d", machine.SeedStates, cfg.States)
	}
	db, err := classlog.OpenSeedDB(dbPath)
	if err != nil {
		return err
	}
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open classification log: %w", err)
	}
	defer f.Close()

	rep, err := classlog.CompareSeedDB(f, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Seed database %s: %s records, log has %s undecided\n",
		dbPath, report.Group(uint64(rep.Records)), report.Group(rep.Counters.Undecided))
	for _, m := range rep.Mismatches {
		fmt.Fprintln(out, "  "+m.String())
	}
	if rep.MismatchCount > uint64(len(rep.Mismatches)) {
		fmt.Fprintf(out, "  ... and %s more\n", report.Group(rep.MismatchCount-uint64(len(rep.Mismatches))))
	}
	if !rep.OK() {
		return fmt.Errorf("%w: %d mismatches against the seed database", ErrVerifyFailed, rep.MismatchCount)
	}
	fmt.Fprintln(out, "Undecided machines match the seed database")
	return nil
}
