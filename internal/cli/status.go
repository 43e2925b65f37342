package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/internal/report"
	"github.com/aretw0/bbseed/pkg/domain"
)

// StatusOptions configure Status.
type StatusOptions struct {
	Config config.Config
	Stdout io.Writer
	Logger *slog.Logger
	// All lists every stored run instead of describing the configured one.
	All bool
}

// Status renders the stored checkpoint of the configured run, or a table
// of every stored run.
func Status(ctx context.Context, opts StatusOptions) error {
	be, err := openBackend(opts.Config, opts.Logger)
	if err != nil {
		return err
	}
	defer be.close()

	if opts.All {
		md, err := runsMarkdown(ctx, be)
		if err != nil {
			return err
		}
		return report.Render(opts.Stdout, md)
	}

	name := opts.Config.Checkpoint.Name
	cp, err := be.store.Load(ctx, name)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		return fmt.Errorf("run %q has no checkpoint yet: %w", name, err)
	}
	if err != nil {
		return err
	}
	return report.Render(opts.Stdout, report.StatusMarkdown(name, cp))
}

func runsMarkdown(ctx context.Context, be *backend) (string, error) {
	names, err := be.store.List(ctx)
	if err != nil {
		return "", err
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Runs\n\n| Run | States | Profile | Machines | Frontier | State |\n|---|---:|---|---:|---:|---|\n")
	for _, name := range names {
		cp, err := be.store.Load(ctx, name)
		if err != nil {
			fmt.Fprintf(&b, "| %s | | | | | unreadable: %v |\n", name, err)
			continue
		}
		state := "in progress"
		if cp.Complete {
			state = "complete"
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n", name, cp.Fingerprint.States, cp.Fingerprint.Profile,
			report.Group(cp.Counters.Total), report.Group(uint64(len(cp.Frontier))), state)
	}
	if len(names) == 0 {
		b.WriteString("| _none_ | | | | | |\n")
	}
	return b.String(), nil
}
