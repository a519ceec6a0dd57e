package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/javi11/parchive/internal/progress"
	"github.com/javi11/parchive/internal/recovery"
	"github.com/javi11/parchive/internal/scanner"
	"github.com/spf13/cobra"
)

func init() {
	verifyCmd := &cobra.Command{
		Use:   "verify <file.par2>",
		Short: "Verify the files protected by a recovery set",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	set, stop, err := openSet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer stop()

	if err := set.Verify(cmd.Context()); err != nil {
		return err
	}

	return report(set.Summary())
}

// openSet finds every recovery file of the set locator belongs to and opens
// it. stop closes the set and ends progress reporting.
func openSet(ctx context.Context, locator string) (*recovery.Set, func(), error) {
	resolver := newResolver()

	files, err := scanner.NewDirectoryScanner(resolver).FindRecoveryFiles(ctx, locator)
	if err != nil {
		return nil, nil, err
	}

	broadcaster := progress.NewBroadcaster()
	subID, updates := broadcaster.Subscribe()

	var wg sync.WaitGroup
	wg.Go(func() {
		for u := range updates {
			slog.Debug("Verification progress", "task_id", u.TaskID, "fraction", u.Fraction)
		}
	})

	set, err := recovery.Open(ctx, resolver, files,
		recovery.WithMaxWorkers(cfg.Verify.MaxWorkers),
		recovery.WithProbeSubdirectories(cfg.Verify.ProbeSubdirectories),
		recovery.WithProbeCacheSize(cfg.Verify.ProbeCacheSize),
		recovery.WithProgress(broadcaster),
		recovery.OnFileVerified(func(info recovery.FileInfo) {
			fmt.Printf("%-8s %s\n", info.Status, info.Name)
		}),
	)

	stop := func() {
		if set != nil {
			_ = set.Close()
		}
		broadcaster.Unsubscribe(subID)
		_ = broadcaster.Close()
		wg.Wait()
	}

	if err != nil {
		stop()
		return nil, nil, err
	}

	fmt.Printf("Recovery set %s (%s), %d recovery slices available\n", set.Name(), set.SetID(), set.AvailableRecoverySlices())

	return set, stop, nil
}

func report(sum recovery.Summary) error {
	if sum.Damaged == 0 && sum.Missing == 0 {
		fmt.Printf("All %d files are intact\n", sum.Files)
		return nil
	}

	fmt.Printf("%d damaged, %d missing; %d recovery slices required, %d available\n",
		sum.Damaged, sum.Missing, sum.RequiredRecoverySlices, sum.AvailableRecoverySlices)

	if !sum.Repairable() {
		return &recovery.InsufficientRecoveryError{
			Required:  sum.RequiredRecoverySlices,
			Available: int64(sum.AvailableRecoverySlices),
		}
	}

	return fmt.Errorf("repair required")
}
