package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	repairCmd := &cobra.Command{
		Use:   "repair <file.par2>",
		Short: "Verify a recovery set and rebuild damaged or missing files",
		Args:  cobra.ExactArgs(1),
		RunE:  runRepair,
	}

	repairCmd.Flags().Bool("no-recheck", false, "skip the verification after repair")

	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	set, stop, err := openSet(ctx, args[0])
	if err != nil {
		return err
	}
	defer stop()

	if err := set.Verify(ctx); err != nil {
		return err
	}

	sum := set.Summary()
	if sum.Damaged == 0 && sum.Missing == 0 {
		fmt.Printf("All %d files are intact, nothing to repair\n", sum.Files)
		return nil
	}

	slog.InfoContext(ctx, "Repairing recovery set",
		"set", set.Name(),
		"damaged", sum.Damaged,
		"missing", sum.Missing,
		"required_recovery_slices", sum.RequiredRecoverySlices)

	if err := set.Reconstruct(ctx); err != nil {
		return err
	}

	noRecheck, _ := cmd.Flags().GetBool("no-recheck")
	if !cfg.Repair.VerifyAfterRepair || noRecheck {
		fmt.Println("Repair complete")
		return nil
	}

	fmt.Println("Repair complete, verifying")
	if err := set.Verify(ctx); err != nil {
		return err
	}

	return report(set.Summary())
}
