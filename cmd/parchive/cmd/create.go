package cmd

import (
	"fmt"

	"github.com/javi11/parchive/internal/recovery"
	"github.com/javi11/parchive/internal/resource"
	"github.com/spf13/cobra"
)

func init() {
	createCmd := &cobra.Command{
		Use:   "create <name> <file>...",
		Short: "Create a recovery set for files",
		Long: `Create writes <name>.par2 and its recovery volumes next to the first file,
or into --dir. Source files are recorded relative to that directory.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runCreate,
	}

	createCmd.Flags().Int64("slice-size", 0, "slice size in bytes (multiple of 4)")
	createCmd.Flags().Int("recovery-slices", -1, "number of recovery slices to generate")
	createCmd.Flags().String("dir", "", "directory to write recovery files to")
	createCmd.Flags().String("creator", "", "client name stored in the recovery set")

	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	opts := recovery.CreateOptions{
		Name:           args[0],
		SliceSize:      cfg.Create.SliceSize,
		RecoverySlices: cfg.Create.RecoverySlices,
		Creator:        cfg.Create.Creator,
		MaxWorkers:     cfg.Create.MaxWorkers,
	}

	if v, _ := cmd.Flags().GetInt64("slice-size"); v > 0 {
		opts.SliceSize = v
	}
	if v, _ := cmd.Flags().GetInt("recovery-slices"); v >= 0 {
		opts.RecoverySlices = v
	}
	if v, _ := cmd.Flags().GetString("creator"); v != "" {
		opts.Creator = v
	}

	opts.Dir, _ = cmd.Flags().GetString("dir")
	if opts.Dir == "" {
		opts.Dir = resource.Dir(args[1])
	}

	sources := make([]recovery.SourceFile, 0, len(args)-1)
	for _, locator := range args[1:] {
		name, err := resource.Rel(opts.Dir, locator)
		if err != nil {
			return fmt.Errorf("failed to name %s relative to %s: %w", locator, opts.Dir, err)
		}
		sources = append(sources, recovery.SourceFile{Locator: locator, Name: name})
	}

	result, err := recovery.Create(cmd.Context(), newResolver(), opts, sources)
	if err != nil {
		return err
	}

	fmt.Printf("Recovery set %s: %d files, %d source slices\n", result.SetID, len(result.Files), result.SourceSlices)
	for _, f := range result.RecoveryFiles {
		fmt.Println("  " + f)
	}

	return nil
}
