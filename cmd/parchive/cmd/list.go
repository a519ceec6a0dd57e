package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/javi11/parchive/internal/par2"
	"github.com/spf13/cobra"
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list <file.par2>",
		Short: "List the files described by a recovery file",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	stream, err := newResolver().OpenForRead(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer stream.Close()

	info, err := stream.Stat()
	if err != nil {
		return err
	}
	if found, err := par2.ContainsSignature(stream, info.Size()); err != nil || !found {
		return fmt.Errorf("%s is not a PAR2 file", args[0])
	}

	descs, err := par2.ReadFileDescriptions(cmd.Context(), stream)
	if err != nil {
		return err
	}

	for _, d := range descs {
		fmt.Printf("%12d  %s  %s\n", d.Length, hex.EncodeToString(d.Hash[:]), d.Name)
	}
	fmt.Printf("%d files\n", len(descs))

	return nil
}
