package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/efile"
	"github.com/riftbio/synchrony/record"
)

func sortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort <input.bed> <output.bed>",
		Short: "sort a BED file by chrom/start/end",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func runSort(ctx context.Context, inPath, outPath string) error {
	settings := synchrony.DefaultSettings[record.Record](record.Order, record.Equal, record.Serializer{}, record.Deserializer{})
	settings.SkipLine = record.DefaultSkipLine

	in := efile.NewOnDisk(inPath, settings)
	sorted, err := in.SortedWith(ctx, record.Order)
	if err != nil {
		return err
	}
	saved, err := sorted.Serialized(ctx, "")
	if err != nil {
		return err
	}
	defer saved.Destruct()

	it, err := saved.Iterator()
	if err != nil {
		return err
	}
	defer it.Close()
	return writeBED(outPath, settings, it)
}
