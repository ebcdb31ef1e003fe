package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/efile"
	"github.com/riftbio/synchrony/query"
	"github.com/riftbio/synchrony/record"
)

func overlapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlaps <experiments.bed> <landmarks.bed> <output.bed>",
		Short: "join experiment intervals against landmark intervals that overlap them",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverlaps(cmd.Context(), args[0], args[1], args[2])
		},
	}
	return cmd
}

func runOverlaps(ctx context.Context, expPath, landPath, outPath string) error {
	settings := synchrony.DefaultSettings[record.Record](record.Order, record.Equal, record.Serializer{}, record.Deserializer{})
	settings.SkipLine = record.DefaultSkipLine

	experiments, err := sortedTrackFromDisk(ctx, settings, expPath)
	if err != nil {
		return err
	}
	if experiments.Path() != expPath {
		defer experiments.Destruct()
	}
	landmarks, err := sortedTrackFromDisk(ctx, settings, landPath)
	if err != nil {
		return err
	}
	if landmarks.Path() != landPath {
		defer landmarks.Destruct()
	}

	joined, err := query.Overlaps(ctx, experiments, landmarks)
	if err != nil {
		return err
	}

	it, err := joined.Iterator()
	if err != nil {
		return err
	}
	defer it.Close()
	return writeBED(outPath, settings, it)
}

func sortedTrackFromDisk(ctx context.Context, settings synchrony.Settings[record.Record], path string) (efile.File[record.Record], error) {
	f := efile.NewOnDisk(path, settings)
	return f.SortedIfNeeded(ctx, record.Order)
}
