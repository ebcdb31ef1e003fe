package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/query"
	"github.com/riftbio/synchrony/record"
)

func withinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "within <distance> <experiments.bed> <landmarks.bed> <output.bed>",
		Short: "join experiment intervals against landmarks within a base-pair distance",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			dist, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return runWithin(cmd.Context(), dist, args[1], args[2], args[3])
		},
	}
	return cmd
}

func runWithin(ctx context.Context, dist int, expPath, landPath, outPath string) error {
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

	joined, err := query.Within(ctx, experiments, landmarks, dist)
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
