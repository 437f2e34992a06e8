package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/orbitwatch/internal/adapters/catalog"
	"github.com/okian/orbitwatch/internal/domain/anomaly"
	"github.com/okian/orbitwatch/internal/domain/autoencoder"
	"github.com/okian/orbitwatch/internal/domain/orbit"
	"github.com/okian/orbitwatch/pkg/logger"
)

var errUnknownFormat = errors.New("unknown output format")

type scanFlags struct {
	catalog   string
	top       int
	seed      int64
	batchSize int
	checksum  bool
	format    string
}

func scanCommand() *cobra.Command {
	flags := scanFlags{top: 10, seed: 42, batchSize: autoencoder.DefaultBatchSize, format: "table"}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Train on a catalog and print the most anomalous satellites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithSource(false)); err != nil {
				return err
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	cmd.Flags().StringVarP(&flags.catalog, "catalog", "c", "", "Path to the TLE catalog (.json, 2LE or 3LE text)")
	cmd.Flags().IntVarP(&flags.top, "top", "n", flags.top, "Number of satellites to print")
	cmd.Flags().Int64Var(&flags.seed, "seed", flags.seed, "Training seed")
	cmd.Flags().IntVar(&flags.batchSize, "batch-size", flags.batchSize, "Training mini-batch size")
	cmd.Flags().BoolVar(&flags.checksum, "verify-checksums", false, "Reject element sets with bad checksums")
	cmd.Flags().StringVarP(&flags.format, "format", "f", flags.format, "Output format: table, json")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

// runScan trains a fresh model on the catalog and writes the top scores.
func runScan(ctx context.Context, out io.Writer, flags scanFlags) error {
	if flags.format != "table" && flags.format != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, flags.format)
	}
	log := logger.Get()

	records, err := catalog.LoadFile(ctx, flags.catalog)
	if err != nil {
		return err
	}
	store := catalog.NewStore(records)
	latest := store.All(ctx)

	engine := anomaly.NewEngine(
		anomaly.WithSeed(flags.seed),
		anomaly.WithBatchSize(flags.batchSize),
		anomaly.WithLogger(log.Named("engine")),
		anomaly.WithExtractor(orbit.NewExtractor(orbit.WithChecksum(flags.checksum))),
	)
	report, err := engine.Train(ctx, latest, func(p anomaly.Progress) {
		log.Info(ctx, p.String())
	})
	if err != nil {
		return err
	}
	log.Info(ctx, "model trained",
		logger.String("model_version", report.ModelVersion),
		logger.Int("records", report.Records),
		logger.Int("dropped", report.Dropped),
		logger.Duration("duration", report.Duration))

	scores, errs := engine.ScoreAll(ctx, latest)
	ranked := make([]anomaly.Score, 0, len(scores))
	for i, s := range scores {
		if errs[i] != nil {
			continue
		}
		ranked = append(ranked, s)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RiskScore != ranked[j].RiskScore {
			return ranked[i].RiskScore > ranked[j].RiskScore
		}
		return ranked[i].NoradID < ranked[j].NoradID
	})
	if flags.top > 0 && len(ranked) > flags.top {
		ranked = ranked[:flags.top]
	}

	if flags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}
	return writeTable(out, ranked)
}

func writeTable(out io.Writer, scores []anomaly.Score) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNORAD\tRISK\tLEVEL\tMSE\tCLASSIFICATION\tTECHNIQUE")
	for i, s := range scores {
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t%s\t%.6f\t%s\t%s\n",
			i+1, s.NoradID, s.RiskScore, s.Level, s.ReconstructionError, s.Classification, s.Technique)
	}
	return tw.Flush()
}
