package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hupe1980/vqlayer/cluster"
	"github.com/hupe1980/vqlayer/codebook"
	"github.com/spf13/cobra"
)

func newClusterCmd(g *globalFlags) *cobra.Command {
	var (
		features  string
		out       string
		entries   int
		sampleCap int
		workers   int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster a feature file into a codebook",
		Long: `Cluster reads an (n_samples, dim) float .npy feature file, runs k-means over
a random sample of at most --sample-cap rows and writes the (entries, dim)
centroids as a float32 .npy codebook.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := g.logger()

			store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			data, shape, err := readFloat32(ctx, store, features)
			if err != nil {
				return err
			}
			if len(shape) != 2 {
				return fmt.Errorf("%s: want (n_samples, dim), got shape %v", features, shape)
			}

			if sampleCap <= 0 {
				sampleCap = codebook.DefaultSampleCap
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			device := cluster.CPU{}
			start := time.Now()
			cb, err := codebook.NewFromClustering(ctx, data, shape[1], entries, codebook.InitOptions{
				SampleCap: sampleCap,
				Clusterer: &cluster.KMeans{Workers: workers},
				Device:    device,
				Rand:      rand.New(rand.NewSource(seed)),
			})
			logger.LogCodebookInit(ctx, entries, min(shape[0], sampleCap), device.Name(), err)
			if err != nil {
				return err
			}

			if err := writeFloat32(ctx, store, out, cb.Weights(), cb.Len(), cb.Dim()); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d x %d codebook to %s (%s)\n",
				cb.Len(), cb.Dim(), out, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&features, "features", "", "feature .npy file (n_samples, dim)")
	f.StringVar(&out, "out", "codebook.npy", "output codebook .npy file")
	f.IntVar(&entries, "entries", 1000, "number of codebook entries (n_e)")
	f.IntVar(&sampleCap, "sample-cap", codebook.DefaultSampleCap, "maximum number of rows clustered")
	f.IntVar(&workers, "workers", 0, "assignment workers (0 = GOMAXPROCS)")
	f.Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}
