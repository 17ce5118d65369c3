package main

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/vqlayer"
	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/tensor"
	"github.com/spf13/cobra"
)

type quantizeReport struct {
	Points     int     `json:"points"`
	Loss       float64 `json:"loss"`
	Perplexity float64 `json:"perplexity"`
	ClusterUse int     `json:"cluster_use"`
	Entries    int     `json:"entries"`
	IndexShape []int   `json:"index_shape"`
}

func newQuantizeCmd(g *globalFlags) *cobra.Command {
	var (
		configPath string
		cbPath     string
		features   string
		indicesOut string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "quantize",
		Short: "Quantize a feature file and report codebook usage",
		Long: `Quantize builds a quantizer from --config (or VQ_* environment variables),
loads the codebook from --codebook and runs one forward pass over the
feature file. Features are either (n, e_dim) vectors or a (B, e_dim, H, W)
feature map.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				cfg vqlayer.Config
				err error
			)
			if configPath != "" {
				cfg, err = vqlayer.LoadConfigFile(configPath)
			} else {
				cfg, err = vqlayer.LoadConfigFromEnv()
			}
			if err != nil {
				return err
			}

			store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			q, err := vqlayer.New(ctx, cfg, store, vqlayer.WithLogger(g.logger()))
			if err != nil {
				return err
			}

			if cbPath != "" {
				data, shape, err := readFloat32(ctx, store, cbPath)
				if err != nil {
					return err
				}
				if len(shape) != 2 {
					return fmt.Errorf("%s: want (entries, dim), got shape %v", cbPath, shape)
				}
				cb, err := codebook.FromCentroids(data, shape[0], shape[1])
				if err != nil {
					return err
				}
				if err := q.SetCodebook(cb); err != nil {
					return err
				}
			}

			data, shape, err := readFloat32(ctx, store, features)
			if err != nil {
				return err
			}
			z, err := featureMap(data, shape)
			if err != nil {
				return fmt.Errorf("%s: %w", features, err)
			}

			res, err := q.Forward(ctx, z)
			if err != nil {
				return err
			}
			if indicesOut != "" {
				if err := writeInt64(ctx, store, indicesOut, res.Indices.Data()); err != nil {
					return fmt.Errorf("write %s: %w", indicesOut, err)
				}
			}

			report := quantizeReport{
				Points:     res.Indices.Len(),
				Loss:       res.Loss,
				Perplexity: res.Perplexity,
				ClusterUse: res.ClusterUse,
				Entries:    cfg.NumEmbeddings,
				IndexShape: res.Indices.Shape(),
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintf(w, "points:      %d\n", report.Points)
			fmt.Fprintf(w, "loss:        %.6f\n", report.Loss)
			fmt.Fprintf(w, "perplexity:  %.3f\n", report.Perplexity)
			fmt.Fprintf(w, "cluster use: %d / %d\n", report.ClusterUse, report.Entries)
			fmt.Fprintf(w, "index shape: %v\n", report.IndexShape)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "quantizer YAML config (default: VQ_* environment)")
	f.StringVar(&cbPath, "codebook", "", "codebook .npy file (entries, dim)")
	f.StringVar(&features, "features", "", "feature .npy file")
	f.StringVar(&indicesOut, "indices-out", "", "write the flattened index tensor to this .npy file")
	f.BoolVar(&asJSON, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("features")
	return cmd
}

// featureMap turns (n, c) vectors into a (n, c, 1, 1) map and passes 4-D
// maps through.
func featureMap(data []float32, shape []int) (*tensor.Dense, error) {
	switch len(shape) {
	case 2:
		return tensor.FromSlice(data, shape[0], shape[1], 1, 1)
	case 4:
		return tensor.FromSlice(data, shape...)
	default:
		return nil, fmt.Errorf("%w: want (n, e_dim) or (B, e_dim, H, W), got %v", tensor.ErrShape, shape)
	}
}
