package main

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/hupe1980/vqlayer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	store   string
	region  string
	envFile string
	verbose bool
}

func (g *globalFlags) logger() *vqlayer.Logger {
	if g.verbose {
		return vqlayer.NewTextLogger(slog.LevelDebug)
	}
	return vqlayer.NewTextLogger(slog.LevelWarn)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "vqctl",
		Short: "Prepare and inspect vector-quantizer artifacts",
		Long: `vqctl builds codebooks and used-index files for vqlayer quantizers.

Examples:
  vqctl cluster --features feats.npy --entries 1000 --out codebook.npy
  vqctl used derive --indices assignments.npy --entries 1000 --out used.npy.zst
  vqctl used inspect --file used.npy.zst --entries 1000
  vqctl quantize --config vq.yaml --codebook codebook.npy --features feats.npy`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(g.envFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.store, "store", ".", "blob store: a directory, s3://bucket/prefix or minio://endpoint/bucket/prefix")
	pf.StringVar(&g.region, "region", "", "AWS region for s3:// stores (default from the environment)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before reading VQ_* and MINIO_* variables")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newClusterCmd(g), newUsedCmd(g), newQuantizeCmd(g))
	return root
}

// loadEnvFile loads path into the environment if it exists. Variables that
// are already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
