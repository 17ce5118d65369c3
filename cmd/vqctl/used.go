package main

import (
	"fmt"

	"github.com/hupe1980/vqlayer/remap"
	"github.com/spf13/cobra"
)

func newUsedCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "used",
		Short: "Derive and inspect used-index files",
		Long: `Used-index files list the codebook entries a remapping quantizer reports.
They are 1-D integer .npy arrays, optionally zstd (.zst) or lz4 (.lz4)
compressed.`,
	}
	cmd.AddCommand(newUsedDeriveCmd(g), newUsedInspectCmd(g))
	return cmd
}

func newUsedDeriveCmd(g *globalFlags) *cobra.Command {
	var (
		indices string
		out     string
		entries int
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a used-index file from observed assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			observed, _, err := readInt64(ctx, store, indices)
			if err != nil {
				return err
			}
			used, err := remap.UsedFromIndices(observed, entries)
			if err != nil {
				return err
			}
			if err := remap.Save(ctx, store, out, used); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d entries to %s\n", len(used), entries, out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&indices, "indices", "", "integer .npy file of full codebook indices (any shape)")
	f.StringVar(&out, "out", "used.npy", "output used-index file")
	f.IntVar(&entries, "entries", 1000, "number of codebook entries (n_e)")
	_ = cmd.MarkFlagRequired("indices")
	return cmd
}

func newUsedInspectCmd(g *globalFlags) *cobra.Command {
	var (
		file    string
		entries int
		policy  string
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a used-index file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := remap.ParsePolicy(policy)
			if err != nil {
				return err
			}
			store, err := g.openStore(ctx)
			if err != nil {
				return err
			}
			used, err := remap.ReadUsed(ctx, store, file)
			if err != nil {
				return err
			}

			usage := remap.NewUsage(entries)
			if err := usage.Observe(used); err != nil {
				return err
			}
			reEmbed := len(used)
			if p == remap.UnknownExtra() {
				reEmbed++
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file:       %s\n", file)
			fmt.Fprintf(w, "entries:    %d\n", entries)
			fmt.Fprintf(w, "used:       %d (%d distinct)\n", len(used), usage.Count())
			fmt.Fprintf(w, "unused:     %d\n", len(usage.Unused()))
			fmt.Fprintf(w, "re_embed:   %d (unknown index: %s)\n", reEmbed, p)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "used.npy", "used-index file")
	f.IntVar(&entries, "entries", 1000, "number of codebook entries (n_e)")
	f.StringVar(&policy, "unknown-index", "random", `unknown index policy: "random", "extra" or an integer`)
	return cmd
}
