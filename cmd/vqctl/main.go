// Command vqctl prepares and inspects vector-quantizer artifacts: codebooks
// clustered from feature dumps, used-index files for remapping, and usage
// reports of a codebook over a feature file.
//
// Artifacts live in a blob store selected with --store: a local directory
// (default), s3://bucket/prefix or minio://endpoint/bucket/prefix.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
