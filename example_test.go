package vqlayer_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/vqlayer"
	"github.com/hupe1980/vqlayer/codebook"
	"github.com/hupe1980/vqlayer/remap"
	"github.com/hupe1980/vqlayer/tensor"
)

func gridCodebook() *codebook.Codebook {
	cb, err := codebook.FromCentroids([]float32{0, 0, 10, 0, 0, 10, 10, 10}, 4, 2)
	if err != nil {
		log.Fatal(err)
	}
	return cb
}

// Example_vectorQuantizer quantizes a single 2-channel location.
func Example_vectorQuantizer() {
	q, err := vqlayer.NewVectorQuantizer(4, 2, 0.25, vqlayer.WithCodebook(gridCodebook()))
	if err != nil {
		log.Fatal(err)
	}

	// (B=1, C=2, H=1, W=1)
	z, _ := tensor.FromSlice([]float32{1, 1}, 1, 2, 1, 1)
	res, err := q.Forward(context.Background(), z)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("indices:", res.Indices.Data())
	fmt.Println("quantized:", res.Quantized.Data())
	fmt.Printf("loss: %.2f perplexity: %.2f\n", res.Loss, res.Perplexity)
	// Output:
	// indices: [0]
	// quantized: [0 0]
	// loss: 1.25 perplexity: 1.00
}

// Example_backward shows the straight-through gradients of the two loss weightings.
func Example_backward() {
	z, _ := tensor.FromSlice([]float32{1, 1}, 1, 2, 1, 1)
	for _, legacy := range []bool{true, false} {
		q, err := vqlayer.NewVectorQuantizer(4, 2, 0.25,
			vqlayer.WithCodebook(gridCodebook()),
			vqlayer.WithLegacy(legacy),
		)
		if err != nil {
			log.Fatal(err)
		}
		res, _ := q.Forward(context.Background(), z)
		g, err := q.Backward(res, nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("legacy=%v dz=%v dE[0]=%v\n", legacy, g.Input.Data(), g.Codebook[:2])
	}
	// Output:
	// legacy=true dz=[1 1] dE[0]=[-0.25 -0.25]
	// legacy=false dz=[0.25 0.25] dE[0]=[-1 -1]
}

// Example_multiHead splits every 4-channel vector into two 2-d segments.
func Example_multiHead() {
	q, err := vqlayer.NewMultiHeadVectorQuantizer(4, 2, 4, 0.25, vqlayer.WithCodebook(gridCodebook()))
	if err != nil {
		log.Fatal(err)
	}

	z, _ := tensor.FromSlice([]float32{1, 1, 9, 9}, 1, 4, 1, 1)
	zq, _, _, use, indices, err := q.ForwardValues(context.Background(), z)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("indices:", indices.Shape(), indices.Data())
	fmt.Println("quantized:", zq.Data())
	fmt.Println("cluster use:", use)
	// Output:
	// indices: [1 2] [0 3]
	// quantized: [0 0 10 10]
	// cluster use: 2
}

// Example_remap reports indices in a reduced space of used entries.
func Example_remap() {
	r, err := remap.New([]int64{0, 3}, remap.UnknownExtra(), nil)
	if err != nil {
		log.Fatal(err)
	}
	q, err := vqlayer.NewVectorQuantizer(4, 2, 0.25,
		vqlayer.WithCodebook(gridCodebook()),
		vqlayer.WithRemapper(r),
	)
	if err != nil {
		log.Fatal(err)
	}

	// Three locations snapping to entries 0, 3 and 1 (1 is not used).
	z, _ := tensor.FromSlice([]float32{1, 9, 9, 1, 9, 1}, 1, 2, 1, 3)
	res, err := q.Forward(context.Background(), z)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("re_embed:", r.ReEmbed())
	fmt.Println("indices:", res.Indices.Data())
	// Output:
	// re_embed: 3
	// indices: [0 1 2]
}
