// Package vqlayer provides a vector-quantization bottleneck for convolutional
// feature maps (VQ-VAE style).
//
// A quantizer snaps every feature vector of a (B, C, H, W) map to its nearest
// entry in a learned codebook. The forward pass returns the quantized map, a
// scalar loss and codebook usage statistics; the backward pass returns
// straight-through gradients for the input and for the codebook.
//
// # Quick Start
//
//	q, _ := vqlayer.NewVectorQuantizer(1000, 1024, 0.25)
//	res, _ := q.Forward(ctx, z)              // z is (B, 1024, H, W)
//	fmt.Println(res.Loss, res.Perplexity, res.ClusterUse)
//
//	grads, _ := q.Backward(res, dOut)        // dOut is dLoss/dQuantized
//	optimizer.Step(q.Codebook().Weights(), grads.Codebook)
//
// # Multi-Head
//
// MultiHeadVectorQuantizer splits each vector into k_e segments that share
// one codebook of e_dim/k_e-dimensional entries:
//
//	mq, _ := vqlayer.NewMultiHeadVectorQuantizer(512, 4, 1024, 0.25)
//	res, _ := mq.Forward(ctx, z)             // res.Indices is (B·H·W, 4)
//
// # Loss Weighting
//
// The loss is mse(sg(zq), z) + mse(zq, sg(z)), where sg stops gradients.
// By default (legacy) beta weights the second, codebook-side term. With
// WithLegacy(false) it weights the first, commitment term instead. Both
// branches have the same value; they differ in where gradients flow.
//
// # Remapping
//
// With a remapper, reported indices live in a reduced "used" space:
//
//	r, _ := remap.Load(ctx, store, "used.npy", remap.UnknownExtra(), nil)
//	q, _ := vqlayer.NewVectorQuantizer(1000, 1024, 0.25, vqlayer.WithRemapper(r))
//
// CodebookEntry maps reduced indices back through the remapper. With the
// extra-slot policy the unknown slot decodes to full index 0.
//
// # Codebook Initialization
//
// InitCodebookByClustering replaces the codebook with k-means centroids of a
// feature sample. The clustering service and device are pluggable:
//
//	q, _ := vqlayer.NewVectorQuantizer(1000, 1024, 0.25,
//	    vqlayer.WithClusterer(&cluster.KMeans{Workers: 8}),
//	    vqlayer.WithRand(rand.New(rand.NewSource(1))),
//	)
//	pts, _ := q.Points(features)
//	_ = q.InitCodebookByClustering(ctx, pts, 100000)
//
// # Configuration
//
// Config describes a quantizer declaratively (YAML or VQ_* environment
// variables); New builds it and loads the remap file from a blob store.
package vqlayer
