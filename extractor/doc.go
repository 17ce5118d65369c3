// Package extractor wires a vector quantizer into an image feature extractor.
//
// A Network runs a Backbone to produce a (B, C, H, W) feature map, optionally
// quantizes it, pools it to (B, C) and projects the pooled features through a
// Head into embeddings:
//
//	net, err := extractor.New(backbone,
//		extractor.WithQuantizer(q),
//		extractor.WithHead(head),
//		extractor.WithNormalize(true),
//	)
//	out, err := net.Forward(ctx, images, extractor.ForwardOptions{Quantize: true})
//
// Quantization can be bypassed per call. That is how features are collected
// for codebook initialization before the quantizer has a useful codebook
// (see CollectFeatures and InitCodebook).
package extractor
