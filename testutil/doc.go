// Package testutil provides testing utilities for vqlayer.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded random sources, feature-map fixtures and a brute-force
// nearest-entry reference to check quantizer assignments against.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	z := rng.FeatureMap(2, 8, 4, 4)          // (B, C, H, W) standard normal
//	pts := rng.ClusteredPoints(500, 8, 16, 0.1)
//
// # Ground Truth
//
//	idx := testutil.ExactNearest(points, codebook, dim)
package testutil
