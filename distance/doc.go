// Package distance provides the float32 vector kernels used by the quantizer.
//
// Dot products and norms run on github.com/viterin/vek, which dispatches to
// AVX2 kernels when the CPU supports them and falls back to pure Go otherwise.
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	ip := distance.Dot(a, b)
//	ok := distance.NormalizeL2InPlace(v)
package distance
