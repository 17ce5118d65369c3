// Package cluster defines the clustering service used to initialise codebooks
// and ships a CPU k-means implementation of it.
//
// A Clusterer maps a (n, dim) sample to k centroids. Accelerated
// implementations plug in behind the same interface together with a Device
// whose cache is released around each clustering run.
package cluster
