// Package topology builds pipe networks from role-tagged spatial features.
//
// The builder materializes one node per source, valve and emitter point,
// synthesizes junctions at line endpoints not already covered by a node,
// and splits every candidate pipe line at the nodes lying within the snap
// tolerance of its path. Links are straight segments between consecutive
// nodes along a line, so curved input paths are shortened to chords.
//
// Endpoint deduplication quantizes coordinates to a fixed number of
// decimals. It is not radius clustering: two endpoints on either side of a
// quantization boundary form separate groups, and only merge when the
// second falls within tolerance of the node created for the first.
package topology
