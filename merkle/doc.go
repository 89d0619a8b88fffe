// Package merkle provides the primitives shared by the tree implementations in
// this module: digests, a pluggable hasher, the level table every tree keeps
// and the sibling path proof format.
//
// The package is written as functional primitives: small functions over
// level and index arithmetic rather than node pointers, leaving the burden of
// knowledge (which leaves are dirty, whether a table is full width) with the
// caller on hot paths.
//
// # Level tables
//
// Every tree owns a Levels value. Level 0 holds the leaf digests, level i+1
// holds the digests of the pairs of level i and the last level holds exactly
// the root:
//
//	2        r
//	       /   \
//	1     a     b
//	     / \   / \
//	0   0   1 2   3
//
// When a level has odd length its last entry is paired with itself. Binary
// trees rely on this, sparse and indexed trees never trigger it because their
// leaf count is a power of two.
//
// # Proofs
//
// A proof is the ordered list of sibling digests met on the walk from a leaf to
// the root, each paired with a flag saying whether the node on the path was the
// left child. VerifyProof replays that walk.
package merkle
