// Package unionfind implements a disjoint-set forest with path compression
// and union by size.
//
// The forest is domain-agnostic: elements are dense integer handles in
// [0, N). It is not safe for concurrent use; unions must be applied
// sequentially because each one depends on the current roots and sizes.
package unionfind
