package unionfind

// Forest is a disjoint-set forest over the handles [0, N).
//
// Invariants:
//   - parents never form a cycle other than a root pointing to itself
//   - sizes[r] is the number of handles whose root is r, for every root r
//   - numSets is the number of roots and only ever decreases
//   - maxSize only ever increases
type Forest struct {
	parents []int
	sizes   []int
	numSets int

	// maxSize and maxRoot track the largest set seen so far.
	maxSize int
	maxRoot int
}

// New creates a forest of n singleton sets.
func New(n int) *Forest {
	f := &Forest{
		parents: make([]int, n),
		sizes:   make([]int, n),
		numSets: n,
	}
	for i := range n {
		f.parents[i] = i
		f.sizes[i] = 1
	}
	if n > 0 {
		f.maxSize = 1
	}
	return f
}

// Len returns the number of handles in the forest.
func (f *Forest) Len() int {
	return len(f.parents)
}

// Find returns the root of the set containing i.
// Every node on the path is re-pointed directly at the root.
// Find panics if i is out of range.
func (f *Forest) Find(i int) int {
	root := i
	for f.parents[root] != root {
		root = f.parents[root]
	}

	for f.parents[i] != root {
		next := f.parents[i]
		f.parents[i] = root
		i = next
	}
	return root
}

// Union merges the sets containing i and j and reports whether they were
// distinct. The smaller set is attached under the larger one; on equal
// sizes the root of j is attached under the root of i.
func (f *Forest) Union(i, j int) bool {
	ri := f.Find(i)
	rj := f.Find(j)
	if ri == rj {
		return false
	}

	if f.sizes[ri] < f.sizes[rj] {
		ri, rj = rj, ri
	}
	f.parents[rj] = ri
	f.sizes[ri] += f.sizes[rj]
	f.numSets--

	if f.sizes[ri] > f.maxSize {
		f.maxSize = f.sizes[ri]
		f.maxRoot = ri
	}
	return true
}

// Connected reports whether i and j are in the same set.
func (f *Forest) Connected(i, j int) bool {
	return f.Find(i) == f.Find(j)
}

// SetSize returns the size of the set containing i.
func (f *Forest) SetSize(i int) int {
	return f.sizes[f.Find(i)]
}

// NumSets returns the number of disjoint sets.
func (f *Forest) NumSets() int {
	return f.numSets
}

// MaxSize returns the size of the largest set.
func (f *Forest) MaxSize() int {
	return f.maxSize
}

// MaxRoot returns the root handle of the largest set.
// With no unions applied it is 0.
func (f *Forest) MaxRoot() int {
	return f.maxRoot
}
