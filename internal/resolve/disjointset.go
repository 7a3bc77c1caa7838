package resolve

// disjointSet is a plain union-find over an arena of track indices, with
// path compression and union by rank.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(size int) *disjointSet {
	set := &disjointSet{
		parent: make([]int, size),
		rank:   make([]int, size),
	}
	for i := range set.parent {
		set.parent[i] = i
	}
	return set
}

func (s *disjointSet) find(i int) int {
	for s.parent[i] != i {
		s.parent[i] = s.parent[s.parent[i]]
		i = s.parent[i]
	}
	return i
}

func (s *disjointSet) union(a, b int) {
	rootA, rootB := s.find(a), s.find(b)
	if rootA == rootB {
		return
	}
	if s.rank[rootA] < s.rank[rootB] {
		rootA, rootB = rootB, rootA
	}
	s.parent[rootB] = rootA
	if s.rank[rootA] == s.rank[rootB] {
		s.rank[rootA]++
	}
}
