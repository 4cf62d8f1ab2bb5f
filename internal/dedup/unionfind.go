package dedup

// unionFind implements union-find with path compression and union by rank.
// Duplicate pairs are folded into it; each resulting component is one
// duplicate group.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}

	return uf
}

func (uf *unionFind) find(id string) string {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}

	if parent != id {
		root := uf.find(parent)
		uf.parent[id] = root

		return root
	}

	return id
}

func (uf *unionFind) union(a, b string) {
	rootA := uf.find(a)
	rootB := uf.find(b)

	if rootA == rootB {
		return
	}

	switch {
	case uf.rank[rootA] < uf.rank[rootB]:
		uf.parent[rootA] = rootB
	case uf.rank[rootA] > uf.rank[rootB]:
		uf.parent[rootB] = rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
}

// components returns the members of every component with more than one
// element, keyed by root.
func (uf *unionFind) components() map[string][]string {
	groups := make(map[string][]string)
	for id := range uf.parent {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	for root, members := range groups {
		if len(members) < 2 {
			delete(groups, root)
		}
	}

	return groups
}
