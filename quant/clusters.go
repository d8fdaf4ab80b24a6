package quant

import "github.com/grailbio/base/log"

// PathClusters partitions the reference paths into clusters: two paths are in
// the same cluster iff some chain of reads has candidates on both. The
// probability profile of a read only needs to cover the paths of its cluster.
//
// Cluster ids are dense and ordered by the smallest path id in each cluster.
type PathClusters struct {
	parent    []uint32
	clusterOf []int
	members   [][]uint32
}

// NewPathClusters creates numPaths singleton clusters. Call Union to merge
// them and Finish before querying.
func NewPathClusters(numPaths int) *PathClusters {
	c := &PathClusters{parent: make([]uint32, numPaths)}
	for i := range c.parent {
		c.parent[i] = uint32(i)
	}
	return c
}

func (c *PathClusters) find(id uint32) uint32 {
	root := id
	for c.parent[root] != root {
		root = c.parent[root]
	}
	for c.parent[id] != root {
		c.parent[id], id = root, c.parent[id]
	}
	return root
}

// Union merges the clusters of all the given paths.
func (c *PathClusters) Union(ids []uint32) {
	if c.clusterOf != nil {
		log.Panicf("PathClusters.Union: called after Finish")
	}
	if len(ids) == 0 {
		return
	}
	root := c.find(c.checkID(ids[0]))
	for _, id := range ids[1:] {
		r := c.find(c.checkID(id))
		if r == root {
			continue
		}
		// Keep the smaller id as the root.
		if r < root {
			r, root = root, r
		}
		c.parent[r] = root
	}
}

func (c *PathClusters) checkID(id uint32) uint32 {
	if int(id) >= len(c.parent) {
		log.Panicf("PathClusters: path %d out of range [0,%d)", id, len(c.parent))
	}
	return id
}

// Finish assigns the cluster ids.
func (c *PathClusters) Finish() {
	c.clusterOf = make([]int, len(c.parent))
	rootCluster := make(map[uint32]int)
	for id := range c.parent {
		root := c.find(uint32(id))
		cl, ok := rootCluster[root]
		if !ok {
			cl = len(c.members)
			rootCluster[root] = cl
			c.members = append(c.members, nil)
		}
		c.clusterOf[id] = cl
		c.members[cl] = append(c.members[cl], uint32(id))
	}
}

// NumClusters returns the number of clusters, singletons included.
func (c *PathClusters) NumClusters() int { return len(c.members) }

// ClusterOf returns the cluster of a path.
func (c *PathClusters) ClusterOf(id uint32) int { return c.clusterOf[c.checkID(id)] }

// Members returns the path ids of a cluster in increasing order. The slice
// must not be modified.
func (c *PathClusters) Members(cluster int) []uint32 { return c.members[cluster] }

// LocalIndex maps the path ids of a cluster to their position in Members.
func (c *PathClusters) LocalIndex(cluster int) map[uint32]int {
	members := c.members[cluster]
	idx := make(map[uint32]int, len(members))
	for i, id := range members {
		idx[id] = i
	}
	return idx
}
