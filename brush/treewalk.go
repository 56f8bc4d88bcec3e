// SPDX-License-Identifier: GPL-2.0-or-later

package brush

import (
	"math"

	"gobsp/bspdata"
)

// TreeStats walks a BSP subtree and accumulates the brush index range
// referenced by its leaves. Negative child indices address leaves as
// -(index+1).
type TreeStats struct {
	data     *bspdata.Data
	minBrush int
	maxBrush int
}

func NewTreeStats(data *bspdata.Data) *TreeStats {
	t := &TreeStats{data: data}
	t.Reset()
	return t
}

func (t *TreeStats) Reset() {
	t.minBrush = math.MaxInt32
	t.maxBrush = -1
}

// Walk descends from a node index and records leaf brush ranges.
func (t *TreeStats) Walk(inode int32) {
	if inode < 0 {
		t.leaf(-(inode + 1))
		return
	}
	node := &t.data.Nodes[inode]
	t.Walk(node.Children[0])
	t.Walk(node.Children[1])
}

func (t *TreeStats) leaf(ileaf int32) {
	leaf := &t.data.Leaves[ileaf]
	for i := leaf.FstLeafBrush; i < leaf.FstLeafBrush+leaf.NumLeafBrushes; i++ {
		b := int(t.data.LeafBrushes[i])
		if b < t.minBrush {
			t.minBrush = b
		}
		if b > t.maxBrush {
			t.maxBrush = b
		}
	}
}

// BrushRange returns the accumulated (first, count) pair. An empty walk
// yields (0, 0).
func (t *TreeStats) BrushRange() (first, count int) {
	if t.maxBrush < t.minBrush {
		return 0, 0
	}
	return t.minBrush, t.maxBrush - t.minBrush + 1
}

// MaxBrush returns the highest brush index seen, -1 when none.
func (t *TreeStats) MaxBrush() int { return t.maxBrush }
