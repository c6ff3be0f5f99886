// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainindex

import (
	"gitlab.com/jaxnet/chainstate/node/blocknode"
)

// Iterator walks a fixed range of the indexed chain forward.  The range is
// captured when the iterator is created, later reorganizations of the index
// do not affect it.
//
//	it := indexer.EnumerateAfter(node)
//	for it.Next() {
//		process(it.Node())
//	}
type Iterator struct {
	nodes []*blocknode.BlockNode
	pos   int
}

// Next advances the iterator and reports whether a node is available.
func (it *Iterator) Next() bool {
	if it.pos >= len(it.nodes) {
		return false
	}
	it.pos++
	return true
}

// Node returns the node the iterator currently points at.  It is nil before
// the first call to Next and after Next returned false.
func (it *Iterator) Node() *blocknode.BlockNode {
	if it.pos == 0 || it.pos > len(it.nodes) {
		return nil
	}
	return it.nodes[it.pos-1]
}

// Reset rewinds the iterator to the start of its range.
func (it *Iterator) Reset() {
	it.pos = 0
}

// Len returns the number of nodes in the range.
func (it *Iterator) Len() int {
	return len(it.nodes)
}

// enumerateFrom captures the indexed nodes from height up to the tip.
func (c *ChainIndexer) enumerateFrom(node *blocknode.BlockNode, inclusive bool) *Iterator {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if node == nil || !c.containsHash(node) {
		return &Iterator{}
	}

	start := node.Height()
	if !inclusive {
		start++
	}
	if start >= int32(len(c.nodes)) {
		return &Iterator{}
	}

	nodes := make([]*blocknode.BlockNode, len(c.nodes)-int(start))
	copy(nodes, c.nodes[start:])
	return &Iterator{nodes: nodes}
}

// EnumerateAfter returns an iterator over the indexed blocks following node,
// up to the tip at the time of the call.  The iterator is empty when node is
// not part of the indexed chain or is the tip.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) EnumerateAfter(node *blocknode.BlockNode) *Iterator {
	return c.enumerateFrom(node, false)
}

// EnumerateToTip is like EnumerateAfter but starts with node itself.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) EnumerateToTip(node *blocknode.BlockNode) *Iterator {
	return c.enumerateFrom(node, true)
}
