// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainindex

import (
	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// blockLocator returns a block locator for the passed block node.  The passed
// node can be nil in which case the block locator for the current tip
// associated with the view will be returned.
//
// See the wire.BlockLocator type for details on the algorithm used to create a
// block locator.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *ChainIndexer) blockLocator(node *blocknode.BlockNode) wire.BlockLocator {
	// Use the current tip if requested.
	if node == nil {
		node = c.loadTip()
	}
	if node == nil {
		return nil
	}

	// Calculate the max number of entries that will ultimately be in the
	// block locator.  See the description of the algorithm for how these
	// numbers are derived.
	var maxEntries uint8
	if node.Height() <= 12 {
		maxEntries = uint8(node.Height()) + 1
	} else {
		// Requested hash itself + previous 10 entries + genesis block.
		// Then floor(log2(height-10)) entries for the skip portion.
		adjustedHeight := uint32(node.Height()) - 10
		maxEntries = 12 + fastLog2Floor(adjustedHeight)
	}
	locator := make(wire.BlockLocator, 0, maxEntries)

	step := int32(1)
	for node != nil {
		hash := node.GetHash()
		locator = append(locator, &hash)

		// Nothing more to add once the genesis block has been added.
		if node.Height() == 0 {
			break
		}

		// Calculate height of previous node to include ensuring the
		// final node is the genesis block.
		height := node.Height() - step
		if height < 0 {
			height = 0
		}

		// When the node is in the current chain view, all of its
		// ancestors must be too, so use a much faster O(1) lookup in
		// that case.  Otherwise, fall back to walking backwards through
		// the nodes of the other chain to the correct ancestor.
		if c.contains(node) {
			node = c.nodes[height]
		} else {
			node = node.Ancestor(height)
		}

		// Once 11 entries have been included, start doubling the
		// distance between included hashes.
		if len(locator) > 10 {
			step *= 2
		}
	}

	return locator
}

// BlockLocator returns a block locator for the passed block node.  The passed
// node can be nil in which case the block locator for the current tip
// associated with the view will be returned.
//
// See the wire.BlockLocator type for details on the algorithm used to create a
// block locator.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) BlockLocator(node *blocknode.BlockNode) wire.BlockLocator {
	c.mtx.Lock()
	locator := c.blockLocator(node)
	c.mtx.Unlock()
	return locator
}

// FindForkByLocator returns the most recent locator entry that is part of the
// indexed chain, or nil when no entry is indexed.  Locators are ordered from
// the tip backwards, so the first match is the fork point.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) FindForkByLocator(locator wire.BlockLocator) *blocknode.BlockNode {
	return c.FindFork(locator.Hashes())
}

// Locate returns the hashes of the blocks after the fork point described by
// the locator until the provided stop hash is reached, or up to the provided
// max number of block hashes.
//
// In addition, there are two special cases:
//
//   - When no locators are provided, the stop hash is treated as a request for
//     that block, so it will either return the stop hash itself if it is known,
//     or nil if it is unknown
//   - When locators are provided, but none of them are known, hashes starting
//     after the genesis block will be returned
//
// This function is safe for concurrent access.
func (c *ChainIndexer) Locate(locator wire.BlockLocator, hashStop *chainhash.Hash, maxHashes uint32) []chainhash.Hash {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if len(c.nodes) == 0 {
		return nil
	}

	var stopNode *blocknode.BlockNode
	if hashStop != nil {
		stopNode = c.index[*hashStop]
	}

	// There are no block locators so a specific block is being requested
	// as identified by the stop hash.
	if len(locator) == 0 {
		if stopNode == nil {
			return nil
		}
		return []chainhash.Hash{stopNode.GetHash()}
	}

	// Find the most recent locator block hash in the main chain.  In the
	// case none of the hashes in the locator are in the main chain, fall
	// back to the genesis block.
	startNode := c.nodes[0]
	for _, hash := range locator {
		if hash == nil {
			continue
		}
		if node, ok := c.index[*hash]; ok {
			startNode = node
			break
		}
	}

	// Start at the block after the most recently known block.  When there
	// is no next block it means the most recently known block is the tip of
	// the best chain, so there is nothing more to do.
	startNode = c.next(startNode)
	if startNode == nil {
		return nil
	}

	// Calculate how many entries are needed.
	tipHeight := int32(len(c.nodes)) - 1
	total := uint32((tipHeight - startNode.Height()) + 1)
	if stopNode != nil && stopNode.Height() >= startNode.Height() {
		total = uint32((stopNode.Height() - startNode.Height()) + 1)
	}
	if total > maxHashes {
		total = maxHashes
	}

	hashes := make([]chainhash.Hash, 0, total)
	for i := uint32(0); i < total; i++ {
		hashes = append(hashes, c.nodes[startNode.Height()+int32(i)].GetHash())
	}
	return hashes
}
