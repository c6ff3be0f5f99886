// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blocknode

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/pow"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// medianTimeBlocks is the number of previous blocks which should be
// used to calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

// WorkCalculator derives the cumulative chain work of a node.  It is called
// at most once per node and only after the work sum of the parent is known.
type WorkCalculator interface {
	CalcWorkSum(node *BlockNode) *big.Int
}

// CumulativeWork is the classic rule: the work of the block derived from
// its target plus the work sum of its parent.
type CumulativeWork struct{}

// CalcWorkSum implements WorkCalculator.
func (CumulativeWork) CalcWorkSum(node *BlockNode) *big.Int {
	work := pow.CalcWork(node.Bits())
	if node.parent != nil {
		work.Add(work, node.parent.WorkSum())
	}
	return work
}

// BlockNode represents a block header within the block chain.  All fields are
// written once on creation, the only exception is the work sum which is
// computed lazily exactly once.
type BlockNode struct {
	// parent is the parent block for this node.  It is a plain back
	// reference; a node never owns or tracks its successors.
	parent *BlockNode

	// hash is the double sha 256 of the header.
	hash chainhash.Hash

	// height is the position in the block chain.
	height int32

	header wire.BlockHeader

	calc     WorkCalculator
	workOnce sync.Once
	workSum  atomic.Value // *big.Int
}

// New returns a new block node for the given block header and parent node.
// The height is derived from the parent.  calc may be nil, in which case the
// plain cumulative work rule is used.
//
// The caller is responsible for header.PrevBlock matching the parent hash.
func New(header *wire.BlockHeader, parent *BlockNode, calc WorkCalculator) *BlockNode {
	if calc == nil {
		calc = CumulativeWork{}
	}

	node := &BlockNode{
		hash:   header.BlockHash(),
		header: *header,
		calc:   calc,
	}
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
	}
	return node
}

func (node *BlockNode) GetHash() chainhash.Hash { return node.hash }
func (node *BlockNode) Height() int32           { return node.height }
func (node *BlockNode) Parent() *BlockNode      { return node.parent }
func (node *BlockNode) Bits() uint32            { return node.header.Bits }
func (node *BlockNode) Timestamp() int64        { return node.header.Timestamp.Unix() }
func (node *BlockNode) Version() int32          { return node.header.Version.Version() }

// PrevHash returns hash of parent node or the zero hash for genesis.
func (node *BlockNode) PrevHash() chainhash.Hash {
	if node.parent == nil {
		return chainhash.ZeroHash
	}
	return node.parent.hash
}

// IsProofOfStake reports whether the block was produced by staking.
func (node *BlockNode) IsProofOfStake() bool {
	return node.header.IsProofOfStake()
}

// Header returns a copy of the header the node was built from.
func (node *BlockNode) Header() *wire.BlockHeader {
	return node.header.Copy()
}

// Target returns the difficulty target decoded from the compact bits.
func (node *BlockNode) Target() *big.Int {
	return pow.CompactToBig(node.header.Bits)
}

// WorkSum returns the total amount of work in the chain up to and including
// this node.  The returned value is shared and must not be modified.
//
// Ancestors whose work is not yet known are resolved from the oldest one
// forward, so the call does not recurse through the whole chain.
//
// This function is safe for concurrent access.
func (node *BlockNode) WorkSum() *big.Int {
	if work := node.loadWorkSum(); work != nil {
		return work
	}

	var pending []*BlockNode
	for n := node; n != nil && n.loadWorkSum() == nil; n = n.parent {
		pending = append(pending, n)
	}
	for i := len(pending) - 1; i >= 0; i-- {
		pending[i].computeWorkSum()
	}

	return node.loadWorkSum()
}

func (node *BlockNode) loadWorkSum() *big.Int {
	work, _ := node.workSum.Load().(*big.Int)
	return work
}

func (node *BlockNode) computeWorkSum() {
	node.workOnce.Do(func() {
		node.workSum.Store(node.calc.CalcWorkSum(node))
	})
}

// Ancestor returns the ancestor block node at the provided height by following
// the chain backwards from this node.  The returned block will be nil when a
// height is requested that is after the height of the passed node or is less
// than zero.
//
// This function is safe for concurrent access.
func (node *BlockNode) Ancestor(height int32) *BlockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for ; n != nil && n.height != height; n = n.parent {
		// Intentionally left blank
	}

	return n
}

// RelativeAncestor returns the ancestor block node a relative 'distance' blocks
// before this node.  This is equivalent to calling Ancestor with the node's
// height minus provided distance.
//
// This function is safe for concurrent access.
func (node *BlockNode) RelativeAncestor(distance int32) *BlockNode {
	return node.Ancestor(node.height - distance)
}

// FindAncestorOrSelf returns the ancestor (or the node itself) at the given
// height when its hash matches, nil otherwise.
func (node *BlockNode) FindAncestorOrSelf(hash chainhash.Hash, height int32) *BlockNode {
	ancestor := node.Ancestor(height)
	if ancestor == nil || ancestor.hash != hash {
		return nil
	}
	return ancestor
}

// IsAncestorOf reports whether node lies on the path from other back to
// genesis.  A node counts as its own ancestor.
func (node *BlockNode) IsAncestorOf(other *BlockNode) bool {
	if other == nil {
		return false
	}
	return other.Ancestor(node.height) == node
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node.
//
// This function is safe for concurrent access.
func (node *BlockNode) CalcPastMedianTime() time.Time {
	// Create a slice of the previous few block timestamps used to calculate
	// the median per the number defined by the constant medianTimeBlocks.
	timestamps := make([]int64, 0, medianTimeBlocks)
	for iterNode := node; len(timestamps) < medianTimeBlocks && iterNode != nil; iterNode = iterNode.parent {
		timestamps = append(timestamps, iterNode.Timestamp())
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	// NOTE: The consensus rules incorrectly calculate the median for even
	// numbers of blocks.  A true median averages the middle two elements
	// for a set with an even number of elements in it.  This code follows
	// suit to ensure the same rules are used.
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// String returns "height/hash" for logging.
func (node *BlockNode) String() string {
	if node == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d/%s", node.height, node.hash)
}

// FindFork returns the deepest node shared by the chains ending at a and b.
// It returns nil when either is nil or the chains do not share a genesis.
//
// This function is safe for concurrent access.
func FindFork(a, b *BlockNode) *BlockNode {
	if a == nil || b == nil {
		return nil
	}

	// Bring both nodes to the same height first.
	if a.height > b.height {
		a = a.Ancestor(b.height)
	} else if b.height > a.height {
		b = b.Ancestor(a.height)
	}

	for a != nil && b != nil && a != b {
		if a.hash == b.hash {
			return a
		}
		a = a.parent
		b = b.parent
	}
	if a == nil || b == nil {
		return nil
	}
	return a
}
