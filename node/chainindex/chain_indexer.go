// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainindex

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

// approxNodesPerWeek is an approximation of the number of new blocks there are
// in a week on average.
const approxNodesPerWeek = 6 * 24 * 7

// log2FloorMasks defines the masks to use when quickly calculating
// floor(log2(x)) in a constant log2(32) = 5 steps, where x is a uint32, using
// shifts.  They are derived from (2^(2^x) - 1) * (2^(2^x)), for x in 4..0.
var log2FloorMasks = []uint32{0xffff0000, 0xff00, 0xf0, 0xc, 0x2}

// fastLog2Floor calculates and returns floor(log2(x)) in a constant 5 steps.
func fastLog2Floor(n uint32) uint8 {
	rv := uint8(0)
	exponent := uint8(16)
	for i := 0; i < 5; i++ {
		if n&log2FloorMasks[i] != 0 {
			rv += exponent
			n >>= exponent
		}
		exponent >>= 1
	}
	return rv
}

// ChainIndexer provides a flat view of the single adopted best chain from
// genesis to the tip.  It offers O(1) lookups by height and by hash.
//
// The tip is published through an atomic value so Tip and Height never wait
// for the lock.  Every operation that needs a consistent height/hash pair,
// and every mutation, runs under a single mutex that covers both lookup
// tables.
//
// ChainIndexer is safe for concurrent access.
type ChainIndexer struct {
	genesisHash chainhash.Hash

	mtx   sync.Mutex
	nodes []*blocknode.BlockNode
	index map[chainhash.Hash]*blocknode.BlockNode
	tip   atomic.Value // *blocknode.BlockNode
}

// New returns an empty indexer for the chain with the given genesis hash.
// Initialize must be called before the indexer is used.
func New(genesisHash chainhash.Hash) *ChainIndexer {
	return &ChainIndexer{
		genesisHash: genesisHash,
		index:       make(map[chainhash.Hash]*blocknode.BlockNode),
	}
}

// GenesisHash returns the configured genesis hash.
func (c *ChainIndexer) GenesisHash() chainhash.Hash {
	return c.genesisHash
}

// Initialize rebuilds the whole index from the chain ending at node.  The
// previous contents are replaced in one step.  The walk must end at the
// configured genesis block, otherwise the index is left untouched and an
// ErrGenesisMismatch error is returned.
func (c *ChainIndexer) Initialize(node *blocknode.BlockNode) error {
	if node == nil {
		return indexError(ErrUnknownNode, "cannot initialize the chain index with a nil tip")
	}

	nodes := make([]*blocknode.BlockNode, node.Height()+1)
	index := make(map[chainhash.Hash]*blocknode.BlockNode, node.Height()+1+approxNodesPerWeek)

	var last *blocknode.BlockNode
	for n := node; n != nil; n = n.Parent() {
		parent := n.Parent()
		if n.Height() < 0 || int(n.Height()) >= len(nodes) ||
			(parent != nil && parent.Height() != n.Height()-1) {
			str := fmt.Sprintf("broken chain at %s while initializing from %s", n, node)
			return indexError(ErrUnknownNode, str)
		}
		nodes[n.Height()] = n
		index[n.GetHash()] = n
		last = n
	}

	if last.Height() != 0 || last.GetHash() != c.genesisHash {
		str := fmt.Sprintf("chain ending at %s starts at %s, expected genesis %s",
			node, last, c.genesisHash)
		return indexError(ErrGenesisMismatch, str)
	}

	c.mtx.Lock()
	c.nodes = nodes
	c.index = index
	c.tip.Store(node)
	c.mtx.Unlock()

	log.Info().Int32("height", node.Height()).Stringer("hash", hashStringer(node.GetHash())).
		Msg("Chain index initialized")
	return nil
}

// loadTip returns the published tip or nil before Initialize.
func (c *ChainIndexer) loadTip() *blocknode.BlockNode {
	tip, _ := c.tip.Load().(*blocknode.BlockNode)
	return tip
}

// Tip returns the current tip block node for the chain view.  It will return
// nil if the indexer has not been initialized.
//
// This function is safe for concurrent access and does not take the lock.
func (c *ChainIndexer) Tip() *blocknode.BlockNode {
	return c.loadTip()
}

// Height returns the height of the tip of the chain view.  It will return -1 if
// the indexer has not been initialized.
//
// This function is safe for concurrent access and does not take the lock.
func (c *ChainIndexer) Height() int32 {
	tip := c.loadTip()
	if tip == nil {
		return -1
	}
	return tip.Height()
}

// Genesis returns the genesis block for the chain view.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) Genesis() *blocknode.BlockNode {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[0]
}

// nodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *ChainIndexer) nodeByHeight(height int32) *blocknode.BlockNode {
	if height < 0 || height >= int32(len(c.nodes)) {
		return nil
	}
	return c.nodes[height]
}

// NodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) NodeByHeight(height int32) *blocknode.BlockNode {
	c.mtx.Lock()
	node := c.nodeByHeight(height)
	c.mtx.Unlock()
	return node
}

// NodeByHash returns the block node with the given hash or nil when it is not
// part of the indexed chain.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) NodeByHash(hash chainhash.Hash) *blocknode.BlockNode {
	c.mtx.Lock()
	node := c.index[hash]
	c.mtx.Unlock()
	return node
}

// contains returns whether or not the chain view contains the passed block
// node.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *ChainIndexer) contains(node *blocknode.BlockNode) bool {
	return node != nil && c.nodeByHeight(node.Height()) == node
}

// Contains returns whether or not the chain view contains the passed block
// node.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) Contains(node *blocknode.BlockNode) bool {
	c.mtx.Lock()
	contains := c.contains(node)
	c.mtx.Unlock()
	return contains
}

// next returns the successor to the provided node for the chain view.  It will
// return nil if there is no successor or the provided node is not part of the
// view.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *ChainIndexer) next(node *blocknode.BlockNode) *blocknode.BlockNode {
	if !c.contains(node) {
		return nil
	}
	return c.nodeByHeight(node.Height() + 1)
}

// Next returns the successor to the provided node for the chain view.  It will
// return nil if there is either no successor or the provided node is not part
// of the view.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) Next(node *blocknode.BlockNode) *blocknode.BlockNode {
	c.mtx.Lock()
	next := c.next(node)
	c.mtx.Unlock()
	return next
}

// Add extends the indexed chain by one block.  The parent of node must be the
// current tip; anything else is rejected with ErrNotContiguous and the index
// is not modified.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) Add(node *blocknode.BlockNode) error {
	if node == nil {
		return indexError(ErrUnknownNode, "cannot add a nil node")
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	tip := c.loadTip()
	if tip == nil {
		return indexError(ErrNotInitialized, "chain index is not initialized")
	}

	parent := node.Parent()
	if parent == nil || parent.GetHash() != tip.GetHash() || node.Height() != tip.Height()+1 {
		str := fmt.Sprintf("block %s does not extend the tip %s", node, tip)
		return indexError(ErrNotContiguous, str)
	}

	c.nodes = append(c.nodes, node)
	c.index[node.GetHash()] = node
	c.tip.Store(node)

	log.Trace().Int32("height", node.Height()).Stringer("hash", hashStringer(node.GetHash())).
		Msg("Block added to the chain index")
	return nil
}

// Remove rolls the indexed chain back by exactly one block.  node must be
// the current tip, its parent becomes the new tip.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) Remove(node *blocknode.BlockNode) error {
	if node == nil {
		return indexError(ErrUnknownNode, "cannot remove a nil node")
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	tip := c.loadTip()
	if tip == nil {
		return indexError(ErrNotInitialized, "chain index is not initialized")
	}
	if node.GetHash() != tip.GetHash() {
		str := fmt.Sprintf("block %s is not the tip %s", node, tip)
		return indexError(ErrNotTip, str)
	}
	if tip.Parent() == nil {
		return indexError(ErrRemoveGenesis, "the genesis block cannot be removed")
	}

	c.removeTip()

	log.Trace().Int32("height", node.Height()).Stringer("hash", hashStringer(node.GetHash())).
		Msg("Block removed from the chain index")
	return nil
}

// removeTip drops the tip and publishes its parent.
//
// This function MUST be called with the view mutex locked (for writes).
func (c *ChainIndexer) removeTip() {
	tip := c.nodes[len(c.nodes)-1]
	c.nodes[len(c.nodes)-1] = nil
	c.nodes = c.nodes[:len(c.nodes)-1]
	delete(c.index, tip.GetHash())
	c.tip.Store(tip.Parent())
}

// SetTip reorganizes the indexed chain so that node becomes the tip.  Blocks
// after the fork point are removed and the branch leading to node is appended,
// all under a single critical section.  A node which does not share the
// indexed genesis is rejected.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) SetTip(node *blocknode.BlockNode) error {
	if node == nil {
		return indexError(ErrUnknownNode, "cannot set a nil tip")
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.loadTip() == nil {
		return indexError(ErrNotInitialized, "chain index is not initialized")
	}

	fork := c.findFork(node)
	if fork == nil {
		str := fmt.Sprintf("block %s does not connect to the indexed chain", node)
		return indexError(ErrUnknownNode, str)
	}

	var detached int
	for c.loadTip() != fork {
		c.removeTip()
		detached++
	}

	attach := make([]*blocknode.BlockNode, node.Height()-fork.Height())
	for n := node; n.Height() > fork.Height(); n = n.Parent() {
		attach[n.Height()-fork.Height()-1] = n
	}
	for _, n := range attach {
		c.nodes = append(c.nodes, n)
		c.index[n.GetHash()] = n
	}
	c.tip.Store(node)

	if detached > 0 {
		log.Info().Int32("fork", fork.Height()).Int("detached", detached).Int("attached", len(attach)).
			Stringer("tip", hashStringer(node.GetHash())).Msg("Chain index reorganized")
	}
	return nil
}

// findFork returns the final common block between the provided node and the
// the chain view.  It will return nil if there is no common block.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *ChainIndexer) findFork(node *blocknode.BlockNode) *blocknode.BlockNode {
	// No fork point for node that doesn't exist.
	if node == nil {
		return nil
	}

	// When the height of the passed node is higher than the height of the
	// tip of the current chain view, walk backwards through the nodes of
	// the other chain until the heights match (or there or no more nodes
	// in which case there is no common node between the two).
	chainHeight := int32(len(c.nodes)) - 1
	if node.Height() > chainHeight {
		node = node.Ancestor(chainHeight)
	}

	// Walk the other chain backwards as long as the current one does not
	// contain the node or there are no more nodes in which case there is no
	// common node between the two.
	for node != nil && !c.containsHash(node) {
		node = node.Parent()
	}

	if node == nil {
		return nil
	}
	return c.nodes[node.Height()]
}

// containsHash is like contains but compares by hash so equal nodes built
// independently from the same header are recognised.
//
// This function MUST be called with the view mutex locked (for reads).
func (c *ChainIndexer) containsHash(node *blocknode.BlockNode) bool {
	indexed := c.nodeByHeight(node.Height())
	return indexed != nil && indexed.GetHash() == node.GetHash()
}

// FindForkWithNode returns the final common block between the provided node
// and the indexed chain.  It will return nil if there is no common block.
//
// For example, assume a block chain with a side chain as depicted below:
//
//	genesis -> 1 -> 2 -> ... -> 5 -> 6  -> 7  -> 8
//	                      \-> 6a -> 7a
//
// Further, assume the view is for the longer chain depicted above.  That is to
// say it consists of:
//
//	genesis -> 1 -> 2 -> ... -> 5 -> 6 -> 7 -> 8.
//
// Invoking this function with block node 7a would return block node 5 while
// invoking it with block node 7 would return itself since it is already part of
// the branch formed by the view.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) FindForkWithNode(node *blocknode.BlockNode) *blocknode.BlockNode {
	c.mtx.Lock()
	fork := c.findFork(node)
	c.mtx.Unlock()
	return fork
}

// FindFork returns the first node, in the order given, whose hash is part of
// the indexed chain.  It returns nil when none of the hashes is indexed.
//
// This function is safe for concurrent access.
func (c *ChainIndexer) FindFork(hashes []chainhash.Hash) *blocknode.BlockNode {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	for _, hash := range hashes {
		if node, ok := c.index[hash]; ok {
			return node
		}
	}
	return nil
}

// hashStringer defers hash formatting until the log entry is emitted.
type hashStringer chainhash.Hash

func (h hashStringer) String() string { return chainhash.Hash(h).String() }
