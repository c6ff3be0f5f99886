// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaingen

import (
	"strings"
	"sync/atomic"
	"time"

	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// StakeSchedule decides whether the block at the given height is produced by
// staking.
type StakeSchedule func(height int32) bool

// AllPoW never stakes.
func AllPoW(int32) bool { return false }

// EveryNth stakes every n-th block (n > 0).
func EveryNth(n int32) StakeSchedule {
	return func(height int32) bool {
		return n > 0 && height > 0 && height%n == 0
	}
}

// Pattern repeats the given sequence where 'S' is a staked block and any other
// character a mined one, e.g. "WWS".  Genesis is never staked.
func Pattern(pattern string) StakeSchedule {
	pattern = strings.ToUpper(pattern)
	return func(height int32) bool {
		if height == 0 || len(pattern) == 0 {
			return false
		}
		return pattern[int(height-1)%len(pattern)] == 'S'
	}
}

// BlockGenerator builds deterministic header chains for a network.  Nonces are
// drawn from a shared counter so two branches built from the same parent never
// produce the same hash.
type BlockGenerator struct {
	params *chaincfg.Params
	calc   blocknode.WorkCalculator

	PowBits uint32
	PosBits uint32
	Spacing time.Duration
	Stake   StakeSchedule

	nonce uint32
}

// New returns a generator producing nodes bound to calc.  PoW blocks use the
// network pow limit, PoS blocks the same bits unless PosBits is changed.
func New(params *chaincfg.Params, calc blocknode.WorkCalculator) *BlockGenerator {
	return &BlockGenerator{
		params:  params,
		calc:    calc,
		PowBits: params.PowLimitBits,
		PosBits: params.PowLimitBits,
		Spacing: params.TargetTimePerBlock,
		Stake:   AllPoW,
	}
}

// Genesis returns the genesis node of the network.
func (g *BlockGenerator) Genesis() *blocknode.BlockNode {
	header := g.params.GenesisHeader
	return blocknode.New(&header, nil, g.calc)
}

// NewBlockHeader returns the header of the block following parent.
func (g *BlockGenerator) NewBlockHeader(parent *blocknode.BlockNode) *wire.BlockHeader {
	height := parent.Height() + 1
	stake := g.Stake(height)

	version := wire.NewBVersion(1)
	bits := g.PowBits
	if stake {
		version = version.SetProofOfStake()
		bits = g.PosBits
	}

	nonce := atomic.AddUint32(&g.nonce, 1)
	spacing := int64(g.Spacing / time.Second)
	if spacing <= 0 {
		spacing = 1
	}

	var merkle chainhash.Hash
	merkle[0] = byte(height)
	merkle[1] = byte(height >> 8)
	merkle[2] = byte(height >> 16)

	return &wire.BlockHeader{
		Version:    version,
		PrevBlock:  parent.GetHash(),
		MerkleRoot: merkle,
		Timestamp:  time.Unix(parent.Timestamp()+spacing, 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

// NextNode returns the node following parent.
func (g *BlockGenerator) NextNode(parent *blocknode.BlockNode) *blocknode.BlockNode {
	return blocknode.New(g.NewBlockHeader(parent), parent, g.calc)
}

// Extend returns n nodes chained on top of parent.
func (g *BlockGenerator) Extend(parent *blocknode.BlockNode, n int) []*blocknode.BlockNode {
	nodes := make([]*blocknode.BlockNode, 0, n)
	for i := 0; i < n; i++ {
		parent = g.NextNode(parent)
		nodes = append(nodes, parent)
	}
	return nodes
}

// Chain returns genesis followed by n blocks, indexed by height.
func (g *BlockGenerator) Chain(n int) []*blocknode.BlockNode {
	genesis := g.Genesis()
	return append([]*blocknode.BlockNode{genesis}, g.Extend(genesis, n)...)
}

// Headers returns the headers of the nodes in order.
func Headers(nodes []*blocknode.BlockNode) []*wire.BlockHeader {
	headers := make([]*wire.BlockHeader, 0, len(nodes))
	for _, node := range nodes {
		headers = append(headers, node.Header())
	}
	return headers
}
