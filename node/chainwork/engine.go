// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainwork

import (
	"fmt"
	"math/big"
	"sync"

	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/pow"
)

type cachedFactor struct {
	height int32
	factor AdjustmentFactor
}

// Engine computes chain work for hybrid PoW/PoS chains.  PoW blocks add their
// proof to the parent's work sum.  PoS blocks add their proof divided by the
// adjustment factor of the last complete scaling interval.  On networks
// without hybrid consensus every block simply adds its proof.
//
// Factors are cached by the hash of the interval boundary block, so competing
// branches keep their own values.
//
// Engine implements blocknode.WorkCalculator and is safe for concurrent
// access.
type Engine struct {
	hybrid   bool
	interval int32

	mtx     sync.RWMutex
	factors map[chainhash.Hash]cachedFactor
}

// New returns an engine for the network described by params.
func New(params *chaincfg.Params) *Engine {
	return &Engine{
		hybrid:   params.HybridConsensus,
		interval: params.ScalingInterval(),
		factors:  make(map[chainhash.Hash]cachedFactor),
	}
}

// ScalingInterval returns the number of blocks in one scaling window.
func (e *Engine) ScalingInterval() int32 {
	return e.interval
}

// Hybrid reports whether PoS proof is scaled.
func (e *Engine) Hybrid() bool {
	return e.hybrid
}

// CalcWorkSum implements blocknode.WorkCalculator.  An inconsistent chain
// causes a panic with an AssertError, use CheckedWorkSum to get it as an error.
func (e *Engine) CalcWorkSum(node *blocknode.BlockNode) *big.Int {
	work, err := e.CheckedWorkSum(node)
	if err != nil {
		panic(err)
	}
	return work
}

// CheckedWorkSum returns the work sum of node from the work sum of its
// parent.  The result is not stored on the node.
func (e *Engine) CheckedWorkSum(node *blocknode.BlockNode) (*big.Int, error) {
	work, err := e.BlockWork(node)
	if err != nil {
		return nil, err
	}
	if parent := node.Parent(); parent != nil {
		work.Add(work, parent.WorkSum())
	}
	return work, nil
}

// BlockWork returns the work the block itself contributes to the chain.
func (e *Engine) BlockWork(node *blocknode.BlockNode) (*big.Int, error) {
	proof := pow.CalcWork(node.Bits())
	if !e.hybrid || !node.IsProofOfStake() {
		return proof, nil
	}

	factor, err := e.AdjustmentFactor(node)
	if err != nil {
		return nil, err
	}
	return factor.Deflate(proof), nil
}

// boundary returns the height of the most recent interval boundary at or
// below height, or -1 while the first interval is not complete.
func (e *Engine) boundary(height int32) int32 {
	if !e.hybrid || e.interval <= 0 || height <= e.interval {
		return -1
	}
	return height - height%e.interval
}

// AdjustmentFactor returns the factor that applies to PoS blocks at the
// height of node.  Up to and including the first scaling interval it is the
// identity.  After that it is averaged over the interval ending at the most
// recent boundary block at or below node.
func (e *Engine) AdjustmentFactor(node *blocknode.BlockNode) (AdjustmentFactor, error) {
	boundaryHeight := e.boundary(node.Height())
	if boundaryHeight < 0 {
		return IdentityFactor(), nil
	}

	boundary := node.Ancestor(boundaryHeight)
	if boundary == nil {
		str := fmt.Sprintf("no ancestor at boundary height %d of %s", boundaryHeight, node)
		return AdjustmentFactor{}, AssertError(str)
	}

	hash := boundary.GetHash()
	e.mtx.RLock()
	cached, ok := e.factors[hash]
	e.mtx.RUnlock()
	if ok {
		return cached.factor, nil
	}

	factor, err := e.calcFactor(boundary)
	if err != nil {
		return AdjustmentFactor{}, err
	}

	e.mtx.Lock()
	e.factors[hash] = cachedFactor{height: boundaryHeight, factor: factor}
	e.mtx.Unlock()

	log.Debug().Int32("boundary", boundaryHeight).Stringer("hash", hash).
		Stringer("factor", factor).Msg("Adjustment factor calculated")
	return factor, nil
}

// calcFactor averages the PoS and PoW targets of the interval nodes ending
// at boundary, inclusive.
func (e *Engine) calcFactor(boundary *blocknode.BlockNode) (AdjustmentFactor, error) {
	posSum, powSum := new(big.Int), new(big.Int)
	var posCount, powCount int64

	node := boundary
	for i := int32(0); i < e.interval; i++ {
		if node == nil || node.Height() < 0 {
			str := fmt.Sprintf("scaling window of %d blocks from %s runs past genesis",
				e.interval, boundary)
			return AdjustmentFactor{}, AssertError(str)
		}

		if node.IsProofOfStake() {
			posSum.Add(posSum, node.Target())
			posCount++
		} else {
			powSum.Add(powSum, node.Target())
			powCount++
		}
		node = node.Parent()
	}

	if posCount+powCount != int64(e.interval) {
		str := fmt.Sprintf("scaling window from %s classified %d pos and %d pow blocks, expected %d",
			boundary, posCount, powCount, e.interval)
		return AdjustmentFactor{}, AssertError(str)
	}

	// Without both classes in the window there is nothing to compare.
	if posCount == 0 || powCount == 0 {
		return IdentityFactor(), nil
	}

	posAvg := posSum.Quo(posSum, big.NewInt(posCount))
	powAvg := powSum.Quo(powSum, big.NewInt(powCount))
	if posAvg.Sign() == 0 || powAvg.Sign() == 0 {
		return IdentityFactor(), nil
	}

	return AdjustmentFactor{PosAvg: posAvg, PowAvg: powAvg}, nil
}

// Prune drops the cached factors of boundaries below height and returns how
// many were removed.
func (e *Engine) Prune(height int32) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	var removed int
	for hash, cached := range e.factors {
		if cached.height < height {
			delete(e.factors, hash)
			removed++
		}
	}
	return removed
}

// CachedFactors returns the number of cached factors.
func (e *Engine) CachedFactors() int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return len(e.factors)
}
