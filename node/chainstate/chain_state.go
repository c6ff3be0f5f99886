// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/jaxnet/chainstate/database"
	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/node/chainindex"
	"gitlab.com/jaxnet/chainstate/node/chainwork"
	"gitlab.com/jaxnet/chainstate/node/tips"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// Config holds the dependencies of a ChainState.
type Config struct {
	// Params describes the network.
	Params *chaincfg.Params

	// DB stores accepted headers and the common tip.  It may be nil, in
	// which case nothing survives a restart.  The chain state does not
	// close it.
	DB database.DB

	// OnPersistError is passed to the tips manager.
	OnPersistError func(tip *blocknode.BlockNode, err error)
}

// BestState houses information about the current best block.  The returned
// snapshot must be treated as immutable.
type BestState struct {
	Hash           chainhash.Hash // The hash of the block.
	Height         int32          // The height of the block.
	Bits           uint32         // The difficulty bits of the block.
	IsProofOfStake bool           // Whether the block was staked.
	WorkSum        *big.Int       // Total chain work up to the block.
	MedianTime     time.Time      // Median time as per CalcPastMedianTime.
	CommonTip      int32          // Height of the last common tip.
}

// ChainState ties the chain index, the chain-work engine and the tips
// manager of one network to one database.  It keeps every accepted header,
// including side chains, and moves the index to the branch with the most
// work.
//
// ChainState is safe for concurrent access.
type ChainState struct {
	params *chaincfg.Params
	db     database.DB
	engine *chainwork.Engine
	index  *chainindex.ChainIndexer
	tips   *tips.Manager

	mtx         sync.Mutex
	nodes       map[chainhash.Hash]*blocknode.BlockNode
	initialized bool
}

// New returns a chain state that must be initialized before use.
func New(cfg Config) *ChainState {
	s := &ChainState{
		params: cfg.Params,
		db:     cfg.DB,
		engine: chainwork.New(cfg.Params),
		index:  chainindex.New(*cfg.Params.GenesisHash()),
		nodes:  make(map[chainhash.Hash]*blocknode.BlockNode),
	}
	// The tips manager resolves nodes only inside Initialize, which runs
	// with the state lock already held.
	s.tips = tips.New(tips.Config{
		Store:          cfg.DB,
		OnPersistError: cfg.OnPersistError,
		LookupNode:     func(hash chainhash.Hash) *blocknode.BlockNode { return s.nodes[hash] },
	})
	return s
}

func (s *ChainState) Params() *chaincfg.Params        { return s.params }
func (s *ChainState) Engine() *chainwork.Engine       { return s.engine }
func (s *ChainState) Index() *chainindex.ChainIndexer { return s.index }
func (s *ChainState) Tips() *tips.Manager             { return s.tips }

// Initialize loads the stored headers, selects the branch with the most work
// as the best chain and initializes the index and the tips manager with it.
func (s *ChainState) Initialize() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.initialized {
		return ruleError(ErrAlreadyInitialized, "chain state is already initialized")
	}

	genesisHeader := s.params.GenesisHeader
	genesis := blocknode.New(&genesisHeader, nil, s.engine)
	s.nodes[genesis.GetHash()] = genesis

	best, err := s.loadHeaders(genesis)
	if err != nil {
		return err
	}

	if err := s.index.Initialize(best); err != nil {
		return err
	}
	if err := s.tips.Initialize(best); err != nil {
		return err
	}
	s.initialized = true

	log.Info().Int32("height", best.Height()).Stringer("hash", best.GetHash()).
		Int("headers", len(s.nodes)).Str("net", s.params.Name).Msg("Chain state loaded")
	return nil
}

// loadHeaders rebuilds the header tree from the database and returns the node
// with the most work.  Among branches with equal work the stored best state
// wins, so a restart keeps the tip it had.
//
// This function MUST be called with the state lock held.
func (s *ChainState) loadHeaders(genesis *blocknode.BlockNode) (*blocknode.BlockNode, error) {
	best := genesis
	if s.db == nil {
		return best, nil
	}

	err := s.db.ForEach(headerKeyPrefix, func(key, value []byte) error {
		height, ok := decodeHeaderKey(key)
		if !ok {
			return ruleError(ErrCorruptHeaderStore, fmt.Sprintf("malformed header key %x", key))
		}
		header, err := deserializeHeader(value)
		if err != nil {
			return errors.Wrapf(err, "decode stored header at height %d", height)
		}

		parent := s.nodes[header.PrevBlock]
		if parent == nil {
			str := fmt.Sprintf("stored header %s at height %d has unknown parent %s",
				header.BlockHash(), height, header.PrevBlock)
			return ruleError(ErrCorruptHeaderStore, str)
		}

		node := blocknode.New(header, parent, s.engine)
		if node.Height() != height {
			str := fmt.Sprintf("stored header %s is at height %d, expected %d",
				node.GetHash(), height, node.Height())
			return ruleError(ErrCorruptHeaderStore, str)
		}

		s.nodes[node.GetHash()] = node
		if node.WorkSum().Cmp(best.WorkSum()) > 0 {
			best = node
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := s.db.Get(bestStateKey)
	if database.IsNotFound(err) {
		return best, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load best state")
	}
	hash, height, ok := deserializeBestState(data)
	if !ok {
		return nil, ruleError(ErrCorruptHeaderStore, fmt.Sprintf("malformed best state %x", data))
	}

	stored := s.nodes[hash]
	switch {
	case stored == nil || stored.Height() != height:
		log.Warn().Int32("height", height).Stringer("hash", hash).
			Msg("Stored best state does not match a stored header")
	case stored.WorkSum().Cmp(best.WorkSum()) == 0:
		best = stored
	}
	return best, nil
}

// ProcessHeader adds the header to the header tree.  When the new branch has
// more work than the best chain, the index is moved to it.  The returned flag
// reports whether the node became the tip of the best chain.
func (s *ChainState) ProcessHeader(header *wire.BlockHeader) (*blocknode.BlockNode, bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.initialized {
		return nil, false, ruleError(ErrNotInitialized, "chain state is not initialized")
	}

	hash := header.BlockHash()
	if _, ok := s.nodes[hash]; ok {
		return nil, false, ruleError(ErrDuplicateHeader, fmt.Sprintf("already have header %s", hash))
	}

	parent := s.nodes[header.PrevBlock]
	if parent == nil {
		str := fmt.Sprintf("header %s references unknown parent %s", hash, header.PrevBlock)
		return nil, false, ruleError(ErrOrphanHeader, str)
	}

	node := blocknode.New(header, parent, s.engine)
	if _, err := s.engine.CheckedWorkSum(node); err != nil {
		return nil, false, err
	}

	if s.db != nil {
		if err := s.db.Put(headerKey(node), header.Bytes()); err != nil {
			return nil, false, errors.Wrapf(err, "store header %s", hash)
		}
	}
	s.nodes[hash] = node

	tip := s.index.Tip()
	if node.WorkSum().Cmp(tip.WorkSum()) <= 0 {
		log.Debug().Int32("height", node.Height()).Stringer("hash", hash).
			Msg("Header added to a side chain")
		return node, false, nil
	}

	if parent.GetHash() == tip.GetHash() {
		if err := s.index.Add(node); err != nil {
			return nil, false, err
		}
	} else {
		fork := s.index.FindForkWithNode(node)
		log.Info().Int32("fork", fork.Height()).Int32("old_tip", tip.Height()).
			Int32("new_tip", node.Height()).Msg("Reorganizing to a chain with more work")
		if err := s.index.SetTip(node); err != nil {
			return nil, false, err
		}
	}

	if s.db != nil {
		if err := s.db.Put(bestStateKey, serializeBestState(node)); err != nil {
			log.Error().Err(err).Int32("height", node.Height()).Msg("Can't store the best state")
		}
	}

	if interval := s.engine.ScalingInterval(); interval > 0 && node.Height()%interval == 0 {
		s.engine.Prune(node.Height() - 2*interval)
	}

	log.Trace().Int32("height", node.Height()).Stringer("hash", hash).Msg("Best chain extended")
	return node, true, nil
}

// LookupNode returns the node of a known header, nil otherwise.
func (s *ChainState) LookupNode(hash chainhash.Hash) *blocknode.BlockNode {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.nodes[hash]
}

// HeaderCount returns the number of known headers, genesis included.
func (s *ChainState) HeaderCount() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.nodes)
}

// BestChainWork returns the work sum of the best chain tip.
func (s *ChainState) BestChainWork() (*big.Int, error) {
	tip := s.index.Tip()
	if tip == nil {
		return nil, ruleError(ErrNotInitialized, "chain state is not initialized")
	}
	return tip.WorkSum(), nil
}

// BestSnapshot returns information about the current best chain tip.
func (s *ChainState) BestSnapshot() (*BestState, error) {
	tip := s.index.Tip()
	if tip == nil {
		return nil, ruleError(ErrNotInitialized, "chain state is not initialized")
	}

	common, err := s.tips.GetLastCommonTip()
	if err != nil {
		return nil, err
	}

	return &BestState{
		Hash:           tip.GetHash(),
		Height:         tip.Height(),
		Bits:           tip.Bits(),
		IsProofOfStake: tip.IsProofOfStake(),
		WorkSum:        tip.WorkSum(),
		MedianTime:     tip.CalcPastMedianTime(),
		CommonTip:      common.Height(),
	}, nil
}

// Close stops the tips manager after its final write.  The database is left
// open.
func (s *ChainState) Close() error {
	s.mtx.Lock()
	initialized := s.initialized
	s.mtx.Unlock()

	if !initialized {
		return nil
	}
	return s.tips.Stop()
}
