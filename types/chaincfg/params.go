// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JAX.Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"fmt"
	"math/big"
	"time"

	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// bigOne is 1 represented as a big.Int.  It is defined here to avoid
// the overhead of creating it multiple times.
var bigOne = big.NewInt(1)

// PowParams groups the difficulty parameters of a network.
type PowParams struct {
	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// TargetTimespan is the desired amount of time that should elapse
	// before the block difficulty requirement is examined to determine how
	// it should be changed in order to maintain the desired block
	// generation rate.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration
}

// Params defines a network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses
// and keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.JaxNet

	// GenesisHeader defines the first header of the chain.
	GenesisHeader wire.BlockHeader

	PowParams

	// HybridConsensus enables the PoS/PoW scaled chain work rule.  When it is
	// false the work of every block is simply added to its parent's.
	HybridConsensus bool
}

// GenesisHash returns the hash of the genesis header.
func (p *Params) GenesisHash() *chainhash.Hash {
	hash := p.GenesisHeader.BlockHash()
	return &hash
}

// ScalingInterval returns the number of blocks between two recomputations of
// the PoS/PoW adjustment factor.  It matches the difficulty retarget interval.
func (p *Params) ScalingInterval() int32 {
	if p.TargetTimePerBlock <= 0 {
		return 0
	}
	return int32(p.TargetTimespan / p.TargetTimePerBlock)
}

// NetName is a name of the network, used to look up its Params.
type NetName string

const (
	NetMainnet NetName = "mainnet"
	NetTestnet NetName = "testnet"
	NetRegtest NetName = "regtest"
)

// Params returns a copy of the parameters of the named network.  Unknown
// names resolve to the main network.
func (n NetName) Params() *Params {
	switch n {
	case NetTestnet:
		params := TestNetParams
		return &params
	case NetRegtest:
		params := RegTestParams
		return &params
	default:
		params := MainNetParams
		return &params
	}
}

// ParamsByName returns the parameters of the named network or an error if the
// name is unknown.
func ParamsByName(name string) (*Params, error) {
	switch NetName(name) {
	case NetMainnet, NetTestnet, NetRegtest:
		return NetName(name).Params(), nil
	}
	return nil, fmt.Errorf("unknown network %q", name)
}
