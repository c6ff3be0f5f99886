// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2020 The JAX.Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"gitlab.com/jaxnet/chainstate/types/wire"
)

var (
	// mainNetPowLimit is the highest proof of work value a block can have
	// for the main network.  It is the value 2^224 - 1.
	mainNetPowLimit            = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)
	mainNetPowLimitBits uint32 = 0x1d00ffff
)

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:          string(NetMainnet),
	Net:           wire.MainNet,
	GenesisHeader: genesisHeader(1633046400, mainNetPowLimitBits, 0x7c2bac1d),

	PowParams: PowParams{
		PowLimit:           mainNetPowLimit,
		PowLimitBits:       mainNetPowLimitBits,
		TargetTimespan:     time.Hour * 24 * 14, // 14 days
		TargetTimePerBlock: time.Minute * 10,    // 10 minutes
	},

	HybridConsensus: true,
}
