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
	// testNetPowLimit is the highest proof of work value a block can have
	// for the test network.  It is the value 2^232 - 1.
	testNetPowLimit            = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)
	testNetPowLimitBits uint32 = 0x1e00ffff

	// regTestPowLimit is the highest proof of work value a block can have
	// for the regression test network.  It is the value 2^255 - 1.
	regTestPowLimit            = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
	regTestPowLimitBits uint32 = 0x207fffff
)

// TestNetParams defines the network parameters for the test network.
var TestNetParams = Params{
	Name:          string(NetTestnet),
	Net:           wire.TestNet,
	GenesisHeader: genesisHeader(1633046400, testNetPowLimitBits, 0x18aea41a),

	PowParams: PowParams{
		PowLimit:           testNetPowLimit,
		PowLimitBits:       testNetPowLimitBits,
		TargetTimespan:     time.Hour * 24 * 14, // 14 days
		TargetTimePerBlock: time.Minute * 10,    // 10 minutes
	},

	HybridConsensus: true,
}

// RegTestParams defines the network parameters for the regression test
// network.  The scaling interval is a day of blocks so short chains exercise
// the hybrid rule.
var RegTestParams = Params{
	Name:          string(NetRegtest),
	Net:           wire.RegTest,
	GenesisHeader: genesisHeader(1633046400, regTestPowLimitBits, 2),

	PowParams: PowParams{
		PowLimit:           regTestPowLimit,
		PowLimitBits:       regTestPowLimitBits,
		TargetTimespan:     time.Hour * 24,   // 1 day
		TargetTimePerBlock: time.Minute * 10, // 10 minutes
	},

	HybridConsensus: true,
}
