// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// genesisMerkleRoot is the hash of the first transaction in the genesis block
// shared by all networks.
var genesisMerkleRoot = chainhash.DoubleHashH([]byte("JaxNet hybrid chain genesis"))

func genesisHeader(timestamp int64, bits, nonce uint32) wire.BlockHeader {
	return wire.BlockHeader{
		Version:    wire.NewBVersion(1),
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(timestamp, 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}
