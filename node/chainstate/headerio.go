// Copyright (c) 2015-2017 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"bytes"
	"encoding/binary"

	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
	"gitlab.com/jaxnet/chainstate/types/wire"
)

// headerKeyPrefix starts the key of every stored header.  The key continues
// with the big endian height and the block hash so a prefix scan yields
// parents before their children:
//
//	"hdr" | height 4 bytes | hash 32 bytes
var headerKeyPrefix = []byte("hdr")

const headerKeyLen = 3 + 4 + chainhash.HashSize

func headerKey(node *blocknode.BlockNode) []byte {
	key := make([]byte, headerKeyLen)
	copy(key, headerKeyPrefix)
	binary.BigEndian.PutUint32(key[3:7], uint32(node.Height()))
	hash := node.GetHash()
	copy(key[7:], hash[:])
	return key
}

func decodeHeaderKey(key []byte) (int32, bool) {
	if len(key) != headerKeyLen {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(key[3:7])), true
}

func deserializeHeader(value []byte) (*wire.BlockHeader, error) {
	header := new(wire.BlockHeader)
	if err := header.Deserialize(bytes.NewReader(value)); err != nil {
		return nil, err
	}
	return header, nil
}

// bestStateKey holds the tip of the best chain, used to break ties between
// branches with equal work on reload:
//
//	hash 32 bytes | height 4 bytes little endian
var bestStateKey = []byte("beststate")

const bestStateLen = chainhash.HashSize + 4

func serializeBestState(node *blocknode.BlockNode) []byte {
	data := make([]byte, bestStateLen)
	hash := node.GetHash()
	copy(data, hash[:])
	binary.LittleEndian.PutUint32(data[chainhash.HashSize:], uint32(node.Height()))
	return data
}

func deserializeBestState(data []byte) (chainhash.Hash, int32, bool) {
	var hash chainhash.Hash
	if len(data) != bestStateLen {
		return hash, 0, false
	}
	copy(hash[:], data[:chainhash.HashSize])
	return hash, int32(binary.LittleEndian.Uint32(data[chainhash.HashSize:])), true
}
