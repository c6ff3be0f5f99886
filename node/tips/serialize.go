// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tips

import (
	"encoding/binary"
	"fmt"

	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

// lastCommonTipKey is the database key of the persisted common tip.
var lastCommonTipKey = []byte("lastcommontip")

// serializedTipLen is the length of a serialized tip:
// hash 32 bytes + height 4 bytes little endian.
const serializedTipLen = chainhash.HashSize + 4

func serializeTip(node *blocknode.BlockNode) []byte {
	buf := make([]byte, serializedTipLen)
	hash := node.GetHash()
	copy(buf, hash[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], uint32(node.Height()))
	return buf
}

func deserializeTip(data []byte) (chainhash.Hash, int32, error) {
	var hash chainhash.Hash
	if len(data) != serializedTipLen {
		str := fmt.Sprintf("stored common tip is %d bytes, expected %d",
			len(data), serializedTipLen)
		return hash, 0, tipError(ErrInvalidTip, str)
	}
	copy(hash[:], data[:chainhash.HashSize])
	height := int32(binary.LittleEndian.Uint32(data[chainhash.HashSize:]))
	return hash, height, nil
}
