// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

func TestBVersion_ProofOfStake(t *testing.T) {
	tests := []struct {
		name string
		bv   BVersion
		want bool
	}{
		{name: "plain", bv: NewBVersion(1), want: false},
		{name: "set", bv: NewBVersion(1).SetProofOfStake(), want: true},
		{name: "large version", bv: NewBVersion(100500).SetProofOfStake(), want: true},
		{name: "unset", bv: NewBVersion(42).SetProofOfStake().UnsetProofOfStake(), want: false},
		{name: "unset noop", bv: NewBVersion(42).UnsetProofOfStake(), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bv.ProofOfStake())
		})
	}

	assert.Equal(t, int32(100500), NewBVersion(100500).SetProofOfStake().Version())
}

func testHeader(nonce uint32) *BlockHeader {
	prev := chainhash.DoubleHashH([]byte("prev"))
	merkle := chainhash.DoubleHashH([]byte("merkle"))
	header := NewBlockHeader(NewBVersion(1), &prev, &merkle, 0x1d00ffff, nonce)
	header.Timestamp = time.Unix(0x495fab29, 0)
	return header
}

func TestBlockHeaderSerialize(t *testing.T) {
	header := testHeader(0x9962e301)

	var buf bytes.Buffer
	require.NoError(t, header.Serialize(&buf))
	assert.Equal(t, BlockHeaderLen, buf.Len())
	assert.Equal(t, buf.Bytes(), header.Bytes())

	decoded := new(BlockHeader)
	require.NoError(t, decoded.Deserialize(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, header.BlockHash(), decoded.BlockHash())
	assert.Equal(t, header.Bits, decoded.Bits)
	assert.True(t, header.Timestamp.Equal(decoded.Timestamp))
}

func TestBlockHashCoversStakeMarker(t *testing.T) {
	pow := testHeader(1)
	pos := pow.Copy()
	pos.Version = pos.Version.SetProofOfStake()

	assert.True(t, pos.IsProofOfStake())
	assert.False(t, pow.IsProofOfStake())
	assert.NotEqual(t, pow.BlockHash(), pos.BlockHash())
}

func TestReadWriteHeaders(t *testing.T) {
	headers := []*BlockHeader{testHeader(1), testHeader(2), testHeader(3)}

	var buf bytes.Buffer
	require.NoError(t, WriteHeaders(&buf, headers))

	decoded, err := ReadHeaders(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, decoded, len(headers))
	for i := range headers {
		assert.Equal(t, headers[i].BlockHash(), decoded[i].BlockHash())
	}

	// A truncated trailing header is reported.
	truncated := buf.Bytes()[:buf.Len()-10]
	decoded, err = ReadHeaders(bytes.NewReader(truncated))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Len(t, decoded, 2)
}

func TestBlockLocatorHashes(t *testing.T) {
	a := chainhash.DoubleHashH([]byte("a"))
	b := chainhash.DoubleHashH([]byte("b"))

	locator := BlockLocator{&a, nil, &b}
	assert.Equal(t, []chainhash.Hash{a, b}, locator.Hashes())
}
