// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

const (
	// BlockHeaderLen is the number of bytes of a serialized header:
	// Version 4 bytes + PrevBlock 32 bytes + MerkleRoot 32 bytes +
	// Timestamp 4 bytes + Bits 4 bytes + Nonce 4 bytes.
	BlockHeaderLen = 80

	flagsReserve = 4

	// ProofOfStake marks a header whose block carries a coinstake
	// transaction instead of a proof of work solution.
	ProofOfStake BVersion = 1
)

// BVersion is a block version with the low flagsReserve bits used for
// header flags.
type BVersion int32

func NewBVersion(version int32) BVersion {
	return BVersion(version << flagsReserve)
}

func (bv BVersion) Version() int32 {
	return int32(bv) >> flagsReserve
}

func (bv BVersion) ProofOfStake() bool {
	return bv&ProofOfStake == ProofOfStake
}

func (bv BVersion) SetProofOfStake() BVersion {
	return bv | ProofOfStake
}

func (bv BVersion) UnsetProofOfStake() BVersion {
	if bv&ProofOfStake == ProofOfStake {
		return bv ^ ProofOfStake
	}
	return bv
}

// BlockHeader defines information about a block and is used in the bitcoin
// block (MsgBlock) and headers (MsgHeaders) messages.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol version.
	// The low bits carry header flags, see BVersion.
	Version BVersion

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.  This is, unfortunately, encoded as a
	// uint32 on the wire and therefore is limited to 2106.
	Timestamp time.Time

	// Difficulty target for the block.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// NewBlockHeader returns a new BlockHeader using the provided version, previous
// block hash, merkle root hash, difficulty bits, and nonce used to generate the
// block with defaults for the remaining fields.
func NewBlockHeader(version BVersion, prevHash, merkleRootHash *chainhash.Hash,
	bits uint32, nonce uint32) *BlockHeader {

	// Limit the timestamp to one second precision since the protocol
	// doesn't support better.
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

// IsProofOfStake reports whether the header carries the stake marker.
func (h *BlockHeader) IsProofOfStake() bool {
	return h.Version.ProofOfStake()
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	// Encode the header and double sha256 everything prior to the number of
	// transactions.  Ignore the error returns since there is no way the
	// encode could fail except being out of memory which would cause a
	// run-time panic.
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	_ = h.Serialize(buf)

	return chainhash.DoubleHashH(buf.Bytes())
}

// Copy creates a deep copy of a BlockHeader so that the original does not get
// modified when the copy is manipulated.
func (h *BlockHeader) Copy() *BlockHeader {
	clone := *h
	return &clone
}

// Deserialize decodes a block header from r into the receiver using a format
// that is suitable for long-term storage such as a database.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// Serialize encodes a block header from r into the receiver using a format
// that is suitable for long-term storage such as a database.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// Bytes returns the serialized header.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// readBlockHeader reads a block header from r.
func readBlockHeader(r io.Reader, bh *BlockHeader) error {
	return ReadElements(r, (*int32)(&bh.Version), &bh.PrevBlock, &bh.MerkleRoot,
		(*Uint32Time)(&bh.Timestamp), &bh.Bits, &bh.Nonce)
}

// writeBlockHeader writes a block header to w.
func writeBlockHeader(w io.Writer, bh *BlockHeader) error {
	sec := uint32(bh.Timestamp.Unix())
	return WriteElements(w, int32(bh.Version), &bh.PrevBlock, &bh.MerkleRoot,
		sec, bh.Bits, bh.Nonce)
}

// ReadHeaders decodes consecutive serialized headers until r is exhausted.
// A trailing partial header is reported as io.ErrUnexpectedEOF.
func ReadHeaders(r io.Reader) ([]*BlockHeader, error) {
	var headers []*BlockHeader
	for {
		header := new(BlockHeader)
		err := header.Deserialize(r)
		if err == io.EOF {
			return headers, nil
		}
		if err != nil {
			return headers, err
		}
		headers = append(headers, header)
	}
}

// WriteHeaders serializes the headers back to back.
func WriteHeaders(w io.Writer, headers []*BlockHeader) error {
	for _, header := range headers {
		if err := header.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}
