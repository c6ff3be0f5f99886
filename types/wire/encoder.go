// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

var littleEndian = binary.LittleEndian

// Uint32Time represents a unix timestamp encoded with a uint32.  It is used as
// a way to signal the readElement function how to decode a timestamp into a Go
// time.Time since it is otherwise ambiguous.
type Uint32Time time.Time

// ReadElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func ReadElement(r io.Reader, element interface{}) error {
	var scratch [8]byte

	switch e := element.(type) {
	case *uint8:
		if _, err := io.ReadFull(r, scratch[:1]); err != nil {
			return err
		}
		*e = scratch[0]
		return nil

	case *int32:
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return err
		}
		*e = int32(littleEndian.Uint32(scratch[:4]))
		return nil

	case *uint32:
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return err
		}
		*e = littleEndian.Uint32(scratch[:4])
		return nil

	case *uint64:
		if _, err := io.ReadFull(r, scratch[:8]); err != nil {
			return err
		}
		*e = littleEndian.Uint64(scratch[:8])
		return nil

	// Unix timestamp encoded as a uint32.
	case *Uint32Time:
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return err
		}
		*e = Uint32Time(time.Unix(int64(littleEndian.Uint32(scratch[:4])), 0))
		return nil

	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	}

	return fmt.Errorf("wire: unsupported element type %T", element)
}

// ReadElements reads multiple items from r.  It is equivalent to multiple
// calls to ReadElement.
func ReadElements(r io.Reader, elements ...interface{}) error {
	for i, element := range elements {
		err := ReadElement(r, element)
		if err != nil {
			// A clean EOF is only meaningful before the first field.
			if err == io.EOF && i > 0 {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// WriteElement writes the little endian representation of element to w.
func WriteElement(w io.Writer, element interface{}) error {
	var scratch [8]byte

	switch e := element.(type) {
	case uint8:
		scratch[0] = e
		_, err := w.Write(scratch[:1])
		return err

	case int32:
		littleEndian.PutUint32(scratch[:4], uint32(e))
		_, err := w.Write(scratch[:4])
		return err

	case uint32:
		littleEndian.PutUint32(scratch[:4], e)
		_, err := w.Write(scratch[:4])
		return err

	case uint64:
		littleEndian.PutUint64(scratch[:8], e)
		_, err := w.Write(scratch[:8])
		return err

	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	}

	return fmt.Errorf("wire: unsupported element type %T", element)
}

// WriteElements writes multiple items to w.  It is equivalent to multiple
// calls to writeElement.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := WriteElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}
