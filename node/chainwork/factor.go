// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainwork

import (
	"fmt"
	"math/big"
)

var bigOne = big.NewInt(1)

// AdjustmentFactor is the ratio of the average PoS target to the average PoW
// target over one scaling interval.  It is kept as an exact integer pair; the
// consensus path never converts it to floating point.
type AdjustmentFactor struct {
	PosAvg *big.Int
	PowAvg *big.Int
}

// IdentityFactor returns the factor that leaves PoS proof unscaled.
func IdentityFactor() AdjustmentFactor {
	return AdjustmentFactor{PosAvg: big.NewInt(1), PowAvg: big.NewInt(1)}
}

// IsIdentity reports whether the factor does not scale.
func (f AdjustmentFactor) IsIdentity() bool {
	return f.PosAvg.Cmp(f.PowAvg) == 0
}

// Deflate divides proof by the factor, that is proof * PowAvg / PosAvg with
// truncation.  The result is never below 1 so every block adds work.  proof is
// not modified.
func (f AdjustmentFactor) Deflate(proof *big.Int) *big.Int {
	if f.PosAvg.Sign() <= 0 {
		return new(big.Int).Set(proof)
	}
	work := new(big.Int).Mul(proof, f.PowAvg)
	work.Quo(work, f.PosAvg)
	if work.Cmp(bigOne) < 0 {
		work.Set(bigOne)
	}
	return work
}

// Float64 returns an approximation of the factor for reporting.  It must not
// be used in chain selection.
func (f AdjustmentFactor) Float64() float64 {
	if f.PowAvg.Sign() == 0 {
		return 0
	}
	v, _ := new(big.Rat).SetFrac(f.PosAvg, f.PowAvg).Float64()
	return v
}

func (f AdjustmentFactor) String() string {
	if f.IsIdentity() {
		return "1"
	}
	return fmt.Sprintf("%s/%s (~%.6g)", f.PosAvg, f.PowAvg, f.Float64())
}
