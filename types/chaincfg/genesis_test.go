// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/types/wire"
)

func TestGenesisHeader(t *testing.T) {
	seen := make(map[string]string)
	for _, net := range []Params{MainNetParams, TestNetParams, RegTestParams} {
		header := net.GenesisHeader
		bh := header.BlockHash()
		require.True(t, bh.IsEqual(net.GenesisHash()), net.Name)

		buf := bytes.NewBuffer(nil)
		require.NoError(t, header.Serialize(buf))

		decoded := new(wire.BlockHeader)
		require.NoError(t, decoded.Deserialize(buf))
		assert.Equal(t, bh, decoded.BlockHash(), net.Name)
		assert.False(t, decoded.IsProofOfStake(), net.Name)

		other, ok := seen[bh.String()]
		assert.False(t, ok, "%s shares genesis with %s", net.Name, other)
		seen[bh.String()] = net.Name
	}
}

func TestScalingInterval(t *testing.T) {
	assert.Equal(t, int32(2016), MainNetParams.ScalingInterval())
	assert.Equal(t, int32(2016), TestNetParams.ScalingInterval())
	assert.Equal(t, int32(144), RegTestParams.ScalingInterval())

	var empty Params
	assert.Equal(t, int32(0), empty.ScalingInterval())
}

func TestParamsByName(t *testing.T) {
	params, err := ParamsByName("regtest")
	require.NoError(t, err)
	assert.Equal(t, RegTestParams.Name, params.Name)

	// Params hands out copies.
	params.HybridConsensus = false
	assert.True(t, RegTestParams.HybridConsensus)

	_, err = ParamsByName("fastnet")
	assert.Error(t, err)

	assert.Equal(t, MainNetParams.Name, NetName("unknown").Params().Name)
}
