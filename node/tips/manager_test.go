// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tips

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/jaxnet/chainstate/database"
	"gitlab.com/jaxnet/chainstate/database/ldb"
	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/node/chaingen"
	"gitlab.com/jaxnet/chainstate/types/chaincfg"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

// flakyStore fails writes while failing is set and counts attempts.
type flakyStore struct {
	database.DB

	mtx      sync.Mutex
	failing  bool
	attempts int
}

func (s *flakyStore) setFailing(failing bool) {
	s.mtx.Lock()
	s.failing = failing
	s.mtx.Unlock()
}

func (s *flakyStore) Put(key, value []byte) error {
	s.mtx.Lock()
	s.attempts++
	failing := s.failing
	s.mtx.Unlock()

	if failing {
		return errors.New("disk full")
	}
	return s.DB.Put(key, value)
}

func newMemStore(t *testing.T) database.DB {
	t.Helper()
	db, err := ldb.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newChain(t *testing.T, blocks int) (*chaingen.BlockGenerator, []*blocknode.BlockNode) {
	t.Helper()
	params := chaincfg.RegTestParams
	gen := chaingen.New(&params, nil)
	return gen, gen.Chain(blocks)
}

func storedTip(t *testing.T, db database.DB) (int32, bool) {
	t.Helper()
	data, err := db.Get(lastCommonTipKey)
	if database.IsNotFound(err) {
		return 0, false
	}
	require.NoError(t, err)
	_, height, err := deserializeTip(data)
	require.NoError(t, err)
	return height, true
}

func TestInitializeEmptyStore(t *testing.T) {
	_, nodes := newChain(t, 10)
	m := New(Config{Store: newMemStore(t)})

	_, err := m.GetLastCommonTip()
	assert.True(t, IsErrorCode(err, ErrNotInitialized))

	require.NoError(t, m.Initialize(nodes[10]))
	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[0], tip)

	err = m.Initialize(nodes[10])
	assert.True(t, IsErrorCode(err, ErrAlreadyInitialized))

	require.NoError(t, m.Stop())
	assert.True(t, IsErrorCode(m.Stop(), ErrStopped))
}

func TestUncommittedProviderHoldsTip(t *testing.T) {
	_, nodes := newChain(t, 20)
	m := New(Config{Store: newMemStore(t)})
	require.NoError(t, m.Initialize(nodes[20]))
	defer m.Stop()

	require.NoError(t, m.RegisterProvider("blockstore"))
	require.NoError(t, m.RegisterProvider("utxo"))

	require.NoError(t, m.CommitTipPersisted("blockstore", nodes[15]))
	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[0], tip)

	require.NoError(t, m.CommitTipPersisted("utxo", nodes[12]))
	tip, _ = m.GetLastCommonTip()
	assert.Equal(t, nodes[12], tip)

	// A late registration blocks further movement until it commits.
	require.NoError(t, m.RegisterProvider("wallet"))
	require.NoError(t, m.CommitTipPersisted("utxo", nodes[14]))
	tip, _ = m.GetLastCommonTip()
	assert.Equal(t, nodes[12], tip)

	assert.Equal(t, []string{"blockstore", "utxo", "wallet"}, m.Providers())
	walletTip, err := m.ProviderTip("wallet")
	require.NoError(t, err)
	assert.Nil(t, walletTip)
}

func TestMinimumCommittedTip(t *testing.T) {
	_, nodes := newChain(t, 110)
	m := New(Config{Store: newMemStore(t)})
	require.NoError(t, m.Initialize(nodes[110]))
	defer m.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.RegisterProvider(id))
	}
	require.NoError(t, m.CommitTipPersisted("a", nodes[100]))
	require.NoError(t, m.CommitTipPersisted("b", nodes[105]))
	require.NoError(t, m.CommitTipPersisted("c", nodes[103]))

	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[100], tip)
}

func TestDivergingTipsUseForkPoint(t *testing.T) {
	gen, nodes := newChain(t, 110)
	side := gen.Extend(nodes[95], 10) // heights 96..105

	m := New(Config{Store: newMemStore(t)})
	require.NoError(t, m.Initialize(nodes[110]))
	defer m.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.RegisterProvider(id))
	}
	require.NoError(t, m.CommitTipPersisted("a", nodes[100]))
	require.NoError(t, m.CommitTipPersisted("b", nodes[105]))
	require.NoError(t, m.CommitTipPersisted("c", nodes[103]))

	// a reorganized onto the side branch at the same height.
	require.NoError(t, m.CommitTipPersisted("a", side[4]))
	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[95], tip)
}

func TestCommitOrderIndependent(t *testing.T) {
	gen, nodes := newChain(t, 60)
	side := gen.Extend(nodes[40], 15)

	commits := map[string]*blocknode.BlockNode{
		"a": nodes[58],
		"b": side[12],
		"c": nodes[50],
	}
	orders := [][]string{
		{"a", "b", "c"}, {"a", "c", "b"}, {"b", "a", "c"},
		{"b", "c", "a"}, {"c", "a", "b"}, {"c", "b", "a"},
	}

	for _, order := range orders {
		m := New(Config{})
		require.NoError(t, m.Initialize(nodes[60]))
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, m.RegisterProvider(id))
		}
		for _, id := range order {
			require.NoError(t, m.CommitTipPersisted(id, commits[id]))
		}
		tip, err := m.GetLastCommonTip()
		require.NoError(t, err)
		assert.Equal(t, nodes[40], tip, "order %v", order)
		require.NoError(t, m.Stop())
	}
}

func TestContractViolations(t *testing.T) {
	_, nodes := newChain(t, 5)
	m := New(Config{})

	require.NoError(t, m.RegisterProvider("a"))
	err := m.CommitTipPersisted("a", nodes[3])
	assert.True(t, IsErrorCode(err, ErrNotInitialized))
	assert.True(t, IsErrorCode(m.Stop(), ErrNotInitialized))

	require.NoError(t, m.Initialize(nodes[5]))

	err = m.CommitTipPersisted("ghost", nodes[3])
	assert.True(t, IsErrorCode(err, ErrUnknownProvider))
	_, err = m.ProviderTip("ghost")
	assert.True(t, IsErrorCode(err, ErrUnknownProvider))

	assert.True(t, IsErrorCode(m.RegisterProvider("a"), ErrDuplicateProvider))
	assert.True(t, IsErrorCode(m.CommitTipPersisted("a", nil), ErrInvalidTip))
	assert.True(t, IsErrorCode(m.Initialize(nil), ErrInvalidTip))

	require.NoError(t, m.Stop())
	assert.True(t, IsErrorCode(m.CommitTipPersisted("a", nodes[4]), ErrStopped))
	assert.True(t, IsErrorCode(m.RegisterProvider("b"), ErrStopped))

	// The tip remains readable after Stop.
	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[0], tip)
}

func TestRestartResolvesStoredTip(t *testing.T) {
	_, nodes := newChain(t, 80)
	store := newMemStore(t)

	m := New(Config{Store: store})
	require.NoError(t, m.Initialize(nodes[50]))
	require.NoError(t, m.RegisterProvider("blockstore"))
	require.NoError(t, m.CommitTipPersisted("blockstore", nodes[50]))
	require.NoError(t, m.Stop())

	height, ok := storedTip(t, store)
	require.True(t, ok)
	assert.Equal(t, int32(50), height)

	restarted := New(Config{Store: store})
	require.NoError(t, restarted.Initialize(nodes[80]))
	defer restarted.Stop()

	tip, err := restarted.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[50], tip)
}

func TestRestartOnOtherChainFallsBackToGenesis(t *testing.T) {
	gen, nodes := newChain(t, 30)
	side := gen.Extend(nodes[10], 30)
	store := newMemStore(t)

	require.NoError(t, store.Put(lastCommonTipKey, serializeTip(nodes[25])))

	m := New(Config{Store: store})
	require.NoError(t, m.Initialize(side[29]))
	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, int32(0), tip.Height())

	// The unresolvable value is replaced on shutdown.
	require.NoError(t, m.Stop())
	height, ok := storedTip(t, store)
	require.True(t, ok)
	assert.Equal(t, int32(0), height)
}

func TestRestartAfterReorgUsesForkPoint(t *testing.T) {
	gen, nodes := newChain(t, 30)
	side := gen.Extend(nodes[10], 30)
	store := newMemStore(t)

	require.NoError(t, store.Put(lastCommonTipKey, serializeTip(nodes[25])))

	known := make(map[chainhash.Hash]*blocknode.BlockNode)
	for _, node := range append(nodes, side...) {
		known[node.GetHash()] = node
	}
	m := New(Config{
		Store:      store,
		LookupNode: func(hash chainhash.Hash) *blocknode.BlockNode { return known[hash] },
	})
	require.NoError(t, m.Initialize(side[29]))
	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, int32(10), tip.Height())
	assert.Equal(t, nodes[10].GetHash(), tip.GetHash())

	require.NoError(t, m.Stop())
	height, ok := storedTip(t, store)
	require.True(t, ok)
	assert.Equal(t, int32(10), height)
}

func TestGetLastCommonTipWithoutLock(t *testing.T) {
	_, nodes := newChain(t, 5)

	m := New(Config{})
	require.NoError(t, m.Initialize(nodes[5]))
	defer m.Stop()
	require.NoError(t, m.RegisterProvider("a"))
	require.NoError(t, m.CommitTipPersisted("a", nodes[4]))

	m.mtx.Lock()
	defer m.mtx.Unlock()

	done := make(chan *blocknode.BlockNode, 1)
	go func() {
		tip, err := m.GetLastCommonTip()
		assert.NoError(t, err)
		done <- tip
	}()

	select {
	case tip := <-done:
		assert.Equal(t, int32(4), tip.Height())
	case <-time.After(2 * time.Second):
		t.Fatal("GetLastCommonTip blocked on the manager lock")
	}
}

func TestCorruptStoredTip(t *testing.T) {
	_, nodes := newChain(t, 3)
	store := newMemStore(t)
	require.NoError(t, store.Put(lastCommonTipKey, []byte{1, 2, 3}))

	m := New(Config{Store: store})
	err := m.Initialize(nodes[3])
	assert.True(t, IsErrorCode(err, ErrInvalidTip))

	_, err = m.GetLastCommonTip()
	assert.True(t, IsErrorCode(err, ErrNotInitialized))
}

func TestBackgroundWriter(t *testing.T) {
	_, nodes := newChain(t, 40)
	store := newMemStore(t)

	m := New(Config{Store: store})
	require.NoError(t, m.Initialize(nodes[40]))
	defer m.Stop()
	require.NoError(t, m.RegisterProvider("a"))

	for i := 1; i <= 30; i++ {
		require.NoError(t, m.CommitTipPersisted("a", nodes[i]))
	}

	// Only the newest value matters, intermediate ones may be skipped.
	require.Eventually(t, func() bool {
		height, ok := storedTip(t, store)
		return ok && height == 30
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPersistFailureKeepsWriterRunning(t *testing.T) {
	_, nodes := newChain(t, 20)
	store := &flakyStore{DB: newMemStore(t), failing: true}

	var mtx sync.Mutex
	var failures []int32
	m := New(Config{
		Store: store,
		OnPersistError: func(tip *blocknode.BlockNode, err error) {
			mtx.Lock()
			failures = append(failures, tip.Height())
			mtx.Unlock()
		},
	})
	require.NoError(t, m.Initialize(nodes[20]))
	require.NoError(t, m.RegisterProvider("a"))

	require.NoError(t, m.CommitTipPersisted("a", nodes[5]))
	require.Eventually(t, func() bool {
		mtx.Lock()
		defer mtx.Unlock()
		return len(failures) > 0
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := storedTip(t, store.DB)
	assert.False(t, ok)

	store.setFailing(false)
	require.NoError(t, m.CommitTipPersisted("a", nodes[9]))
	require.Eventually(t, func() bool {
		height, ok := storedTip(t, store.DB)
		return ok && height == 9
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
}

func TestStopFlushesPendingTip(t *testing.T) {
	_, nodes := newChain(t, 20)
	store := &flakyStore{DB: newMemStore(t), failing: true}

	m := New(Config{Store: store})
	require.NoError(t, m.Initialize(nodes[20]))
	require.NoError(t, m.RegisterProvider("a"))
	require.NoError(t, m.CommitTipPersisted("a", nodes[17]))

	// The write fails until shutdown, which must retry it.
	require.Eventually(t, func() bool {
		store.mtx.Lock()
		defer store.mtx.Unlock()
		return store.attempts > 0
	}, 5*time.Second, 10*time.Millisecond)
	store.setFailing(false)

	require.NoError(t, m.Stop())
	height, ok := storedTip(t, store.DB)
	require.True(t, ok)
	assert.Equal(t, int32(17), height)
}

func TestConcurrentCommits(t *testing.T) {
	_, nodes := newChain(t, 200)
	m := New(Config{Store: newMemStore(t)})
	require.NoError(t, m.Initialize(nodes[200]))

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, m.RegisterProvider(id))
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id string, last int) {
			defer wg.Done()
			for h := 1; h <= last; h++ {
				assert.NoError(t, m.CommitTipPersisted(id, nodes[h]))
				_, err := m.GetLastCommonTip()
				assert.NoError(t, err)
			}
		}(id, 150+i*10)
	}
	wg.Wait()

	tip, err := m.GetLastCommonTip()
	require.NoError(t, err)
	assert.Equal(t, nodes[150], tip)

	require.NoError(t, m.Stop())
	height, ok := storedTip(t, m.cfg.Store)
	require.True(t, ok)
	assert.Equal(t, int32(150), height)
}
