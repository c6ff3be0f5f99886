// Copyright (c) 2021 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tips

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"gitlab.com/jaxnet/chainstate/database"
	"gitlab.com/jaxnet/chainstate/node/blocknode"
	"gitlab.com/jaxnet/chainstate/types/chainhash"
)

// Config holds the dependencies of a Manager.
type Config struct {
	// Store receives the common tip.  A nil store keeps the tip in memory
	// only.
	Store database.DB

	// OnPersistError is called from the writer goroutine when the common
	// tip cannot be stored.  The writer keeps running and retries on the
	// next change.
	OnPersistError func(tip *blocknode.BlockNode, err error)

	// LookupNode returns a known node by hash, including nodes off the best
	// chain.  It lets Initialize place a stored tip that was reorganized
	// away at its fork with the best chain.  It is called with no manager
	// lock held, during Initialize only.
	LookupNode func(hash chainhash.Hash) *blocknode.BlockNode
}

// Manager tracks how far each registered provider has durably persisted the
// chain and derives the common tip: the highest node every provider has
// committed.  The common tip is stored by a background writer, so after a
// crash each provider can recover from at least that node.
//
// Manager is safe for concurrent access.
type Manager struct {
	cfg Config

	mtx         sync.Mutex
	providers   map[string]*blocknode.BlockNode
	order       []string
	initialized bool
	stopped     bool

	// dirty is a level triggered wake-up for the writer, it never holds
	// more than one pending signal.
	dirty  chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// commonTip holds the *blocknode.BlockNode readers see.  It is written
	// with mtx held and read without it.
	commonTip atomic.Value

	// persisted is only accessed by the writer goroutine.
	persisted *blocknode.BlockNode
}

// New returns a manager that is not yet initialized.  Providers may register
// before Initialize.
func New(cfg Config) *Manager {
	return &Manager{
		cfg:       cfg,
		providers: make(map[string]*blocknode.BlockNode),
		dirty:     make(chan struct{}, 1),
	}
}

// Initialize loads the stored common tip and resolves it on the chain ending
// at highest.  A stored tip that is no longer on that chain resolves to its
// fork with it when LookupNode knows the node.  Without a stored tip, or when
// it cannot be placed, the common tip starts at genesis.  It then starts the
// background writer.  Initialize may only be called once.
func (m *Manager) Initialize(highest *blocknode.BlockNode) error {
	if highest == nil {
		return tipError(ErrInvalidTip, "cannot initialize the tips manager without a chain")
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.initialized {
		return tipError(ErrAlreadyInitialized, "tips manager is already initialized")
	}

	tip, loaded, err := m.readStoredTip(highest)
	if err != nil {
		return err
	}

	m.commonTip.Store(tip)
	if loaded {
		m.persisted = tip
	}
	m.initialized = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.persistHandler(ctx)

	log.Info().Int32("height", tip.Height()).Stringer("hash", tip.GetHash()).
		Msg("Tips manager initialized")
	return nil
}

// readStoredTip reads the stored tip and returns the matching node on the
// chain of highest, its fork with that chain, or genesis.  loaded reports
// whether the stored value was used unchanged.
func (m *Manager) readStoredTip(highest *blocknode.BlockNode) (*blocknode.BlockNode, bool, error) {
	genesis := highest.Ancestor(0)
	if m.cfg.Store == nil {
		return genesis, false, nil
	}

	data, err := m.cfg.Store.Get(lastCommonTipKey)
	if database.IsNotFound(err) {
		log.Info().Msg("No common tip stored, starting from genesis")
		return genesis, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "load common tip")
	}

	hash, height, err := deserializeTip(data)
	if err != nil {
		return nil, false, err
	}

	if node := highest.FindAncestorOrSelf(hash, height); node != nil {
		return node, true, nil
	}

	var stale *blocknode.BlockNode
	if m.cfg.LookupNode != nil {
		stale = m.cfg.LookupNode(hash)
	}
	if stale != nil && stale.Height() == height {
		if fork := blocknode.FindFork(stale, highest); fork != nil {
			log.Warn().Int32("height", height).Stringer("hash", hash).
				Int32("fork", fork.Height()).
				Msg("Stored common tip was reorganized away, using its fork with the best chain")
			return fork, false, nil
		}
	}

	log.Warn().Int32("height", height).Stringer("hash", hash).
		Int32("highest", highest.Height()).
		Msg("Stored common tip is not on the known chain, falling back to genesis")
	return genesis, false, nil
}

// RegisterProvider adds a provider without a committed tip.  While any
// provider has not committed, the common tip does not move.
func (m *Manager) RegisterProvider(id string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.stopped {
		return tipError(ErrStopped, "tips manager is stopped")
	}
	if _, ok := m.providers[id]; ok {
		str := fmt.Sprintf("provider %q is already registered", id)
		return tipError(ErrDuplicateProvider, str)
	}

	m.providers[id] = nil
	m.order = append(m.order, id)
	log.Debug().Str("provider", id).Msg("Provider registered")
	return nil
}

// Providers returns the registered provider ids in registration order.
func (m *Manager) Providers() []string {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// ProviderTip returns the last tip committed by the provider, nil if it has
// not committed yet.
func (m *Manager) ProviderTip(id string) (*blocknode.BlockNode, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	tip, ok := m.providers[id]
	if !ok {
		str := fmt.Sprintf("provider %q is not registered", id)
		return nil, tipError(ErrUnknownProvider, str)
	}
	return tip, nil
}

// CommitTipPersisted records that the provider has durably stored everything
// up to node, then recomputes the common tip.
func (m *Manager) CommitTipPersisted(id string, node *blocknode.BlockNode) error {
	if node == nil {
		return tipError(ErrInvalidTip, "cannot commit a nil tip")
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.initialized {
		return tipError(ErrNotInitialized, "tips manager is not initialized")
	}
	if m.stopped {
		return tipError(ErrStopped, "tips manager is stopped")
	}
	if _, ok := m.providers[id]; !ok {
		str := fmt.Sprintf("provider %q is not registered", id)
		return tipError(ErrUnknownProvider, str)
	}

	m.providers[id] = node
	log.Trace().Str("provider", id).Int32("height", node.Height()).Msg("Provider tip committed")

	m.updateCommonTip()
	return nil
}

// updateCommonTip derives the common tip from the committed provider tips.
//
// This function MUST be called with the manager lock held.
func (m *Manager) updateCommonTip() {
	var candidate *blocknode.BlockNode
	for _, tip := range m.providers {
		if tip == nil {
			return
		}
		if candidate == nil || tip.Height() < candidate.Height() {
			candidate = tip
		}
	}
	current := m.lastCommonTip()
	if candidate == nil || candidate.GetHash() == current.GetHash() {
		return
	}

	// All providers must be on the chain of the candidate, otherwise the
	// deepest node they share is used.
	for _, tip := range m.providers {
		ancestor := tip.Ancestor(candidate.Height())
		if ancestor != nil && ancestor.GetHash() == candidate.GetHash() {
			continue
		}

		fork := candidate
		for _, other := range m.providers {
			fork = blocknode.FindFork(fork, other)
		}
		if fork == nil {
			log.Error().Msg("Provider tips do not share a genesis block, common tip unchanged")
			return
		}
		log.Debug().Int32("candidate", candidate.Height()).Int32("fork", fork.Height()).
			Msg("Provider tips diverge, using their fork point")
		candidate = fork
		break
	}

	if candidate.GetHash() == current.GetHash() {
		return
	}

	m.commonTip.Store(candidate)
	log.Debug().Int32("height", candidate.Height()).Stringer("hash", candidate.GetHash()).
		Msg("Common tip updated")

	select {
	case m.dirty <- struct{}{}:
	default:
	}
}

// lastCommonTip returns the published common tip, nil before Initialize.
func (m *Manager) lastCommonTip() *blocknode.BlockNode {
	tip, _ := m.commonTip.Load().(*blocknode.BlockNode)
	return tip
}

// GetLastCommonTip returns the current common tip.  It does not wait for
// commits in progress.
func (m *Manager) GetLastCommonTip() (*blocknode.BlockNode, error) {
	tip := m.lastCommonTip()
	if tip == nil {
		return nil, tipError(ErrNotInitialized, "tips manager is not initialized")
	}
	return tip, nil
}

// Stop cancels the background writer and waits until its last write,
// including a final write of a pending common tip, has finished.
func (m *Manager) Stop() error {
	m.mtx.Lock()
	if !m.initialized {
		m.mtx.Unlock()
		return tipError(ErrNotInitialized, "tips manager is not initialized")
	}
	if m.stopped {
		m.mtx.Unlock()
		return tipError(ErrStopped, "tips manager is already stopped")
	}
	m.stopped = true
	m.mtx.Unlock()

	m.cancel()
	m.wg.Wait()

	log.Info().Msg("Tips manager stopped")
	return nil
}

// persistHandler stores the newest common tip whenever it changes.  It must
// be run as a goroutine.
func (m *Manager) persistHandler(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-m.dirty:
			m.persist()

		case <-ctx.Done():
			m.persist()
			return
		}
	}
}

// persist writes the current common tip unless it is already stored.
func (m *Manager) persist() {
	tip := m.lastCommonTip()
	if m.cfg.Store == nil || tip == nil {
		return
	}
	if m.persisted != nil && m.persisted.GetHash() == tip.GetHash() {
		return
	}

	if err := m.cfg.Store.Put(lastCommonTipKey, serializeTip(tip)); err != nil {
		log.Error().Err(err).Int32("height", tip.Height()).Msg("Can't store the common tip")
		if m.cfg.OnPersistError != nil {
			m.cfg.OnPersistError(tip, err)
		}
		return
	}

	m.persisted = tip
	log.Trace().Int32("height", tip.Height()).Msg("Common tip stored")
}
