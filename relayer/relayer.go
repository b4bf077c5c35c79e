// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package relayer implements the maintainer of the spent-key tree. A relayer
// scans the source ledger for spent key images, inserts them into its local
// tree and submits the resulting roots, together with insertion proofs, to the
// registry. Recent versions of the tree are retained so that non-membership
// proofs can be served against any root the registry may still accept.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/common/future"
	"github.com/0xsoniclabs/spentset/common/result"
	"github.com/0xsoniclabs/spentset/registry"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/0xsoniclabs/spentset/verkle/trie"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrUnexpectedBlock = errors.New("unexpected block height")
	ErrUnknownRoot     = errors.New("unknown root")
	ErrAlreadyRunning  = errors.New("relayer is already running")
	ErrInvalidConfig   = errors.New("invalid relayer configuration")
)

// Config provides the configuration of a relayer.
type Config struct {
	GenesisHeight     uint64        `yaml:"genesis_height"`      // < last height covered by the initial tree
	MaxBlocksPerSync  int           `yaml:"max_blocks_per_sync"` // < upper limit of blocks folded into a single update
	RetainedSnapshots int           `yaml:"retained_snapshots"`  // < number of recent roots proofs can be served for
	SyncInterval      time.Duration `yaml:"sync_interval"`       // < pause between syncs of the background worker
	ProofWorkers      int           `yaml:"proof_workers"`       // < number of background goroutines serving proof requests
}

// DefaultConfig is the relayer configuration used if not specified otherwise.
var DefaultConfig = Config{
	MaxBlocksPerSync:  64,
	RetainedSnapshots: 16,
	SyncInterval:      time.Second,
	ProofWorkers:      4,
}

func (c Config) Validate() error {
	if c.MaxBlocksPerSync <= 0 {
		return fmt.Errorf("%w: max blocks per sync must be positive, got %d", ErrInvalidConfig, c.MaxBlocksPerSync)
	}
	if c.RetainedSnapshots <= 0 {
		return fmt.Errorf("%w: number of retained snapshots must be positive, got %d", ErrInvalidConfig, c.RetainedSnapshots)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive, got %v", ErrInvalidConfig, c.SyncInterval)
	}
	if c.ProofWorkers <= 0 {
		return fmt.Errorf("%w: number of proof workers must be positive, got %d", ErrInvalidConfig, c.ProofWorkers)
	}
	return nil
}

// SyncResult summarizes a successful sync.
type SyncResult struct {
	Blocks int // < number of synced blocks, zero if there was nothing to sync
	Range  registry.BlockRange
	Keys   int
	Root   commit.Commitment
}

// Relayer maintains a spent-key tree following the source ledger.
type Relayer struct {
	config    Config
	trie      *trie.Trie
	scanner   Scanner
	submitter Submitter
	keyLog    KeyLog // < optional
	log       log.Logger

	syncMutex sync.Mutex // < serialises syncs
	height    uint64     // < last height covered by the tree
	pending   []Block    // < scanned blocks not yet accepted by the registry
	unlogged  []Block    // < accepted blocks not yet written to the key log

	versionsMutex sync.RWMutex
	versions      []version // < retained versions, oldest first

	workerMutex sync.RWMutex
	requests    chan<- proofRequest // < nil if no background worker is running
	cancel      context.CancelFunc
	done        <-chan struct{}
	issues      issueCollector
}

// version is a retained snapshot of the tree and the last height it covers.
type version struct {
	snapshot *trie.Snapshot
	height   uint64
}

type proofRequest struct {
	root    commit.Commitment
	key     common.Key
	promise future.Promise[result.Result[*proof.NonMembershipProof]]
}

// New creates a relayer maintaining the given tree, which must reflect the
// source ledger up to the configured genesis height. The key log is optional.
func New(config Config, tree *trie.Trie, scanner Scanner, submitter Submitter, keyLog KeyLog) (*Relayer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Relayer{
		config:    config,
		trie:      tree,
		scanner:   scanner,
		submitter: submitter,
		keyLog:    keyLog,
		log:       log.New("module", "relayer"),
		height:    config.GenesisHeight,
		versions:  []version{{snapshot: tree.Snapshot(), height: config.GenesisHeight}},
	}, nil
}

// Height returns the last source ledger height covered by the tree.
func (r *Relayer) Height() uint64 {
	r.syncMutex.Lock()
	defer r.syncMutex.Unlock()
	return r.height
}

// Root returns the root of the latest version of the tree.
func (r *Relayer) Root() commit.Commitment {
	return r.trie.Root()
}

// Len returns the number of key images in the latest version of the tree.
func (r *Relayer) Len() int {
	return r.trie.Len()
}

// Restore replays the key log into the tree. It must be called before the
// first sync and requires the log to continue the genesis height without gaps.
func (r *Relayer) Restore() error {
	if r.keyLog == nil {
		return nil
	}
	r.syncMutex.Lock()
	defer r.syncMutex.Unlock()

	const batchSize = 1 << 12
	var entries []trie.Entry
	flush := func() error {
		if len(entries) == 0 {
			return nil
		}
		_, err := r.trie.InsertBatch(entries)
		entries = entries[:0]
		return err
	}

	blocks := 0
	err := r.keyLog.Replay(func(height uint64, keys []common.Key) error {
		if height != r.height+1 {
			return fmt.Errorf("%w: key log contains height %d, expected %d", ErrUnexpectedBlock, height, r.height+1)
		}
		for _, key := range keys {
			entries = append(entries, trie.Entry{Key: key, Value: common.HeightValue(height)})
		}
		if len(entries) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		r.height = height
		blocks++
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return fmt.Errorf("failed to restore tree from key log: %w", err)
	}
	r.retain(r.trie.Snapshot(), r.height)
	r.log.Info("Restored tree", "blocks", blocks, "keys", r.trie.Len(), "height", r.height, "root", r.trie.Root())
	return nil
}

// Sync scans up to the configured number of new blocks, folds them into a
// single update of the tree and submits it to the registry. If the registry
// rejects the update, the tree is rolled back and the scanned blocks are
// retried by the next sync.
func (r *Relayer) Sync(ctx context.Context) (SyncResult, error) {
	r.syncMutex.Lock()
	defer r.syncMutex.Unlock()

	if len(r.unlogged) > 0 {
		r.catchUpKeyLog()
	}

	for len(r.pending) < r.config.MaxBlocksPerSync {
		block, err := r.scanner.Next(ctx)
		if errors.Is(err, ErrNoNewBlock) {
			break
		}
		if err != nil {
			return SyncResult{}, fmt.Errorf("failed to scan block: %w", err)
		}
		expected := r.height + uint64(len(r.pending)) + 1
		if block.Height != expected {
			return SyncResult{}, fmt.Errorf("%w: got %d, expected %d", ErrUnexpectedBlock, block.Height, expected)
		}
		r.pending = append(r.pending, block)
	}
	if len(r.pending) == 0 {
		return SyncResult{}, nil
	}

	before := r.trie.Snapshot()
	entries, keys := r.collectNewKeys(before)
	after, err := r.trie.InsertBatch(entries)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to insert key images: %w", err)
	}

	rng := registry.BlockRange{
		Start: r.pending[0].Height,
		End:   r.pending[len(r.pending)-1].Height,
	}
	insertion, err := registry.ProveInsertion(ctx, before, after, keys)
	if err != nil {
		return SyncResult{}, errors.Join(fmt.Errorf("failed to prove insertion: %w", err), r.trie.Reset(before))
	}
	update := registry.Update{
		NewRoot: after.Root(),
		Range:   rng,
		NewKeys: keys,
		Proof:   insertion,
	}
	if err := r.submitter.SubmitUpdate(ctx, update); err != nil {
		r.log.Warn("Update rejected", "range", rng, "keys", len(keys), "err", err)
		return SyncResult{}, errors.Join(fmt.Errorf("failed to submit update for %v: %w", rng, err), r.trie.Reset(before))
	}

	// The registry accepted the update, so the tree has to follow it even if
	// logging fails. Blocks missing in the log are retried by the next sync.
	r.retain(after, rng.End)
	r.height = rng.End
	blocks := len(r.pending)
	r.unlogged = append(r.unlogged, r.pending...)
	r.pending = nil
	if err := r.appendToKeyLog(); err != nil {
		r.log.Error("Failed to log accepted blocks", "unlogged", len(r.unlogged), "err", err)
		r.issues.HandleIssue(err)
	}

	r.log.Info("Submitted update", "range", rng, "keys", len(keys), "root", after.Root())
	return SyncResult{
		Blocks: blocks,
		Range:  rng,
		Keys:   len(keys),
		Root:   after.Root(),
	}, nil
}

// appendToKeyLog writes all accepted blocks not yet logged to the key log.
func (r *Relayer) appendToKeyLog() error {
	if r.keyLog == nil {
		r.unlogged = nil
		return nil
	}
	for len(r.unlogged) > 0 {
		block := r.unlogged[0]
		if err := r.keyLog.Append(block.Height, block.KeyImages); err != nil {
			return fmt.Errorf("failed to log block %d: %w", block.Height, err)
		}
		r.unlogged = r.unlogged[1:]
	}
	r.unlogged = nil
	return nil
}

// catchUpKeyLog retries logging blocks a previous sync failed to log. Blocks
// the log already holds are skipped.
func (r *Relayer) catchUpKeyLog() {
	last, found, err := r.keyLog.LastHeight()
	if err == nil && found {
		pos := 0
		for pos < len(r.unlogged) && r.unlogged[pos].Height <= last {
			pos++
		}
		r.unlogged = r.unlogged[pos:]
	}
	if err == nil {
		err = r.appendToKeyLog()
	}
	if err != nil {
		r.log.Warn("Key log is still behind", "unlogged", len(r.unlogged), "err", err)
		r.issues.HandleIssue(err)
	}
}

// Unlogged returns the number of accepted blocks missing in the key log.
func (r *Relayer) Unlogged() int {
	r.syncMutex.Lock()
	defer r.syncMutex.Unlock()
	return len(r.unlogged)
}

// collectNewKeys lists the key images of all pending blocks not yet present
// in the given version of the tree. Keys spent more than once keep the height
// of their first occurrence.
func (r *Relayer) collectNewKeys(before *trie.Snapshot) ([]trie.Entry, []common.Key) {
	seen := map[common.Key]struct{}{}
	var entries []trie.Entry
	var keys []common.Key
	for _, block := range r.pending {
		for _, key := range block.KeyImages {
			if _, found := seen[key]; found {
				continue
			}
			seen[key] = struct{}{}
			if _, found := before.Get(key); found {
				r.log.Warn("Key image spent again", "key", key, "height", block.Height)
				continue
			}
			entries = append(entries, trie.Entry{Key: key, Value: common.HeightValue(block.Height)})
			keys = append(keys, key)
		}
	}
	return entries, keys
}

func (r *Relayer) retain(snapshot *trie.Snapshot, height uint64) {
	r.versionsMutex.Lock()
	defer r.versionsMutex.Unlock()
	if last := r.versions[len(r.versions)-1]; last.snapshot == snapshot {
		r.versions[len(r.versions)-1].height = height
		return
	}
	r.versions = append(r.versions, version{snapshot: snapshot, height: height})
	if excess := len(r.versions) - r.config.RetainedSnapshots; excess > 0 {
		r.versions = append(r.versions[:0], r.versions[excess:]...)
	}
}

// Revert rolls the tree back to the retained version with the given root,
// following a successful challenge of a later update at the registry. All
// younger versions and pending blocks are discarded. The returned height is
// the last height covered by the reverted tree, the source ledger has to be
// scanned again from the next height on.
func (r *Relayer) Revert(root commit.Commitment) (uint64, error) {
	r.syncMutex.Lock()
	defer r.syncMutex.Unlock()
	r.versionsMutex.Lock()
	defer r.versionsMutex.Unlock()

	for i := len(r.versions) - 1; i >= 0; i-- {
		target := r.versions[i]
		if !target.snapshot.Root().Equal(root) {
			continue
		}
		if r.keyLog != nil {
			if err := r.keyLog.Truncate(target.height); err != nil {
				return 0, fmt.Errorf("failed to truncate key log: %w", err)
			}
		}
		if err := r.trie.Reset(target.snapshot); err != nil {
			return 0, err
		}
		r.versions = r.versions[:i+1]
		r.height = target.height
		r.pending = nil
		r.unlogged = slices.DeleteFunc(r.unlogged, func(b Block) bool {
			return b.Height > target.height
		})
		r.log.Warn("Reverted tree", "root", root, "height", target.height)
		return target.height, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownRoot, root)
}

// Roots lists the roots proofs can be served for, oldest first.
func (r *Relayer) Roots() []commit.Commitment {
	r.versionsMutex.RLock()
	defer r.versionsMutex.RUnlock()
	res := make([]commit.Commitment, 0, len(r.versions))
	for _, v := range r.versions {
		res = append(res, v.snapshot.Root())
	}
	return res
}

// ProveAbsence creates a proof for the given key against the latest root
// accepted by the registry.
func (r *Relayer) ProveAbsence(key common.Key) (*proof.NonMembershipProof, error) {
	r.versionsMutex.RLock()
	snapshot := r.versions[len(r.versions)-1].snapshot
	r.versionsMutex.RUnlock()
	return snapshot.ProveAbsence(key)
}

// ProveAbsenceAt creates a proof for the given key against the given root,
// which must be one of the retained roots.
func (r *Relayer) ProveAbsenceAt(root commit.Commitment, key common.Key) (*proof.NonMembershipProof, error) {
	snapshot := r.lookup(root)
	if snapshot == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownRoot, root)
	}
	return snapshot.ProveAbsence(key)
}

func (r *Relayer) lookup(root commit.Commitment) *trie.Snapshot {
	r.versionsMutex.RLock()
	defer r.versionsMutex.RUnlock()
	for i := len(r.versions) - 1; i >= 0; i-- {
		if r.versions[i].snapshot.Root().Equal(root) {
			return r.versions[i].snapshot
		}
	}
	return nil
}

// --- Background Mode ---

// Start launches background workers syncing the tree in the configured
// interval and serving proof requests.
func (r *Relayer) Start(ctx context.Context) error {
	r.workerMutex.Lock()
	defer r.workerMutex.Unlock()
	if r.requests != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	requests := make(chan proofRequest, 1024)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.syncLoop(ctx)
	}()
	for i_ := 0; i_ < r.config.ProofWorkers; i_++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for request := range requests {
				request.promise.Fulfill(result.Of(r.ProveAbsenceAt(request.root, request.key)))
			}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	r.requests = requests
	r.cancel = cancel
	r.done = done
	return nil
}

func (r *Relayer) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(r.config.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		res, err := r.Sync(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("Sync failed", "err", err)
			r.issues.HandleIssue(err)
			continue
		}
		if res.Blocks > 0 {
			r.log.Debug("Synced", "range", res.Range, "keys", res.Keys)
		}
	}
}

// RequestProof requests a proof for the given key against the given root.
// If background workers are running, the proof is created by one of them,
// otherwise it is created before returning.
func (r *Relayer) RequestProof(root commit.Commitment, key common.Key) future.Future[result.Result[*proof.NonMembershipProof]] {
	r.workerMutex.RLock()
	defer r.workerMutex.RUnlock()
	if r.requests == nil {
		return future.Immediate(result.Of(r.ProveAbsenceAt(root, key)))
	}
	promise, res := future.Create[result.Result[*proof.NonMembershipProof]]()
	r.requests <- proofRequest{root: root, key: key, promise: promise}
	return res
}

// Stop shuts down the background workers after all pending proof requests
// have been served. It returns the issues encountered by failed syncs.
func (r *Relayer) Stop() error {
	r.workerMutex.Lock()
	defer r.workerMutex.Unlock()
	if r.requests == nil {
		return nil
	}
	r.cancel()
	close(r.requests)
	<-r.done
	r.requests = nil
	r.cancel = nil
	r.done = nil
	return r.issues.Collect()
}

// issueCollector collects issues encountered during background processing.
// Only the first 10 issues are stored, further issues are counted.
type issueCollector struct {
	issues      []error
	extraIssues int
	mutex       sync.Mutex
}

func (c *issueCollector) HandleIssue(err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.issues) < 10 {
		c.issues = append(c.issues, err)
	} else {
		c.extraIssues++
	}
}

func (c *issueCollector) Collect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.extraIssues > 0 {
		c.issues = append(c.issues, fmt.Errorf("%d additional errors truncated", c.extraIssues))
	}
	res := errors.Join(c.issues...)
	c.issues = c.issues[:0]
	c.extraIssues = 0
	return res
}
