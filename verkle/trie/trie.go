// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package trie implements the in-memory spent-key Verkle tree maintained by a
// relayer. Insertions are batched: all nodes touched by a batch are
// recommitted once, optionally in parallel across independent subtrees. Every
// insertion produces a new immutable snapshot of the tree, so proofs can be
// served against older roots while the next version is being built.
package trie

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
)

var (
	ErrPathCollision   = errors.New("distinct keys share the same path")
	ErrCorruptedTree   = errors.New("corrupted tree")
	ErrForeignSnapshot = errors.New("snapshot belongs to a different tree")
)

// Config provides the configuration of a trie.
type Config struct {
	Width          int  `yaml:"width"`
	Depth          int  `yaml:"depth"`
	ParallelCommit bool `yaml:"parallel_commit"` // < recompute commitments of independent subtrees in parallel
}

// Params returns the shape parameters of tries using this configuration.
func (c Config) Params() proof.Params {
	return proof.Params{Width: c.Width, Depth: c.Depth}
}

// Entry is a key/value pair to be inserted into a trie.
type Entry struct {
	Key   common.Key
	Value common.Value
}

// Trie is a Verkle tree over spent keys. Insertions are serialised, reads are
// lock-free and operate on the latest published snapshot.
type Trie struct {
	setup  *commit.Setup
	config Config
	params proof.Params
	vk     commit.VerifierKey

	mu      sync.Mutex // < serialises writers
	current atomic.Pointer[Snapshot]
}

// NewTrie creates an empty trie using the given setup, which must have been
// created for the configured width.
func NewTrie(setup *commit.Setup, config Config) (*Trie, error) {
	params := config.Params()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if setup.Width() != params.Width {
		return nil, fmt.Errorf("setup width %d does not match tree width %d", setup.Width(), params.Width)
	}
	res := &Trie{
		setup:  setup,
		config: config,
		params: params,
		vk:     setup.VerifierKey(),
	}
	res.current.Store(&Snapshot{
		owner: res,
		root:  newInner(0),
	})
	return res, nil
}

// Params returns the shape parameters of this trie.
func (t *Trie) Params() proof.Params {
	return t.params
}

// Setup returns the commitment setup used by this trie.
func (t *Trie) Setup() *commit.Setup {
	return t.setup
}

// Snapshot returns the latest published version of the trie.
func (t *Trie) Snapshot() *Snapshot {
	return t.current.Load()
}

// Root returns the root commitment of the latest version of the trie.
func (t *Trie) Root() commit.Commitment {
	return t.Snapshot().Root()
}

// Get returns the value stored for the given key, if present.
func (t *Trie) Get(key common.Key) (common.Value, bool) {
	return t.Snapshot().Get(key)
}

// Len returns the number of keys stored in the latest version of the trie.
func (t *Trie) Len() int {
	return t.Snapshot().Len()
}

// ProveAbsence creates a non-membership proof for the given key against the
// latest version of the trie.
func (t *Trie) ProveAbsence(key common.Key) (*proof.NonMembershipProof, error) {
	return t.Snapshot().ProveAbsence(key)
}

// Insert associates the given key with the given value.
func (t *Trie) Insert(key common.Key, value common.Value) error {
	_, err := t.InsertBatch([]Entry{{Key: key, Value: value}})
	return err
}

// InsertBatch inserts all given entries and publishes the resulting version
// of the trie, which is returned. Every node modified by the batch is
// recommitted exactly once. If an entry occurs more than once, the last
// occurrence wins. On error, the trie remains unchanged.
func (t *Trie) InsertBatch(entries []Entry) (*Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.current.Load()
	if len(entries) == 0 {
		return old, nil
	}

	latest := make(map[common.Key]common.Value, len(entries))
	for _, e := range entries {
		latest[e.Key] = e.Value
	}
	added := 0
	updates := make([]update, 0, len(latest))
	for key, value := range latest {
		path := proof.ComputePath(t.params, key)
		if _, found := old.root.get(path, key); !found {
			added++
		}
		updates = append(updates, update{key: key, value: value, path: path})
	}
	slices.SortFunc(updates, compareUpdates)

	root, err := old.root.clone().insert(t.params, updates)
	if err != nil {
		return nil, err
	}
	if err := t.commit(root); err != nil {
		return nil, err
	}

	next := &Snapshot{
		owner: t,
		root:  root,
		size:  old.size + added,
	}
	t.current.Store(next)
	return next, nil
}

// Reset makes the given snapshot the latest version of the trie, discarding
// all versions published after it. The snapshot must originate from this
// trie.
func (t *Trie) Reset(snapshot *Snapshot) error {
	if snapshot == nil || snapshot.owner != t {
		return ErrForeignSnapshot
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Store(snapshot)
	return nil
}

// commit updates the commitments of all modified nodes of the given tree.
func (t *Trie) commit(root *inner) error {
	if !t.config.ParallelCommit {
		_, err := root.commit(t.setup, t.params)
		return err
	}
	var errs errorSink
	tasks := []*task{}
	root.collectCommitTasks(t.setup, t.params, &tasks, &errs)
	runTasks(tasks)
	return errs.err()
}

// Snapshot is an immutable version of a trie. Snapshots remain valid and
// unchanged when further entries are inserted into their trie and may be
// used concurrently.
type Snapshot struct {
	owner *Trie
	root  *inner
	size  int
}

// Root returns the root commitment of this version of the trie.
func (s *Snapshot) Root() commit.Commitment {
	return s.root.commitment
}

// Len returns the number of keys stored in this version of the trie.
func (s *Snapshot) Len() int {
	return s.size
}

// Params returns the shape parameters of the trie.
func (s *Snapshot) Params() proof.Params {
	return s.owner.params
}

// Get returns the value stored for the given key, if present.
func (s *Snapshot) Get(key common.Key) (common.Value, bool) {
	return s.root.get(proof.ComputePath(s.owner.params, key), key)
}
