// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
)

// ---- Nodes ----

// Nodes are immutable once they are part of a published snapshot. Insertions
// clone every node along the modified paths, leaving all other nodes shared
// between the old and the new version of the tree. Fresh nodes are committed
// before the new version gets published.

// node is an interface for trie nodes, which can be either inner or leaf nodes.
type node interface {
	get(path []byte, key common.Key) (common.Value, bool)
	commit(setup *commit.Setup, params proof.Params) (commit.Commitment, error)

	// isCommitted returns true if the node's cached commitment is up to date.
	isCommitted() bool

	// -- parallel commit support --

	// collectCommitTasks requests the node to append tasks required to be
	// performed to update its commitment. The resulting list should list the
	// tasks in order of dependencies, i.e., when processing the list from start
	// to end, tasks producing inputs for other tasks should appear before
	// tasks consuming those inputs. Furthermore, the last task in the list
	// should be the task that updates this node's commitment. When this task is
	// completed, this node's commitment must be up to date.
	collectCommitTasks(setup *commit.Setup, params proof.Params, tasks *[]*task, errs *errorSink)
}

// update is a single key/value pair to be inserted, together with its path.
type update struct {
	key   common.Key
	value common.Value
	path  []byte
}

func compareUpdates(a, b update) int {
	if res := bytes.Compare(a.path, b.path); res != 0 {
		return res
	}
	return a.key.Compare(b.key)
}

// insertInto inserts the given updates, sorted by path, into the subtree
// rooted by n at the given level. The result is the root of the new version
// of the subtree, which is n itself if nothing changed.
func insertInto(n node, level int, params proof.Params, updates []update) (node, error) {
	switch n := n.(type) {
	case nil:
		if len(updates) == 1 {
			return newLeaf(level, updates[0]), nil
		}
		return newInner(level).insert(params, updates)
	case *leaf:
		return n.insert(params, updates)
	case *inner:
		res, err := n.clone().insert(params, updates)
		if err != nil {
			return nil, err
		}
		if !res.dirty.any() {
			return n, nil
		}
		return res, nil
	}
	return nil, fmt.Errorf("unsupported node type %T", n)
}

// ---- Inner nodes ----

// inner is the type of an inner node of the Verkle trie. Its children are
// indexed by the path element of its level. Only occupied child positions are
// stored, in a list sorted by index.
type inner struct {
	level int
	used  bitMap // < which child indices are occupied
	slots []slot // < one slot per occupied index, sorted by index

	// The cached commitment of this inner node. It is only valid if no dirty
	// bit is set.
	commitment commit.Commitment
	dirty      bitMap // < which children have been modified since the last commit
}

// slot is an occupied child position of an inner node.
type slot struct {
	index byte
	child node
	value field.Scalar // < the child's value covered by the cached commitment
}

func newInner(level int) *inner {
	return &inner{level: level}
}

// clone creates a shallow copy of this node, sharing all children.
func (i *inner) clone() *inner {
	res := *i
	res.slots = append(make([]slot, 0, len(i.slots)+1), i.slots...)
	return &res
}

func (i *inner) child(index byte) node {
	if !i.used.get(index) {
		return nil
	}
	return i.slots[i.used.rank(index)].child
}

// setChild replaces the child at the given index and marks it dirty. A new
// slot starts with a zero value, the value of an empty child.
func (i *inner) setChild(index byte, child node) {
	pos := i.used.rank(index)
	if !i.used.get(index) {
		i.slots = append(i.slots, slot{})
		copy(i.slots[pos+1:], i.slots[pos:])
		i.slots[pos] = slot{index: index}
		i.used.set(index)
	}
	i.slots[pos].child = child
	i.dirty.set(index)
}

func (i *inner) get(path []byte, key common.Key) (common.Value, bool) {
	next := i.child(path[i.level])
	if next == nil {
		return common.Value{}, false
	}
	return next.get(path, key)
}

// insert applies the given updates, sorted by path, to this node. The node
// must not be part of a published snapshot.
func (i *inner) insert(params proof.Params, updates []update) (*inner, error) {
	if i.level >= params.Depth {
		return nil, fmt.Errorf("%w: %v and %v", ErrPathCollision, updates[0].key, updates[1].key)
	}
	for len(updates) > 0 {
		index := updates[0].path[i.level]
		end := 1
		for end < len(updates) && updates[end].path[i.level] == index {
			end++
		}
		group := updates[:end]
		updates = updates[end:]

		before := i.child(index)
		after, err := insertInto(before, i.level+1, params, group)
		if err != nil {
			return nil, err
		}
		if after != before {
			i.setChild(index, after)
		}
	}
	return i, nil
}

func (i *inner) isCommitted() bool {
	return !i.dirty.any()
}

func (i *inner) commit(setup *commit.Setup, params proof.Params) (commit.Commitment, error) {
	if !i.dirty.any() {
		return i.commitment, nil
	}

	delta := make([]field.Scalar, params.Width+1)
	for k := range i.slots {
		s := &i.slots[k]
		if !i.dirty.get(s.index) {
			continue
		}
		c, err := s.child.commit(setup, params)
		if err != nil {
			return commit.Commitment{}, err
		}
		value := c.ToValue()
		delta[s.index] = value.Sub(s.value)
		s.value = value
	}

	// Update the commitment of this inner node.
	deltaCommitment, err := setup.CommitValues(delta)
	if err != nil {
		return commit.Commitment{}, err
	}
	i.commitment = i.commitment.Add(deltaCommitment)
	i.dirty.clear()
	return i.commitment, nil
}

func (i *inner) collectCommitTasks(setup *commit.Setup, params proof.Params, tasks *[]*task, errs *errorSink) {
	if !i.dirty.any() {
		return
	}

	// Produce one task for every dirty child.
	directChildTasks := make([]*task, 0, i.dirty.popCount())
	deltas := make([]commit.Commitment, len(i.slots))
	for k := range i.slots {
		k := k
		s := &i.slots[k]
		if !i.dirty.get(s.index) {
			continue
		}
		lengthBefore := len(*tasks)
		s.child.collectCommitTasks(setup, params, tasks, errs)
		childTasks := (*tasks)[lengthBefore:]

		var child *task
		numDependencies := 0
		if len(childTasks) > 0 {
			child = childTasks[len(childTasks)-1]
			numDependencies = 1
		}

		task := newTask(
			func() {
				c, err := s.child.commit(setup, params)
				if err != nil {
					errs.add(err)
					return
				}
				value := c.ToValue()
				deltas[k] = setup.UpdateSlot(commit.Identity(), int(s.index), s.value, value)
				s.value = value
			},
			numDependencies,
		)
		if child != nil {
			child.parentTask = task
		}
		directChildTasks = append(directChildTasks, task)
	}
	*tasks = append(*tasks, directChildTasks...)

	// Add the aggregation task updating this inner node's commitment.
	aggTask := newTask(
		func() {
			sum := i.commitment
			for _, d := range deltas {
				if !d.IsIdentity() {
					sum = sum.Add(d)
				}
			}
			i.commitment = sum
			i.dirty.clear()
		},
		len(directChildTasks),
	)
	for _, childTask := range directChildTasks {
		childTask.parentTask = aggTask
	}
	*tasks = append(*tasks, aggTask)
}

// ---- Leaf nodes ----

// leaf is a subtree holding a single key. It stands for the chain of nodes
// from its level down to the tree depth, each of them having a single child
// along the key's path, the last one holding the key as its terminal. Only
// the commitment of the top-most node of the chain is retained, the rest is
// recomputed when needed.
type leaf struct {
	level int
	key   common.Key
	value common.Value
	path  []byte

	commitment commit.Commitment
	committed  bool
}

func newLeaf(level int, u update) *leaf {
	return &leaf{
		level: level,
		key:   u.key,
		value: u.value,
		path:  u.path,
	}
}

func (l *leaf) get(_ []byte, key common.Key) (common.Value, bool) {
	if l.key != key {
		return common.Value{}, false
	}
	return l.value, true
}

// insert applies the given updates to this leaf. A single update of the
// leaf's key replaces the leaf, any other key turns the leaf into an inner
// node.
func (l *leaf) insert(params proof.Params, updates []update) (node, error) {
	if len(updates) == 1 && updates[0].key == l.key {
		if updates[0].value == l.value {
			return l, nil
		}
		return newLeaf(l.level, updates[0]), nil
	}

	own := update{key: l.key, value: l.value, path: l.path}
	merged := make([]update, 0, len(updates)+1)
	added := false
	for _, u := range updates {
		if u.key == l.key {
			added = true
		} else if !added && compareUpdates(own, u) < 0 {
			merged = append(merged, own)
			added = true
		}
		merged = append(merged, u)
	}
	if !added {
		merged = append(merged, own)
	}
	return newInner(l.level).insert(params, merged)
}

func (l *leaf) isCommitted() bool {
	return l.committed
}

func (l *leaf) commit(setup *commit.Setup, params proof.Params) (commit.Commitment, error) {
	if !l.committed {
		l.commitment = l.chain(setup, params)[0]
		l.committed = true
	}
	return l.commitment, nil
}

func (l *leaf) collectCommitTasks(setup *commit.Setup, params proof.Params, tasks *[]*task, _ *errorSink) {
	if l.committed {
		return
	}
	*tasks = append(*tasks, newTask(func() {
		l.commitment = l.chain(setup, params)[0]
		l.committed = true
	}, 0))
}

// chain computes the commitments of the nodes represented by this leaf,
// starting with the node at the leaf's level.
func (l *leaf) chain(setup *commit.Setup, params proof.Params) []commit.Commitment {
	res := make([]commit.Commitment, params.Depth-l.level+1)
	last := len(res) - 1
	res[last] = setup.UpdateSlot(
		commit.Identity(), params.Width,
		field.Scalar{}, commit.TerminalValue(l.key, l.value),
	)
	for i := last - 1; i >= 0; i-- {
		res[i] = setup.UpdateSlot(
			commit.Identity(), int(l.path[l.level+i]),
			field.Scalar{}, res[i+1].ToValue(),
		)
	}
	return res
}

// ---- Errors of parallel commits ----

// errorSink collects the errors reported by concurrently running tasks.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}
