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
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"sync"
	"testing"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/crypto/field"
	"github.com/0xsoniclabs/spentset/verkle/commit"
	"github.com/0xsoniclabs/spentset/verkle/proof"
	"github.com/0xsoniclabs/spentset/verkle/reference"
	"github.com/stretchr/testify/require"
)

var testConfigs = map[string]Config{
	"sequential": {Width: 16, Depth: 8},
	"parallel":   {Width: 16, Depth: 8, ParallelCommit: true},
}

func newTestSetup(t testing.TB, width int) *commit.Setup {
	t.Helper()
	setup, err := commit.NewInsecureSetup(width, rand.Reader)
	require.NoError(t, err)
	return setup
}

func newTestTrie(t testing.TB, config Config) *Trie {
	t.Helper()
	trie, err := NewTrie(newTestSetup(t, config.Width), config)
	require.NoError(t, err)
	return trie
}

func testKey(i int) common.Key {
	return common.Key(common.Keccak256([]byte(fmt.Sprintf("key-%d", i))))
}

func testEntries(n int) []Entry {
	res := make([]Entry, n)
	for i := range res {
		res[i] = Entry{Key: testKey(i), Value: common.HeightValue(uint64(i))}
	}
	return res
}

func TestNewTrie_RejectsInvalidConfigurations(t *testing.T) {
	setup := newTestSetup(t, 16)
	configs := map[string]Config{
		"width not a power of two": {Width: 15, Depth: 8},
		"zero depth":               {Width: 16, Depth: 0},
		"too deep":                 {Width: 16, Depth: 65},
		"setup width mismatch":     {Width: 32, Depth: 8},
	}
	for name, config := range configs {
		config := config
		t.Run(name, func(t *testing.T) {
			_, err := NewTrie(setup, config)
			require.Error(t, err)
		})
	}
}

func TestTrie_EmptyTrie_HasIdentityRoot(t *testing.T) {
	for name, config := range testConfigs {
		config := config
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			trie := newTestTrie(t, config)
			require.True(trie.Root().IsIdentity())
			require.Zero(trie.Len())
			_, found := trie.Get(testKey(0))
			require.False(found)
		})
	}
}

func TestTrie_InsertedKeysCanBeRetrieved(t *testing.T) {
	for name, config := range testConfigs {
		config := config
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			trie := newTestTrie(t, config)
			entries := testEntries(50)
			_, err := trie.InsertBatch(entries)
			require.NoError(err)

			for _, e := range entries {
				value, found := trie.Get(e.Key)
				require.True(found)
				require.Equal(e.Value, value)
			}
			_, found := trie.Get(testKey(50))
			require.False(found)
			require.Equal(50, trie.Len())
		})
	}
}

func TestTrie_RootMatchesReferenceImplementation(t *testing.T) {
	for name, config := range testConfigs {
		config := config
		for _, n := range []int{1, 2, 3, 17, 50} {
			n := n
			t.Run(fmt.Sprintf("%s/%d keys", name, n), func(t *testing.T) {
				require := require.New(t)
				trie := newTestTrie(t, config)
				ref, err := reference.NewTrie(trie.Setup(), config.Params())
				require.NoError(err)

				for _, e := range testEntries(n) {
					require.NoError(trie.Insert(e.Key, e.Value))
					ref.Set(e.Key, e.Value)
					want, err := ref.Commit()
					require.NoError(err)
					require.True(want.Equal(trie.Root()), "root mismatch after inserting %v", e.Key)
				}
			})
		}
	}
}

func TestTrie_OverwrittenValuesMatchReferenceImplementation(t *testing.T) {
	require := require.New(t)
	config := testConfigs["sequential"]
	trie := newTestTrie(t, config)
	ref, err := reference.NewTrie(trie.Setup(), config.Params())
	require.NoError(err)

	entries := testEntries(10)
	_, err = trie.InsertBatch(entries)
	require.NoError(err)
	before := trie.Root()

	require.NoError(trie.Insert(entries[3].Key, common.HeightValue(12345)))
	require.False(before.Equal(trie.Root()))
	require.Equal(10, trie.Len())

	for _, e := range entries {
		ref.Set(e.Key, e.Value)
	}
	ref.Set(entries[3].Key, common.HeightValue(12345))
	want, err := ref.Commit()
	require.NoError(err)
	require.True(want.Equal(trie.Root()))
}

func TestTrie_InsertingUnchangedEntries_KeepsSnapshot(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, testConfigs["sequential"])
	entries := testEntries(5)
	first, err := trie.InsertBatch(entries)
	require.NoError(err)

	second, err := trie.InsertBatch(entries)
	require.NoError(err)
	require.True(first.Root().Equal(second.Root()))
	require.Equal(first.Len(), second.Len())

	empty, err := trie.InsertBatch(nil)
	require.NoError(err)
	require.Same(second, empty)
}

func TestTrie_BatchInsertion_IsIndependentOfOrderAndGrouping(t *testing.T) {
	for name, config := range testConfigs {
		config := config
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			setup := newTestSetup(t, config.Width)
			entries := testEntries(40)

			// Reference: one key at a time, in order.
			single, err := NewTrie(setup, config)
			require.NoError(err)
			for _, e := range entries {
				require.NoError(single.Insert(e.Key, e.Value))
			}
			want := single.Root()

			for seed := int64(0); seed < 5; seed++ {
				r := mrand.New(mrand.NewSource(seed))
				permuted := make([]Entry, len(entries))
				for i, j := range r.Perm(len(entries)) {
					permuted[i] = entries[j]
				}

				batch, err := NewTrie(setup, config)
				require.NoError(err)
				_, err = batch.InsertBatch(permuted)
				require.NoError(err)
				require.True(want.Equal(batch.Root()), "seed %d, single batch", seed)

				chunked, err := NewTrie(setup, config)
				require.NoError(err)
				for start := 0; start < len(permuted); start += 7 {
					_, err := chunked.InsertBatch(permuted[start:min(start+7, len(permuted))])
					require.NoError(err)
				}
				require.True(want.Equal(chunked.Root()), "seed %d, chunked", seed)
				require.Equal(len(entries), chunked.Len())
			}
		})
	}
}

func TestTrie_InsertBatch_LastDuplicateWins(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, testConfigs["sequential"])
	key := testKey(1)
	_, err := trie.InsertBatch([]Entry{
		{Key: key, Value: common.HeightValue(1)},
		{Key: testKey(2), Value: common.HeightValue(2)},
		{Key: key, Value: common.HeightValue(3)},
	})
	require.NoError(err)
	require.Equal(2, trie.Len())
	value, found := trie.Get(key)
	require.True(found)
	require.Equal(common.HeightValue(3), value)
}

func TestTrie_SequentialAndParallelCommitProduceSameRoots(t *testing.T) {
	require := require.New(t)
	setup := newTestSetup(t, 16)
	sequential, err := NewTrie(setup, testConfigs["sequential"])
	require.NoError(err)
	parallel, err := NewTrie(setup, testConfigs["parallel"])
	require.NoError(err)

	entries := testEntries(600)
	for start := 0; start < len(entries); start += 200 {
		batch := entries[start : start+200]
		_, err := sequential.InsertBatch(batch)
		require.NoError(err)
		_, err = parallel.InsertBatch(batch)
		require.NoError(err)
		require.True(sequential.Root().Equal(parallel.Root()), "batch starting at %d", start)
	}
}

func TestTrie_SnapshotsAreNotAffectedByLaterInsertions(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, testConfigs["parallel"])
	entries := testEntries(20)

	old, err := trie.InsertBatch(entries[:10])
	require.NoError(err)
	oldRoot := old.Root()

	_, err = trie.InsertBatch(entries[10:])
	require.NoError(err)
	require.False(oldRoot.Equal(trie.Root()))

	require.True(oldRoot.Equal(old.Root()))
	require.Equal(10, old.Len())
	require.Equal(20, trie.Len())

	vk := trie.Setup().VerifierKey()
	for i, e := range entries {
		_, found := old.Get(e.Key)
		require.Equal(i < 10, found)

		p, err := old.ProveAbsence(e.Key)
		require.NoError(err)
		want := proof.Absent
		if i < 10 {
			want = proof.Present
		}
		require.Equal(proof.Result{Status: want}, proof.Verify(vk, trie.Params(), p, oldRoot, e.Key))
	}
}

func TestTrie_ProofsCanBeServedWhileInserting(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, testConfigs["parallel"])
	entries := testEntries(200)
	snapshot, err := trie.InsertBatch(entries[:50])
	require.NoError(err)
	vk := trie.Setup().VerifierKey()

	var wg sync.WaitGroup
	results := make([]proof.Result, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := snapshot.ProveAbsence(entries[i*20].Key)
			if err != nil {
				return
			}
			results[i] = proof.Verify(vk, trie.Params(), p, snapshot.Root(), entries[i*20].Key)
		}()
	}
	for start := 50; start < len(entries); start += 50 {
		_, err := trie.InsertBatch(entries[start : start+50])
		require.NoError(err)
	}
	wg.Wait()

	for i, res := range results {
		want := proof.Absent
		if i*20 < 50 {
			want = proof.Present
		}
		require.Equal(proof.Result{Status: want}, res, "proof %d", i)
	}
}

func TestTrie_Reset_RestoresEarlierVersion(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, testConfigs["sequential"])
	entries := testEntries(10)

	old, err := trie.InsertBatch(entries[:5])
	require.NoError(err)
	_, err = trie.InsertBatch(entries[5:])
	require.NoError(err)

	require.NoError(trie.Reset(old))
	require.True(old.Root().Equal(trie.Root()))
	require.Equal(5, trie.Len())
	_, found := trie.Get(entries[7].Key)
	require.False(found)

	other := newTestTrie(t, testConfigs["sequential"])
	require.ErrorIs(trie.Reset(other.Snapshot()), ErrForeignSnapshot)
	require.ErrorIs(trie.Reset(nil), ErrForeignSnapshot)
}

// findCollidingKeys finds two distinct keys sharing the same path.
func findCollidingKeys(params proof.Params) (common.Key, common.Key) {
	first := testKey(0)
	want := proof.ComputePath(params, first)
	for i := 1; ; i++ {
		if string(proof.ComputePath(params, testKey(i))) == string(want) {
			return first, testKey(i)
		}
	}
}

func TestTrie_PathCollision_IsRejectedWithoutModifyingTrie(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		parallel := parallel
		t.Run(fmt.Sprintf("parallel=%t", parallel), func(t *testing.T) {
			require := require.New(t)
			config := Config{Width: 2, Depth: 2, ParallelCommit: parallel}
			trie := newTestTrie(t, config)
			a, b := findCollidingKeys(config.Params())

			require.NoError(trie.Insert(a, common.HeightValue(1)))
			before := trie.Snapshot()

			err := trie.Insert(b, common.HeightValue(2))
			require.ErrorIs(err, ErrPathCollision)
			require.Same(before, trie.Snapshot())

			_, err = newTestTrie(t, config).InsertBatch([]Entry{{Key: a}, {Key: b}})
			require.ErrorIs(err, ErrPathCollision)
		})
	}
}

func TestSnapshot_ProveAbsence_ProducesVerifiableProofs(t *testing.T) {
	for name, config := range testConfigs {
		config := config
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			trie := newTestTrie(t, config)
			ref, err := reference.NewTrie(trie.Setup(), config.Params())
			require.NoError(err)

			entries := testEntries(30)
			_, err = trie.InsertBatch(entries)
			require.NoError(err)
			for _, e := range entries {
				ref.Set(e.Key, e.Value)
			}

			vk := trie.Setup().VerifierKey()
			for i := 0; i < 40; i++ {
				key := testKey(i)
				p, err := trie.ProveAbsence(key)
				require.NoError(err)

				want := proof.Absent
				if i < len(entries) {
					want = proof.Present
				}
				require.Equal(proof.Result{Status: want}, proof.Verify(vk, trie.Params(), p, trie.Root(), key))

				// Proofs are deterministic and independent of the tree's
				// internal representation.
				refProof, err := ref.ProveAbsence(key)
				require.NoError(err)
				got, err := proof.Encode(p)
				require.NoError(err)
				wanted, err := proof.Encode(refProof)
				require.NoError(err)
				require.Equal(wanted, got)
			}
		})
	}
}

func TestSnapshot_ProveAbsence_EmptyTrie(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, testConfigs["sequential"])
	p, err := trie.ProveAbsence(testKey(1))
	require.NoError(err)
	require.Nil(p.Terminal)
	result := proof.Verify(trie.Setup().VerifierKey(), trie.Params(), p, trie.Root(), testKey(1))
	require.Equal(proof.Result{Status: proof.Absent}, result)
}

func TestSnapshot_ProveAbsence_DetectsCorruptedTree(t *testing.T) {
	corruptions := map[string]func(root *inner){
		"stale child value": func(root *inner) {
			root.slots[0].value = field.NewScalar(1)
		},
		"uncommitted inner node": func(root *inner) {
			root.dirty.set(root.slots[0].index)
		},
		"wrong root commitment": func(root *inner) {
			root.commitment = root.commitment.Add(commit.FromPoint(field.Generator()))
		},
		"wrong leaf level": func(root *inner) {
			root.slots[0].child.(*leaf).level++
		},
		"modified leaf value": func(root *inner) {
			root.slots[0].child.(*leaf).value = common.HeightValue(99)
		},
		"uncommitted leaf": func(root *inner) {
			root.slots[0].child.(*leaf).committed = false
		},
		"misplaced leaf": func(root *inner) {
			l := root.slots[0].child.(*leaf)
			path := append([]byte{}, l.path...)
			path[0] ^= 1
			l.path = path
		},
	}
	for name, corrupt := range corruptions {
		corrupt := corrupt
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			trie := newTestTrie(t, testConfigs["sequential"])
			key := testKey(0)
			require.NoError(trie.Insert(key, common.HeightValue(1)))

			_, err := trie.ProveAbsence(key)
			require.NoError(err)

			corrupt(trie.Snapshot().root)
			_, err = trie.ProveAbsence(key)
			require.ErrorIs(err, ErrCorruptedTree)
		})
	}
}

func TestSnapshot_ProofSize_IsIndependentOfNumberOfKeys(t *testing.T) {
	if testing.Short() {
		t.Skip("inserts 10,000 keys")
	}
	require := require.New(t)
	sizes := map[int]int{}
	for _, n := range []int{10, 10_000} {
		trie := newTestTrie(t, testConfigs["parallel"])
		_, err := trie.InsertBatch(testEntries(n))
		require.NoError(err)

		key := testKey(n + 1)
		p, err := trie.ProveAbsence(key)
		require.NoError(err)
		require.Len(p.PathCommitments, trie.Params().Depth+1)
		encoded, err := proof.Encode(p)
		require.NoError(err)
		sizes[n] = len(encoded)

		result := proof.VerifyEncoded(trie.Setup().VerifierKey(), trie.Params(), encoded, trie.Root(), key)
		require.Equal(proof.Result{Status: proof.Absent}, result)
	}
	require.Equal(sizes[10], sizes[10_000])
}

func BenchmarkTrie_InsertBatch(b *testing.B) {
	for _, config := range []Config{
		{Width: 256, Depth: 32},
		{Width: 256, Depth: 32, ParallelCommit: true},
	} {
		config := config
		for _, batchSize := range []int{100, 1000} {
			batchSize := batchSize
			b.Run(fmt.Sprintf("parallel=%t/batch=%d", config.ParallelCommit, batchSize), func(b *testing.B) {
				trie := newTestTrie(b, config)
				next := 0
				b.ResetTimer()
				for iter := 0; iter < b.N; iter++ {
					entries := make([]Entry, batchSize)
					for i := range entries {
						entries[i] = Entry{Key: testKey(next), Value: common.HeightValue(uint64(next))}
						next++
					}
					if _, err := trie.InsertBatch(entries); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkSnapshot_ProveAbsence(b *testing.B) {
	for _, n := range []int{10, 10_000} {
		n := n
		b.Run(fmt.Sprintf("keys=%d", n), func(b *testing.B) {
			trie := newTestTrie(b, Config{Width: 256, Depth: 32, ParallelCommit: true})
			if _, err := trie.InsertBatch(testEntries(n)); err != nil {
				b.Fatal(err)
			}
			snapshot := trie.Snapshot()
			i := 0
			b.ResetTimer()
			for iter := 0; iter < b.N; iter++ {
				if _, err := snapshot.ProveAbsence(testKey(i)); err != nil {
					b.Fatal(err)
				}
				i++
			}
		})
	}
}
