// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package keylog provides a LevelDB backed log of the key images spent in
// each block of the source ledger. A relayer appends every block accepted by
// the registry and replays the log on startup to rebuild its tree.
package keylog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNonSequentialHeight = errors.New("non-sequential block height")
	ErrCorruptedRecord     = errors.New("corrupted key log record")
)

// tableSpace partitions the key space of the database.
type tableSpace byte

const (
	blockTable tableSpace = 'b' // < height -> compressed key images
	metaTable  tableSpace = 'm' // < bookkeeping
)

// dbKey is a table space prefix followed by a big-endian height, so that
// LevelDB's key order matches the order of heights.
type dbKey [1 + 8]byte

func blockKey(height uint64) dbKey {
	var res dbKey
	res[0] = byte(blockTable)
	binary.BigEndian.PutUint64(res[1:], height)
	return res
}

func (k dbKey) height() uint64 {
	return binary.BigEndian.Uint64(k[1:])
}

var lastHeightKey = []byte{byte(metaTable), 'h'}

// KeyLog is a persistent log of key images indexed by block height.
type KeyLog struct {
	db *leveldb.DB
}

// Open opens or creates the key log stored in the given directory.
func Open(directory string) (*KeyLog, error) {
	db, err := leveldb.OpenFile(directory, &opt.Options{
		Compression: opt.NoCompression, // < records are snappy compressed already
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open key log: %w", err)
	}
	return &KeyLog{db: db}, nil
}

// LastHeight returns the height of the last logged block, if any.
func (l *KeyLog) LastHeight() (uint64, bool, error) {
	data, err := l.db.Get(lastHeightKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("%w: invalid last height encoding", ErrCorruptedRecord)
	}
	return binary.BigEndian.Uint64(data), true, nil
}

// Append logs the key images of the given block, which must directly follow
// the last logged block.
func (l *KeyLog) Append(height uint64, keys []common.Key) error {
	last, found, err := l.LastHeight()
	if err != nil {
		return err
	}
	if found && height != last+1 {
		return fmt.Errorf("%w: got %d, expected %d", ErrNonSequentialHeight, height, last+1)
	}

	raw := make([]byte, 0, len(keys)*len(common.Key{}))
	for _, key := range keys {
		key := key
		raw = append(raw, key[:]...)
	}
	var encodedHeight [8]byte
	binary.BigEndian.PutUint64(encodedHeight[:], height)

	key := blockKey(height)
	batch := new(leveldb.Batch)
	batch.Put(key[:], snappy.Encode(nil, raw))
	batch.Put(lastHeightKey, encodedHeight[:])
	return l.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Replay calls the given function for every logged block in order of
// increasing heights. Replaying stops at the first error.
func (l *KeyLog) Replay(fn func(height uint64, keys []common.Key) error) (err error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte{byte(blockTable)}), nil)
	defer func() {
		iter.Release()
		err = errors.Join(err, iter.Error())
	}()
	for iter.Next() {
		var key dbKey
		if len(iter.Key()) != len(key) {
			return fmt.Errorf("%w: invalid key length %d", ErrCorruptedRecord, len(iter.Key()))
		}
		copy(key[:], iter.Key())
		keys, err := decodeKeys(iter.Value())
		if err != nil {
			return fmt.Errorf("block %d: %w", key.height(), err)
		}
		if err := fn(key.height(), keys); err != nil {
			return err
		}
	}
	return nil
}

func decodeKeys(data []byte) ([]common.Key, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedRecord, err)
	}
	size := len(common.Key{})
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: invalid length %d", ErrCorruptedRecord, len(raw))
	}
	if len(raw) == 0 {
		return nil, nil
	}
	res := make([]common.Key, len(raw)/size)
	for i := range res {
		res[i] = common.Key(raw[i*size : (i+1)*size])
	}
	return res, nil
}

// Truncate removes all blocks above the given height.
func (l *KeyLog) Truncate(height uint64) error {
	last, found, err := l.LastHeight()
	if err != nil || !found || last <= height {
		return err
	}
	from := blockKey(height + 1)
	batch := new(leveldb.Batch)
	iter := l.db.NewIterator(&util.Range{Start: from[:], Limit: []byte{byte(blockTable) + 1}}, nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	var encodedHeight [8]byte
	binary.BigEndian.PutUint64(encodedHeight[:], height)
	batch.Put(lastHeightKey, encodedHeight[:])
	return l.db.Write(batch, &opt.WriteOptions{Sync: true})
}

// Close closes the underlying database.
func (l *KeyLog) Close() error {
	return l.db.Close()
}
