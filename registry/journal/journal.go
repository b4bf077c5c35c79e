// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package journal provides a SQLite backed journal of registry transitions.
// It allows operators to audit all applied updates, accepted challenges and
// disputes. It also keeps the latest checkpoint of the registry, allowing a
// restarted process to continue with the registry's full state.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/0xsoniclabs/spentset/common"
	"github.com/0xsoniclabs/spentset/registry"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS updates (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	range_from INTEGER NOT NULL,
	range_to   INTEGER NOT NULL,
	old_root   BLOB NOT NULL,
	new_root   BLOB NOT NULL,
	num_keys   INTEGER NOT NULL,
	key_digest BLOB NOT NULL,
	relayer    BLOB NOT NULL,
	time       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS challenges (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	range_from    INTEGER NOT NULL,
	range_to      INTEGER NOT NULL,
	kind          INTEGER NOT NULL,
	key           BLOB NOT NULL,
	challenger    BLOB NOT NULL,
	slashed       TEXT NOT NULL,
	reward        TEXT NOT NULL,
	reverted_root BLOB NOT NULL,
	time          INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS disputes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	range_from INTEGER NOT NULL,
	range_to   INTEGER NOT NULL,
	key        BLOB NOT NULL,
	challenger BLOB NOT NULL,
	answered   INTEGER NOT NULL,
	time       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoint (
	id   INTEGER PRIMARY KEY CHECK (id = 0),
	data BLOB NOT NULL
);
`

// ErrCorruptedEntry is returned when a journaled row can not be decoded.
var ErrCorruptedEntry = errors.New("corrupted journal entry")

// Journal is a registry.Journal writing to a SQLite database.
type Journal struct {
	db *sql.DB
}

var _ registry.Journal = (*Journal)(nil)

// Open opens or creates the journal stored in the given directory.
func Open(directory string) (*Journal, error) {
	db, err := sql.Open("sqlite3", filepath.Join(directory, "journal.sqlite"))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create journal schema: %w", err), db.Close())
	}
	return &Journal{db: db}, nil
}

// RecordUpdate stores the given update record.
func (j *Journal) RecordUpdate(record registry.UpdateRecord) error {
	oldRoot := record.OldRoot.Compress()
	newRoot := record.NewRoot.Compress()
	digest := common.KeySetDigest(record.Keys)
	_, err := j.db.Exec(
		`INSERT INTO updates (range_from, range_to, old_root, new_root, num_keys, key_digest, relayer, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(record.Range.Start), int64(record.Range.End),
		oldRoot[:], newRoot[:], len(record.Keys), digest[:],
		record.Relayer.Bytes(), record.Time.UnixNano(),
	)
	return err
}

// RecordChallenge stores the given challenge record.
func (j *Journal) RecordChallenge(record registry.ChallengeRecord) error {
	root := record.RevertedRoot.Compress()
	_, err := j.db.Exec(
		`INSERT INTO challenges (range_from, range_to, kind, key, challenger, slashed, reward, reverted_root, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(record.Range.Start), int64(record.Range.End), int(record.Kind),
		record.Key[:], record.Challenger.Bytes(),
		record.Slashed.String(), record.Reward.String(),
		root[:], record.Time.UnixNano(),
	)
	return err
}

// RecordDispute stores the given dispute record.
func (j *Journal) RecordDispute(record registry.DisputeRecord) error {
	_, err := j.db.Exec(
		`INSERT INTO disputes (range_from, range_to, key, challenger, answered, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int64(record.Range.Start), int64(record.Range.End),
		record.Key[:], record.Challenger.Bytes(), record.Answered,
		record.Time.UnixNano(),
	)
	return err
}

// SaveCheckpoint replaces the stored registry checkpoint.
func (j *Journal) SaveCheckpoint(data []byte) error {
	_, err := j.db.Exec(`INSERT OR REPLACE INTO checkpoint (id, data) VALUES (0, ?)`, data)
	return err
}

// LoadCheckpoint returns the stored registry checkpoint. If none was saved
// yet, false is returned.
func (j *Journal) LoadCheckpoint() ([]byte, bool, error) {
	var data []byte
	err := j.db.QueryRow(`SELECT data FROM checkpoint WHERE id = 0`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// UpdateEntry is a journaled update.
type UpdateEntry struct {
	Range     registry.BlockRange
	OldRoot   []byte
	NewRoot   []byte
	NumKeys   int
	KeyDigest common.Hash
	Relayer   common.Address
	Time      time.Time
}

// Updates lists all journaled updates in order of recording.
func (j *Journal) Updates() (_ []UpdateEntry, err error) {
	rows, err := j.db.Query(
		`SELECT range_from, range_to, old_root, new_root, num_keys, key_digest, relayer, time
		FROM updates ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	var res []UpdateEntry
	for rows.Next() {
		var entry UpdateEntry
		var from, to, nanos int64
		var digest, relayer []byte
		err := rows.Scan(&from, &to, &entry.OldRoot, &entry.NewRoot, &entry.NumKeys, &digest, &relayer, &nanos)
		if err != nil {
			return nil, err
		}
		if len(digest) != len(entry.KeyDigest) || len(relayer) != len(entry.Relayer) {
			return nil, fmt.Errorf("%w: update %d-%d has a %d byte digest and a %d byte relayer", ErrCorruptedEntry, from, to, len(digest), len(relayer))
		}
		entry.Range = registry.BlockRange{Start: uint64(from), End: uint64(to)}
		entry.KeyDigest = common.Hash(digest)
		entry.Relayer = common.Address(relayer)
		entry.Time = time.Unix(0, nanos).UTC()
		res = append(res, entry)
	}
	return res, rows.Err()
}

// NumChallenges returns the number of journaled challenges.
func (j *Journal) NumChallenges() (int, error) {
	var count int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM challenges`).Scan(&count)
	return count, err
}

// NumDisputes returns the number of opened disputes and the number of those
// answered by the relayer.
func (j *Journal) NumDisputes() (opened, answered int, err error) {
	err = j.db.QueryRow(
		`SELECT COALESCE(SUM(1 - answered), 0), COALESCE(SUM(answered), 0) FROM disputes`,
	).Scan(&opened, &answered)
	return opened, answered, err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
