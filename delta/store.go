package delta

import (
	"errors"
	"fmt"

	"github.com/df-mc/goleveldb/leveldb"

	"github.com/s4lvi/historyengine-sub002/apperr"
)

// Store persists serialized records keyed by "<matchID>/<version>", backed
// by an embedded LevelDB database (spec.md §6 "Persistence codec").
type Store struct {
	db *leveldb.DB
}

// OpenStore opens (creating if absent) a LevelDB database at path.
func OpenStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("delta: open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func recordKey(matchID string, version uint8) []byte {
	return []byte(fmt.Sprintf("%s/%d", matchID, version))
}

// Save writes a serialized record under matchID/version.
func (s *Store) Save(matchID string, version uint8, record []byte) error {
	return s.db.Put(recordKey(matchID, version), record, nil)
}

// Load reads the record for matchID/version. A missing record is reported
// as an invariant breach (spec.md §7): the host decides whether to recreate
// the match from map data.
func (s *Store) Load(matchID string, version uint8) ([]byte, error) {
	v, err := s.db.Get(recordKey(matchID, version), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, apperr.Invariant("store.Load", err)
		}
		return nil, err
	}
	// LevelDB may return a slice aliasing internal buffers; copy into a
	// fresh one before handing it to Deserialize (spec.md §9).
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}
