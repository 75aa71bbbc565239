package p2p

import (
	mapset "github.com/deckarep/golang-set"
	"github.com/syndtr/goleveldb/leveldb"
)

// PeerStore persists the set of known peer addresses across restarts.
// It stores only addresses — no interior peer state — since that is
// re-learned from the network after every restart.
type PeerStore struct {
	db *leveldb.DB
}

// OpenPeerStore opens (creating if absent) a LevelDB store at path.
func OpenPeerStore(path string) (*PeerStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &PeerStore{db: db}, nil
}

func (s *PeerStore) Close() error { return s.db.Close() }

func (s *PeerStore) Put(addr string) error {
	return s.db.Put([]byte(addr), []byte{1}, nil)
}

func (s *PeerStore) Delete(addr string) error {
	return s.db.Delete([]byte(addr), nil)
}

// All returns every address currently persisted.
func (s *PeerStore) All() (map[string]struct{}, error) {
	out := make(map[string]struct{})
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		out[string(iter.Key())] = struct{}{}
	}
	return out, iter.Error()
}

// Diff compares the live registry set against the persisted set and
// reports the addresses that should be inserted (in live, not
// persisted) and deleted (persisted, not live).
func (s *PeerStore) Diff(live map[string]struct{}) (inserts, deletes []string, err error) {
	persisted, err := s.All()
	if err != nil {
		return nil, nil, err
	}

	liveSet := mapset.NewThreadUnsafeSet()
	for addr := range live {
		liveSet.Add(addr)
	}
	persistedSet := mapset.NewThreadUnsafeSet()
	for addr := range persisted {
		persistedSet.Add(addr)
	}

	for v := range liveSet.Difference(persistedSet).Iter() {
		inserts = append(inserts, v.(string))
	}
	for v := range persistedSet.Difference(liveSet).Iter() {
		deletes = append(deletes, v.(string))
	}
	return inserts, deletes, nil
}
