// Package storage persists survey snapshots across scans so consecutive
// runs can be compared: every scan gets a revision, every resource
// record is kept under the revision it was seen at, and an in-memory
// index tracks when each resource appeared and disappeared.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/yairfalse/kartta/survey"
)

// Bucket names in bbolt
var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
)

// Archive is the on-disk scan history plus a btree index over the
// latest state of every resource ever surveyed.
type Archive struct {
	mu sync.RWMutex

	// In-memory index for fast lookups
	index *btree.BTreeG[*ResourceState]

	// On-disk storage
	db *bbolt.DB

	// Current revision number, one per recorded scan
	currentRev int64

	dir string
}

// ResourceState tracks one resource across scans.
type ResourceState struct {
	// Key is "service/resource/id".
	Key            string
	Service        string
	Resource       string
	ID             string
	FirstSeenRev   int64
	LastSeenRev    int64
	DisappearedRev int64
	Passed         bool
	Exists         bool
}

// NewArchive opens the archive under dir, creating it when absent, and
// rebuilds the index from disk.
func NewArchive(dir string) (*Archive, error) {
	dbPath := filepath.Join(dir, "kartta.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &Archive{
		index: btree.NewG[*ResourceState](32, func(x, y *ResourceState) bool {
			return x.Key < y.Key
		}),
		db:  db,
		dir: dir,
	}

	a.loadRevision()
	if err := a.rebuildIndex(); err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RecordScan writes every resource in a frozen store under a fresh
// revision, atomically, and marks resources absent from this scan as
// disappeared. Returns the new revision.
func (a *Archive) RecordScan(store *survey.Store) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.currentRev++
	rev := a.currentRev

	seen := make(map[string]*survey.Resource)
	cur := store.Resources()
	for cur.Next() {
		r := cur.Resource()
		seen[stateKey(r.Service, r.Type, r.ID)] = r
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}

	err := a.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		for key, r := range seen {
			value, err := json.Marshal(r.Record())
			if err != nil {
				return err
			}
			if err := bucket.Put(makeRecordKey(rev, key), value); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		return meta.Put([]byte("current_revision"), int64ToBytes(rev))
	})
	if err != nil {
		return 0, err
	}

	for key, r := range seen {
		a.updateIndex(key, r, rev)
	}

	// anything indexed but absent from this scan is gone
	a.index.Ascend(func(state *ResourceState) bool {
		if _, ok := seen[state.Key]; !ok && state.Exists {
			state.Exists = false
			state.DisappearedRev = rev
		}
		return true
	})

	return rev, nil
}

// State returns the latest known state of one resource.
func (a *Archive) State(service, resource, id string) (*ResourceState, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	key := stateKey(service, resource, id)
	state, found := a.index.Get(&ResourceState{Key: key})
	if !found {
		return nil, fmt.Errorf("resource %s not found in archive", key)
	}
	return state, nil
}

// RecordAt returns the stored record of one resource at an exact
// revision.
func (a *Archive) RecordAt(rev int64, service, resource, id string) (map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var record map[string]any
	key := makeRecordKey(rev, stateKey(service, resource, id))
	err := a.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketRecords).Get(key)
		if value == nil {
			return fmt.Errorf("no record for %s/%s/%s at revision %d", service, resource, id, rev)
		}
		return json.Unmarshal(value, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ByType returns the latest state of every resource of one type that
// still exists.
func (a *Archive) ByType(service, resource string) []*ResourceState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	prefix := service + "/" + resource + "/"
	var results []*ResourceState
	a.index.AscendGreaterOrEqual(&ResourceState{Key: prefix}, func(state *ResourceState) bool {
		if !strings.HasPrefix(state.Key, prefix) {
			return false
		}
		if state.Exists {
			results = append(results, state)
		}
		return true
	})
	return results
}

// Disappeared returns every resource last seen before the current
// revision.
func (a *Archive) Disappeared() []*ResourceState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var results []*ResourceState
	a.index.Ascend(func(state *ResourceState) bool {
		if !state.Exists {
			results = append(results, state)
		}
		return true
	})
	return results
}

// CurrentRevision returns the revision of the last recorded scan.
func (a *Archive) CurrentRevision() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentRev
}

// Compact drops records older than the given number of revisions.
func (a *Archive) Compact(keepRevisions int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.currentRev - keepRevisions
	if cutoff <= 0 {
		return nil
	}

	return a.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		c := bucket.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			rev, _ := parseRecordKey(k)
			if rev < cutoff {
				toDelete = append(toDelete, k)
			}
		}
		for _, key := range toDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Helper functions

func (a *Archive) updateIndex(key string, r *survey.Resource, rev int64) {
	existing, found := a.index.Get(&ResourceState{Key: key})
	if !found {
		existing = &ResourceState{
			Key:          key,
			Service:      r.Service,
			Resource:     r.Type,
			ID:           r.ID,
			FirstSeenRev: rev,
		}
	}
	existing.LastSeenRev = rev
	existing.DisappearedRev = 0
	existing.Exists = true
	existing.Passed = r.Passed()
	a.index.ReplaceOrInsert(existing)
}

func (a *Archive) loadRevision() {
	_ = a.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)
		if bucket == nil {
			return nil
		}
		if data := bucket.Get([]byte("current_revision")); data != nil {
			a.currentRev = bytesToInt64(data)
		}
		return nil
	})
}

// rebuildIndex replays stored records in revision order so the index
// reflects the last scan after reopening.
func (a *Archive) rebuildIndex() error {
	lastRev := make(map[string]int64)
	firstRev := make(map[string]int64)
	passed := make(map[string]bool)

	err := a.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rev, key := parseRecordKey(k)
			if _, ok := firstRev[key]; !ok {
				firstRev[key] = rev
			}
			if rev >= lastRev[key] {
				lastRev[key] = rev
				var record struct {
					Passed bool `json:"passed"`
				}
				if err := json.Unmarshal(v, &record); err == nil {
					passed[key] = record.Passed
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for key, rev := range lastRev {
		parts := strings.SplitN(key, "/", 3)
		if len(parts) != 3 {
			continue
		}
		state := &ResourceState{
			Key:          key,
			Service:      parts[0],
			Resource:     parts[1],
			ID:           parts[2],
			FirstSeenRev: firstRev[key],
			LastSeenRev:  rev,
			Passed:       passed[key],
			Exists:       rev == a.currentRev,
		}
		if !state.Exists {
			state.DisappearedRev = rev + 1
		}
		a.index.ReplaceOrInsert(state)
	}
	return nil
}

func stateKey(service, resource, id string) string {
	return service + "/" + resource + "/" + id
}

func makeRecordKey(rev int64, key string) []byte {
	return []byte(fmt.Sprintf("%016d:%s", rev, key))
}

func parseRecordKey(k []byte) (int64, string) {
	s := string(k)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, s
	}
	var rev int64
	_, _ = fmt.Sscanf(s[:i], "%016d", &rev)
	return rev, s[i+1:]
}

func int64ToBytes(n int64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func bytesToInt64(b []byte) int64 {
	var n int64
	_, _ = fmt.Sscanf(string(b), "%d", &n)
	return n
}
