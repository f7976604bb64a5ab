package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.etcd.io/bbolt"
)

// ChangeType classifies a difference between two revisions.
type ChangeType string

const (
	ChangeCreated     ChangeType = "created"
	ChangeModified    ChangeType = "modified"
	ChangeDisappeared ChangeType = "disappeared"
)

// ChangeEvent describes one resource whose record differs between two
// revisions.
type ChangeEvent struct {
	Service    string         `json:"service"`
	Resource   string         `json:"resource"`
	ID         string         `json:"id"`
	ChangeType ChangeType     `json:"change_type"`
	Revision   int64          `json:"revision"`
	Previous   map[string]any `json:"previous,omitempty"`
	Current    map[string]any `json:"current,omitempty"`
}

// Changes compares the records stored at two revisions and reports every
// resource that appeared, disappeared, or changed between them. Events
// come back sorted by service, resource, then id.
func (a *Archive) Changes(fromRev, toRev int64) ([]ChangeEvent, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if fromRev >= toRev {
		return nil, fmt.Errorf("from revision %d must precede to revision %d", fromRev, toRev)
	}
	if toRev > a.currentRev {
		return nil, fmt.Errorf("revision %d not recorded yet, archive is at %d", toRev, a.currentRev)
	}

	previous, err := a.recordsAt(fromRev)
	if err != nil {
		return nil, err
	}
	current, err := a.recordsAt(toRev)
	if err != nil {
		return nil, err
	}

	var events []ChangeEvent
	for key, cur := range current {
		prev, existed := previous[key]
		switch {
		case !existed:
			events = append(events, changeEvent(key, ChangeCreated, toRev, nil, cur))
		case !reflect.DeepEqual(prev["data"], cur["data"]) || prev["passed"] != cur["passed"]:
			events = append(events, changeEvent(key, ChangeModified, toRev, prev, cur))
		}
	}
	for key, prev := range previous {
		if _, still := current[key]; !still {
			events = append(events, changeEvent(key, ChangeDisappeared, toRev, prev, nil))
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Service != b.Service {
			return a.Service < b.Service
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.ID < b.ID
	})
	return events, nil
}

// recordsAt loads every record stored under one revision, keyed by
// "service/resource/id".
func (a *Archive) recordsAt(rev int64) (map[string]map[string]any, error) {
	records := make(map[string]map[string]any)
	prefix := []byte(fmt.Sprintf("%016d:", rev))

	err := a.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			_, key := parseRecordKey(k)
			var record map[string]any
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt record %s: %w", k, err)
			}
			records[key] = record
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func changeEvent(key string, ct ChangeType, rev int64, prev, cur map[string]any) ChangeEvent {
	ev := ChangeEvent{ChangeType: ct, Revision: rev, Previous: prev, Current: cur}
	parts := strings.SplitN(key, "/", 3)
	if len(parts) == 3 {
		ev.Service, ev.Resource, ev.ID = parts[0], parts[1], parts[2]
	}
	return ev
}
