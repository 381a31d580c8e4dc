// Package memory is a map-backed occurrence repository for testing and
// small deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/daterecur/occurrence"
)

// Store implements occurrence.Repository using in-memory maps.
type Store struct {
	mu   sync.RWMutex
	rows map[string][]occurrence.Row // key: ownerID/versionID/componentIndex
}

// New creates an empty in-memory repository.
func New() *Store {
	return &Store{rows: make(map[string][]occurrence.Row)}
}

func scopeKey(ownerID, versionID string, componentIndex int) string {
	return fmt.Sprintf("%s/%s/%d", ownerID, versionID, componentIndex)
}

func (s *Store) Put(_ context.Context, ownerID, versionID string, componentIndex int, rows []occurrence.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[scopeKey(ownerID, versionID, componentIndex)] = append([]occurrence.Row(nil), rows...)
	return nil
}

func (s *Store) Trim(_ context.Context, ownerID, versionID string, componentIndex, maxSequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scopeKey(ownerID, versionID, componentIndex)
	kept := s.rows[key][:0]
	for _, r := range s.rows[key] {
		if r.SequenceIndex <= maxSequence {
			kept = append(kept, r)
		}
	}
	s.rows[key] = kept
	return nil
}

func (s *Store) Delete(_ context.Context, ownerID, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := ownerID + "/" + versionID + "/"
	for key := range s.rows {
		if strings.HasPrefix(key, prefix) {
			delete(s.rows, key)
		}
	}
	return nil
}

func (s *Store) List(_ context.Context, ownerID string, from, to time.Time) ([]occurrence.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []occurrence.Row
	for _, rows := range s.rows {
		for _, r := range rows {
			if r.OwnerID != ownerID {
				continue
			}
			if r.Start.After(to) || r.End.Before(from) {
				continue
			}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		if out[i].ComponentIndex != out[j].ComponentIndex {
			return out[i].ComponentIndex < out[j].ComponentIndex
		}
		return out[i].SequenceIndex < out[j].SequenceIndex
	})
	return out, nil
}
