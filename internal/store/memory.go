package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-memory Store used by tests and dry-run imports. It mirrors
// the lookup semantics of the Postgres implementation, including the
// nullable-tolerant title match and the episode-id existence probe.
type Memory struct {
	mu     sync.Mutex
	rows   map[Entity][]memRow
	links  map[Link]map[string]bool
	nextID map[Entity]int64

	// FailOn, when set, makes every operation against the named entity or
	// link table fail with a PersistenceError. Tests use it to exercise
	// per-record failure isolation.
	FailOn map[string]bool
}

type memRow struct {
	id     int64
	fields Fields
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rows:   make(map[Entity][]memRow),
		links:  make(map[Link]map[string]bool),
		nextID: make(map[Entity]int64),
	}
}

var _ Store = (*Memory)(nil)

func (s *Memory) failure(op, target string) error {
	if s.FailOn[target] {
		return &PersistenceError{Op: op, Target: target, Err: errors.New("injected failure")}
	}
	return nil
}

func (s *Memory) FindByNaturalKey(_ context.Context, entity Entity, key Fields) (int64, error) {
	meta, err := metaFor(entity)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("find", meta.Table); err != nil {
		return 0, err
	}

	switch entity {
	case EntityUser:
		if email, ok := key["email"]; ok {
			return s.findWhere(entity, Fields{"email": email})
		}
		return s.findWhere(entity, Fields{"username": key["username"]})
	case EntityTitle:
		if date, ok := key["release_date"]; ok && date != nil {
			return s.findWhere(entity, Fields{"movie_name": key["movie_name"], "release_date": date})
		}
		return s.findWhere(entity, Fields{"movie_name": key["movie_name"]})
	case EntityEpisode:
		if id, ok := key["episode_id"]; ok {
			want := asComparable(id)
			for _, row := range s.rows[entity] {
				if asComparable(row.id) == want {
					return row.id, nil
				}
			}
			return 0, ErrNotFound
		}
		return s.findWhere(entity, Fields{
			"movie_id":       key["movie_id"],
			"season_number":  key["season_number"],
			"episode_number": key["episode_number"],
		})
	case EntityGenre, EntityPerson, EntityStudio, EntityPlatform:
		return s.findWhere(entity, key)
	default:
		return 0, &PersistenceError{Op: "find", Target: meta.Table,
			Err: errors.New("entity has no natural key")}
	}
}

// findWhere returns the first row whose fields match all non-absent
// conditions. Caller must hold the mutex.
func (s *Memory) findWhere(entity Entity, where Fields) (int64, error) {
	for _, row := range s.rows[entity] {
		match := true
		for col, want := range where {
			if asComparable(row.fields[col]) != asComparable(want) {
				match = false
				break
			}
		}
		if match {
			return row.id, nil
		}
	}
	return 0, ErrNotFound
}

func (s *Memory) Create(_ context.Context, entity Entity, fields Fields) (int64, error) {
	meta, err := metaFor(entity)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("create", meta.Table); err != nil {
		return 0, err
	}

	kept := make(Fields, len(fields))
	for _, col := range meta.Columns {
		if v, ok := fields[col]; ok {
			kept[col] = v
		}
	}

	s.nextID[entity]++
	id := s.nextID[entity]
	s.rows[entity] = append(s.rows[entity], memRow{id: id, fields: kept})
	return id, nil
}

func (s *Memory) LinkExists(_ context.Context, link Link, ids []int64) (bool, error) {
	meta, err := linkFor(link)
	if err != nil {
		return false, err
	}
	if len(ids) != len(meta.IDCols) {
		return false, fmt.Errorf("store: link %s expects %d ids, got %d", link, len(meta.IDCols), len(ids))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("link_exists", meta.Table); err != nil {
		return false, err
	}
	return s.links[link][linkKey(ids)], nil
}

func (s *Memory) CreateLink(_ context.Context, link Link, ids []int64, _ Fields) error {
	meta, err := linkFor(link)
	if err != nil {
		return err
	}
	if len(ids) != len(meta.IDCols) {
		return fmt.Errorf("store: link %s expects %d ids, got %d", link, len(meta.IDCols), len(ids))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("create_link", meta.Table); err != nil {
		return err
	}
	if s.links[link] == nil {
		s.links[link] = make(map[string]bool)
	}
	s.links[link][linkKey(ids)] = true
	return nil
}

// Count returns the number of rows stored for an entity.
func (s *Memory) Count(entity Entity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[entity])
}

// LinkCount returns the number of distinct junction rows for a link.
func (s *Memory) LinkCount(link Link) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links[link])
}

// Row returns a copy of the fields stored for an entity row, or nil.
func (s *Memory) Row(entity Entity, id int64) Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows[entity] {
		if row.id == id {
			out := make(Fields, len(row.fields))
			for k, v := range row.fields {
				out[k] = v
			}
			return out
		}
	}
	return nil
}

// asComparable folds values of mixed dynamic types (string, int, int64, nil)
// into a comparable representation. Natural keys are strings and integers.
func asComparable(v any) string {
	if v == nil {
		return "\x00nil"
	}
	return fmt.Sprint(v)
}

func linkKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, "/")
}
