package app

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContainerShape records how an upstream collection was encoded.
type ContainerShape int

const (
	// ShapeAbsent means the field was missing or null
	ShapeAbsent ContainerShape = iota
	// ShapeList means a JSON array
	ShapeList
	// ShapeMap means a JSON object keyed by identifier
	ShapeMap
	// ShapeObject means a single bare entry
	ShapeObject
)

// String returns the string representation of a container shape
func (s ContainerShape) String() string {
	switch s {
	case ShapeAbsent:
		return "absent"
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	case ShapeObject:
		return "object"
	default:
		return "unknown"
	}
}

// KeyedSet is the tagged union for collections that the Torn API encodes
// either as an ordered array or as an object keyed by id. Keys[i] holds the
// map key for Entries[i] (empty for list entries). Map entries keep the order
// of the upstream document.
type KeyedSet[T any] struct {
	Shape   ContainerShape
	Entries []T
	Keys    []string
}

// UnmarshalJSON detects the container shape and decodes the entries.
func (s *KeyedSet[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = KeyedSet[T]{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var entries []T
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to decode list container: %w", err)
		}
		s.Shape = ShapeList
		s.Entries = entries
		s.Keys = make([]string, len(entries))
	case '{':
		keys, values, err := decodeOrderedObject(data)
		if err != nil {
			return fmt.Errorf("failed to decode map container: %w", err)
		}

		s.Shape = ShapeMap
		s.Keys = keys
		s.Entries = make([]T, len(keys))
		for i, k := range keys {
			if err := json.Unmarshal(values[i], &s.Entries[i]); err != nil {
				return fmt.Errorf("failed to decode map entry %s: %w", k, err)
			}
		}
	default:
		// Scalars in a container position are treated as absent
		return nil
	}

	return nil
}

// Len returns the number of entries
func (s KeyedSet[T]) Len() int {
	return len(s.Entries)
}

// KeyAt returns the map key for entry i, or "" for list entries
func (s KeyedSet[T]) KeyAt(i int) string {
	if i < 0 || i >= len(s.Keys) {
		return ""
	}
	return s.Keys[i]
}

// WarSet is the tagged union for ranked war containers: a list (v2
// rankedwars), a map keyed by war id (v1 rankedwars) or a single bare war
// object (v2 wars.ranked).
type WarSet struct {
	Shape   ContainerShape
	Entries []RawWar
}

// warObjectKeys are fields that only a bare war object carries at top level
var warObjectKeys = []string{"factions", "war_id", "start", "war", "target"}

// UnmarshalJSON detects the container shape and decodes the wars.
func (s *WarSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = WarSet{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var wars []RawWar
		if err := json.Unmarshal(data, &wars); err != nil {
			return fmt.Errorf("failed to decode war list: %w", err)
		}
		s.Shape = ShapeList
		s.Entries = wars
	case '{':
		keys, values, err := decodeOrderedObject(data)
		if err != nil {
			return fmt.Errorf("failed to decode war container: %w", err)
		}

		if isBareWarObject(keys) {
			var war RawWar
			if err := json.Unmarshal(data, &war); err != nil {
				return fmt.Errorf("failed to decode war object: %w", err)
			}
			s.Shape = ShapeObject
			s.Entries = []RawWar{war}
			return nil
		}

		s.Shape = ShapeMap
		for i, k := range keys {
			var war RawWar
			if err := json.Unmarshal(values[i], &war); err != nil {
				return fmt.Errorf("failed to decode war %s: %w", k, err)
			}
			war.Key = k
			s.Entries = append(s.Entries, war)
		}
	}

	return nil
}

func isBareWarObject(keys []string) bool {
	for _, k := range keys {
		for _, wk := range warObjectKeys {
			if k == wk {
				return true
			}
		}
	}
	return false
}

// decodeOrderedObject splits a JSON object into its keys and raw values in
// document order. A repeated key keeps its first position and its last value,
// as encoding/json does for maps.
func decodeOrderedObject(data []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}

	var keys []string
	var values []json.RawMessage
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if i, seen := index[key]; seen {
			values[i] = value
			continue
		}
		index[key] = len(keys)
		keys = append(keys, key)
		values = append(values, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}
