// Package storage defines the document store every entity kind is
// persisted through, plus the generic typed repository on top of it.
//
// Documents are JSON objects. Update performs a shallow merge: top-level
// fields present in the patch replace the stored ones and every other
// field is preserved. Backends never join or transact across entities.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names an entity collection.
type Kind string

const (
	KindTamer         Kind = "tamer"
	KindDigimon       Kind = "digimon"
	KindEncounter     Kind = "encounter"
	KindEvolutionLine Kind = "evolution_line"
)

// Kinds lists every entity kind.
func Kinds() []Kind {
	return []Kind{KindTamer, KindDigimon, KindEncounter, KindEvolutionLine}
}

// ErrNotFound is returned when a kind/id pair is absent.
var ErrNotFound = errors.New("storage: not found")

// ErrExists is returned by Insert when the id is already taken.
var ErrExists = errors.New("storage: already exists")

//go:generate mockgen -destination=mock/mock_store.go -package=storagemock github.com/cory-johannsen/digigm/internal/storage Store

// Store is the storage collaborator.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error)
	// List returns every document of kind, in insertion order, whose
	// top-level fields equal each filter entry.
	List(ctx context.Context, kind Kind, filter map[string]any) ([]json.RawMessage, error)
	// Insert stores a new document or returns ErrExists.
	Insert(ctx context.Context, kind Kind, id string, doc json.RawMessage) error
	// Update shallow-merges patch into the stored document and returns
	// the result, or ErrNotFound.
	Update(ctx context.Context, kind Kind, id string, patch map[string]any) (json.RawMessage, error)
	// Delete removes the document or returns ErrNotFound.
	Delete(ctx context.Context, kind Kind, id string) error
	// Close releases backend resources.
	Close() error
}

// Merge shallow-merges patch into doc.
//
// Precondition: doc is a JSON object.
func Merge(doc json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decoding stored document: %w", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding patch field %q: %w", k, err)
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

// Matches reports whether every filter entry equals the document's
// top-level field of the same name. Values are compared in their JSON
// form, so 3 and 3.0 are equal.
func Matches(doc json.RawMessage, filter map[string]any) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false, fmt.Errorf("decoding stored document: %w", err)
	}
	for k, want := range filter {
		norm, err := normalize(want)
		if err != nil {
			return false, err
		}
		got, ok := fields[k]
		if !ok || !jsonEqual(got, norm) {
			return false, nil
		}
	}
	return true, nil
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding filter value: %w", err)
	}
	var out any
	err = json.Unmarshal(raw, &out)
	return out, err
}

func jsonEqual(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ra) == string(rb)
}

// FilterJSON renders a filter as a JSON object for backends that match
// server side.
func FilterJSON(filter map[string]any) (string, error) {
	if len(filter) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(filter)
	return string(raw), err
}
