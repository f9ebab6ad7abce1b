package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Repository is a typed view of one kind in a Store.
type Repository[T any] struct {
	store Store
	kind  Kind
}

// NewRepository binds kind in store to T.
func NewRepository[T any](store Store, kind Kind) *Repository[T] {
	return &Repository[T]{store: store, kind: kind}
}

// Kind returns the bound kind.
func (r *Repository[T]) Kind() Kind { return r.kind }

// Get loads id.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := r.store.Get(ctx, r.kind, id)
	if err != nil {
		return nil, err
	}
	return r.decode(raw)
}

// List loads every entity matching filter.
func (r *Repository[T]) List(ctx context.Context, filter map[string]any) ([]*T, error) {
	raws, err := r.store.List(ctx, r.kind, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		v, err := r.decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Insert stores v under id.
func (r *Repository[T]) Insert(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s %q: %w", r.kind, id, err)
	}
	return r.store.Insert(ctx, r.kind, id, raw)
}

// Update applies a partial patch and returns the merged entity.
func (r *Repository[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	raw, err := r.store.Update(ctx, r.kind, id, patch)
	if err != nil {
		return nil, err
	}
	return r.decode(raw)
}

// Save writes every field of v over the stored entity. Fields that v
// omits from its JSON form are written as null so a cleared value does
// not leave the old one behind.
func (r *Repository[T]) Save(ctx context.Context, id string, v *T) (*T, error) {
	patch, err := Fields(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %q: %w", r.kind, id, err)
	}
	return r.Update(ctx, id, patch)
}

// Delete removes id.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.kind, id)
}

func (r *Repository[T]) decode(raw json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.kind, err)
	}
	return &v, nil
}

// Fields converts v into a full top-level patch. Every JSON field of v's
// struct type is present; those dropped by omitempty map to nil.
func Fields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for _, name := range jsonNames(reflect.TypeOf(v)) {
		out[name] = nil
	}
	for k, f := range fields {
		out[k] = f
	}
	return out, nil
}

// jsonNames lists the top-level JSON keys encoding/json can emit for t.
func jsonNames(t reflect.Type) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var names []string
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			names = append(names, jsonNames(f.Type)...)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names = append(names, name)
	}
	return names
}
