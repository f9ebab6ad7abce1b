// Package idgen provides entity id generation.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock/mock.go -package=idgenmock github.com/cory-johannsen/digigm/internal/pkg/idgen Generator

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// UUID generates random v4 UUIDs.
type UUID struct{}

// NewUUID returns the production generator.
func NewUUID() Generator { return UUID{} }

func (UUID) Generate() string { return uuid.NewString() }

// Sequential generates "<prefix>-1", "<prefix>-2", ... for tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a Sequential generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

func (g *Sequential) Generate() string {
	n := g.counter.Add(1)
	if g.prefix == "" {
		return fmt.Sprint(n)
	}
	return fmt.Sprintf("%s-%d", g.prefix, n)
}
