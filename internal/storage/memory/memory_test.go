package memory_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/cory-johannsen/digigm/internal/storage"
	"github.com/cory-johannsen/digigm/internal/storage/memory"
	"github.com/cory-johannsen/digigm/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storagetest.StoreSuite{
		NewStore: func() storage.Store { return memory.New() },
	})
}
