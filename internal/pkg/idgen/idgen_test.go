package idgen_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/digigm/internal/pkg/idgen"
)

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("enc")
	assert.Equal(t, "enc-1", g.Generate())
	assert.Equal(t, "enc-2", g.Generate())
	assert.Equal(t, "1", idgen.NewSequential("").Generate())
}

func TestUUID_Parses(t *testing.T) {
	id := idgen.NewUUID().Generate()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, idgen.NewUUID().Generate())
}
