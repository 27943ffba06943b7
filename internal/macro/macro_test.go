package macro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/chunkforge/internal/world"
)

func TestGenerateIsTraversable(t *testing.T) {
	for _, s := range []uint64{1, 42, 1337, 0xdeadbeef} {
		m, err := Generate(context.Background(), s, DefaultOptions())
		require.NoError(t, err, "seed %d", s)

		assert.NoError(t, m.Validate(), "seed %d", s)
		assert.True(t, m.Open(m.Spawn.X, m.Spawn.Y))
		assert.NotEmpty(t, m.Stairs, "seed %d has no stairs", s)

		reached := world.FloodFill(m.grid(), m.Spawn.X, m.Spawn.Y)
		for _, st := range m.Stairs {
			assert.True(t, reached[st.Y*m.Width+st.X], "seed %d: stairs %v unreachable", s, st)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := Generate(context.Background(), 42, DefaultOptions())
	require.NoError(t, err)
	b, err := Generate(context.Background(), 42, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Density, b.Density)
	assert.Equal(t, a.Stairs, b.Stairs)
	assert.Equal(t, a.Seed, b.Seed)

	c, err := Generate(context.Background(), 43, DefaultOptions())
	require.NoError(t, err)
	assert.NotEqual(t, a.Density, c.Density)
}

func TestDensityAgreesWithOpenMask(t *testing.T) {
	m, err := Generate(context.Background(), 7, DefaultOptions())
	require.NoError(t, err)
	for _, d := range m.Density {
		assert.GreaterOrEqual(t, d, float32(0))
		assert.LessOrEqual(t, d, float32(1))
	}
	assert.Equal(t, float32(0), m.At(-1, 0))
	assert.Equal(t, float32(0), m.At(0, m.Height))
	assert.Equal(t, m.At(m.Spawn.X, m.Spawn.Y), m.Corner(world.Coord{}))
	assert.Equal(t, world.Coord{X: m.Spawn.X + 1, Y: m.Spawn.Y - 2}, m.Cell(world.Coord{X: 1, Y: -2}))
}

func TestValidateRejectsIsland(t *testing.T) {
	m := &Map{Width: 5, Height: 5, Density: make([]float32, 25), Spawn: world.Coord{X: 1, Y: 1}}
	m.Density[1*5+1] = 1
	m.Density[3*5+3] = 1
	assert.ErrorContains(t, m.Validate(), "unreachable")

	m.Density[3*5+3] = 0
	assert.NoError(t, m.Validate())

	m.Stairs = []world.Coord{{X: 2, Y: 2}}
	assert.ErrorContains(t, m.Validate(), "stairs")
}

func TestGenerateGivesUp(t *testing.T) {
	opts := DefaultOptions()
	opts.MinOpen = 1.01
	opts.MaxAttempts = 3
	_, err := Generate(context.Background(), 42, opts)
	assert.ErrorIs(t, err, ErrUntraversable)

	opts = DefaultOptions()
	opts.Width = 2
	_, err = Generate(context.Background(), 42, opts)
	assert.Error(t, err)
}

func TestGenerateRejectsMostlyPrunedMaps(t *testing.T) {
	for _, s := range []uint64{1, 42, 1337} {
		m, err := Generate(context.Background(), s, DefaultOptions())
		require.NoError(t, err)
		assert.LessOrEqual(t, m.PrunedShare(), DefaultOptions().MaxPruned, "seed %d", s)

		strict := DefaultOptions()
		strict.MaxPruned = 0
		m, err = Generate(context.Background(), s, strict)
		if err != nil {
			assert.ErrorIs(t, err, ErrUntraversable, "seed %d", s)
			continue
		}
		assert.Zero(t, m.Pruned, "seed %d", s)
	}

	bad := DefaultOptions()
	bad.MaxPruned = 1.5
	_, err := Generate(context.Background(), 1, bad)
	assert.ErrorContains(t, err, "pruned")
}

func TestPrunedShare(t *testing.T) {
	m := &Map{Width: 2, Height: 2, Density: []float32{1, 1, 0, 0}, Pruned: 2}
	assert.InDelta(t, 0.5, m.PrunedShare(), 1e-9)
	assert.Zero(t, (&Map{Density: []float32{0}}).PrunedShare())
}
