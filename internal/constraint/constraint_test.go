package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/chunkforge/internal/tileset"
	"github.com/samdwyer/chunkforge/internal/world"
)

func conn(s world.Side, pos int, p world.PathType) world.Connector {
	return world.Connector{Side: s, Pos: pos, Path: p}
}

func TestResolve(t *testing.T) {
	origin := world.Coord{}
	tests := []struct {
		name      string
		neighbors Neighbors
		want      tileset.Constraints
	}{
		{
			name:      "no neighbours",
			neighbors: Neighbors{},
			want:      tileset.Constraints{},
		},
		{
			name: "west neighbour with east connector",
			neighbors: Neighbors{
				world.West: {conn(world.East, 30, world.PathMain), conn(world.North, 5, world.PathSide)},
			},
			want: tileset.Constraints{
				world.West: {conn(world.West, 30, world.PathMain)},
			},
		},
		{
			name: "neighbour sealed toward us",
			neighbors: Neighbors{
				world.North: {conn(world.North, 8, world.PathMain)},
			},
			want: tileset.Constraints{
				world.North: {},
			},
		},
		{
			name: "all four",
			neighbors: Neighbors{
				world.North: {conn(world.South, 3, world.PathSecret)},
				world.East:  {conn(world.West, 8, world.PathMain), conn(world.West, 2, world.PathSide)},
				world.South: {},
				world.West:  {conn(world.East, 8, world.PathMain)},
			},
			want: tileset.Constraints{
				world.North: {conn(world.North, 3, world.PathSecret)},
				world.East:  {conn(world.East, 2, world.PathSide), conn(world.East, 8, world.PathMain)},
				world.South: {},
				world.West:  {conn(world.West, 8, world.PathMain)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(origin, tt.neighbors))
		})
	}
}

func TestResolveSealedIsNotUnconstrained(t *testing.T) {
	cons := Resolve(world.Coord{}, Neighbors{world.East: {}})
	required, ok := cons[world.East]
	assert.True(t, ok)
	assert.Empty(t, required)
	_, ok = cons[world.West]
	assert.False(t, ok)
}

func TestMatches(t *testing.T) {
	a := conn(world.East, 30, world.PathMain)
	assert.True(t, Matches(a, conn(world.West, 30, world.PathMain)))
	assert.False(t, Matches(a, conn(world.East, 30, world.PathMain)))
	assert.False(t, Matches(a, conn(world.West, 31, world.PathMain)))
	assert.False(t, Matches(a, conn(world.West, 30, world.PathSecret)))
	assert.True(t, Matches(conn(world.North, 2, 9), conn(world.South, 2, 9)))
}

func TestSatisfiesAndSymmetric(t *testing.T) {
	cons := tileset.Constraints{world.West: {conn(world.West, 30, world.PathMain)}, world.North: {}}
	assert.True(t, Satisfies([]world.Connector{conn(world.West, 30, world.PathMain), conn(world.South, 4, world.PathSide)}, cons))
	assert.False(t, Satisfies([]world.Connector{conn(world.West, 30, world.PathMain), conn(world.North, 4, world.PathSide)}, cons))
	assert.False(t, Satisfies(nil, cons))

	a := []world.Connector{conn(world.East, 30, world.PathMain), conn(world.East, 10, world.PathSide)}
	b := []world.Connector{conn(world.West, 10, world.PathSide), conn(world.West, 30, world.PathMain)}
	assert.True(t, Symmetric(a, b, world.East))
	assert.False(t, Symmetric(a, b[:1], world.East))
	assert.True(t, Symmetric(nil, nil, world.South))
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	origin := world.Coord{}
	east := origin.Neighbor(world.East)

	assert.True(t, l.Record(origin, "a-east", []world.Connector{conn(world.East, 30, world.PathMain)}))
	assert.False(t, l.Record(origin, "a-east", []world.Connector{conn(world.East, 30, world.PathMain)}))
	assert.True(t, l.Record(world.Coord{X: 1, Y: 1}, "sealed", nil))
	assert.Equal(t, "a-east", l.Origin(origin))
	assert.Empty(t, l.Origin(east))
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Generated(origin))
	assert.False(t, l.Generated(east))

	n := l.Snapshot(east)
	require.Len(t, n, 2)
	assert.Equal(t, []world.Connector{conn(world.East, 30, world.PathMain)}, n[world.West])
	sealed, ok := n[world.South]
	assert.True(t, ok)
	assert.Empty(t, sealed)

	cons := Resolve(east, n)
	assert.Equal(t, []world.Connector{conn(world.West, 30, world.PathMain)}, cons[world.West])

	n[world.West][0].Pos = 1
	got, _ := l.Get(origin)
	assert.Equal(t, 30, got.Connectors[0].Pos, "snapshot must not alias the ledger")

	assert.True(t, l.Record(origin, "other", got.Connectors), "a new origin changes the entry")
}

func TestLedgerEntryEncoding(t *testing.T) {
	entry := Entry{
		Origin:     "bsp-xsm0-1",
		Connectors: []world.Connector{conn(world.North, 3, world.PathSecret), conn(world.West, 62, 7)},
	}
	blob, err := Encode(entry)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	empty, err := Encode(Entry{})
	require.NoError(t, err)
	got, err = Decode(empty)
	require.NoError(t, err)
	assert.Empty(t, got.Origin)
	assert.Empty(t, got.Connectors)

	_, err = Decode(blob[:len(blob)-1])
	assert.Error(t, err)
	_, err = Decode(append(blob, 0))
	assert.Error(t, err)
	_, err = Decode([]byte{200, 'x'})
	assert.Error(t, err)
	_, err = Decode(nil)
	assert.Error(t, err)
}
