package entity

import (
	"testing"

	"github.com/samdwyer/chunkforge/internal/world"
)

func TestAnchorChunk(t *testing.T) {
	tests := []struct {
		x, y int
		want world.Coord
	}{
		{0, 0, world.Coord{X: 0, Y: 0}},
		{63, 63, world.Coord{X: 0, Y: 0}},
		{64, 0, world.Coord{X: 1, Y: 0}},
		{-1, -1, world.Coord{X: -1, Y: -1}},
		{-64, -65, world.Coord{X: -1, Y: -2}},
	}
	for _, tt := range tests {
		a := NewAnchor("player", tt.x, tt.y)
		if got := a.Chunk(64, 64); got != tt.want {
			t.Errorf("Chunk(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestAnchorMoveAndSees(t *testing.T) {
	a := NewAnchor("player", 10, 10)
	a.Move(-3, 2)
	if x, y := a.Position(); x != 7 || y != 12 {
		t.Fatalf("Position() = (%d, %d), want (7, 12)", x, y)
	}

	a.VisionRadius = 2
	if !a.Sees(9, 12) {
		t.Error("tile two steps away should be visible")
	}
	if a.Sees(9, 14) {
		t.Error("diagonal tile beyond the radius should not be visible")
	}
}
