package world

import "testing"

func TestChunkOfNegativeCoordinates(t *testing.T) {
	tests := []struct {
		x, y   int
		want   Coord
		lx, ly int
	}{
		{0, 0, Coord{0, 0}, 0, 0},
		{15, 15, Coord{0, 0}, 15, 15},
		{16, 0, Coord{1, 0}, 0, 0},
		{-1, 0, Coord{-1, 0}, 15, 0},
		{-16, -17, Coord{-1, -2}, 0, 15},
	}

	for _, tt := range tests {
		c, lx, ly := ChunkOf(tt.x, tt.y, 16, 16)
		if c != tt.want || lx != tt.lx || ly != tt.ly {
			t.Errorf("ChunkOf(%d,%d) = %v (%d,%d), want %v (%d,%d)",
				tt.x, tt.y, c, lx, ly, tt.want, tt.lx, tt.ly)
		}
	}
}

func TestSidesAreStructuralOpposites(t *testing.T) {
	c := Coord{X: 3, Y: -4}
	for _, s := range Sides {
		if s.Opposite().Opposite() != s {
			t.Errorf("%s: opposite is not an involution", s)
		}
		if c.Neighbor(s).Neighbor(s.Opposite()) != c {
			t.Errorf("%s: stepping across and back does not return", s)
		}
		parsed, err := ParseSide(s.String())
		if err != nil || parsed != s {
			t.Errorf("ParseSide(%q) = %v, %v", s.String(), parsed, err)
		}
	}
}

func TestEdgeCellsLineUpAcrossBorder(t *testing.T) {
	// Position p on east of one chunk and west of its neighbor share a row.
	for pos := 0; pos < 8; pos++ {
		_, ey := East.EdgeCell(pos, 8, 8)
		_, wy := West.EdgeCell(pos, 8, 8)
		if ey != wy {
			t.Errorf("pos %d: east row %d != west row %d", pos, ey, wy)
		}
		nx, _ := North.EdgeCell(pos, 8, 8)
		sx, _ := South.EdgeCell(pos, 8, 8)
		if nx != sx {
			t.Errorf("pos %d: north column %d != south column %d", pos, nx, sx)
		}
	}
}

func TestFloodFillAndComponents(t *testing.T) {
	g, err := ParseRows([]string{
		"#####",
		"#..##",
		"##.##",
		"##..#",
		"#.###",
	})
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}

	reached := FloodFill(g, 1, 1)
	count := 0
	for _, ok := range reached {
		if ok {
			count++
		}
	}
	if count != 5 {
		t.Errorf("Expected 5 reachable tiles, got %d", count)
	}
	if reached[4*5+1] {
		t.Error("Diagonal tile should not be reachable")
	}

	if got := FloodFill(g, 0, 0); got[0] {
		t.Error("Flood fill from a wall should reach nothing")
	}

	labels, n := Components(g)
	if n != 2 {
		t.Fatalf("Expected 2 components, got %d", n)
	}
	if labels[1*5+1] == labels[4*5+1] {
		t.Error("Separate pockets share a label")
	}
}

func TestDeriveConnectorsKeepsKnownTypes(t *testing.T) {
	g, _ := ParseRows([]string{
		"##.#",
		"#..#",
		"#...",
		"####",
	})
	prev := []Connector{{Side: North, Pos: 2, Path: PathSecret}}
	got := DeriveConnectors(g, prev, PathSide)
	want := []Connector{
		{Side: North, Pos: 2, Path: PathSecret},
		{Side: East, Pos: 2, Path: PathSide},
	}
	if !EqualConnectors(got, want) {
		t.Errorf("DeriveConnectors = %v, want %v", got, want)
	}
}

func TestPathTypeNames(t *testing.T) {
	for _, name := range []string{"main", "side", "secret", "7"} {
		p, err := ParsePathType(name)
		if err != nil {
			t.Fatalf("ParsePathType(%q): %v", name, err)
		}
		if p.String() != name {
			t.Errorf("round trip %q -> %q", name, p.String())
		}
	}
	if _, err := ParsePathType("river"); err == nil {
		t.Error("Expected an error for an unknown path type")
	}
}

func TestGridRowsRoundTrip(t *testing.T) {
	rows := []string{"#.#", "...", "#.#"}
	g, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	got := g.Rows()
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], rows[i])
		}
	}
	if _, err := ParseRows([]string{"##", "#"}); err == nil {
		t.Error("Expected an error for ragged rows")
	}
}

func TestFromEdgesAndNearest(t *testing.T) {
	g, err := ParseRows([]string{
		"##.##",
		"#..##",
		"#####",
		"#.#.#",
		"#####",
	})
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}

	mask := FromEdges(g)
	for _, p := range [][2]int{{2, 0}, {2, 1}, {1, 1}} {
		if !mask[p[1]*5+p[0]] {
			t.Errorf("tile %v should be reachable from the opening", p)
		}
	}
	for _, p := range [][2]int{{1, 3}, {3, 3}} {
		if mask[p[1]*5+p[0]] {
			t.Errorf("sealed pocket %v should not be reachable", p)
		}
	}

	if x, y, ok := Nearest(g, mask, 4, 4); !ok || x != 2 || y != 1 {
		t.Errorf("Nearest(4,4) = (%d,%d,%v), want (2,1,true)", x, y, ok)
	}
	if x, y, ok := Nearest(g, mask, 0, 0); !ok || x != 2 || y != 0 {
		t.Errorf("Nearest(0,0) = (%d,%d,%v), want row-major tie (2,0,true)", x, y, ok)
	}
	if _, _, ok := Nearest(g, make([]bool, len(g.Tiles)), 0, 0); ok {
		t.Error("Nearest on an empty mask should fail")
	}

	sealed, err := ParseRows([]string{"###", "#.#", "###"})
	if err != nil {
		t.Fatalf("ParseRows: %v", err)
	}
	if !FromEdges(sealed)[4] {
		t.Error("A sealed grid should mark its own floor")
	}
}
