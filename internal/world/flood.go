package world

// FloodFill returns a mask of the floor tiles 4-connected to (sx, sy).
// The mask is empty when the start tile is not floor.
func FloodFill(g *Grid, sx, sy int) []bool {
	reached := make([]bool, len(g.Tiles))
	if !g.IsPassable(sx, sy) {
		return reached
	}
	queue := []int{sy*g.Width + sx}
	reached[queue[0]] = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%g.Width, i/g.Width
		for _, d := range [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
			nx, ny := x+d[0], y+d[1]
			if !g.IsPassable(nx, ny) {
				continue
			}
			j := ny*g.Width + nx
			if !reached[j] {
				reached[j] = true
				queue = append(queue, j)
			}
		}
	}
	return reached
}

// Components labels every floor tile with a 4-connected component id
// starting at 1. Walls are labelled 0. It returns the labels and the number
// of components.
func Components(g *Grid) ([]int, int) {
	labels := make([]int, len(g.Tiles))
	n := 0
	for i, t := range g.Tiles {
		if !t.IsPassable() || labels[i] != 0 {
			continue
		}
		n++
		mask := FloodFill(g, i%g.Width, i/g.Width)
		for j, ok := range mask {
			if ok {
				labels[j] = n
			}
		}
	}
	return labels, n
}

// FromEdges marks the floor tiles connected to an opening on the border.
// A grid with no border openings has every floor tile marked.
func FromEdges(g *Grid) []bool {
	reached := make([]bool, len(g.Tiles))
	open := false
	for _, s := range Sides {
		for _, pos := range g.EdgeOpenings(s) {
			x, y := s.EdgeCell(pos, g.Width, g.Height)
			if reached[y*g.Width+x] {
				continue
			}
			open = true
			for i, ok := range FloodFill(g, x, y) {
				reached[i] = reached[i] || ok
			}
		}
	}
	if !open {
		for i, t := range g.Tiles {
			reached[i] = t.IsPassable()
		}
	}
	return reached
}

// Nearest returns the marked tile closest to (x, y) by Manhattan distance.
// Ties go to the first tile in row-major order.
func Nearest(g *Grid, mask []bool, x, y int) (nx, ny int, ok bool) {
	best := -1
	for ty := range g.Height {
		for tx := range g.Width {
			if !mask[ty*g.Width+tx] {
				continue
			}
			if d := abs(tx-x) + abs(ty-y); best < 0 || d < best {
				best, nx, ny = d, tx, ty
			}
		}
	}
	return nx, ny, best >= 0
}
