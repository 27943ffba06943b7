package tileset

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/chunkforge/internal/seed"
	"github.com/samdwyer/chunkforge/internal/telemetry"
	"github.com/samdwyer/chunkforge/internal/world"
)

// Profile is the set of connectors one side of an authored template offers.
type Profile uint8

const (
	ProfileSealed     Profile = iota // No opening
	ProfileMain                      // main@mid
	ProfileSide                      // side@quarter
	ProfileMainSecret                // main@mid + secret@three-quarters
)

// DefaultProfiles lists every profile the authoring pipeline combines.
var DefaultProfiles = []Profile{ProfileSealed, ProfileMain, ProfileSide, ProfileMainSecret}

// Code returns the single character used in authored template IDs.
func (p Profile) Code() byte {
	return "0msx"[p]
}

// Connectors returns the profile's connectors for a side of the given length.
func (p Profile) Connectors(s world.Side, length int) []world.Connector {
	mid := world.Connector{Side: s, Pos: length / 2, Path: world.PathMain}
	switch p {
	case ProfileMain:
		return []world.Connector{mid}
	case ProfileSide:
		return []world.Connector{{Side: s, Pos: length / 4, Path: world.PathSide}}
	case ProfileMainSecret:
		return []world.Connector{mid, {Side: s, Pos: length * 3 / 4, Path: world.PathSecret}}
	default:
		return nil
	}
}

// AuthorOptions configure the offline authoring pipeline.
type AuthorOptions struct {
	Width, Height int
	Variants      int // Templates per profile combination
	Seed          uint64
	Profiles      []Profile // Defaults to DefaultProfiles
}

// Author generates one template per variant for every combination of side
// profiles, validates them, and returns the ones that pass. Output is a pure
// function of the options.
func Author(ctx context.Context, opts AuthorOptions) ([]*Template, []*ValidationError) {
	tracer := telemetry.Tracer("tileset")
	_, span := tracer.Start(ctx, "tileset.author")
	defer span.End()

	startTime := time.Now()
	profiles := opts.Profiles
	if len(profiles) == 0 {
		profiles = DefaultProfiles
	}
	variants := max(opts.Variants, 1)

	var (
		out      []*Template
		rejected []*ValidationError
	)
	n := len(profiles)
	for combo := 0; combo < n*n*n*n; combo++ {
		var sides [4]Profile
		rest := combo
		for i := range sides {
			sides[i] = profiles[rest%n]
			rest /= n
		}
		for v := 0; v < variants; v++ {
			rng := seed.Rand(seed.Derive(opts.Seed, "author", int64(combo), int64(v)))
			t := authorOne(rng, opts.Width, opts.Height, sides, v)
			if err := Validate(t, opts.Width, opts.Height); err != nil {
				rejected = append(rejected, err)
				continue
			}
			out = append(out, t)
		}
	}

	span.SetAttributes(
		attribute.Int("tileset.width", opts.Width),
		attribute.Int("tileset.height", opts.Height),
		attribute.Int("tileset.templates", len(out)),
		attribute.Int("tileset.rejected", len(rejected)),
		attribute.Int64("tileset.authoring_ms", time.Since(startTime).Milliseconds()),
	)
	return out, rejected
}

// authorOne lays out BSP rooms and routes every connector to its nearest room.
func authorOne(rng *rand.Rand, width, height int, sides [4]Profile, variant int) *Template {
	b := &bspBuilder{
		rng:         rng,
		grid:        world.NewGrid(width, height, world.TileWall),
		minLeafSize: max(5, width/6),
	}
	b.minRoomSize = max(3, b.minLeafSize-4)
	b.maxRoomSize = max(b.minRoomSize+2, width/5)

	// Start BSP with the interior of the grid as root
	root := &bspNode{x: 1, y: 1, width: width - 2, height: height - 2}
	b.splitNode(root)
	b.createRooms(root)
	b.connectRooms(root)

	if len(b.rooms) == 0 {
		room := world.Room{X: width/2 - 1, Y: height/2 - 1, Width: 3, Height: 3}
		b.rooms = append(b.rooms, room)
		b.grid.CarveRoom(room)
	}

	var id strings.Builder
	id.WriteString("bsp-")
	var conns []world.Connector
	for i, s := range world.Sides {
		id.WriteByte(sides[i].Code())
		for _, c := range sides[i].Connectors(s, s.EdgeLength(width, height)) {
			b.routeConnector(c)
			conns = append(conns, c)
		}
	}
	world.SortConnectors(conns)
	return &Template{
		ID:         fmt.Sprintf("%s-%d", id.String(), variant),
		Grid:       b.grid,
		Connectors: conns,
	}
}

// bspBuilder carries the state of one BSP layout.
type bspBuilder struct {
	rng         *rand.Rand
	grid        *world.Grid
	rooms       []world.Room
	minLeafSize int
	minRoomSize int
	maxRoomSize int
}

// bspNode represents a node in the BSP tree.
type bspNode struct {
	x, y          int
	width, height int
	left, right   *bspNode
	room          *world.Room
}

// isLeaf returns true if this node has no children.
func (n *bspNode) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// splitNode recursively splits a BSP node.
func (b *bspBuilder) splitNode(node *bspNode) {
	minLeaf := b.minLeafSize
	if node.width < minLeaf*2 && node.height < minLeaf*2 {
		return
	}

	var splitHorizontally bool
	if node.width > node.height && node.width >= minLeaf*2 {
		splitHorizontally = false
	} else if node.height >= minLeaf*2 {
		splitHorizontally = true
	} else if node.width >= minLeaf*2 {
		splitHorizontally = false
	} else {
		return
	}

	span := node.width
	if splitHorizontally {
		span = node.height
	}
	lo, hi := minLeaf, span-minLeaf
	if hi <= lo {
		return
	}
	splitPos := lo + b.rng.Intn(hi-lo+1)

	if splitHorizontally {
		node.left = &bspNode{x: node.x, y: node.y, width: node.width, height: splitPos}
		node.right = &bspNode{x: node.x, y: node.y + splitPos, width: node.width, height: node.height - splitPos}
	} else {
		node.left = &bspNode{x: node.x, y: node.y, width: splitPos, height: node.height}
		node.right = &bspNode{x: node.x + splitPos, y: node.y, width: node.width - splitPos, height: node.height}
	}

	b.splitNode(node.left)
	b.splitNode(node.right)
}

// createRooms creates rooms in leaf nodes of the BSP tree.
func (b *bspBuilder) createRooms(node *bspNode) {
	if node == nil {
		return
	}
	if !node.isLeaf() {
		b.createRooms(node.left)
		b.createRooms(node.right)
		return
	}
	if node.width-b.minRoomSize+1 <= 0 || node.height-b.minRoomSize+1 <= 0 {
		return
	}

	roomWidth := b.minRoomSize + b.rng.Intn(min(b.maxRoomSize-b.minRoomSize+1, node.width-b.minRoomSize+1))
	roomHeight := b.minRoomSize + b.rng.Intn(min(b.maxRoomSize-b.minRoomSize+1, node.height-b.minRoomSize+1))

	// Ensure room fits within leaf
	roomWidth = min(roomWidth, node.width-2)
	roomHeight = min(roomHeight, node.height-2)
	if roomWidth < b.minRoomSize || roomHeight < b.minRoomSize {
		return
	}

	room := world.Room{
		X:      node.x + 1 + b.rng.Intn(node.width-roomWidth-1),
		Y:      node.y + 1 + b.rng.Intn(node.height-roomHeight-1),
		Width:  roomWidth,
		Height: roomHeight,
	}
	node.room = &room
	b.rooms = append(b.rooms, room)
	b.grid.CarveRoom(room)
}

// connectRooms connects sibling subtrees with corridors, bottom up.
func (b *bspBuilder) connectRooms(node *bspNode) {
	if node == nil || node.isLeaf() {
		return
	}
	b.connectRooms(node.left)
	b.connectRooms(node.right)

	leftRoom := getRoom(node.left)
	rightRoom := getRoom(node.right)
	if leftRoom != nil && rightRoom != nil {
		x1, y1 := leftRoom.Center()
		x2, y2 := rightRoom.Center()
		b.carveCorridor(x1, y1, x2, y2)
	}
}

// getRoom returns a room from a subtree (any room will do).
func getRoom(node *bspNode) *world.Room {
	if node == nil {
		return nil
	}
	if node.room != nil {
		return node.room
	}
	if room := getRoom(node.left); room != nil {
		return room
	}
	return getRoom(node.right)
}

// carveCorridor joins two points with an L-shaped corridor, choosing the
// bend at random.
func (b *bspBuilder) carveCorridor(x1, y1, x2, y2 int) {
	if b.rng.Intn(2) == 0 {
		b.grid.CarveHorizontal(x1, x2, y1)
		b.grid.CarveVertical(y1, y2, x2)
	} else {
		b.grid.CarveVertical(y1, y2, x1)
		b.grid.CarveHorizontal(x1, x2, y2)
	}
}

// routeConnector opens the connector's edge cell and tunnels from the cell
// just inside it to the nearest room.
func (b *bspBuilder) routeConnector(c world.Connector) {
	w, h := b.grid.Width, b.grid.Height
	ex, ey := c.Side.EdgeCell(c.Pos, w, h)
	dx, dy := c.Side.Delta()
	ix, iy := ex-dx, ey-dy

	nearest := b.rooms[0]
	for _, r := range b.rooms[1:] {
		if r.DistanceTo(ix, iy) < nearest.DistanceTo(ix, iy) {
			nearest = r
		}
	}
	cx, cy := nearest.Center()

	// Leave the edge straight on so the corridor never hugs the border.
	if c.Side == world.North || c.Side == world.South {
		b.grid.CarveVertical(iy, cy, ix)
		b.grid.CarveHorizontal(ix, cx, cy)
	} else {
		b.grid.CarveHorizontal(ix, cx, iy)
		b.grid.CarveVertical(iy, cy, cx)
	}
	b.grid.Set(ex, ey, world.TileFloor)
}
