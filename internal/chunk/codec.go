package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/samdwyer/chunkforge/internal/world"
)

// Blob layout, little-endian, zstd compressed as a whole:
//
//	magic "CFCK" | version u8 | flags u8 | width u16 | height u16 | seed u64
//	origin len u8 + bytes | tiles bit-packed (1 = floor)
//	[vision bit-packed, if flagVision] | connector count u16 | {side u8, pos u16, path u8}...
const (
	blobMagic   = "CFCK"
	blobVersion = 1

	flagVision = 1 << 0
)

// ErrCorrupt is returned for blobs that cannot be decoded.
var ErrCorrupt = errors.New("chunk: corrupt blob")

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Encode serializes the chunk's tiles, vision layer and connectors.
func Encode(c *Chunk) ([]byte, error) {
	w, h := c.Grid.Width, c.Grid.Height
	if w > 0xffff || h > 0xffff || len(c.Origin) > 0xff || len(c.Connectors) > 0xffff {
		return nil, fmt.Errorf("chunk %v too large to encode", c.Coord)
	}

	var buf bytes.Buffer
	buf.WriteString(blobMagic)
	var flags uint8
	if c.vision != nil {
		flags |= flagVision
	}
	buf.WriteByte(blobVersion)
	buf.WriteByte(flags)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(w))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(h))
	_ = binary.Write(&buf, binary.LittleEndian, c.Seed)
	buf.WriteByte(uint8(len(c.Origin)))
	buf.WriteString(c.Origin)

	tiles := make([]byte, (w*h+7)/8)
	for i, t := range c.Grid.Tiles {
		if t.IsPassable() {
			tiles[i/8] |= 1 << (i % 8)
		}
	}
	buf.Write(tiles)

	if c.vision != nil {
		seen := make([]byte, (w*h+7)/8)
		for i := 0; i < w*h; i++ {
			if c.vision[i/64]&(1<<(i%64)) != 0 {
				seen[i/8] |= 1 << (i % 8)
			}
		}
		buf.Write(seen)
	}

	writeConnectors(&buf, c.Connectors)

	return encoder.EncodeAll(buf.Bytes(), nil), nil
}

// Decode rebuilds a chunk from a blob. The result is clean: it matches what
// is stored.
func Decode(coord world.Coord, blob []byte) (*Chunk, error) {
	raw, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	r := bytes.NewReader(raw)

	magic := make([]byte, len(blobMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != blobMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	var head struct {
		Version uint8
		Flags   uint8
		Width   uint16
		Height  uint16
		Seed    uint64
		Origin  uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if head.Version != blobVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, head.Version)
	}
	origin := make([]byte, head.Origin)
	if _, err := io.ReadFull(r, origin); err != nil {
		return nil, fmt.Errorf("%w: origin: %v", ErrCorrupt, err)
	}

	w, h := int(head.Width), int(head.Height)
	packed := make([]byte, (w*h+7)/8)
	if _, err := io.ReadFull(r, packed); err != nil {
		return nil, fmt.Errorf("%w: tiles: %v", ErrCorrupt, err)
	}
	grid := world.NewGrid(w, h, world.TileWall)
	for i := range grid.Tiles {
		if packed[i/8]&(1<<(i%8)) != 0 {
			grid.Tiles[i] = world.TileFloor
		}
	}

	c := &Chunk{Coord: coord, Grid: grid, Seed: head.Seed, Origin: string(origin)}

	if head.Flags&flagVision != 0 {
		seen := make([]byte, (w*h+7)/8)
		if _, err := io.ReadFull(r, seen); err != nil {
			return nil, fmt.Errorf("%w: vision: %v", ErrCorrupt, err)
		}
		c.vision = make([]uint64, (w*h+63)/64)
		for i := 0; i < w*h; i++ {
			if seen[i/8]&(1<<(i%8)) != 0 {
				c.vision[i/64] |= 1 << (i % 64)
			}
		}
	}

	conns, err := readConnectors(r)
	if err != nil {
		return nil, err
	}
	c.Connectors = conns
	return c, nil
}

// EncodeConnectors writes a bare connector list in the blob's connector
// section format. It is used for the per-level connector ledger.
func EncodeConnectors(conns []world.Connector) ([]byte, error) {
	if len(conns) > 0xffff {
		return nil, fmt.Errorf("too many connectors: %d", len(conns))
	}
	var buf bytes.Buffer
	writeConnectors(&buf, conns)
	return buf.Bytes(), nil
}

// DecodeConnectors reads a list written by EncodeConnectors.
func DecodeConnectors(b []byte) ([]world.Connector, error) {
	r := bytes.NewReader(b)
	conns, err := readConnectors(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}
	return conns, nil
}

func writeConnectors(buf *bytes.Buffer, conns []world.Connector) {
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(conns)))
	for _, conn := range conns {
		buf.WriteByte(uint8(conn.Side))
		_ = binary.Write(buf, binary.LittleEndian, uint16(conn.Pos))
		buf.WriteByte(uint8(conn.Path))
	}
}

func readConnectors(r *bytes.Reader) ([]world.Connector, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: connector count: %v", ErrCorrupt, err)
	}
	conns := make([]world.Connector, 0, count)
	for i := 0; i < int(count); i++ {
		var rec struct {
			Side uint8
			Pos  uint16
			Path uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: connector %d: %v", ErrCorrupt, i, err)
		}
		if rec.Side > uint8(world.West) {
			return nil, fmt.Errorf("%w: connector %d has side %d", ErrCorrupt, i, rec.Side)
		}
		conns = append(conns, world.Connector{
			Side: world.Side(rec.Side),
			Pos:  int(rec.Pos),
			Path: world.PathType(rec.Path),
		})
	}
	return conns, nil
}
