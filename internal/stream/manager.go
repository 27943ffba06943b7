// Package stream keeps the chunks around one or more anchors loaded.
//
// A Manager is driven by calling Tick once per frame from a single
// goroutine. Tick applies finished generations, tears down chunks that left
// every unload radius, and hands new work to a fixed pool of worker
// goroutines. Workers only see private data: a coordinate and a snapshot of
// its neighbours' connectors on the way in, a finished chunk on the way out.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/config"
	"github.com/samdwyer/chunkforge/internal/constraint"
	"github.com/samdwyer/chunkforge/internal/store"
	"github.com/samdwyer/chunkforge/internal/telemetry"
	"github.com/samdwyer/chunkforge/internal/world"
)

// ErrPanic wraps a panic recovered from a worker.
var ErrPanic = errors.New("generation panicked")

// Source is the level a manager streams chunks from.
type Source interface {
	// Restore returns a previously saved chunk or an error wrapping
	// store.ErrNotFound.
	Restore(ctx context.Context, c world.Coord) (*chunk.Chunk, error)
	// Generate builds a fresh chunk. A chunk returned with an error is a
	// usable fallback.
	Generate(ctx context.Context, c world.Coord, n constraint.Neighbors) (*chunk.Chunk, error)
	// Fallback returns the safe chunk used once retries are exhausted.
	Fallback(c world.Coord, n constraint.Neighbors) *chunk.Chunk
	SaveTiles(ctx context.Context, c world.Coord, blob []byte) error
	SaveConnectors(ctx context.Context, c world.Coord, e constraint.Entry) error
	Ledger() *constraint.Ledger
	// NeighborFirst reports whether a chunk must wait while any of its four
	// neighbours is generating.
	NeighborFirst() bool
}

// Presenter consumes loaded chunks, e.g. a renderer or a collision index.
// Build is called exactly once when a chunk becomes loaded and Teardown
// exactly once when it starts unloading. Both run on the Tick goroutine.
type Presenter interface {
	Build(c *chunk.Chunk)
	Teardown(c world.Coord)
}

// Options bound the manager's work.
type Options struct {
	LoadRadius         int // Chebyshev radius in chunks
	UnloadRadius       int // Must exceed LoadRadius
	Workers            int
	MaxStartsPerFrame  int
	MaxAppliesPerFrame int
	FrameBudget        time.Duration
	MaxAttempts        int              // Generation attempts before the fallback is used
	Clock              func() time.Time // Defaults to time.Now
}

// OptionsFrom converts the stream configuration.
func OptionsFrom(cfg config.Stream) Options {
	return Options{
		LoadRadius:         cfg.LoadRadius,
		UnloadRadius:       cfg.UnloadRadius,
		Workers:            cfg.Workers,
		MaxStartsPerFrame:  cfg.MaxStartsPerFrame,
		MaxAppliesPerFrame: cfg.MaxAppliesPerFrame,
		FrameBudget:        cfg.FrameBudget,
		MaxAttempts:        cfg.MaxAttempts,
	}
}

func (o Options) validate() error {
	if o.LoadRadius < 0 || o.UnloadRadius <= o.LoadRadius {
		return fmt.Errorf("unload radius %d must exceed load radius %d", o.UnloadRadius, o.LoadRadius)
	}
	if o.Workers < 1 || o.MaxStartsPerFrame < 1 || o.MaxAppliesPerFrame < 1 || o.MaxAttempts < 1 {
		return fmt.Errorf("workers, per-frame limits and attempts must be positive")
	}
	if o.FrameBudget <= 0 {
		return fmt.Errorf("frame budget must be positive")
	}
	return nil
}

// Stats is a snapshot of the manager's counters.
type Stats struct {
	Frame      uint64
	Queued     int
	Generating int
	Loaded     int
	Unloading  int

	Applied      int // Chunks made live
	Restored     int // Of which came from the store
	Fallbacks    int // Of which are fallback chunks
	Stale        int // Results discarded on arrival
	Failures     int // Failed or panicked generations
	Saved        int
	SaveFailures int
	Unsaved      int // Blobs held in memory after failed saves
}

type jobKind uint8

const (
	jobLoad jobKind = iota
	jobSaveTiles
	jobSaveConnectors
)

type job struct {
	kind      jobKind
	coord     world.Coord
	ticket    uint64
	neighbors constraint.Neighbors
	pending   []byte // Unsaved blob to restore from instead of the store
	chunk     *chunk.Chunk
	blob      []byte
	entry     constraint.Entry
}

type result struct {
	kind     jobKind
	coord    world.Coord
	ticket   uint64
	chunk    *chunk.Chunk
	restored bool
	blob     []byte
	err      error
}

type entry struct {
	state     State
	chunk     *chunk.Chunk
	attempts  int
	ticket    uint64
	neighbors constraint.Neighbors
}

// Manager owns the live chunk registry. All methods except Close must be
// called from the goroutine that calls Tick.
type Manager struct {
	src    Source
	opts   Options
	logger *log.Logger
	tracer trace.Tracer

	anchors    map[string]world.Coord
	desired    mapset.Set[world.Coord]
	retained   mapset.Set[world.Coord]
	entries    map[world.Coord]*entry
	presenters []Presenter
	events     []Event
	unsaved    map[world.Coord][]byte
	saveQueue  []job

	jobs    chan job
	results chan result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	loadsInFlight int
	savesInFlight int
	ticket        uint64
	frame         uint64
	frameStart    time.Time
	frameWork     int
	stats         Stats
	closed        bool
}

// New starts a manager and its worker pool.
func New(src Source, opts Options, logger *log.Logger) (*Manager, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		src:      src,
		opts:     opts,
		logger:   logger,
		tracer:   telemetry.Tracer("stream"),
		anchors:  make(map[string]world.Coord),
		desired:  mapset.New[world.Coord](),
		retained: mapset.New[world.Coord](),
		entries:  make(map[world.Coord]*entry),
		unsaved:  make(map[world.Coord][]byte),
		jobs:     make(chan job, opts.Workers),
		results:  make(chan result, opts.Workers*4),
		ctx:      ctx,
		cancel:   cancel,
	}
	for range opts.Workers {
		m.wg.Add(1)
		go m.worker()
	}
	return m, nil
}

// AddPresenter registers a presenter. Chunks that are already loaded are
// built on it immediately.
func (m *Manager) AddPresenter(p Presenter) {
	m.presenters = append(m.presenters, p)
	for _, c := range m.sortedCoords(StateLoaded) {
		p.Build(m.entries[c].chunk)
	}
}

// SetAnchor places or moves an anchor at a chunk coordinate.
func (m *Manager) SetAnchor(id string, c world.Coord) {
	m.anchors[id] = c
}

// RemoveAnchor forgets an anchor; its chunks unload on the next Tick unless
// another anchor retains them.
func (m *Manager) RemoveAnchor(id string) {
	delete(m.anchors, id)
}

// State returns the lifecycle state of a coordinate.
func (m *Manager) State(c world.Coord) State {
	if e, ok := m.entries[c]; ok {
		return e.state
	}
	return StateUnrequested
}

// Chunk returns a loaded chunk. Callers may mutate it on the Tick goroutine.
func (m *Manager) Chunk(c world.Coord) (*chunk.Chunk, bool) {
	e, ok := m.entries[c]
	if !ok || e.state != StateLoaded {
		return nil, false
	}
	return e.chunk, true
}

// DrainEvents returns the events queued since the last call, oldest first.
func (m *Manager) DrainEvents() []Event {
	out := m.events
	m.events = nil
	return out
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	s := m.stats
	s.Frame = m.frame
	s.Unsaved = len(m.unsaved)
	for _, e := range m.entries {
		switch e.state {
		case StateQueued:
			s.Queued++
		case StateGenerating:
			s.Generating++
		case StateLoaded:
			s.Loaded++
		case StateUnloading:
			s.Unloading++
		}
	}
	return s
}

// Tick advances the lifecycle by one frame.
func (m *Manager) Tick() {
	if m.closed {
		return
	}
	m.frame++
	m.frameStart = m.opts.Clock()
	m.frameWork = 0

	m.updateDesired()
	m.collect()
	m.unload()
	m.dispatch()
	m.flushSaves()
}

// spend reports whether another unit of main-thread work fits in this
// frame. The first unit always fits so every frame makes progress.
func (m *Manager) spend() bool {
	if m.frameWork > 0 && m.opts.Clock().Sub(m.frameStart) >= m.opts.FrameBudget {
		return false
	}
	m.frameWork++
	return true
}

func (m *Manager) emit(kind EventKind, c world.Coord) {
	m.events = append(m.events, Event{Kind: kind, Coord: c, Frame: m.frame})
}

// distance is the Chebyshev distance to the nearest anchor.
func (m *Manager) distance(c world.Coord) int {
	best := -1
	for _, a := range m.anchors {
		if d := a.Chebyshev(c); best < 0 || d < best {
			best = d
		}
	}
	return best
}

// byPriority orders coordinates nearest-anchor first, then by coordinate.
func (m *Manager) byPriority(coords []world.Coord) {
	slices.SortFunc(coords, func(a, b world.Coord) int {
		da, db := m.distance(a), m.distance(b)
		if da != db {
			return da - db
		}
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
}

func (m *Manager) sortedCoords(s State) []world.Coord {
	var out []world.Coord
	for c, e := range m.entries {
		if e.state == s {
			out = append(out, c)
		}
	}
	m.byPriority(out)
	return out
}

// updateDesired recomputes the load and retain sets and queues newly wanted
// coordinates. Queued coordinates no longer wanted are dropped.
func (m *Manager) updateDesired() {
	desired := mapset.New[world.Coord]()
	retained := mapset.New[world.Coord]()
	l, u := m.opts.LoadRadius, m.opts.UnloadRadius
	for _, a := range m.anchors {
		for dy := -u; dy <= u; dy++ {
			for dx := -u; dx <= u; dx++ {
				c := world.Coord{X: a.X + dx, Y: a.Y + dy}
				retained.Put(c)
				if max(abs(dx), abs(dy)) <= l {
					desired.Put(c)
				}
			}
		}
	}
	m.desired, m.retained = desired, retained

	var fresh []world.Coord
	desired.Each(func(c world.Coord) {
		if _, ok := m.entries[c]; !ok {
			fresh = append(fresh, c)
		}
	})
	m.byPriority(fresh)
	for _, c := range fresh {
		m.entries[c] = &entry{state: StateQueued}
		m.emit(EventLoadRequested, c)
	}

	for c, e := range m.entries {
		if e.state == StateQueued && !desired.Has(c) {
			delete(m.entries, c)
		}
	}
}

// collect applies finished work, at most MaxAppliesPerFrame chunks.
func (m *Manager) collect() {
	applied := 0
	for applied < m.opts.MaxAppliesPerFrame {
		if !m.spend() {
			return
		}
		select {
		case r := <-m.results:
			if m.handle(r) {
				applied++
			}
		default:
			m.frameWork--
			return
		}
	}
}

// handle processes one worker result and reports whether a chunk was made
// live.
func (m *Manager) handle(r result) bool {
	switch r.kind {
	case jobSaveTiles:
		m.savesInFlight--
		m.saveDone(r)
		return false
	case jobSaveConnectors:
		m.savesInFlight--
		if r.err != nil {
			m.stats.SaveFailures++
			m.logger.Printf("ledger entry %v not saved: %v", r.coord, r.err)
		}
		return false
	}

	m.loadsInFlight--
	e, ok := m.entries[r.coord]
	if !ok || e.state != StateGenerating || e.ticket != r.ticket {
		m.stats.Stale++
		return false
	}
	if !m.desired.Has(r.coord) {
		m.stats.Stale++
		delete(m.entries, r.coord)
		return false
	}

	c := r.chunk
	if c == nil {
		m.stats.Failures++
		e.attempts++
		if e.attempts < m.opts.MaxAttempts {
			m.logger.Printf("chunk %v attempt %d failed, retrying: %v", r.coord, e.attempts, r.err)
			e.state = StateQueued
			return false
		}
		m.logger.Printf("chunk %v failed %d times, using fallback: %v", r.coord, e.attempts, r.err)
		c = m.src.Fallback(r.coord, e.neighbors)
	} else if r.err != nil {
		m.logger.Printf("warning: chunk %v: %v", r.coord, r.err)
	}

	m.apply(e, c, r.restored)
	return true
}

func (m *Manager) apply(e *entry, c *chunk.Chunk, restored bool) {
	e.state = StateLoaded
	e.chunk = c
	e.neighbors = nil
	m.stats.Applied++
	if restored {
		m.stats.Restored++
	}
	if c.Origin == chunk.OriginFallback {
		m.stats.Fallbacks++
	}
	m.record(c)
	for _, p := range m.presenters {
		p.Build(c)
	}
	m.emit(EventLoaded, c.Coord)
}

// record updates the ledger and schedules a save when the entry changed.
func (m *Manager) record(c *chunk.Chunk) {
	if m.src.Ledger().Record(c.Coord, c.Origin, c.Connectors) {
		m.saveQueue = append(m.saveQueue, job{
			kind:  jobSaveConnectors,
			coord: c.Coord,
			entry: constraint.Entry{Origin: c.Origin, Connectors: slices.Clone(c.Connectors)},
		})
	}
}

func (m *Manager) saveDone(r result) {
	if r.err != nil {
		m.stats.SaveFailures++
		m.unsaved[r.coord] = r.blob
		m.logger.Printf("error: chunk %v not saved, keeping it in memory: %v", r.coord, r.err)
	} else {
		m.stats.Saved++
		delete(m.unsaved, r.coord)
	}
	if e, ok := m.entries[r.coord]; ok && e.state == StateUnloading {
		delete(m.entries, r.coord)
		m.emit(EventUnloaded, r.coord)
	}
}

// unload tears down loaded chunks outside every unload radius.
func (m *Manager) unload() {
	for _, c := range m.sortedCoords(StateLoaded) {
		if m.retained.Has(c) {
			continue
		}
		if !m.spend() {
			return
		}
		e := m.entries[c]
		for _, p := range m.presenters {
			p.Teardown(c)
		}
		m.emit(EventUnloadRequested, c)
		ch := e.chunk
		e.chunk = nil

		if !ch.Dirty() {
			delete(m.entries, c)
			m.emit(EventUnloaded, c)
			continue
		}
		m.record(ch)
		e.state = StateUnloading
		m.saveQueue = append(m.saveQueue, job{kind: jobSaveTiles, coord: c, chunk: ch})
	}
}

// dispatch starts generation for queued coordinates, nearest first.
func (m *Manager) dispatch() {
	queued := m.sortedCoords(StateQueued)
	if len(queued) == 0 {
		return
	}
	_, span := m.tracer.Start(m.ctx, "stream.dispatch")
	defer span.End()

	started := 0
	for _, c := range queued {
		if started >= m.opts.MaxStartsPerFrame || m.loadsInFlight >= m.opts.Workers {
			break
		}
		if m.src.NeighborFirst() && m.neighborGenerating(c) {
			continue
		}
		if !m.spend() {
			break
		}
		e := m.entries[c]
		m.ticket++
		for _, s := range world.Sides {
			if n, ok := m.entries[c.Neighbor(s)]; ok && n.state == StateLoaded {
				m.record(n.chunk)
			}
		}
		j := job{
			kind:      jobLoad,
			coord:     c,
			ticket:    m.ticket,
			neighbors: m.src.Ledger().Snapshot(c),
			pending:   m.unsaved[c],
		}
		select {
		case m.jobs <- j:
		default:
			m.frameWork--
			span.SetAttributes(attribute.Int("stream.started", started))
			return
		}
		e.state = StateGenerating
		e.ticket = j.ticket
		e.neighbors = j.neighbors
		m.loadsInFlight++
		started++
	}
	span.SetAttributes(
		attribute.Int("stream.started", started),
		attribute.Int("stream.queued", len(queued)),
		attribute.Int64("stream.frame", int64(m.frame)),
	)
}

func (m *Manager) neighborGenerating(c world.Coord) bool {
	for _, s := range world.Sides {
		if e, ok := m.entries[c.Neighbor(s)]; ok && e.state == StateGenerating {
			return true
		}
	}
	return false
}

// flushSaves hands queued saves to idle workers.
func (m *Manager) flushSaves() {
	for len(m.saveQueue) > 0 {
		select {
		case m.jobs <- m.saveQueue[0]:
			m.saveQueue = m.saveQueue[1:]
			m.savesInFlight++
		default:
			return
		}
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		m.results <- m.run(j)
	}
}

// run executes one job. Panics become errors on the result.
func (m *Manager) run(j job) (r result) {
	r = result{kind: j.kind, coord: j.coord, ticket: j.ticket}
	defer func() {
		if p := recover(); p != nil {
			r.chunk = nil
			r.err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	switch j.kind {
	case jobSaveTiles:
		blob, err := chunk.Encode(j.chunk)
		if err != nil {
			r.err = err
			return r
		}
		r.blob = blob
		r.err = m.src.SaveTiles(m.ctx, j.coord, blob)
		return r
	case jobSaveConnectors:
		r.err = m.src.SaveConnectors(m.ctx, j.coord, j.entry)
		return r
	}

	if j.pending != nil {
		c, err := chunk.Decode(j.coord, j.pending)
		if err == nil {
			r.chunk, r.restored = c, true
			return r
		}
		m.logger.Printf("unsaved blob for %v unreadable: %v", j.coord, err)
	}

	c, err := m.src.Restore(m.ctx, j.coord)
	switch {
	case err == nil:
		r.chunk, r.restored = c, true
		return r
	case !errors.Is(err, store.ErrNotFound):
		m.logger.Printf("restore %v failed, regenerating: %v", j.coord, err)
	}

	r.chunk, r.err = m.src.Generate(m.ctx, j.coord, j.neighbors)
	return r
}

// Close stops the workers, tears down every loaded chunk and saves the
// dirty ones along with any blobs whose earlier saves failed. It returns
// the first save error; blobs that still cannot be saved are logged.
func (m *Manager) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true

	close(m.jobs)
	go func() {
		m.wg.Wait()
		close(m.results)
	}()
	for r := range m.results {
		if r.kind == jobLoad {
			m.loadsInFlight--
			continue
		}
		m.handle(r)
	}

	// Saves the pool never picked up run here.
	for _, j := range m.saveQueue {
		m.savesInFlight++
		m.handle(m.run(j))
	}
	m.saveQueue = nil

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range m.sortedCoords(StateLoaded) {
		e := m.entries[c]
		for _, p := range m.presenters {
			p.Teardown(c)
		}
		m.emit(EventUnloadRequested, c)
		if e.chunk.Dirty() {
			blob, err := chunk.Encode(e.chunk)
			if err == nil {
				err = m.src.SaveTiles(ctx, c, blob)
			}
			if err != nil {
				m.unsaved[c] = blob
				keep(err)
			}
		}
		if m.src.Ledger().Record(c, e.chunk.Origin, e.chunk.Connectors) {
			keep(m.src.SaveConnectors(ctx, c, constraint.Entry{Origin: e.chunk.Origin, Connectors: e.chunk.Connectors}))
		}
		delete(m.entries, c)
		m.emit(EventUnloaded, c)
	}
	for c, blob := range m.unsaved {
		if blob == nil {
			continue
		}
		if err := m.src.SaveTiles(ctx, c, blob); err != nil {
			m.logger.Printf("error: chunk %v lost on close: %v", c, err)
			keep(err)
			continue
		}
		delete(m.unsaved, c)
	}
	m.cancel()
	return firstErr
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
