package network

import (
	"context"
	"log/slog"
	"sync"
	"time"

	mmetrics "subway-network/internal/metrics"
	"subway-network/internal/publisher"
	"subway-network/internal/routing"
	"subway-network/internal/subway"
)

// EventPublisher receives change notifications. *publisher.NATSPublisher
// implements it.
type EventPublisher interface {
	PublishLineEvent(ev publisher.LineEvent) error
	PublishStationEvent(ev publisher.StationEvent) error
}

// Manager applies edits to stations and lines and answers path queries.
//
// Edits to one line are serialised with a per-line lock; edits to different
// lines run in parallel. The network graph is cached between queries when
// enabled and dropped on every edit that can change it. A generation counter
// keeps a rebuild that raced with an edit from being cached.
type Manager struct {
	store           Store
	pub             EventPublisher
	cacheGraph      bool
	refreshInterval time.Duration
	metrics         *mmetrics.Collector
	log             *slog.Logger

	// lineLocks is never pruned. Callers already queued on a deleted line's
	// mutex must stay serialised with any caller that arrives later.
	mu        sync.Mutex
	lineLocks map[int64]*sync.Mutex

	graphMu    sync.Mutex
	graph      *routing.Graph
	generation uint64

	refreshCancel context.CancelFunc
	refreshWG     sync.WaitGroup
}

// NewManager wires a Manager. pub and metrics may be nil.
func NewManager(store Store, pub EventPublisher, cacheGraph bool, refreshInterval time.Duration, metrics *mmetrics.Collector, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:           store,
		pub:             pub,
		cacheGraph:      cacheGraph,
		refreshInterval: refreshInterval,
		metrics:         metrics,
		log:             log,
		lineLocks:       make(map[int64]*sync.Mutex),
	}
}

// ---------------------------------------------------------------------------
// Stations

func (m *Manager) CreateStation(ctx context.Context, name string) (subway.Station, error) {
	n, err := subway.NormalizeName("station.create", name)
	if err != nil {
		return subway.Station{}, err
	}
	st, err := m.store.CreateStation(ctx, n)
	if err != nil {
		return subway.Station{}, err
	}
	m.log.Info("station created", "station_id", st.ID, "name", st.Name)
	m.publishStation(publisher.EventCreated, st)
	return st, nil
}

func (m *Manager) Stations(ctx context.Context) ([]subway.Station, error) {
	return m.store.ListStations(ctx)
}

func (m *Manager) Station(ctx context.Context, id int64) (subway.Station, error) {
	return m.store.LoadStation(ctx, id)
}

func (m *Manager) RenameStation(ctx context.Context, id int64, name string) (subway.Station, error) {
	n, err := subway.NormalizeName("station.rename", name)
	if err != nil {
		return subway.Station{}, err
	}
	st, err := m.store.RenameStation(ctx, id, n)
	if err != nil {
		return subway.Station{}, err
	}
	// cached graph carries station names
	m.invalidateGraph()
	m.log.Info("station renamed", "station_id", st.ID, "name", st.Name)
	m.publishStation(publisher.EventUpdated, st)
	return st, nil
}

func (m *Manager) DeleteStation(ctx context.Context, id int64) error {
	if err := m.store.DeleteStation(ctx, id); err != nil {
		return err
	}
	m.log.Info("station deleted", "station_id", id)
	m.publishStation(publisher.EventDeleted, subway.Station{ID: id})
	return nil
}

// ---------------------------------------------------------------------------
// Lines

// CreateLine creates a line whose route is the single section up→down.
func (m *Manager) CreateLine(ctx context.Context, name, color string, upID, downID int64, distance int) (subway.Line, error) {
	up, down, err := m.loadPair(ctx, upID, downID)
	if err != nil {
		return subway.Line{}, err
	}
	first, err := subway.NewSection(0, up, down, distance)
	if err != nil {
		return subway.Line{}, err
	}
	line, err := subway.NewLine(0, name, color, first)
	if err != nil {
		return subway.Line{}, err
	}
	line, err = m.store.CreateLine(ctx, line)
	if err != nil {
		return subway.Line{}, err
	}
	m.invalidateGraph()
	m.log.Info("line created", "line_id", line.ID, "name", line.Name)
	m.publishLine(publisher.EventCreated, line)
	return line, nil
}

func (m *Manager) Lines(ctx context.Context) ([]subway.Line, error) {
	return m.store.LoadAllLines(ctx)
}

func (m *Manager) Line(ctx context.Context, id int64) (subway.Line, error) {
	return m.store.LoadLine(ctx, id)
}

func (m *Manager) UpdateLine(ctx context.Context, id int64, name, color string) (subway.Line, error) {
	n, err := subway.NormalizeName("line.update", name)
	if err != nil {
		return subway.Line{}, err
	}
	unlock := m.lockLine(id)
	defer unlock()

	line, err := m.store.UpdateLine(ctx, id, n, color)
	if err != nil {
		return subway.Line{}, err
	}
	m.log.Info("line updated", "line_id", id, "name", line.Name)
	m.publishLine(publisher.EventUpdated, line)
	return line, nil
}

func (m *Manager) DeleteLine(ctx context.Context, id int64) error {
	unlock := m.lockLine(id)
	defer unlock()

	if err := m.store.DeleteLine(ctx, id); err != nil {
		return err
	}

	m.invalidateGraph()
	m.log.Info("line deleted", "line_id", id)
	m.publishLine(publisher.EventDeleted, subway.Line{ID: id})
	return nil
}

// ---------------------------------------------------------------------------
// Sections

// AddSection inserts the section up→down into the line and persists the new
// route. Nothing is written when the insertion is rejected.
func (m *Manager) AddSection(ctx context.Context, lineID, upID, downID int64, distance int) (subway.Line, error) {
	return m.mutate(ctx, "add", lineID, func(line *subway.Line) error {
		up, down, err := m.loadPair(ctx, upID, downID)
		if err != nil {
			return err
		}
		sec, err := subway.NewSection(lineID, up, down, distance)
		if err != nil {
			return err
		}
		return line.AddSection(sec)
	})
}

// RemoveStation takes a station off the line and persists the new route.
func (m *Manager) RemoveStation(ctx context.Context, lineID, stationID int64) (subway.Line, error) {
	return m.mutate(ctx, "remove", lineID, func(line *subway.Line) error {
		return line.RemoveStation(stationID)
	})
}

func (m *Manager) mutate(ctx context.Context, op string, lineID int64, edit func(*subway.Line) error) (line subway.Line, err error) {
	defer func() { m.recordMutation(op, err) }()

	unlock := m.lockLine(lineID)
	defer unlock()

	line, err = m.store.LoadLine(ctx, lineID)
	if err != nil {
		return subway.Line{}, err
	}
	if err = edit(&line); err != nil {
		m.log.Debug("section edit rejected", "op", op, "line_id", lineID, "kind", subway.KindOf(err), "err", err)
		return subway.Line{}, err
	}
	saved, err := m.store.SaveSections(ctx, lineID, line.Sections)
	if err != nil {
		return subway.Line{}, err
	}
	line.Sections = saved
	m.invalidateGraph()

	m.log.Info("line route changed", "op", op, "line_id", lineID, "sections", saved.Len(), "distance", saved.TotalDistance())
	ev := publisher.EventSectionAdded
	if op == "remove" {
		ev = publisher.EventStationRemoved
	}
	m.publishLine(ev, line)
	return line, nil
}

// lockLine takes the single-writer lock of a line and returns its release.
func (m *Manager) lockLine(id int64) func() {
	m.mu.Lock()
	l, ok := m.lineLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.lineLocks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) loadPair(ctx context.Context, upID, downID int64) (subway.Station, subway.Station, error) {
	up, err := m.store.LoadStation(ctx, upID)
	if err != nil {
		return subway.Station{}, subway.Station{}, err
	}
	down, err := m.store.LoadStation(ctx, downID)
	if err != nil {
		return subway.Station{}, subway.Station{}, err
	}
	return up, down, nil
}

// ---------------------------------------------------------------------------
// Paths

// FindPath returns the shortest route between two stations over all lines.
func (m *Manager) FindPath(ctx context.Context, source, target int64) (res routing.Result, err error) {
	const op = "network.path"
	start := time.Now()
	defer func() {
		if m.metrics == nil {
			return
		}
		m.metrics.PathDuration.Observe(time.Since(start).Seconds())
		m.metrics.PathQueries.WithLabelValues(resultLabel(err)).Inc()
	}()

	if source == target {
		return routing.Result{}, subway.Errorf(op, subway.KindSameSourceAndTarget, "station %d", source)
	}
	for _, id := range []int64{source, target} {
		if _, err := m.store.LoadStation(ctx, id); err != nil {
			if subway.IsKind(err, subway.KindNotFound) {
				return routing.Result{}, &subway.Error{Op: op, Kind: subway.KindStationNotFound, Msg: "unknown station", Err: err}
			}
			return routing.Result{}, err
		}
	}

	g, err := m.currentGraph(ctx)
	if err != nil {
		return routing.Result{}, err
	}
	return g.FindPath(source, target)
}

// currentGraph returns the cached graph or builds one from a fresh snapshot.
func (m *Manager) currentGraph(ctx context.Context) (*routing.Graph, error) {
	m.graphMu.Lock()
	g, gen := m.graph, m.generation
	m.graphMu.Unlock()
	if g != nil {
		return g, nil
	}

	lines, err := m.store.LoadAllLines(ctx)
	if err != nil {
		return nil, err
	}
	g = routing.Build(lines)
	if m.metrics != nil {
		m.metrics.GraphRebuilds.Inc()
		m.metrics.GraphStations.Set(float64(g.StationCount()))
		m.metrics.GraphEdges.Set(float64(g.EdgeCount()))
	}
	m.log.Debug("graph rebuilt", "lines", len(lines), "stations", g.StationCount(), "edges", g.EdgeCount())

	if m.cacheGraph {
		m.graphMu.Lock()
		if m.generation == gen {
			m.graph = g
		}
		m.graphMu.Unlock()
	}
	return g, nil
}

func (m *Manager) invalidateGraph() {
	m.graphMu.Lock()
	m.generation++
	m.graph = nil
	m.graphMu.Unlock()
}

// StartRefresher drops and rebuilds the cached graph every refresh interval
// so that edits made by other processes against the same store are picked up.
func (m *Manager) StartRefresher(parent context.Context) {
	if m.refreshInterval <= 0 || !m.cacheGraph {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.refreshCancel = cancel
	m.refreshWG.Add(1)
	go func() {
		defer m.refreshWG.Done()
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.invalidateGraph()
				if _, err := m.currentGraph(ctx); err != nil && ctx.Err() == nil {
					m.log.Warn("graph refresh failed", "err", err)
				}
			}
		}
	}()
}

// Stop ends the refresher started by StartRefresher.
func (m *Manager) Stop() {
	if m.refreshCancel != nil {
		m.refreshCancel()
	}
	m.refreshWG.Wait()
}

// ---------------------------------------------------------------------------
// Events and metrics

func (m *Manager) publishLine(typ string, line subway.Line) {
	if m.pub == nil {
		return
	}
	ev := publisher.LineEvent{
		Type:          typ,
		LineID:        line.ID,
		Name:          line.Name,
		TotalDistance: line.Sections.TotalDistance(),
		Timestamp:     time.Now().UTC(),
	}
	for _, st := range line.Sections.Stations() {
		ev.Stations = append(ev.Stations, st.ID)
	}
	if err := m.pub.PublishLineEvent(ev); err != nil {
		m.log.Warn("publish line event failed", "line_id", line.ID, "type", typ, "err", err)
	}
}

func (m *Manager) publishStation(typ string, st subway.Station) {
	if m.pub == nil {
		return
	}
	ev := publisher.StationEvent{Type: typ, StationID: st.ID, Name: st.Name, Timestamp: time.Now().UTC()}
	if err := m.pub.PublishStationEvent(ev); err != nil {
		m.log.Warn("publish station event failed", "station_id", st.ID, "type", typ, "err", err)
	}
}

func (m *Manager) recordMutation(op string, err error) {
	if m.metrics == nil {
		return
	}
	m.metrics.SectionMutations.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := subway.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
