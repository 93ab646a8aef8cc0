package chart

import (
	"math"
	"sync"

	"github.com/grovetools/chartview/errors"
)

// UpdateType names the mutation that produced an Update.
type UpdateType string

const (
	UpdateDataset  UpdateType = "dataset"
	UpdateVariable UpdateType = "variable"
	UpdateKind     UpdateType = "kind"
	UpdateZoom     UpdateType = "zoom"
	UpdatePan      UpdateType = "pan"
)

// Update is a notification sent to subscribers after a successful mutation.
type Update struct {
	Type UpdateType `json:"update_type"`
	View View       `json:"view"`
}

// Store owns the current Dataset and ViewState. Both are replaced by
// reference under the lock, so a View returned by CurrentView never changes.
type Store struct {
	mu          sync.RWMutex
	dataset     *Dataset
	state       ViewState
	subscribers map[chan Update]struct{}
}

// NewStore creates an empty store with the default view.
func NewStore() *Store {
	return &Store{
		state:       DefaultViewState(),
		subscribers: make(map[chan Update]struct{}),
	}
}

// Ingest replaces the dataset with a reshaped producer payload and returns
// the new variable names. On error the previous dataset is kept.
func (s *Store) Ingest(raw interface{}) ([]string, error) {
	ds, err := Reshape(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataset = ds
	if s.state.SelectedVariable != "" && ds.Index(s.state.SelectedVariable) < 0 {
		s.state.SelectedVariable = ""
	}
	s.broadcastLocked(UpdateDataset)
	return append([]string{}, ds.VariableNames...), nil
}

// SetVariable selects one variable, or all of them for "all" or "".
func (s *Store) SetVariable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == AllVariables || name == "" {
		s.state.SelectedVariable = ""
		s.broadcastLocked(UpdateVariable)
		return nil
	}

	if s.dataset == nil || s.dataset.Index(name) < 0 {
		var available []string
		if s.dataset != nil {
			available = s.dataset.VariableNames
		}
		return errors.InvalidVariable(name, available)
	}
	s.state.SelectedVariable = name
	s.broadcastLocked(UpdateVariable)
	return nil
}

// SetChartKind changes the chart type.
func (s *Store) SetChartKind(kind Kind) error {
	k, err := ParseKind(string(kind))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Kind = k
	s.broadcastLocked(UpdateKind)
	return nil
}

// SetZoom sets the visible fraction, clamped to [MinZoom, 1], and
// re-clamps the pan position. NaN is ignored.
func (s *Store) SetZoom(factor float64) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !math.IsNaN(factor) {
		s.state.Zoom = clamp(factor, MinZoom, 1)
		s.state.Pan = clamp(s.state.Pan, 0, 1-s.state.Zoom)
		s.broadcastLocked(UpdateZoom)
	}
	return s.state
}

// PanBy moves the window by delta, clamped to [0, 1-zoom]. NaN is ignored.
func (s *Store) PanBy(delta float64) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !math.IsNaN(delta) {
		s.state.Pan = clamp(s.state.Pan+delta, 0, 1-s.state.Zoom)
		s.broadcastLocked(UpdatePan)
	}
	return s.state
}

// CurrentView returns a snapshot of the dataset and view state.
func (s *Store) CurrentView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{Dataset: s.dataset, State: s.state}
}

// Variables returns the current variable names, or nil before any data.
func (s *Store) Variables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil
	}
	return append([]string{}, s.dataset.VariableNames...)
}

// ExportRows renders the dataset as delimited text. Before any data it
// returns only the header.
func (s *Store) ExportRows() string {
	s.mu.RLock()
	ds := s.dataset
	s.mu.RUnlock()
	if ds == nil {
		ds = &Dataset{}
	}
	return EncodeRows(ds)
}

// Subscribe creates a new subscription channel for store updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

func (s *Store) broadcastLocked(t UpdateType) {
	u := Update{Type: t, View: View{Dataset: s.dataset, State: s.state}}
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling ingest
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
