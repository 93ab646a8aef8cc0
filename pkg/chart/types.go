// Package chart holds the dataset and view state behind the live chart.
package chart

import (
	"strings"

	"github.com/grovetools/chartview/errors"
)

// Kind is the chart type.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
	KindArea Kind = "area"
)

// Kinds lists the supported chart kinds in display order.
var Kinds = []Kind{KindLine, KindBar, KindArea}

// ParseKind resolves a kind name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", errors.InvalidInput("kind", s)
}

// AllVariables selects every variable.
const AllVariables = "all"

// MinZoom is the narrowest visible fraction of the x-extent.
const MinZoom = 0.01

// Row is one sample: the x value and one value per variable.
type Row struct {
	X      float64   `json:"x"`
	Values []float64 `json:"values"`
}

// Dataset is the canonical column-aligned form of a producer payload.
// Datasets are replaced, never modified, once stored.
type Dataset struct {
	VariableNames []string `json:"variable_names"`
	Rows          []Row    `json:"rows"`
}

// Index returns the column of name, or -1.
func (d *Dataset) Index(name string) int {
	for i, n := range d.VariableNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ViewState holds the user's view parameters.
type ViewState struct {
	Kind Kind `json:"kind"`
	// SelectedVariable is empty when all variables are shown.
	SelectedVariable string  `json:"selected_variable,omitempty"`
	Zoom             float64 `json:"zoom"`
	Pan              float64 `json:"pan"`
}

// DefaultViewState is a line chart of every variable, fully zoomed out.
func DefaultViewState() ViewState {
	return ViewState{Kind: KindLine, Zoom: 1, Pan: 0}
}

// View is an immutable snapshot handed to renderers. Dataset is nil until
// the first successful ingest.
type View struct {
	Dataset *Dataset  `json:"dataset"`
	State   ViewState `json:"state"`
}

// HasData reports whether any dataset has been received.
func (v View) HasData() bool { return v.Dataset != nil }

// Window is the part of a dataset a renderer should draw.
type Window struct {
	// Columns are the indices of the visible variables.
	Columns []int
	// Start and End bound the visible rows as [Start, End).
	Start, End int
	// XMin and XMax are the visible x range.
	XMin, XMax float64
}

// Visible applies the variable filter and the zoom/pan window. Rows are
// assumed ordered by x.
func (v View) Visible() Window {
	if v.Dataset == nil {
		return Window{}
	}
	d := v.Dataset

	var cols []int
	if v.State.SelectedVariable == "" {
		cols = make([]int, len(d.VariableNames))
		for i := range cols {
			cols[i] = i
		}
	} else if i := d.Index(v.State.SelectedVariable); i >= 0 {
		cols = []int{i}
	}

	if len(d.Rows) == 0 {
		return Window{Columns: cols}
	}

	first, last := d.Rows[0].X, d.Rows[len(d.Rows)-1].X
	extent := last - first
	lo := first + extent*v.State.Pan
	hi := first + extent*(v.State.Pan+v.State.Zoom)
	if hi > last {
		hi = last
	}

	start := 0
	for start < len(d.Rows) && d.Rows[start].X < lo {
		start++
	}
	end := start
	for end < len(d.Rows) && d.Rows[end].X <= hi {
		end++
	}

	return Window{Columns: cols, Start: start, End: end, XMin: lo, XMax: hi}
}
