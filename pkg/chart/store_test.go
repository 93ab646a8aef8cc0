package chart

import (
	"encoding/csv"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/grovetools/chartview/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(names []string, rows ...[]float64) map[string]interface{} {
	data := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		values := make([]interface{}, 0, len(r)-1)
		for _, v := range r[1:] {
			values = append(values, v)
		}
		data = append(data, []interface{}{r[0], values})
	}
	nameList := make([]interface{}, len(names))
	for i, n := range names {
		nameList[i] = n
	}
	return map[string]interface{}{"data_names": nameList, "data": data}
}

func TestIngestScenario(t *testing.T) {
	s := NewStore()
	assert.False(t, s.CurrentView().HasData())

	names, err := s.Ingest(payload([]string{"a", "b"}, []float64{0, 1, 2}, []float64{1, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	view := s.CurrentView()
	require.True(t, view.HasData())
	assert.Equal(t, []Row{{X: 0, Values: []float64{1, 2}}, {X: 1, Values: []float64{3, 4}}}, view.Dataset.Rows)
	assert.Equal(t, "Ticks,a,b\n0,1,2\r\n1,3,4\r\n", s.ExportRows())
}

func TestIngestInvalidFormatKeepsDataset(t *testing.T) {
	s := NewStore()

	_, err := s.Ingest(map[string]interface{}{"data_names": []interface{}{"a"}, "data": "not-an-array"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
	assert.False(t, s.CurrentView().HasData())

	_, err = s.Ingest(payload([]string{"x"}, []float64{0, 5}))
	require.NoError(t, err)
	before := s.CurrentView()

	bad := []interface{}{
		nil,
		"a string",
		map[string]interface{}{"data": []interface{}{}},
		map[string]interface{}{"data_names": "a", "data": []interface{}{}},
		map[string]interface{}{"data_names": []interface{}{1}, "data": []interface{}{}},
		payload([]string{"a", "b"}, []float64{0, 1}),
		payload([]string{"a", "a"}, []float64{0, 1, 2}),
		map[string]interface{}{"data_names": []interface{}{"a"}, "data": []interface{}{[]interface{}{0, "1"}}},
	}
	for i, raw := range bad {
		_, err := s.Ingest(raw)
		require.Error(t, err, "payload %d", i)
		assert.Equal(t, errors.ErrCodeInvalidFormat, errors.GetCode(err), "payload %d", i)
		assert.Same(t, before.Dataset, s.CurrentView().Dataset, "payload %d", i)
	}
}

func TestIngestRowShape(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := NewStore()
	for trial := 0; trial < 50; trial++ {
		width := r.Intn(5)
		names := make([]string, width)
		for i := range names {
			names[i] = "v" + strconv.Itoa(i)
		}
		rows := make([][]float64, r.Intn(20))
		for i := range rows {
			row := []float64{float64(i)}
			for j := 0; j < width; j++ {
				row = append(row, r.Float64()*100)
			}
			rows[i] = row
		}

		_, err := s.Ingest(payload(names, rows...))
		require.NoError(t, err)
		ds := s.CurrentView().Dataset
		assert.Len(t, ds.Rows, len(rows))
		for _, row := range ds.Rows {
			assert.Len(t, row.Values, len(names))
		}
	}
}

func TestEmptyDatasetIsDistinctFromNoData(t *testing.T) {
	s := NewStore()
	_, err := s.Ingest(payload([]string{}))
	require.NoError(t, err)

	view := s.CurrentView()
	assert.True(t, view.HasData())
	assert.Empty(t, view.Dataset.Rows)
}

func TestSetVariable(t *testing.T) {
	s := NewStore()

	err := s.SetVariable("a")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidVariable))

	_, err = s.Ingest(payload([]string{"a", "b"}, []float64{0, 1, 2}))
	require.NoError(t, err)

	require.NoError(t, s.SetVariable("b"))
	assert.Equal(t, "b", s.CurrentView().State.SelectedVariable)

	err = s.SetVariable("c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidVariable))
	assert.Equal(t, "b", s.CurrentView().State.SelectedVariable, "failed selection must not change the view")

	require.NoError(t, s.SetVariable(AllVariables))
	assert.Equal(t, "", s.CurrentView().State.SelectedVariable)
	require.NoError(t, s.SetVariable(""))
}

func TestSelectionResetsWhenVariableDisappears(t *testing.T) {
	s := NewStore()
	_, err := s.Ingest(payload([]string{"a", "b"}, []float64{0, 1, 2}))
	require.NoError(t, err)
	require.NoError(t, s.SetVariable("b"))

	_, err = s.Ingest(payload([]string{"a", "b", "c"}, []float64{0, 1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, "b", s.CurrentView().State.SelectedVariable)

	_, err = s.Ingest(payload([]string{"a"}, []float64{0, 1}))
	require.NoError(t, err)
	assert.Equal(t, "", s.CurrentView().State.SelectedVariable)
}

func TestSetChartKind(t *testing.T) {
	s := NewStore()
	assert.Equal(t, KindLine, s.CurrentView().State.Kind)

	require.NoError(t, s.SetChartKind(KindArea))
	assert.Equal(t, KindArea, s.CurrentView().State.Kind)
	require.NoError(t, s.SetChartKind("BAR"))
	assert.Equal(t, KindBar, s.CurrentView().State.Kind)

	err := s.SetChartKind("pie")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, KindBar, s.CurrentView().State.Kind)
}

func TestZoomPanClamp(t *testing.T) {
	const eps = 1e-9
	r := rand.New(rand.NewSource(42))
	s := NewStore()

	for i := 0; i < 2000; i++ {
		var st ViewState
		if r.Intn(2) == 0 {
			st = s.SetZoom(r.Float64()*3 - 1)
		} else {
			st = s.PanBy(r.Float64()*2 - 1)
		}
		require.GreaterOrEqual(t, st.Pan, 0.0)
		require.LessOrEqual(t, st.Pan+st.Zoom, 1+eps)
		require.GreaterOrEqual(t, st.Zoom, MinZoom)
		require.LessOrEqual(t, st.Zoom, 1.0)
	}
}

func TestZoomPanEdges(t *testing.T) {
	s := NewStore()

	st := s.SetZoom(0.5)
	assert.Equal(t, 0.5, st.Zoom)
	st = s.PanBy(10)
	assert.Equal(t, 0.5, st.Pan)

	// Zooming out pulls the window back inside the extent.
	st = s.SetZoom(0.8)
	assert.InDelta(t, 0.2, st.Pan, 1e-12)

	st = s.SetZoom(0)
	assert.Equal(t, MinZoom, st.Zoom)
	st = s.SetZoom(-3)
	assert.Equal(t, MinZoom, st.Zoom)
	st = s.SetZoom(7)
	assert.Equal(t, 1.0, st.Zoom)
	assert.Equal(t, 0.0, st.Pan)

	st = s.SetZoom(math.NaN())
	assert.Equal(t, 1.0, st.Zoom)
	st = s.PanBy(math.NaN())
	assert.Equal(t, 0.0, st.Pan)
}

func TestExportRoundTrip(t *testing.T) {
	s := NewStore()
	assert.Equal(t, "Ticks\n", s.ExportRows())

	rows := [][]float64{{0, 1.5, -2}, {1, 0.1, 3e-7}, {2, 12345678, 1e21}}
	_, err := s.Ingest(payload([]string{"alpha", "beta"}, rows...))
	require.NoError(t, err)

	text := s.ExportRows()
	lines := strings.SplitN(text, "\n", 2)
	assert.Equal(t, "Ticks,alpha,beta", lines[0])

	reader := csv.NewReader(strings.NewReader(text))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(rows)+1)
	assert.Equal(t, []string{"Ticks", "alpha", "beta"}, records[0])

	for i, record := range records[1:] {
		require.Len(t, record, 3)
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			require.NoError(t, err)
			assert.Equal(t, rows[i][j], v)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{123456789012, "123456789012"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-10, "1.5e-10"},
		{1e21, "1e+21"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in), "FormatNumber(%v)", tt.in)
	}
}

func TestVisibleWindow(t *testing.T) {
	s := NewStore()
	assert.Equal(t, Window{}, s.CurrentView().Visible())

	rows := make([][]float64, 0, 11)
	for x := 0; x <= 10; x++ {
		rows = append(rows, []float64{float64(x), float64(x), float64(-x)})
	}
	_, err := s.Ingest(payload([]string{"up", "down"}, rows...))
	require.NoError(t, err)

	w := s.CurrentView().Visible()
	assert.Equal(t, []int{0, 1}, w.Columns)
	assert.Equal(t, 0, w.Start)
	assert.Equal(t, 11, w.End)

	s.SetZoom(0.5)
	s.PanBy(0.2)
	require.NoError(t, s.SetVariable("down"))
	w = s.CurrentView().Visible()
	assert.Equal(t, []int{1}, w.Columns)
	assert.Equal(t, 2, w.Start)
	assert.Equal(t, 8, w.End)
	assert.InDelta(t, 2.0, w.XMin, 1e-9)
	assert.InDelta(t, 7.0, w.XMax, 1e-9)
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()

	_, err := s.Ingest(payload([]string{"a"}, []float64{0, 1}))
	require.NoError(t, err)
	s.SetZoom(0.5)

	u := <-ch
	assert.Equal(t, UpdateDataset, u.Type)
	assert.True(t, u.View.HasData())
	u = <-ch
	assert.Equal(t, UpdateZoom, u.Type)
	assert.Equal(t, 0.5, u.View.State.Zoom)

	// Failed mutations do not notify.
	_ = s.SetVariable("missing")
	select {
	case u := <-ch:
		t.Fatalf("unexpected update %v", u.Type)
	default:
	}

	s.Unsubscribe(ch)
	s.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestViewSnapshotIsStable(t *testing.T) {
	s := NewStore()
	_, err := s.Ingest(payload([]string{"a"}, []float64{0, 1}))
	require.NoError(t, err)
	view := s.CurrentView()

	_, err = s.Ingest(payload([]string{"b"}, []float64{0, 2}, []float64{1, 3}))
	require.NoError(t, err)
	s.SetZoom(0.2)

	assert.Equal(t, []string{"a"}, view.Dataset.VariableNames)
	assert.Len(t, view.Dataset.Rows, 1)
	assert.Equal(t, 1.0, view.State.Zoom)
}
