package render

import (
	"bytes"
	"testing"

	"github.com/grovetools/chartview/pkg/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore(t *testing.T) *chart.Store {
	t.Helper()
	s := chart.NewStore()
	_, err := s.Ingest(map[string]interface{}{
		"data_names": []interface{}{"alpha", "beta"},
		"data": []interface{}{
			[]interface{}{0, []interface{}{1, 10}},
			[]interface{}{1, []interface{}{2, 20}},
			[]interface{}{2, []interface{}{3, 30}},
		},
	})
	require.NoError(t, err)
	return s
}

func TestRenderWaiting(t *testing.T) {
	r := New("sim")

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, chart.NewStore().CurrentView()))
	assert.Contains(t, buf.String(), "Waiting for data...")
	assert.Contains(t, buf.String(), "<title>sim</title>")

	// A dataset without rows still waits.
	s := chart.NewStore()
	_, err := s.Ingest(map[string]interface{}{"data_names": []interface{}{"a"}, "data": []interface{}{}})
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, r.Render(&buf, s.CurrentView()))
	assert.Contains(t, buf.String(), "Waiting for data...")
}

func TestRenderKinds(t *testing.T) {
	for _, kind := range chart.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			s := sampleStore(t)
			require.NoError(t, s.SetChartKind(kind))

			var buf bytes.Buffer
			require.NoError(t, New("sim").Render(&buf, s.CurrentView()))
			out := buf.String()
			assert.NotContains(t, out, "Waiting for data...")
			assert.Contains(t, out, "echarts")
			assert.Contains(t, out, "alpha")
			assert.Contains(t, out, "beta")
		})
	}
}

func TestRenderAreaStacks(t *testing.T) {
	s := sampleStore(t)
	require.NoError(t, s.SetChartKind(chart.KindArea))

	var buf bytes.Buffer
	require.NoError(t, New("sim").Render(&buf, s.CurrentView()))
	assert.Contains(t, buf.String(), "total")
}

func TestRenderFilteredVariable(t *testing.T) {
	s := sampleStore(t)
	require.NoError(t, s.SetVariable("alpha"))

	var buf bytes.Buffer
	require.NoError(t, New("sim").Render(&buf, s.CurrentView()))
	assert.Contains(t, buf.String(), "alpha")
	assert.NotContains(t, buf.String(), "beta")
}

func TestBuild(t *testing.T) {
	r := New("sim")

	_, err := r.Build(chart.NewStore().CurrentView())
	assert.Error(t, err)

	view := sampleStore(t).CurrentView()
	c, err := r.Build(view)
	require.NoError(t, err)
	assert.Equal(t, "line", c.Type())

	view.State.Kind = chart.KindBar
	c, err = r.Build(view)
	require.NoError(t, err)
	assert.Equal(t, "bar", c.Type())

	view.State.Kind = "pie"
	_, err = r.Build(view)
	assert.Error(t, err)
}
