package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/internal/config"
	"github.com/aretw0/spectate/internal/logging"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDemo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunDemo(context.Background(), &buf, DemoOptions{Plain: true}))

	out := buf.String()
	for _, sc := range Scenarios() {
		assert.Contains(t, out, "== "+sc.Name)
	}
	assert.Contains(t, out, "inventory/immediate (1 event)")
	assert.Contains(t, out, "inventory/nested (3 events)")
	assert.Contains(t, out, "sku=apple old=<nil> new=4")
	assert.NotContains(t, out, "inventory/rollback (")
	assert.NotContains(t, out, "inventory/mute (")
	assert.Contains(t, out, "stock: kiwi=0")
}

func TestRunDemo_OnlyWithMarkdown(t *testing.T) {
	var buf bytes.Buffer
	err := RunDemo(context.Background(), &buf, DemoOptions{Plain: true, Markdown: true, Only: []string{"nested"}})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "== immediate")
	assert.Contains(t, out, "Delivered batches")
	assert.Contains(t, out, "inventory/nested")
	assert.Contains(t, out, "Link graph")
}

func TestLinkGraph(t *testing.T) {
	warehouse, bin := NewInventory("warehouse"), NewInventory("bin")
	spectate.Link(warehouse, bin)
	records := []domain.Record{
		{Seq: 1, Model: "inventory/bin", Batch: domain.NewBatch(domain.NewEvent("sku", "a"))},
	}

	md := LinkGraph([]spectate.Observable{warehouse, bin}, records, "inventory/warehouse")

	assert.Contains(t, md, "```mermaid")
	assert.Contains(t, md, "inventory_warehouse --> inventory_bin")
	assert.Contains(t, md, `inventory_bin["inventory/bin <br/> 1 events"]`)
	assert.Contains(t, md, "class inventory_bin emitted;")
}

func TestRunDemo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RunDemo(ctx, &bytes.Buffer{}, DemoOptions{}), context.Canceled)
}

func TestStack_MemoryJournal(t *testing.T) {
	cfg := config.Default()
	st, err := NewStack(cfg, logging.NewNop())
	require.NoError(t, err)
	defer st.Close()

	for range 10 {
		require.NoError(t, st.Simulator.Step())
	}

	recs, err := st.Journal.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	for _, rec := range recs {
		assert.Contains(t, []string{"inventory/north", "inventory/south"}, rec.Model)
	}

	w := httptest.NewRecorder()
	st.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/batches?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got []domain.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	w = httptest.NewRecorder()
	st.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), `spectate_batches_total{model="inventory/`)
}

func TestStack_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()

	st, err := NewStack(cfg, logging.NewNop())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Simulator.Warehouse.Set("ignored", 1), "the warehouse itself is observed too")
	require.NoError(t, st.Simulator.Bins[0].Set("apple", 2))

	items, err := mr.List("spectate:journal")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStack_GuardedJournal(t *testing.T) {
	cfg := config.Default()
	cfg.Journal.Mask = []string{"^sku$"}
	cfg.Journal.Key = strings.Repeat("01", 32)

	st, err := NewStack(cfg, logging.NewNop())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Simulator.Bins[0].Set("apple", 2))

	recs, err := st.Journal.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	e := recs[0].Batch.At(0)
	assert.Equal(t, middleware.Mask, e.Value("sku"))
	assert.EqualValues(t, 2, e.Value("new"))
}

func TestNewSimulator_RequiresBins(t *testing.T) {
	_, err := NewSimulator(logging.NewNop(), 1)
	assert.ErrorIs(t, err, ErrNoBins)

	assert.ErrorIs(t, (&Simulator{}).Step(), ErrNoBins)

	sim, err := NewSimulator(logging.NewNop(), 1, "only")
	require.NoError(t, err)
	for range 5 {
		require.NoError(t, sim.Step())
	}
}

func TestNewLogger(t *testing.T) {
	t.Cleanup(func() { spectate.SetLogger(nil) })
	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	_, err = NewLogger(config.LogConfig{Level: "nope"})
	assert.Error(t, err)
}
