package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/domain"
)

type fixedProgress scheduler.Progress

func (f fixedProgress) Progress() scheduler.Progress {
	return scheduler.Progress(f)
}

func TestFlushed(t *testing.T) {
	m := New()
	m.Flushed(domain.Counters{Halt: 3, Irrelevant: 2, Total: 5}, map[string]uint64{"irrelevance": 2, "bounded-run": 3})
	m.Flushed(domain.Counters{Halt: 1, Total: 1}, map[string]uint64{"bounded-run": 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.classified.WithLabelValues("halt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.classified.WithLabelValues("irrelevant")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.classified.WithLabelValues("loop")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.decided.WithLabelValues("bounded-run")))
}

func TestProgressCollector(t *testing.T) {
	m := New()
	assert.Zero(t, testutil.CollectAndCount(&progressCollector{m: m}), "nothing before Track")

	m.Track(fixedProgress{
		Counters: domain.Counters{Halt: 7, Loop: 2, Total: 9},
		Pool:     4,
		Local:    11,
		States:   map[scheduler.WorkerState]int{scheduler.Expanding: 3, scheduler.Idle: 1},
	})
	assert.Equal(t, 4+2+len(scheduler.WorkerStates), testutil.CollectAndCount(&progressCollector{m: m}))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Track(fixedProgress{Counters: domain.Counters{Undecided: 2, Total: 2}, Pool: 1, States: map[scheduler.WorkerState]int{}})
	m.Flushed(domain.Counters{Loop: 1, Total: 1}, nil)
	m.ObserveCheckpoint(20 * time.Millisecond)

	srv := httptest.NewServer(NewHandler(m, func() Status {
		return Status{Run: "bb3", RunID: "id-1", Counters: domain.Counters{Loop: 1, Total: 1}, Workers: map[string]int{"idle": 2}}
	}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `bbseed_classified_total{class="loop"} 1`)
	assert.Contains(t, text, `bbseed_run_machines{class="undecided"} 2`)
	assert.Contains(t, text, `bbseed_frontier_nodes{queue="pool"} 1`)
	assert.Contains(t, text, `bbseed_checkpoint_duration_seconds_count{result="ok"} 1`)

	res, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	var status Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.Equal(t, "bb3", status.Run)
	assert.Equal(t, uint64(1), status.Counters.Loop)
	assert.Equal(t, 2, status.Workers["idle"])

	res, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
