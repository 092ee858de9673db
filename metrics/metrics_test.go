// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(nodeID, consumed, emitted int) dataflow.HookCtx {
	return dataflow.HookCtx{
		Pos:    dataflow.HookPosAfterProcess,
		Detail: dataflow.StepInfo{NodeID: nodeID, Consumed: consumed, Emitted: emitted},
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, node string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "node" && label.GetValue() == node {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{node=%q} not found", name, node)
	return 0
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Func(step(1, 0, 1))
	c.Func(step(1, 0, 1))
	c.Func(step(2, 1, 0))
	c.Func(dataflow.HookCtx{Pos: dataflow.HookPosEnqueue})

	assert.Equal(t, 2.0, counterValue(t, reg, "pktflow_node_steps_total", "1"))
	assert.Equal(t, 2.0, counterValue(t, reg, "pktflow_node_emitted_total", "1"))
	assert.Equal(t, 1.0, counterValue(t, reg, "pktflow_node_consumed_total", "2"))
	assert.Equal(t, NodeCounters{Steps: 1, Consumed: 1}, c.Snapshot()[2])

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.Func(step(7, 2, 3))

	srv := httptest.NewServer(NewServer(reg, c).Handler())
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, `pktflow_node_emitted_total{node="7"} 3`))

	status, body = get("/api/stats")
	assert.Equal(t, http.StatusOK, status)
	var stats map[string]NodeCounters
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, NodeCounters{Steps: 1, Consumed: 2, Emitted: 3}, stats["7"])

	status, _ = get("/api/stats/7")
	assert.Equal(t, http.StatusOK, status)
	status, _ = get("/api/stats/8")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = get("/api/stats/x")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServerStartShutdown(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	s := NewServer(reg, c)
	assert.Nil(t, s.Addr())
	require.NoError(t, s.Start("127.0.0.1:0"))

	resp, err := http.Get("http://" + s.Addr().String() + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

// brokenWriter is a [http.ResponseWriter] whose body writes fail.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestServerLogsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.Func(step(3, 0, 1))

	var logs bytes.Buffer
	s := NewServer(reg, c)
	s.Logger = slog.New(slog.NewJSONHandler(&logs, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	s.Handler().ServeHTTP(brokenWriter{httptest.NewRecorder()}, req)
	assert.Contains(t, logs.String(), `"msg":"statsWriteDone"`)
	assert.Contains(t, logs.String(), `"path":"/api/stats"`)
	assert.Contains(t, logs.String(), `"errClass"`)

	require.NoError(t, s.Start("127.0.0.1:0"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
	assert.Contains(t, logs.String(), `"msg":"metricsShutdownDone"`)
}
