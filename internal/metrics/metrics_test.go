package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/streamkeeper/pkg/log"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

type fakeSource struct {
	state     streamkeeper.State
	record    *streamkeeper.Record
	recordErr error
	last      *streamkeeper.TickEvent
	now       time.Time
}

func (f *fakeSource) Status() streamkeeper.State { return f.state }

func (f *fakeSource) Record(context.Context) (*streamkeeper.Record, error) {
	return f.record, f.recordErr
}

func (f *fakeSource) LastTick() *streamkeeper.TickEvent { return f.last }
func (f *fakeSource) MaxLifespan() time.Duration        { return 11 * time.Hour }
func (f *fakeSource) Now() time.Time                    { return f.now }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOnTick_Counters(t *testing.T) {
	m := New()

	m.OnTick(streamkeeper.TickEvent{Action: streamkeeper.ActionCreate, Live: true, At: testNow, Duration: 2 * time.Second})
	m.OnTick(streamkeeper.TickEvent{Action: streamkeeper.ActionNoOp, At: testNow})
	m.OnTick(streamkeeper.TickEvent{Action: streamkeeper.ActionRotate, Live: false, VerifyErr: errors.New("not live"), At: testNow})
	m.OnTick(streamkeeper.TickEvent{Skipped: true})
	m.OnTick(streamkeeper.TickEvent{
		Action: streamkeeper.ActionCreate,
		Err:    &streamkeeper.CorruptStateError{Path: "/tmp/x", Err: errors.New("bad")},
		At:     testNow,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("create", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("noop", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("rotate", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("none", OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("create", OutcomeFailed)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.broadcastsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rotationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.goLiveFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.corruptStateTotal))
	assert.Equal(t, float64(testNow.Unix()), testutil.ToFloat64(m.lastTickTimestamp))
}

func TestOnStateChange(t *testing.T) {
	m := New()
	m.OnStateChange(streamkeeper.StateChangeEvent{Previous: streamkeeper.StateStarting, Current: streamkeeper.StateRunning})
	assert.Equal(t, float64(streamkeeper.StateRunning), testutil.ToFloat64(m.daemonState))
}

func TestRouter_Metrics(t *testing.T) {
	m := New()
	src := &fakeSource{
		state:  streamkeeper.StateRunning,
		record: &streamkeeper.Record{ResourceID: "abc", CreatedAt: testNow.Add(-90 * time.Minute)},
		now:    testNow,
	}
	r := Router(m, src, log.NewNoopLogger())

	rec := get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "streamkeeper_broadcast_age_seconds 5400")
	assert.Contains(t, string(body), "streamkeeper_state 2")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal))
}

func TestRouter_Healthz(t *testing.T) {
	m := New()
	src := &fakeSource{state: streamkeeper.StateRunning, now: testNow}
	r := Router(m, src, log.NewNoopLogger())

	rec := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	src.state = streamkeeper.StateCrashed
	rec = get(t, r, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Crashed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal))
}

func TestRouter_Status(t *testing.T) {
	src := &fakeSource{
		state:  streamkeeper.StateRunning,
		record: &streamkeeper.Record{ResourceID: "abc", CreatedAt: testNow.Add(-time.Hour)},
		last: &streamkeeper.TickEvent{
			At:         testNow.Add(-time.Minute),
			Reason:     "schedule",
			Action:     streamkeeper.ActionNoOp,
			ResourceID: "abc",
		},
		now: testNow,
	}
	r := Router(New(), src, log.NewNoopLogger())

	rec := get(t, r, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Running", resp.State)
	require.NotNil(t, resp.Broadcast)
	assert.Equal(t, "abc", resp.Broadcast.ResourceID)
	assert.Equal(t, 3600.0, resp.Broadcast.AgeSeconds)
	assert.Equal(t, 10*3600.0, resp.Broadcast.RotatesInSeconds)
	require.NotNil(t, resp.LastTick)
	assert.Equal(t, "noop", resp.LastTick.Action)
	assert.Equal(t, "schedule", resp.LastTick.Reason)
}

func TestRouter_StatusNoBroadcast(t *testing.T) {
	src := &fakeSource{state: streamkeeper.StateStarting, now: testNow}
	r := Router(New(), src, log.NewNoopLogger())

	rec := get(t, r, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "broadcast"))
	assert.False(t, strings.Contains(rec.Body.String(), "lastTick"))
}

func TestRouter_StatusUnreadableState(t *testing.T) {
	src := &fakeSource{
		state:     streamkeeper.StateRunning,
		recordErr: &streamkeeper.CorruptStateError{Path: "/var/lib/sk/current_livestream.json", Err: errors.New("unexpected EOF")},
		now:       testNow,
	}
	r := Router(New(), src, log.NewNoopLogger())

	rec := get(t, r, "/status")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "corrupt state file")
}
