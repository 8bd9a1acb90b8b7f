package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func record(id, user string, ts time.Time, dir punch.Direction) punch.EventRecord {
	return punch.EventRecord{ID: id, UserID: user, Timestamp: ts, Direction: string(dir), DeviceID: "gate-1"}
}

func TestFetchEvents_FollowsNextLinks(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, eventsPath, r.URL.Path)

		if r.URL.Query().Get("cursor") == "2" {
			writeJSON(w, http.StatusOK, punch.EventEnvelope{
				Count:   3,
				Results: []punch.EventRecord{record("e1", "u1", base, punch.DirectionIn)},
			})
			return
		}

		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, base.Format(time.RFC3339), r.URL.Query().Get("start"))
		next := srv.URL + eventsPath + "?cursor=2"
		writeJSON(w, http.StatusOK, punch.EventEnvelope{
			Count: 3,
			Next:  &next,
			Results: []punch.EventRecord{
				record("e2", "u1", base.Add(9*time.Hour), punch.DirectionOut),
				// outside the requested range
				record("e0", "u1", base.Add(-time.Hour), punch.DirectionIn),
			},
		})
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL, Token: "secret"})
	userID := "u1"

	events, err := store.FetchEvents(context.Background(), punch.EventQuery{UserID: &userID, Start: base, End: base.Add(24 * time.Hour)})

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, punch.DirectionIn, events[0].Direction)
	assert.Equal(t, "e2", events[1].ID)
}

func TestFetchEvents_RelativeNextLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "2" {
			writeJSON(w, http.StatusOK, punch.EventEnvelope{Results: []punch.EventRecord{record("e2", "u1", base.Add(time.Hour), punch.DirectionOut)}})
			return
		}
		next := eventsPath + "?cursor=2"
		writeJSON(w, http.StatusOK, punch.EventEnvelope{Next: &next, Results: []punch.EventRecord{record("e1", "u1", base, punch.DirectionIn)}})
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL})

	events, err := store.FetchEvents(context.Background(), punch.EventQuery{Start: base, End: base.Add(24 * time.Hour)})

	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestFetchEvents_RejectsForeignNextLink(t *testing.T) {
	var foreignCalls atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignCalls.Add(1)
		writeJSON(w, http.StatusOK, punch.EventEnvelope{})
	}))
	defer foreign.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next := foreign.URL + eventsPath + "?cursor=2"
		writeJSON(w, http.StatusOK, punch.EventEnvelope{Next: &next, Results: []punch.EventRecord{record("e1", "u1", base, punch.DirectionIn)}})
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL, Token: "secret"})

	_, err := store.FetchEvents(context.Background(), punch.EventQuery{Start: base, End: base.Add(24 * time.Hour)})

	assert.ErrorIs(t, err, punch.ErrDataUnavailable)
	assert.ErrorIs(t, err, errForeignNextLink)
	assert.Zero(t, foreignCalls.Load())
}

func TestFetchEvents_ServerErrorIsDataUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "upstream down"})
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL, RetryCount: 1})

	_, err := store.FetchEvents(context.Background(), punch.EventQuery{Start: base, End: base.Add(time.Hour)})

	assert.ErrorIs(t, err, punch.ErrDataUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchEvents_MalformedBodyIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": "not-a-list"`))
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL})

	_, err := store.FetchEvents(context.Background(), punch.EventQuery{Start: base, End: base.Add(time.Hour)})

	assert.ErrorIs(t, err, punch.ErrDataUnavailable)
}

func TestFetchEvents_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, punch.EventEnvelope{})
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})

	_, err := store.FetchEvents(context.Background(), punch.EventQuery{Start: base, End: base.Add(time.Hour)})

	assert.ErrorIs(t, err, punch.ErrDataUnavailable)
}

func TestFetchEvents_InvalidQuery(t *testing.T) {
	store := NewEventStore(Options{BaseURL: "http://127.0.0.1:1"})

	_, err := store.FetchEvents(context.Background(), punch.EventQuery{Start: base, End: base.Add(-time.Hour)})

	assert.ErrorIs(t, err, punch.ErrInvalidQuery)
}

func TestAppend_PostsRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body punch.EventRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "OUT", body.Direction)
		assert.True(t, body.Corrected)
		body.ID = "srv-1"
		body.CreatedAt = base
		writeJSON(w, http.StatusCreated, body)
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL})

	saved, err := store.Append(context.Background(), punch.PunchEvent{UserID: "u1", Timestamp: base, Direction: punch.DirectionOut, Corrected: true})

	require.NoError(t, err)
	assert.Equal(t, "srv-1", saved.ID)
	assert.Equal(t, base, saved.CreatedAt)
}

func TestAppend_RejectedByUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "read only"})
	}))
	defer srv.Close()

	store := NewEventStore(Options{BaseURL: srv.URL})

	_, err := store.Append(context.Background(), punch.PunchEvent{UserID: "u1", Timestamp: base, Direction: punch.DirectionIn})

	assert.Error(t, err)
	_, err = store.Append(context.Background(), punch.PunchEvent{UserID: "u1", Direction: punch.DirectionIn})
	assert.ErrorIs(t, err, punch.ErrInvalidEvent)
}
