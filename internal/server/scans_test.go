package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amizuno/winscope/internal/pipeline"
)

func TestHandleGetScan_ConcurrentStatusUpdates(t *testing.T) {
	scan := &scanState{ID: uuid.New(), Status: "running", StartedAt: time.Now().UTC()}
	s := &Server{scans: map[uuid.UUID]*scanState{scan.ID: scan}}

	// A background cycle flips the scan between running and completed under
	// the lock, the way handleStartScan's goroutine finishes a scan. Every
	// response must be a consistent snapshot of one of the two states.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			now := time.Now().UTC()
			s.scanMu.Lock()
			scan.Status = "completed"
			scan.FinishedAt = &now
			scan.Report = &pipeline.Report{StartedAt: scan.StartedAt}
			s.scanMu.Unlock()

			s.scanMu.Lock()
			scan.Status = "running"
			scan.FinishedAt = nil
			scan.Report = nil
			s.scanMu.Unlock()
		}
	}()

	for i := 0; i < 500; i++ {
		r := httptest.NewRequest(http.MethodGet, "/scans/"+scan.ID.String(), nil)
		r.SetPathValue("id", scan.ID.String())
		w := httptest.NewRecorder()
		s.handleGetScan(w, r)
		require.Equal(t, http.StatusOK, w.Code)

		var got scanState
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, scan.ID, got.ID)
		if got.Status == "completed" {
			assert.NotNil(t, got.FinishedAt, "completed scan must carry its finish time")
		} else {
			assert.Equal(t, "running", got.Status)
			assert.Nil(t, got.FinishedAt)
		}
	}

	close(done)
	wg.Wait()
}

func TestHandleGetScan_NotFound(t *testing.T) {
	s := &Server{scans: map[uuid.UUID]*scanState{}}

	r := httptest.NewRequest(http.MethodGet, "/scans/"+uuid.NewString(), nil)
	r.SetPathValue("id", uuid.NewString())
	w := httptest.NewRecorder()
	s.handleGetScan(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetScan_InvalidID(t *testing.T) {
	s := &Server{scans: map[uuid.UUID]*scanState{}}

	r := httptest.NewRequest(http.MethodGet, "/scans/not-a-uuid", nil)
	r.SetPathValue("id", "not-a-uuid")
	w := httptest.NewRecorder()
	s.handleGetScan(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
