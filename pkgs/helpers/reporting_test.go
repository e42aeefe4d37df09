package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSendRejectionReport(t *testing.T) {
	received := make(chan RejectionReport, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var report RejectionReport
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&report))
		received <- report
	}))
	defer ts.Close()

	observed := time.Now().UTC().Truncate(time.Second)
	s := InitializeReportingService(ts.URL+"/", time.Second)
	s.SendRejectionReport(RejectionReport{
		MinerID:    7,
		TaskID:     "task-prod-001",
		Reason:     "replay",
		ObservedAt: observed,
	})

	select {
	case got := <-received:
		assert.Equal(t, int64(7), got.MinerID)
		assert.Equal(t, "task-prod-001", got.TaskID)
		assert.Equal(t, "replay", got.Reason)
		assert.Equal(t, observed, got.ObservedAt)
	case <-time.After(time.Second):
		t.Fatal("report was never delivered")
	}
}

func TestSendRejectionReportUnreachableCollector(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	s := InitializeReportingService(ts.URL, 100*time.Millisecond)
	// Delivery is best effort; a dead collector must not panic or block.
	s.SendRejectionReport(RejectionReport{Reason: "db_error"})
}
