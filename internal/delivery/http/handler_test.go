package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/hospiq/patient-queue/config"
	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/internal/repository/memory"
	"github.com/hospiq/patient-queue/internal/service"
	pkgLog "github.com/hospiq/patient-queue/pkg/logger"
)

func newTestServer(t *testing.T, jwtSecret string) *httptest.Server {
	t.Helper()

	cfg := config.QueueConfig{
		DefaultServingSlots:   1,
		CongestionLowMax:      3,
		CongestionModerateMax: 8,
		DayLocation:           time.UTC,
	}

	l := pkgLog.InitializeTestZapLogger()
	svc := service.NewQueueService(memory.NewStore(), nil, cfg, l)
	h := NewQueueHandler(svc, l)

	srv := httptest.NewServer(NewRouter(h, config.JWTConfig{Secret: jwtSecret}, l))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func checkInPatient(t *testing.T, srv *httptest.Server, patientID, dept string) models.QueueEntry {
	t.Helper()

	var entry models.QueueEntry
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/check-in", map[string]any{
		"patient_id":   patientID,
		"patient_name": "Patient " + patientID,
		"department":   dept,
	}, &entry)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return entry
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "")

	var body map[string]any
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", body["status"])
}

func TestCheckInEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	entry := checkInPatient(t, srv, "p1", "OPD")
	require.Equal(t, "OPD-001", entry.QueueNumber)
	require.Equal(t, models.EntryStatusWaiting, entry.Status)
	require.Equal(t, models.PriorityNormal, entry.Priority)

	// Missing required fields.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/check-in", map[string]any{
		"patient_name": "No ID",
		"department":   "OPD",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown department passes struct validation but fails in the service.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/check-in", map[string]any{
		"patient_id":   "p2",
		"patient_name": "B",
		"department":   "Cardiology",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Out-of-range priority.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/check-in", map[string]any{
		"patient_id":   "p3",
		"patient_name": "C",
		"department":   "OPD",
		"priority":     7,
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallNextEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	// Empty queue is a 200 with a null entry, not an error.
	var empty struct {
		Entry   *models.QueueEntry `json:"entry"`
		Message string             `json:"message"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/OPD/call-next", map[string]any{
		"staff_id": "dr-1",
	}, &empty)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, empty.Entry)
	require.Equal(t, "No patients waiting", empty.Message)

	checkInPatient(t, srv, "p1", "OPD")

	var called struct {
		Entry *models.QueueEntry `json:"entry"`
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/OPD/call-next", map[string]any{
		"staff_id": "dr-1",
	}, &called)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, called.Entry)
	require.Equal(t, models.EntryStatusServing, called.Entry.Status)
	require.Equal(t, "dr-1", called.Entry.ServedBy)

	// No staff identity at all.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/OPD/call-next", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteAndRouteEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	entry := checkInPatient(t, srv, "p1", "OPD")
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/OPD/call-next", map[string]any{"staff_id": "dr-1"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out service.CompleteOutput
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/entries/"+entry.ID+"/complete", map[string]any{
		"next_department": "Laboratory",
	}, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.EntryStatusCompleted, out.Entry.Status)
	require.NotNil(t, out.RoutedEntry)
	require.Equal(t, "LAB-001", out.RoutedEntry.QueueNumber)

	// Completing again conflicts.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/entries/"+entry.ID+"/complete", nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown entry.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/entries/nope/complete", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSkipEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	entry := checkInPatient(t, srv, "p1", "Radiology")

	var skipped models.QueueEntry
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/entries/"+entry.ID+"/skip", map[string]any{
		"reason": "no show",
	}, &skipped)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.EntryStatusSkipped, skipped.Status)
	require.Equal(t, "no show", skipped.SkipReason)

	// Skipping a terminal entry conflicts.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/entries/"+entry.ID+"/skip", nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPriorityEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	entry := checkInPatient(t, srv, "p1", "OPD")

	var updated models.QueueEntry
	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/queue/entries/"+entry.ID+"/priority", map[string]any{
		"priority": 1,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.PriorityEmergency, updated.Priority)

	resp = doJSON(t, http.MethodPatch, srv.URL+"/api/v1/queue/entries/"+entry.ID+"/priority", map[string]any{
		"priority": 5,
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	entry := checkInPatient(t, srv, "p1", "OPD")

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/queue/entries/"+entry.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Gone entries make removal a no-op.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/queue/entries/"+entry.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetQueueEndpoints(t *testing.T) {
	srv := newTestServer(t, "")

	checkInPatient(t, srv, "p1", "OPD")
	checkInPatient(t, srv, "p2", "Billing")

	var entries []models.QueueEntry
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue?department=OPD", nil, &entries)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)

	// Without a department the listing covers every queue.
	var all map[string][]models.QueueEntry
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue", nil, &all)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, all["OPD"], 1)
	require.Len(t, all["Billing"], 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue?department=Nope", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t, "")

	checkInPatient(t, srv, "p1", "OPD")

	var snaps []models.QueueAnalyticsSnapshot
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue/analytics", nil, &snaps)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, snaps, len(models.Departments()))

	var stats models.QueueStats
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue/stats", nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, stats.Waiting)
	require.Equal(t, 1, stats.Total)
}

func TestStaffAuth(t *testing.T) {
	const secret = "test-secret"
	srv := newTestServer(t, secret)

	// Reads stay open.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue?department=OPD", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Writes need a token.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/queue/check-in", map[string]any{
		"patient_id":   "p1",
		"patient_name": "A",
		"department":   "OPD",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "dr-jones",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	authed := func(method, url string, body any, out any) *http.Response {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, url, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		if out != nil {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		return resp
	}

	resp = authed(http.MethodPost, srv.URL+"/api/v1/queue/check-in", map[string]any{
		"patient_id":   "p1",
		"patient_name": "A",
		"department":   "OPD",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The token subject becomes the serving staff identity, body or not.
	var called struct {
		Entry *models.QueueEntry `json:"entry"`
	}
	resp = authed(http.MethodPost, srv.URL+"/api/v1/queue/OPD/call-next", nil, &called)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, called.Entry)
	require.Equal(t, "dr-jones", called.Entry.ServedBy)

	// Garbage tokens are rejected.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/queue/check-in", bytes.NewBufferString("{}"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not.a.token")
	badResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer badResp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
}
