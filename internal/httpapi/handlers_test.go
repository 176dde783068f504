package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/internal/dynamotest"
	"github.com/PrettySolution/driver-infrastructure/internal/httpapi"
	"github.com/PrettySolution/driver-infrastructure/report"
	"github.com/PrettySolution/driver-infrastructure/store"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	fake := dynamotest.New()
	st := store.New(fake, store.Config{Table: "reports-test", Index: "gsi1"}, zap.NewNop())
	return httpapi.New(report.NewService(st, zap.NewNop()), zap.NewNop()).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, username string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if username != "" {
		req.Header.Set("x-username", username)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeReport(t *testing.T, body []byte) report.Report {
	t.Helper()
	var envelope struct {
		Msg  string        `json:"msg"`
		Data report.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "OK", envelope.Msg)
	return envelope.Data
}

func TestMissingIdentity(t *testing.T) {
	h := newRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateReport(t *testing.T) {
	h := newRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", "alice", map[string]string{"vehicleId": "V1"})
	require.Equal(t, http.StatusOK, rec.Code)

	created := decodeReport(t, rec.Body.Bytes())
	assert.Equal(t, "alice", created.DriverID)
	assert.Equal(t, "V1", created.VehicleID)
	assert.NotEmpty(t, created.ReportID)
	assert.Equal(t, report.DefaultPayload(), created.Payload)
}

func TestCreateReport_BadBody(t *testing.T) {
	h := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewBufferString("{not json"))
	req.Header.Set("x-username", "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReport_MissingVehicleID(t *testing.T) {
	h := newRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport_NotFound(t *testing.T) {
	h := newRouter(t)

	key := url.PathEscape("#1700#VEHICLE#V1#DRIVER#alice&REPORT#nope")
	rec := doJSON(t, h, http.MethodGet, "/api/reports/"+key, "alice", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Report not found", resp["message"])
}

func TestReportLifecycle(t *testing.T) {
	h := newRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", "alice", map[string]string{"vehicleId": "V1"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeReport(t, rec.Body.Bytes())
	keyPath := "/api/reports/" + url.PathEscape(created.Key())

	rec = doJSON(t, h, http.MethodGet, keyPath, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created, got)

	rec = doJSON(t, h, http.MethodGet, "/api/reports?limit=5", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Items            []report.Report `json:"items"`
		Limit            int32           `json:"limit"`
		LastEvaluatedKey string          `json:"lastEvaluatedKey"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	assert.Equal(t, created, listed.Items[0])
	assert.Equal(t, int32(5), listed.Limit)
	assert.Empty(t, listed.LastEvaluatedKey)

	rec = doJSON(t, h, http.MethodPut, keyPath, "alice", map[string]string{"type": "incident"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated report.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "incident", updated.Type)

	rec = doJSON(t, h, http.MethodDelete, keyPath, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, "Report deleted successfully", deleted["message"])

	rec = doJSON(t, h, http.MethodGet, keyPath, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateReport_MissingType(t *testing.T) {
	h := newRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", "alice", map[string]string{"vehicleId": "V1"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeReport(t, rec.Body.Bytes())

	keyPath := "/api/reports/" + url.PathEscape(created.Key())
	rec = doJSON(t, h, http.MethodPut, keyPath, "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportIsolation(t *testing.T) {
	h := newRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/reports", "alice", map[string]string{"vehicleId": "V1"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeReport(t, rec.Body.Bytes())
	keyPath := "/api/reports/" + url.PathEscape(created.Key())

	// Another caller presenting alice's key sees nothing.
	rec = doJSON(t, h, http.MethodGet, keyPath, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/reports", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Items []report.Report `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Items)
}

func TestListReports_Pagination(t *testing.T) {
	h := newRouter(t)

	var want []string
	for i := 0; i < 3; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/reports", "alice", map[string]string{"vehicleId": "V1"})
		require.Equal(t, http.StatusOK, rec.Code)
		want = append(want, decodeReport(t, rec.Body.Bytes()).ReportID)
	}

	var got []string
	cursor := ""
	for {
		path := "/api/reports?limit=2"
		if cursor != "" {
			path += "&cursor=" + url.QueryEscape(cursor)
		}
		rec := doJSON(t, h, http.MethodGet, path, "alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var listed struct {
			Items            []report.Report `json:"items"`
			LastEvaluatedKey string          `json:"lastEvaluatedKey"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
		for _, r := range listed.Items {
			got = append(got, r.ReportID)
		}
		if listed.LastEvaluatedKey == "" {
			break
		}
		cursor = listed.LastEvaluatedKey
	}
	assert.Equal(t, want, got)
}
