package controller

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	return newTestRouterWith(t, config.API{})
}

func newTestRouterWith(t *testing.T, api config.API) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewFixtureStore()
	store.SeedDemo()
	router := NewGinEngine()
	NewLabController(store, service.NewScoreConverterService(), api).RegisterRoutes(router)
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func csrfCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	return namedCookie(t, w, defaultCSRFCookie)
}

func namedCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie set", name)
	return nil
}

func TestSearchStudentsMatchesNameAndID(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/student-name-search/?query=ALI", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.StudentSearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Students, 2)
	assert.Equal(t, "Alice Nguyen", resp.Students[0].Name)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/student-name-search/?query=s207", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Students, 1)
	assert.Equal(t, "Carmen Ruiz", resp.Students[0].Name)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/student-name-search/?query=a", nil))
	assert.JSONEq(t, `{"students":[]}`, w.Body.String())
}

func TestGetPartsAndCriteriaShapes(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/get-parts/?lab_id=1", nil))
	assert.JSONEq(t, `[{"id":11,"name":"Part 1: Memory map"},{"id":12,"name":"Part 2: Serial echo"}]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-parts/?lab_id=5", nil))
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-criteria/?part_id=11", nil))
	assert.True(t, bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")))

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-criteria/?part_id=12", nil))
	assert.JSONEq(t, `[{"id":103,"name":"Baud rate setup","max_points":10}]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-criteria/?part_id=99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuickSignoffRequiresCSRF(t *testing.T) {
	router := newTestRouter(t)
	body := []byte(`{"student_id":1,"part_id":11,"overall_score":3}`)

	req := httptest.NewRequest(http.MethodPost, "/api/quick-signoff/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"CSRF verification failed"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/quick-signoff/", bytes.NewReader(body))
	req.AddCookie(&http.Cookie{Name: defaultCSRFCookie, Value: "abc"})
	req.Header.Set(defaultCSRFHeader, "wrong")
	w = serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQuickSignoffStoresAndReportsDetails(t *testing.T) {
	router := newTestRouter(t)

	cookie := csrfCookie(t, serve(router, httptest.NewRequest(http.MethodGet, "/api/get-parts/?lab_id=1", nil)))

	post := func(payload string) dto.QuickSignoffResponse {
		req := httptest.NewRequest(http.MethodPost, "/api/quick-signoff/", bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		req.Header.Set(defaultCSRFHeader, cookie.Value)
		w := serve(router, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp dto.QuickSignoffResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	resp := post(`{"student_id":1,"part_id":11,"overall_score":1,"comments":"redo","criteria_scores":{"101":3},"rubric_evaluations":{"hardware":"ER"}}`)
	assert.True(t, resp.Success)
	assert.Equal(t, "rejected", resp.Status)
	assert.Equal(t, "Signoff created successfully", resp.Message)

	resp = post(`{"student_id":1,"part_id":11,"overall_score":3,"comments":"fixed"}`)
	assert.Equal(t, "approved", resp.Status)
	assert.Equal(t, "Signoff updated successfully", resp.Message)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/get-signoffs/?student_id=1&lab_id=1", nil))
	assert.JSONEq(t, `[{"part_id":11,"status":"approved"}]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-signoff-details/?student_id=1&part_id=11", nil))
	var details dto.SignoffDetailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	got := details.ToModel()
	assert.True(t, got.Found)
	assert.Equal(t, "fixed", got.Comments)
	assert.Equal(t, 3, got.OverallScore)
	require.Len(t, got.History, 2)
	assert.Equal(t, "fixed", got.History[0].Comments)
	assert.Equal(t, fixtureTA, got.History[0].Instructor)

	resp = post(`{"student_id":42,"part_id":11,"overall_score":2}`)
	assert.False(t, resp.Success)
	assert.Equal(t, "Student or Part not found", resp.Message)
}

func TestSignoffDetailsNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/get-signoff-details/?student_id=2&part_id=12", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var details dto.SignoffDetailsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &details))
	assert.False(t, details.Found)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-signoff-details/?student_id=2", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCSRFUsesConfiguredNames(t *testing.T) {
	router := newTestRouterWith(t, config.API{CSRFCookieName: "labcsrf", CSRFHeaderName: "X-Lab-CSRF"})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/get-parts/?lab_id=1", nil))
	cookie := namedCookie(t, w, "labcsrf")
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, defaultCSRFCookie, c.Name)
	}

	post := func(header string) int {
		body := []byte(`{"student_id":2,"part_id":12,"overall_score":2}`)
		req := httptest.NewRequest(http.MethodPost, "/api/quick-signoff/", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		req.Header.Set(header, cookie.Value)
		return serve(router, req).Code
	}
	assert.Equal(t, http.StatusForbidden, post(defaultCSRFHeader))
	assert.Equal(t, http.StatusOK, post("X-Lab-CSRF"))
}
