package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/shared/storage/db"
)

func newTestRouter(svc *Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api"))
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func errorBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	body, ok := out["error"].(map[string]any)
	require.True(t, ok, resp.Body.String())
	return body
}

func TestHandlerCreateReturnsDocument(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc, "u1")

	resp := serve(router, http.MethodPost, "/api/resumes", `{"title":"CV","data":{"z":1,"a":[1,2]}}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	var doc DocumentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))
	require.Equal(t, "CV", doc.Title)
	require.Equal(t, "u1", doc.OwnerID)
	require.JSONEq(t, `{"z":1,"a":[1,2]}`, string(doc.Data))
}

func TestHandlerRejectsMalformedBody(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc, "u1")

	resp := serve(router, http.MethodPost, "/api/resumes", `{"title":`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Title and data are required to create a resume.", errorBody(t, resp)["message"])

	resp = serve(router, http.MethodPut, "/api/resumes/8f14e45f-ceea-467f-a0e6-0b0b3f0f1f11", `{"title":"CV","data":null}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "Title and data are required to update a resume.", errorBody(t, resp)["message"])
}

func TestHandlerRejectsOversizedBody(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc, "u1")

	big := `{"title":"CV","data":"` + strings.Repeat("x", maxBodySize) + `"}`
	resp := serve(router, http.MethodPost, "/api/resumes", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	require.Equal(t, "payload_too_large", errorBody(t, resp)["code"])
}

func TestHandlerListIsEmptyArray(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc, "u1")

	resp := serve(router, http.MethodGet, "/api/resumes", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `[]`, resp.Body.String())
}

type unavailableRepo struct{ *MemoryRepo }

func (unavailableRepo) ListByOwner(context.Context, string) ([]Document, error) {
	return nil, db.ErrUnavailable
}

type brokenRepo struct{ *MemoryRepo }

func (brokenRepo) GetByID(context.Context, string, string) (Document, error) {
	return Document{}, errors.New("pq: relation does not exist")
}

func TestHandlerMapsStorageFailures(t *testing.T) {
	svc := NewService(CoverLetters, unavailableRepo{NewMemoryRepo()})
	resp := serve(newTestRouter(svc, "u1"), http.MethodGet, "/api/letters", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Equal(t, "Failed to retrieve cover letters.", errorBody(t, resp)["message"])

	svc = NewService(CoverLetters, brokenRepo{NewMemoryRepo()})
	resp = serve(newTestRouter(svc, "u1"), http.MethodGet, "/api/letters/8f14e45f-ceea-467f-a0e6-0b0b3f0f1f11", "")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	body := errorBody(t, resp)
	require.Equal(t, "Failed to retrieve cover letter.", body["message"])
	require.NotContains(t, resp.Body.String(), "relation")
}
