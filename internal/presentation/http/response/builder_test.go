package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/printcore/pkg/errorbank"
)

func render(t *testing.T, build func(c echo.Context) error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, build(c))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestBuildSuccess(t *testing.T) {
	rec, body := render(t, func(c echo.Context) error {
		return New(c).WithData(map[string]int{"backlog": 2}).WithMeta("", "ignored").Build()
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"backlog": float64(2)}, body["data"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "meta")
}

func TestBuildErrorUsesKindStatus(t *testing.T) {
	rec, body := render(t, func(c echo.Context) error {
		return New(c).
			WithError(errorbank.NotConnected("printer unreachable")).
			WithMeta("order_id", "o1").
			Build()
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "not_connected", errBody["kind"])
	assert.Equal(t, "printer unreachable", errBody["message"])
	assert.Equal(t, true, errBody["retryable"])
	assert.Equal(t, map[string]any{"order_id": "o1"}, body["meta"])
}

func TestBuildErrorWrapsUnknownErrors(t *testing.T) {
	rec, body := render(t, func(c echo.Context) error {
		return New(c).WithError(errors.New("boom")).Build()
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "internal", errBody["kind"])
	assert.Equal(t, false, errBody["retryable"])
}

func TestExplicitErrorStatusWins(t *testing.T) {
	rec, _ := render(t, func(c echo.Context) error {
		return New(c).WithStatus(http.StatusTooManyRequests).WithError(errorbank.Conflict("busy")).Build()
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
