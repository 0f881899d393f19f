package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/valora-identity/internal/http/response"
	"github.com/smallbiznis/valora-identity/internal/service"
)

func render(t *testing.T, fn func(c *gin.Context)) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestSuccessOmitsEmptyData(t *testing.T) {
	code, body := render(t, func(c *gin.Context) { response.Success(c, http.StatusOK, "done", nil) })
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "success", body["status"])
	require.Equal(t, "done", body["message"])
	require.NotContains(t, body, "data")
}

func TestErrorRendersServiceError(t *testing.T) {
	err := service.NewError(service.KindAuthentication, http.StatusUnauthorized, "Authentication failed")
	code, body := render(t, func(c *gin.Context) { response.Error(c, err) })
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "Bad request", body["status"])
	require.Equal(t, "Authentication failed", body["message"])
	require.EqualValues(t, 401, body["statusCode"])

	forbidden := service.NewError(service.KindAuthorization, http.StatusForbidden, "nope")
	_, body = render(t, func(c *gin.Context) { response.Error(c, forbidden) })
	require.Equal(t, "error", body["status"])
}

func TestErrorHidesUnexpectedErrors(t *testing.T) {
	code, body := render(t, func(c *gin.Context) { response.Error(c, errors.New("db exploded")) })
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Internal server error", body["message"])
}
