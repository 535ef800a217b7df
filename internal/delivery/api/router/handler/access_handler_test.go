package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"citas/internal/delivery/api/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode_LogsRepairUnderAccessCode(t *testing.T) {
	var buf bytes.Buffer
	h := NewAccessHandler(AccessHandlerParams{
		Logger: slog.New(slog.NewJSONHandler(&buf, nil)),
	})

	e := echo.New()
	e.Validator = validator.New()
	e.POST("/normalize", h.NormalizeCode)

	req := httptest.NewRequest(http.MethodPost, "/normalize", strings.NewReader(`{"raw":"exm-12#secret","mode":"blur"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	logged := buf.String()
	assert.Contains(t, logged, "Access code repaired on blur")
	assert.Contains(t, logged, `"accessCode":"EXM-12SE-CRET-0000"`)
	assert.Contains(t, logged, `"rawLength":13`)
	assert.NotContains(t, logged, "exm-12#secret")
}
