package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleQuery struct {
	Symbol string `query:"symbol" default:"AAPL" validate:"required,max=8"`
	TF     string `query:"tf" default:"1d" validate:"oneof=1m 1d"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=500"`
}

func contextFor(method, target, body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	c := contextFor(http.MethodGet, "/x", "")
	var q sampleQuery
	require.Nil(t, ReadAndValidateRequest(c, &q))
	assert.Equal(t, sampleQuery{Symbol: "AAPL", TF: "1d", Limit: 100}, q)
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	c := contextFor(http.MethodGet, "/x?tf=4h&limit=900", "")
	var q sampleQuery
	res := ReadAndValidateRequest(c, &q)
	errs, ok := res.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_ONEOF", byField["tf"].Code)
	assert.Equal(t, "ERR_LTE", byField["limit"].Code)
	assert.Equal(t, "500", byField["limit"].Params["max"])
}

func TestAppErrorResponseStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := NewAppError("ERR_UNKNOWN_SOURCE", "source", "unknown source", http.StatusBadRequest)
	require.NoError(t, AppErrorResponse(c, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"source"`)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
