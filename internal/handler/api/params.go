package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	"BandView/internal/usecase"
	xhttp "BandView/pkg/http"
)

// bandsParams reads symbol, tf and limit through the validated request model
// and the optional input overrides straight from the query string, so that an
// explicit zero is kept as an override.
func bandsParams(c echo.Context) (usecase.BandsParams, interface{}) {
	req := &models.BandsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return usecase.BandsParams{}, verr
	}
	p := usecase.BandsParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.Limit,
	}

	var (
		length, offset int
		mult           float64
		src            string
	)
	err := echo.QueryParamsBinder(c).
		Int("length", &length).
		Float64("multiplier", &mult).
		Int("offset", &offset).
		String("source", &src).
		BindError()
	if err != nil {
		return usecase.BandsParams{}, bindingErrors(err)
	}

	q := c.QueryParams()
	if q.Has("length") {
		p.Length = &length
	}
	if q.Has("multiplier") {
		p.Multiplier = &mult
	}
	if q.Has("offset") {
		p.Offset = &offset
	}
	if q.Has("source") {
		s := models.Source(src)
		p.Source = &s
	}
	return p, nil
}

func bindingErrors(err error) []xhttp.ValidationError {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return []xhttp.ValidationError{{
			Code:    "ERR_BAD_REQUEST",
			Field:   be.Field,
			Message: be.Field + " has an invalid value",
			Params:  map[string]interface{}{"values": be.Values},
		}}
	}
	return []xhttp.ValidationError{{Code: "ERR_BAD_REQUEST", Message: err.Error()}}
}

func badRequest(c echo.Context, field, msg string) error {
	return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_BAD_REQUEST", field, msg, http.StatusBadRequest))
}
