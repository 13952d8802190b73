package api

import (
	"errors"
	"net/http"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	"BandView/internal/services/bollinger"
	"BandView/internal/usecase"
	xhttp "BandView/pkg/http"
)

// toAppError maps domain errors onto HTTP errors. Unknown errors are returned
// unchanged and end up as 500.
func toAppError(err error) error {
	switch {
	case errors.Is(err, bollinger.ErrInvalidMultiplier):
		return xhttp.NewAppError("ERR_INVALID_CONFIGURATION", "multiplier", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, bollinger.ErrInvalidConfiguration):
		return xhttp.NewAppError("ERR_INVALID_CONFIGURATION", "length", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, bollinger.ErrUnknownSource):
		return xhttp.NewAppError("ERR_UNKNOWN_SOURCE", "source", err.Error(), http.StatusBadRequest).
			WithParam("options", bollinger.Sources()).
			WithError(err)
	case errors.Is(err, models.ErrInvalidSettings):
		return xhttp.NewAppError("ERR_INVALID_SETTINGS", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, usecase.ErrInvalidRange):
		return xhttp.NewAppError("ERR_BAD_REQUEST", "from", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, domrepo.ErrSeriesNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrUnsortedSeries):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	default:
		return err
	}
}

func isServerError(err error) bool {
	var appErr *xhttp.AppError
	return !errors.As(err, &appErr) || appErr.Status >= http.StatusInternalServerError
}
