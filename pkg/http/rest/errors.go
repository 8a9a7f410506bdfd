package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/cloudgroundcontrol/botfleet/pkg/apperr"
)

// translate maps the error taxonomy onto HTTP responses. Upstream and
// internal detail stays in the logs, not in the response body.
func translate(err error) error {
	var validation *apperr.ValidationError
	if errors.As(err, &validation) {
		return echo.NewHTTPError(http.StatusBadRequest, validation.Reason)
	}

	var auth *apperr.AuthError
	if errors.As(err, &auth) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var upstream *apperr.UpstreamError
	if errors.As(err, &upstream) {
		log.Errorf("upstream failure | op: %s, error: %v", upstream.Op, upstream.Err)
		return echo.NewHTTPError(http.StatusBadGateway, "upstream provider error")
	}

	log.Errorf("unexpected failure | error: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
