package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/smokyabdulrahman/namaz/internal/api"
	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

// SelectLocationMessage is returned whenever a location is needed but none is selected.
const SelectLocationMessage = "Select a location to view today's namaz timings."

var (
	errBadRequest    = errors.New("bad request")
	errNoCoordinates = errors.New("the selected location has no coordinates")
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// writeError maps err onto a status code and a client-safe message.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		status  int
		message string
		apiErr  *api.Error
		missing *prayer.MissingDataError
	)

	switch {
	case errors.Is(err, location.ErrNoLocation):
		status, message = http.StatusConflict, SelectLocationMessage
	case errors.Is(err, errNoCoordinates):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, location.ErrInvalidLocation),
		errors.Is(err, zakaat.ErrUnsupportedCurrency),
		errors.Is(err, geo.ErrEmptyQuery),
		errors.Is(err, errBadRequest):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, geo.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.As(err, &apiErr), errors.Is(err, api.ErrMalformedResponse), errors.As(err, &missing):
		status, message = http.StatusBadGateway, "prayer times provider error: "+err.Error()
		log.Warn().Err(err).Msg("prayer times provider failed")
	case errors.Is(err, geo.ErrUpstream):
		status, message = http.StatusBadGateway, "geocoding failed: "+err.Error()
		log.Warn().Err(err).Msg("geocoder failed")
	default:
		status, message = http.StatusInternalServerError, "Internal server error"
		log.Error().Err(err).Msg("internal error")
	}

	writeJSON(w, log, status, errorResponse{Error: message})
}
