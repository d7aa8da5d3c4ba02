package controller

import (
	"context"
	"net/http"

	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/types"
)

// ClimateService is the query surface the handlers need.
type ClimateService interface {
	PrecipitationReport(ctx context.Context) (types.DateValues, error)
	StationCatalog(ctx context.Context) (types.StationCatalog, error)
	BusiestStationTemperatures(ctx context.Context) (types.DateValues, error)
	TemperatureSummary(ctx context.Context, start, end string) (types.Summary, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service ClimateService
}

func NewClimateController(service ClimateService) ClimateController {
	return &climateControllerImpl{service: service}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleSummary)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleSummary)
}
