package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/views"
	"github.com/sberahim/sqlalchemy-challenge/internal/utils"
)

var indexRoutes = []string{
	"/api/v1.0/precipitation",
	"/api/v1.0/stations",
	"/api/v1.0/tobs",
	"/api/v1.0/start",
	"/api/v1.0/start/end",
}

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := views.RenderIndex(&buf, &views.IndexData{Routes: indexRoutes, Hint: views.DateHint}); err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	report, err := c.service.PrecipitationReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	catalog, err := c.service.StationCatalog(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, catalog)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	tobs, err := c.service.BusiestStationTemperatures(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tobs)
}

// handleSummary serves both /{start} and /{start}/{end}; end is empty on the
// first pattern.
func (c *climateControllerImpl) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := c.service.TemperatureSummary(r.Context(), r.PathValue("start"), r.PathValue("end"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}
