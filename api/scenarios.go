/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Lists and loads the built-in YAML scenarios (package scenario) so a
  development instance can be populated with realistic hotels, staff and a
  day of activity without hand-crafting requests.

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/load
	{"scenario_id": "alpha"}

NOTE:
  Loading a scenario deletes and recreates its hotels. The routes are only
  mounted when scenarios are enabled, which config refuses in production.

SEE ALSO:
  - scenario/scenario.go: YAML format and Apply
  - scenario/data/*.yaml: built-in scenarios
*/
package api

import (
	"errors"
	"net/http"

	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/scenario"
)

// ListScenarios handles GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := scenario.List()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// LoadScenario handles POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ScenarioID == "" {
		h.fail(w, r, hotel.Invalid("scenario_id", "is required"))
		return
	}

	sc, err := scenario.Get(req.ScenarioID)
	if errors.Is(err, scenario.ErrUnknownScenario) {
		h.fail(w, r, hotel.NotFound("scenario", req.ScenarioID))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := scenario.Apply(r.Context(), h.engine, sc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "scenario loaded", "scenario", sc.ID, "hotels", res.Hotels, "entries", res.Entries)
	writeJSON(w, http.StatusOK, res)
}
