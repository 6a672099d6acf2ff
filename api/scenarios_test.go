/*
scenarios_test.go - Tests for the scenario endpoints

Tests that the built-in scenarios are listed, that loading one resets and
reseeds its hotels, and that the routes are absent when disabled.
*/
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/hotel-backoffice/auth"
	"github.com/warp/hotel-backoffice/scenario"
)

func TestListScenarios(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/scenarios", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []scenario.Info
	decodeBody(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)
}

func TestLoadScenario(t *testing.T) {
	// GIVEN: Alpha already loaded and modified
	ts := newTestServer(t)
	anna := ts.login("anna@alpha.test", "manager-password")
	rec := ts.do(http.MethodPost, "/api/rooms/alpha-101/check-out", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: Loading alpha again
	rec = ts.do(http.MethodPost, "/api/scenarios/load", "", LoadScenarioRequest{ScenarioID: "alpha"})

	// THEN: The hotel is back to its seeded state
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res scenario.Result
	decodeBody(t, rec, &res)
	assert.Equal(t, 1, res.Hotels)
	assert.Equal(t, 6, res.Entries)

	rec = ts.do(http.MethodGet, "/api/hotels/alpha/state", anna, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st StateResponse
	decodeBody(t, rec, &st)
	assert.Equal(t, 2, st.RoomsByStatus["occupied"])
}

func TestLoadScenario_Errors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/scenarios/load", "", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/scenarios/load", "", LoadScenarioRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "scenario_id", errorOf(t, rec).Field)
}

func TestScenarios_DisabledRoutesAreAbsent(t *testing.T) {
	ts := newTestServer(t)
	h := NewHandler(ts.engine, auth.NewTokenManager("s", "test", time.Hour), nil, nil)
	router := NewRouter(h, RouterOptions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scenarios", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
