package program_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/coach"
	"github.com/2beens/apexhq/internal/program"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRouter(env *testEnv) *mux.Router {
	r := mux.NewRouter()
	program.NewHandler(env.service).SetupRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", path, bytes.NewBufferString(body))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Generate(t *testing.T) {
	env := newTestEnv(t, event("y", yesterday), event("tm", tomorrow))
	r := newTestRouter(env)

	env.generator.EXPECT().
		GenerateProgram(gomock.Any(), gomock.Any()).
		Return(&coach.Program{
			DietPlan: "Lean protein.",
			Schedule: []coach.ProgramItem{{Title: "Tempo", Type: athlete.EventTraining, DayOffset: 4}},
		}, true)

	rr := post(t, r, "/program/generate", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var result program.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Discarded)
	assert.Equal(t, "Lean protein.", result.DietPlan)
	require.Len(t, result.Events, 2)
	assert.Equal(t, today.AddDays(4), result.Events[1].Date)

	env.generator.EXPECT().
		GenerateProgram(gomock.Any(), gomock.Any()).
		Return(nil, false)
	rr = post(t, r, "/program/generate", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHandler_GenerateBusy(t *testing.T) {
	env := newTestEnv(t)
	r := newTestRouter(env)

	release, err := env.desk.Acquire("a1", coach.OpProgram)
	require.NoError(t, err)
	defer release()

	rr := post(t, r, "/program/generate", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandler_Reset(t *testing.T) {
	env := newTestEnv(t, event("t", today), event("tm", tomorrow))
	r := newTestRouter(env)

	rr := post(t, r, "/program/reset", `{}`)
	assert.Equal(t, http.StatusPreconditionRequired, rr.Code)
	rr = post(t, r, "/program/reset", `{"confirm":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	doc, _, _ := env.aggregator.Snapshot()
	assert.Len(t, doc.Events, 2)

	rr = post(t, r, "/program/reset", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var result program.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Discarded)

	env.aggregator.Clear()
	rr = post(t, r, "/program/reset", `{"confirm":true}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}
