package rest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kasuganosora/questengine/api/rest"
	"github.com/kasuganosora/questengine/game/quest"
	"github.com/kasuganosora/questengine/game/reward"
	"github.com/kasuganosora/questengine/store"
	"github.com/kasuganosora/questengine/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

func nopLogger() *zap.Logger { return zap.NewNop() }

var start = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	engine    *quest.Engine
	repo      *store.QuestRepo
	dispenser *reward.Dispenser
	resets    *quest.ResetScheduler
	clock     *clockwork.FakeClock
}

// testCatalog gives the 1-49 bracket one fixed template per kind.
func testCatalog() *quest.Catalog {
	c := &quest.Catalog{}
	c.Set(quest.KindDaily, quest.Bracket1to49, []quest.Template{{Objective: quest.KillNormal, Amount: 3, Description: "Kill 3 monsters"}})
	c.Set(quest.KindWeekly, quest.Bracket1to49, []quest.Template{{Objective: quest.KillNormal, Amount: 10, Description: "Kill 10 monsters"}})
	c.Set(quest.KindMonthly, quest.Bracket1to49, []quest.Template{{Objective: quest.FinishQInf, Amount: 1, Description: "Finish Q1 Inf", Target: "q1"}})
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	clock := clockwork.NewFakeClockAt(start)
	repo := store.NewQuestRepo(db)
	disp := reward.New(repo, c, ps, time.Minute, nopLogger()).WithClock(clock)
	cad, err := quest.NewCadences(0, time.Monday, time.UTC)
	require.NoError(t, err)
	eng := quest.NewEngine(quest.Options{
		Repo:      repo,
		Factory:   quest.NewFactory(testCatalog(), nil),
		Dispenser: disp,
		Clock:     clock,
		Policy:    quest.DefaultRerollPolicy,
		Cadences:  cad,
		Logger:    nopLogger(),
	})
	return &fixture{
		engine:    eng,
		repo:      repo,
		dispenser: disp,
		resets:    quest.NewResetScheduler(eng, c, nopLogger()),
		clock:     clock,
	}
}

func (f *fixture) questRouter() *gin.Engine {
	h := rest.NewQuestHandler(f.engine, nopLogger())
	r := gin.New()
	r.POST("/api/quests/progress", h.ReportProgress)
	r.POST("/api/quests/:kind/assign", h.Assign)
	r.POST("/api/quests/:kind/reroll", h.Reroll)
	r.POST("/api/quests/:kind/claim", h.Claim)
	r.GET("/api/players/:id/quests", h.Status)
	r.POST("/api/presence/login", h.Login)
	r.POST("/api/presence/heartbeat", h.Heartbeat)
	r.POST("/api/presence/logout", h.Logout)
	return r
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func playerBody(id uuid.UUID, level int, tier string) string {
	b, _ := json.Marshal(map[string]any{"player_id": id.String(), "level": level, "tier": tier})
	return string(b)
}
