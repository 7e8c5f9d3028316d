package sse_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/api/sse"
	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/config"
	"github.com/kasuganosora/questengine/game/notify"
	mw "github.com/kasuganosora/questengine/middleware"
	"github.com/kasuganosora/questengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

var sec = config.SecurityConfig{JWTSecret: "sse-test-secret", JWTTTL: time.Hour}

func newServer(t *testing.T) (*httptest.Server, cache.PubSub, *sse.Handler) {
	t.Helper()
	_, ps := testutil.SetupTestCache(t)
	h := sse.NewHandler(ps, sec, zap.NewNop()).WithKeepalive(50 * time.Millisecond)
	r := gin.New()
	r.GET("/sse", h.ServeSSE)
	r.POST("/announce", h.PostAnnounce)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, ps, h
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := mw.GenerateToken(subject, role, sec.JWTSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestServeSSE_Rejects(t *testing.T) {
	srv, _, _ := newServer(t)
	cases := []struct {
		name  string
		query string
		code  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "?token=abc", http.StatusUnauthorized},
		{"service token", "?token=" + token(t, "gameplay-1", mw.RoleService), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/sse" + tc.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)
		})
	}
}

// readEvent returns the next event name and data, skipping comments.
func readEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("stream closed: %v", sc.Err())
	return "", ""
}

func TestServeSSE_RelaysPlayerAndAnnouncements(t *testing.T) {
	srv, ps, h := newServer(t)
	id := uuid.New()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse?token="+token(t, id.String(), mw.RolePlayer), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	event, data := readEvent(t, sc)
	require.Equal(t, "connected", event)
	assert.Contains(t, data, id.String())

	require.NoError(t, ps.Publish(ctx, notify.PlayerChannel(id), `{"type":"quest_completed","data":{}}`))
	event, _ = readEvent(t, sc)
	assert.Equal(t, notify.TypeCompleted, event)

	require.NoError(t, ps.Publish(ctx, notify.PlayerChannel(uuid.New()), `{"type":"quest_completed","data":{}}`))
	require.NoError(t, h.Announce(ctx, "maintenance at noon"))
	event, data = readEvent(t, sc)
	assert.Equal(t, sse.TypeAnnouncement, event)
	assert.Contains(t, data, "maintenance at noon")
}

func TestPostAnnounce(t *testing.T) {
	srv, _, _ := newServer(t)
	resp, err := http.Post(srv.URL+"/announce", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/announce", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
