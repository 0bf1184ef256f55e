package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"willow/internal/tool"
)

func newTestRegistry(t *testing.T) (*tool.Registry, *Session) {
	t.Helper()
	session := NewSession(Config{})
	reg := tool.NewRegistry()
	NewTools(session, nil).Register(reg)
	return reg, session
}

func TestRegisterInstallsFullToolSet(t *testing.T) {
	reg, _ := newTestRegistry(t)

	names := map[string]bool{}
	for _, e := range reg.Catalog() {
		names[e.Function.Name] = true
	}

	for _, want := range []string{
		"start_browser", "goto", "click", "click_by_name", "fill", "screenshot",
		"eval", "text_content", "find_element", "open_website_name",
		"close_webpage", "go_back", "go_forward", "reload", "shrink",
		"fullscreen", "close_browser", "quit",
		"yt_search", "yt_watch", "yt_like", "yt_subscribe", "yt_pause_play",
		"maps_where", "maps_open_place", "maps_directions", "maps_set_mode",
		"maps_extract_details",
		"curr_weather_location", "future_weather_location",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestMissingArgsFailFastWithoutSession(t *testing.T) {
	reg, session := newTestRegistry(t)

	cases := []struct {
		tool  string
		field string
	}{
		{"goto", "url"},
		{"click", "selector"},
		{"fill", "selector"},
		{"screenshot", "path"},
		{"eval", "script"},
		{"text_content", "selector"},
		{"find_element", "query"},
		{"yt_search", "query"},
		{"maps_where", "query"},
		{"maps_set_mode", "mode"},
		{"curr_weather_location", "location"},
	}
	for _, tc := range cases {
		res := reg.Dispatch(tc.tool, map[string]any{})
		assert.False(t, res.OK, "%s should fail", tc.tool)
		assert.Contains(t, res.Error, "'"+tc.field+"'", "%s error should name the field", tc.tool)
	}

	res := reg.Dispatch("maps_directions", map[string]any{"from": "A"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "'to'")

	assert.False(t, session.Active(), "validation failures must not start a browser")
}

func TestPageOperationsWithoutSession(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for _, tc := range []struct {
		tool string
		args map[string]any
	}{
		{"goto", map[string]any{"url": "https://example.com"}},
		{"click", map[string]any{"selector": "#go"}},
		{"fill", map[string]any{"selector": "#q", "value": "x"}},
		{"text_content", map[string]any{"selector": "h1"}},
		{"eval", map[string]any{"script": "1+1"}},
		{"find_element", map[string]any{"query": "login button"}},
		{"go_back", nil},
		{"reload", nil},
		{"yt_watch", map[string]any{"query": "cats"}},
		{"yt_like", nil},
		{"maps_open_place", nil},
		{"maps_extract_details", nil},
	} {
		res := reg.Dispatch(tc.tool, tc.args)
		assert.False(t, res.OK, "%s should fail without a session", tc.tool)
		assert.Contains(t, res.Error, "browser not started", "tool %s", tc.tool)
	}
}

func TestStartBrowserReportsRunningMode(t *testing.T) {
	reg, session := newTestRegistry(t)

	// A session already running headless keeps its mode when a later
	// start_browser asks for headed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session.mu.Lock()
	session.pageCtx, session.pageCancel = ctx, cancel
	session.allocCtx, session.allocCancel = ctx, func() {}
	session.headless = true
	session.mu.Unlock()

	res := reg.Dispatch("start_browser", map[string]any{"headless": false})
	require.True(t, res.OK)
	out, ok := res.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, out["headless"])
}

func TestCloseWebpageWithoutPage(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := reg.Dispatch("close_webpage", nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "no open page")
}

func TestMapsSetModeRejectsUnknownMode(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := reg.Dispatch("maps_set_mode", map[string]any{"mode": "teleport"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "drive, walk, transit, bike")
}

func TestSessionCloseIdempotent(t *testing.T) {
	session := NewSession(Config{})
	session.Close()
	session.Close()
	assert.False(t, session.Active())
}

func TestQuoteJS(t *testing.T) {
	require.Equal(t, `"cat videos"`, quoteJS("cat videos"))
	assert.Equal(t, `"say \"hi\""`, quoteJS(`say "hi"`))
}
