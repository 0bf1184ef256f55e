package browser

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"willow/internal/tool"
)

// Tools binds the full browser tool set to one session. Register wires
// every tool into the registry the orchestrator dispatches through.
type Tools struct {
	session *Session
	log     *slog.Logger
}

func NewTools(session *Session, log *slog.Logger) *Tools {
	if log == nil {
		log = slog.Default()
	}
	return &Tools{session: session, log: log.With("component", "browser")}
}

// Register installs core, YouTube, Google Maps and weather tools. Later
// registrations overwrite earlier ones, so module order is the policy for
// superseding a tool.
func (t *Tools) Register(reg *tool.Registry) {
	t.registerCore(reg)
	t.registerYouTube(reg)
	t.registerMaps(reg)
	t.registerWeather(reg)
}

func objectSchema(props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props}
}

func stringProp() map[string]any { return map[string]any{"type": "string"} }
func intProp() map[string]any    { return map[string]any{"type": "integer"} }
func boolProp() map[string]any   { return map[string]any{"type": "boolean"} }
func noParams() map[string]any   { return objectSchema(map[string]any{}) }

func timeoutFrom(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func (t *Tools) registerCore(reg *tool.Registry) {
	reg.Register(tool.Spec{
		Name:        "start_browser",
		Description: "Launch a browser instance. Args: headless (bool).",
		Parameters:  objectSchema(map[string]any{"headless": boolProp()}),
	}, t.startBrowser)

	reg.Register(tool.Spec{
		Name:        "goto",
		Description: "Navigate the current page to a URL.",
		Parameters:  objectSchema(map[string]any{"url": stringProp(), "timeout": intProp()}),
	}, t.goTo)

	reg.Register(tool.Spec{
		Name:        "click",
		Description: "Click an element specified by a CSS selector.",
		Parameters:  objectSchema(map[string]any{"selector": stringProp()}),
	}, t.click)

	reg.Register(tool.Spec{
		Name:        "click_by_name",
		Description: "Click the first visible element whose text contains the query (case-insensitive).",
		Parameters:  objectSchema(map[string]any{"query": stringProp()}),
	}, t.clickByName)

	reg.Register(tool.Spec{
		Name:        "fill",
		Description: "Fill an input identified by selector with value.",
		Parameters:  objectSchema(map[string]any{"selector": stringProp(), "value": stringProp()}),
	}, t.fill)

	reg.Register(tool.Spec{
		Name:        "screenshot",
		Description: "Save a screenshot of the current page to 'path'.",
		Parameters:  objectSchema(map[string]any{"path": stringProp(), "full_page": boolProp()}),
	}, t.screenshot)

	reg.Register(tool.Spec{
		Name:        "eval",
		Description: "Evaluate a small JS snippet in page context and return the result.",
		Parameters:  objectSchema(map[string]any{"script": stringProp()}),
	}, t.eval)

	reg.Register(tool.Spec{
		Name:        "text_content",
		Description: "Return the text content of the first element matching selector.",
		Parameters:  objectSchema(map[string]any{"selector": stringProp()}),
	}, t.textContent)

	reg.Register(tool.Spec{
		Name:        "find_element",
		Description: "Heuristically find an element by a human query. Returns the best match with a selector.",
		Parameters:  objectSchema(map[string]any{"query": stringProp()}),
	}, t.findElement)

	reg.Register(tool.Spec{
		Name:        "open_website_name",
		Description: "Search for a website by name and open the first result.",
		Parameters:  objectSchema(map[string]any{"name": stringProp(), "timeout": intProp()}),
	}, t.openWebsiteName)

	reg.Register(tool.Spec{
		Name:        "close_webpage",
		Description: "Close the current browser tab.",
		Parameters:  noParams(),
	}, t.closeWebpage)

	reg.Register(tool.Spec{
		Name:        "go_back",
		Description: "Navigate back in browser history.",
		Parameters:  noParams(),
	}, t.goBack)

	reg.Register(tool.Spec{
		Name:        "go_forward",
		Description: "Navigate forward in browser history.",
		Parameters:  noParams(),
	}, t.goForward)

	reg.Register(tool.Spec{
		Name:        "reload",
		Description: "Reload the current page.",
		Parameters:  noParams(),
	}, t.reload)

	reg.Register(tool.Spec{
		Name:        "shrink",
		Description: "Shrink the browser viewport to a smaller size (defaults to 800x600).",
		Parameters:  objectSchema(map[string]any{"width": intProp(), "height": intProp()}),
	}, t.shrink)

	reg.Register(tool.Spec{
		Name:        "fullscreen",
		Description: "Toggle fullscreen for the page document.",
		Parameters:  noParams(),
	}, t.fullscreen)

	reg.Register(tool.Spec{
		Name:        "close_browser",
		Description: "Close the browser and free resources.",
		Parameters:  noParams(),
	}, t.closeBrowser)

	reg.Register(tool.Spec{
		Name:        "quit",
		Description: "Quit the browser process.",
		Parameters:  noParams(),
	}, t.closeBrowser)
}

func (t *Tools) startBrowser(args map[string]any) tool.Result {
	var in struct {
		Headless *bool `json:"headless"`
	}
	if err := tool.DecodeArgs(args, &in); err != nil {
		return tool.Errorf("%s", err)
	}

	headless := true
	if in.Headless != nil {
		headless = *in.Headless
	}
	if err := t.session.Start(headless); err != nil {
		return tool.Errorf("%s", err)
	}
	// A session that was already running keeps its original mode, so
	// report the one actually in effect.
	headless = t.session.Headless()
	t.log.Info("browser started", "headless", headless)
	return tool.Ok(map[string]any{"status": "browser started", "headless": headless})
}

func (t *Tools) goTo(args map[string]any) tool.Result {
	var in struct {
		URL     string `json:"url"`
		Timeout int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in, "url"); err != nil {
		return tool.Errorf("%s", err)
	}

	err := t.session.Run(timeoutFrom(in.Timeout, 0), chromedp.Navigate(in.URL))
	if err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "navigated", "url": in.URL})
}

func (t *Tools) click(args map[string]any) tool.Result {
	var in struct {
		Selector string `json:"selector"`
	}
	if err := tool.DecodeArgs(args, &in, "selector"); err != nil {
		return tool.Errorf("%s", err)
	}

	if err := t.session.Run(0, chromedp.Click(in.Selector, chromedp.ByQuery)); err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "clicked", "selector": in.Selector})
}

func (t *Tools) fill(args map[string]any) tool.Result {
	var in struct {
		Selector string `json:"selector"`
		Value    string `json:"value"`
	}
	if err := tool.DecodeArgs(args, &in, "selector"); err != nil {
		return tool.Errorf("%s", err)
	}

	err := t.session.Run(0,
		chromedp.SetValue(in.Selector, in.Value, chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "filled", "selector": in.Selector})
}

func (t *Tools) screenshot(args map[string]any) tool.Result {
	var in struct {
		Path     string `json:"path"`
		FullPage bool   `json:"full_page"`
	}
	if err := tool.DecodeArgs(args, &in, "path"); err != nil {
		return tool.Errorf("%s", err)
	}

	var buf []byte
	var action chromedp.Action
	if in.FullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := t.session.Run(0, action); err != nil {
		return tool.Errorf("%s", err)
	}
	if err := os.WriteFile(in.Path, buf, 0o644); err != nil {
		return tool.Errorf("write screenshot: %s", err)
	}
	return tool.Ok(map[string]any{"status": "screenshot saved", "path": in.Path})
}

func (t *Tools) eval(args map[string]any) tool.Result {
	var in struct {
		Script string `json:"script"`
	}
	if err := tool.DecodeArgs(args, &in, "script"); err != nil {
		return tool.Errorf("%s", err)
	}

	var value any
	if err := t.session.Run(0, chromedp.Evaluate(in.Script, &value)); err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"value": value})
}

func (t *Tools) textContent(args map[string]any) tool.Result {
	var in struct {
		Selector string `json:"selector"`
	}
	if err := tool.DecodeArgs(args, &in, "selector"); err != nil {
		return tool.Errorf("%s", err)
	}

	var text string
	if err := t.session.Run(0, chromedp.Text(in.Selector, &text, chromedp.ByQuery)); err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"text": text})
}

func (t *Tools) closeWebpage(args map[string]any) tool.Result {
	if err := t.session.CloseTab(); err != nil {
		return tool.Errorf("no open page to close")
	}
	return tool.Ok(map[string]any{"status": "closed"})
}

func (t *Tools) goBack(args map[string]any) tool.Result {
	if err := t.session.Run(0, chromedp.NavigateBack()); err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "navigated_back"})
}

func (t *Tools) goForward(args map[string]any) tool.Result {
	if err := t.session.Run(0, chromedp.NavigateForward()); err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "navigated_forward"})
}

func (t *Tools) reload(args map[string]any) tool.Result {
	if err := t.session.Run(0, chromedp.Reload()); err != nil {
		return tool.Errorf("%s", err)
	}
	url, err := t.session.Location()
	if err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "reloaded", "url": url})
}

func (t *Tools) shrink(args map[string]any) tool.Result {
	var in struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := tool.DecodeArgs(args, &in); err != nil {
		return tool.Errorf("%s", err)
	}
	if in.Width <= 0 {
		in.Width = 800
	}
	if in.Height <= 0 {
		in.Height = 600
	}

	err := t.session.Run(0, chromedp.EmulateViewport(int64(in.Width), int64(in.Height)))
	if err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "shrank", "width": in.Width, "height": in.Height})
}

func (t *Tools) fullscreen(args map[string]any) tool.Result {
	const script = `(() => {
		try {
			const el = document.documentElement;
			if (!document.fullscreenElement) { el.requestFullscreen(); } else { document.exitFullscreen(); }
			return true;
		} catch (e) { return false; }
	})()`

	var toggled bool
	if err := t.session.Run(0, chromedp.Evaluate(script, &toggled)); err != nil {
		return tool.Errorf("%s", err)
	}
	if !toggled {
		return tool.Errorf("failed to toggle fullscreen")
	}
	return tool.Ok(map[string]any{"status": "fullscreen_toggled"})
}

func (t *Tools) closeBrowser(args map[string]any) tool.Result {
	t.session.Close()
	t.log.Info("browser closed")
	return tool.Ok(map[string]any{"status": "browser closed"})
}

// openWebsiteName searches Startpage for the name and opens the top result,
// falling back to DuckDuckGo when no result renders.
func (t *Tools) openWebsiteName(args map[string]any) tool.Result {
	var in struct {
		Name    string `json:"name"`
		Query   string `json:"query"`
		Timeout int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in); err != nil {
		return tool.Errorf("%s", err)
	}
	name := in.Name
	if name == "" {
		name = in.Query
	}
	if name == "" {
		return tool.Errorf("'name' parameter is required")
	}

	if err := t.session.EnsureStarted(); err != nil {
		return tool.Errorf("%s", err)
	}

	opTimeout := timeoutFrom(in.Timeout, 15*time.Second)
	q := url.QueryEscape(name)

	href, err := t.firstResultHref(
		fmt.Sprintf("https://www.startpage.com/sp/search?query=%s", q),
		"div.result a", opTimeout,
	)
	if err != nil || href == "" {
		href, err = t.firstResultHref(
			fmt.Sprintf("https://duckduckgo.com/?q=%s", q),
			"a.result__a, div#links a", opTimeout,
		)
	}
	if err != nil {
		return tool.Errorf("%s", err)
	}
	if href == "" {
		return tool.Errorf("no search result found")
	}

	if err := t.session.Run(opTimeout, chromedp.Navigate(href)); err != nil {
		return tool.Errorf("%s", err)
	}
	return tool.Ok(map[string]any{"status": "opened", "name": name, "url": href})
}

func (t *Tools) firstResultHref(searchURL, selector string, timeout time.Duration) (string, error) {
	script := fmt.Sprintf(`(() => {
		const a = document.querySelector(%q);
		return a ? a.href : "";
	})()`, selector)

	var href string
	err := t.session.Run(timeout,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(script, &href),
	)
	if err != nil {
		return "", err
	}
	return href, nil
}
