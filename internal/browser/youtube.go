package browser

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"willow/internal/resolve"
	"willow/internal/tool"
)

const (
	youtubeResultsMarker = "youtube.com/results"
	youtubeWatchMarker   = "youtube.com/watch"
	maxVideoCandidates   = 12
)

func (t *Tools) registerYouTube(reg *tool.Registry) {
	reg.Register(tool.Spec{
		Name:        "yt_search",
		Description: "Search YouTube for videos. Opens a headed browser and navigates to the results page.",
		Parameters:  objectSchema(map[string]any{"query": stringProp(), "timeout": intProp()}),
	}, t.ytSearch)

	reg.Register(tool.Spec{
		Name: "yt_watch",
		Description: "Pick and play a video from the currently open YouTube results page. " +
			"Pass 'query' to match by title, 'selection' for ordinal choices like 'second' or '3rd', " +
			"or neither to list the top results.",
		Parameters: objectSchema(map[string]any{"query": stringProp(), "selection": stringProp(), "timeout": intProp()}),
	}, t.ytWatch)

	reg.Register(tool.Spec{
		Name:        "yt_like",
		Description: "Like the currently open YouTube video. Must be on a video page.",
		Parameters:  noParams(),
	}, t.ytLike)

	reg.Register(tool.Spec{
		Name:        "yt_subscribe",
		Description: "Subscribe to the channel on a YouTube video or channel page.",
		Parameters:  noParams(),
	}, t.ytSubscribe)

	reg.Register(tool.Spec{
		Name:        "yt_pause_play",
		Description: "Toggle the current video (pause or play), if a video is open.",
		Parameters:  noParams(),
	}, t.ytPausePlay)
}

func (t *Tools) ytSearch(args map[string]any) tool.Result {
	var in struct {
		Query   string `json:"query"`
		Timeout int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in, "query"); err != nil {
		return tool.Errorf("%s", err)
	}

	if err := t.session.EnsureStarted(); err != nil {
		return tool.Errorf("%s", err)
	}

	searchURL := "https://www.youtube.com/results?search_query=" + url.QueryEscape(in.Query)
	err := t.session.Run(timeoutFrom(in.Timeout, 0),
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}

	// Give the result renderers a moment; absence is not fatal.
	_ = t.session.Run(8*time.Second,
		chromedp.WaitVisible("ytd-video-renderer,ytd-grid-video-renderer", chromedp.ByQuery))

	t.log.Info("youtube search", "query", in.Query)
	return tool.Ok(map[string]any{"status": "searched", "query": in.Query, "url": searchURL})
}

// videoCandidatesScript collects the visible search results: title, channel,
// snippet, href, in page order.
const videoCandidatesScript = `((cap) => {
	const out = [];
	const nodes = document.querySelectorAll('ytd-video-renderer, ytd-grid-video-renderer');
	for (const el of nodes) {
		if (out.length >= cap) break;
		const a = el.querySelector('a#video-title');
		if (!a) continue;
		const channel = el.querySelector('ytd-channel-name');
		const snippet = el.querySelector('.metadata-snippet-text, #description-text');
		out.push({
			title: (a.textContent || '').trim(),
			context: channel ? (channel.textContent || '').trim() : '',
			snippet: snippet ? (snippet.textContent || '').trim() : '',
			position: out.length,
			href: a.href || '',
		});
	}
	return out;
})(%d)`

type videoCandidate struct {
	resolve.Candidate
	Href string `json:"href"`
}

// ytWatch resolves which result to play via ordinal selection or fuzzy
// title matching against the already-open results page, then opens it.
func (t *Tools) ytWatch(args map[string]any) tool.Result {
	var in struct {
		Query     string `json:"query"`
		Selection string `json:"selection"`
		Timeout   int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in); err != nil {
		return tool.Errorf("%s", err)
	}

	loc, err := t.session.Location()
	if err != nil {
		return tool.Errorf("%s", err)
	}
	if !strings.Contains(loc, youtubeResultsMarker) {
		return tool.Errorf("not on a YouTube results page; call yt_search first")
	}

	var found []videoCandidate
	script := fmt.Sprintf(videoCandidatesScript, maxVideoCandidates)
	if err := t.session.Run(0, chromedp.Evaluate(script, &found)); err != nil {
		return tool.Errorf("%s", err)
	}

	candidates := make([]resolve.Candidate, len(found))
	for i, c := range found {
		candidates[i] = c.Candidate
	}

	res := resolve.Resolve(candidates, in.Query, in.Selection)
	switch res.Kind {
	case resolve.NotFound:
		return tool.Ok(map[string]any{"status": "no_match"})
	case resolve.Listed:
		return tool.Ok(map[string]any{"status": "listed", "candidates": res.Options})
	case resolve.Ambiguous:
		return tool.Ok(map[string]any{"status": "ambiguous", "candidates": res.Options})
	}

	chosen := found[res.Chosen.Position]
	if chosen.Href == "" {
		return tool.Errorf("chosen result has no link")
	}

	opTimeout := timeoutFrom(in.Timeout, 0)
	if err := t.session.Run(opTimeout, chromedp.Navigate(chosen.Href)); err != nil {
		return tool.Errorf("%s", err)
	}
	if err := t.session.Run(10*time.Second, chromedp.WaitVisible("ytd-player", chromedp.ByQuery)); err != nil {
		return tool.Errorf("video page did not load: %s", err)
	}

	var title string
	_ = t.session.Run(0, chromedp.Title(&title))
	current, _ := t.session.Location()

	t.log.Info("youtube watch", "title", chosen.Title)
	return tool.Ok(map[string]any{
		"status": "playing",
		"chosen": chosen.Candidate,
		"title":  title,
		"url":    current,
	})
}

const likeScript = `(() => {
	const candidates = Array.from(document.querySelectorAll('button, tp-yt-paper-icon-button, ytd-toggle-button-renderer'));
	for (const el of candidates) {
		const label = (el.getAttribute('aria-label') || '').toLowerCase();
		const title = (el.getAttribute('title') || '').toLowerCase();
		const txt = (el.innerText || '').toLowerCase();
		if (label.includes('like') || title.includes('like') || txt.includes('like')) {
			el.click();
			return true;
		}
	}
	return false;
})()`

func (t *Tools) ytLike(args map[string]any) tool.Result {
	if err := t.requireWatchPage(); err != nil {
		return tool.Errorf("%s", err)
	}

	var clicked bool
	if err := t.session.Run(0, chromedp.Evaluate(likeScript, &clicked)); err != nil {
		return tool.Errorf("%s", err)
	}
	if !clicked {
		return tool.Errorf("like button not found")
	}
	return tool.Ok(map[string]any{"status": "liked"})
}

const subscribeScript = `(() => {
	const candidates = Array.from(document.querySelectorAll('tp-yt-paper-button, yt-formatted-string, button, a, ytd-subscribe-button-renderer'));
	for (const el of candidates) {
		const label = (el.getAttribute('aria-label') || '').toLowerCase();
		const txt = (el.innerText || '').toLowerCase();
		if (label.includes('subscribe') || txt.includes('subscribe')) {
			if (txt.includes('subscribed')) return false;
			el.click();
			return true;
		}
	}
	return false;
})()`

func (t *Tools) ytSubscribe(args map[string]any) tool.Result {
	var clicked bool
	if err := t.session.Run(0, chromedp.Evaluate(subscribeScript, &clicked)); err != nil {
		return tool.Errorf("%s", err)
	}
	if !clicked {
		return tool.Errorf("subscribe button not found or already subscribed")
	}
	return tool.Ok(map[string]any{"status": "subscribed"})
}

const pausePlayScript = `(() => {
	const candidates = Array.from(document.querySelectorAll('button, .ytp-play-button, [aria-label*="play"], [aria-label*="pause"]'));
	const player = document.querySelector('.html5-video-player, ytd-player');
	for (const el of candidates) {
		const label = (el.getAttribute('aria-label') || '').toLowerCase();
		const title = (el.getAttribute('title') || '').toLowerCase();
		const cls = (el.getAttribute('class') || '').toLowerCase();
		if (label.includes('play') || label.includes('pause') || title.includes('play') || title.includes('pause') || cls.includes('play')) {
			if (player && player.contains(el)) { el.click(); return true; }
			if (!el.offsetParent) continue;
			el.click();
			return true;
		}
	}
	return false;
})()`

func (t *Tools) ytPausePlay(args map[string]any) tool.Result {
	if err := t.requireWatchPage(); err != nil {
		return tool.Errorf("%s", err)
	}

	var toggled bool
	if err := t.session.Run(0, chromedp.Evaluate(pausePlayScript, &toggled)); err != nil {
		return tool.Errorf("%s", err)
	}
	if !toggled {
		return tool.Errorf("play/pause button not found")
	}
	return tool.Ok(map[string]any{"status": "toggled"})
}

func (t *Tools) requireWatchPage() error {
	loc, err := t.session.Location()
	if err != nil {
		return err
	}
	if !strings.Contains(loc, youtubeWatchMarker) {
		return fmt.Errorf("not on a YouTube video page")
	}
	return nil
}
