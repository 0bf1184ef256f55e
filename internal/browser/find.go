package browser

import (
	"fmt"

	"github.com/chromedp/chromedp"

	"willow/internal/tool"
)

// Fixed weights for the element-finding heuristic. Approximate on purpose;
// tune here, not inline.
const (
	findWeightClass = 30
	findWeightID    = 25
	findWeightText  = 20
	findWeightAttr  = 15 // aria-label / title / alt
	findWeightRole  = 5  // exact role match only
	findBoostClick  = 2  // button / a / input
	findMaxElements = 1000
)

// findElementScript scores up to findMaxElements body elements against the
// query tokens and returns the best one with a computed CSS path. Ties keep
// the first-seen element (strict > comparison), so page order wins.
const findElementScript = `((query, wClass, wId, wText, wAttr, wRole, wClick, cap) => {
	const q = String(query).toLowerCase().trim();
	const tokens = q.split(/\s+/).filter(Boolean);
	const nodes = document.querySelectorAll('body *');

	function cssPath(el) {
		if (el.id) return '#' + el.id;
		const path = [];
		while (el && el.nodeType === 1) {
			let sel = el.nodeName.toLowerCase();
			if (el.className) {
				const c = String(el.className).trim().split(/\s+/)[0];
				if (c) sel += '.' + c;
			}
			const parent = el.parentElement;
			if (parent) {
				const same = Array.from(parent.children).filter(e => e.nodeName === el.nodeName);
				if (same.length > 1) sel += ':nth-of-type(' + (same.indexOf(el) + 1) + ')';
			}
			path.unshift(sel);
			el = el.parentElement;
		}
		return path.join(' > ');
	}

	let best = null, bestScore = -1;
	for (let i = 0; i < nodes.length && i < cap; i++) {
		const el = nodes[i];
		const cls = (el.getAttribute('class') || '').toLowerCase();
		const id = (el.getAttribute('id') || '').toLowerCase();
		const aria = (el.getAttribute('aria-label') || '').toLowerCase();
		const title = (el.getAttribute('title') || '').toLowerCase();
		const alt = (el.getAttribute('alt') || '').toLowerCase();
		const role = (el.getAttribute('role') || '').toLowerCase();
		const text = (el.textContent || '').trim().toLowerCase();

		let score = 0;
		for (const t of tokens) {
			if (cls.includes(t)) score += wClass;
			if (id.includes(t)) score += wId;
			if (text.includes(t)) score += wText;
			if (aria.includes(t) || title.includes(t) || alt.includes(t)) score += wAttr;
			if (t === role) score += wRole;
		}
		const tag = el.tagName.toLowerCase();
		if (tag === 'button' || tag === 'a' || tag === 'input') score += wClick;

		if (score > bestScore) {
			bestScore = score;
			best = el;
		}
	}

	if (!best || bestScore <= 0) return { found: false };
	return {
		found: true,
		selector: cssPath(best),
		text: (best.innerText || '').slice(0, 200),
		score: bestScore,
	};
})(%s, %d, %d, %d, %d, %d, %d, %d)`

type findMatch struct {
	Found    bool   `json:"found"`
	Selector string `json:"selector"`
	Text     string `json:"text"`
	Score    int    `json:"score"`
}

func (t *Tools) findElement(args map[string]any) tool.Result {
	var in struct {
		Query string `json:"query"`
	}
	if err := tool.DecodeArgs(args, &in, "query"); err != nil {
		return tool.Errorf("%s", err)
	}

	script := fmt.Sprintf(findElementScript,
		quoteJS(in.Query),
		findWeightClass, findWeightID, findWeightText, findWeightAttr,
		findWeightRole, findBoostClick, findMaxElements,
	)

	var match findMatch
	if err := t.session.Run(0, chromedp.Evaluate(script, &match)); err != nil {
		return tool.Errorf("%s", err)
	}
	if !match.Found {
		return tool.Ok(map[string]any{"found": false, "query": in.Query})
	}
	return tool.Ok(map[string]any{
		"found": true,
		"query": in.Query,
		"match": map[string]any{
			"selector": match.Selector,
			"text":     match.Text,
			"score":    match.Score,
		},
	})
}

// clickByNameScript clicks the first visible element whose text contains
// the query.
const clickByNameScript = `((q) => {
	q = String(q).toLowerCase().trim();
	const nodes = Array.from(document.querySelectorAll('body *'));
	for (const el of nodes) {
		const text = (el.innerText || '').toLowerCase().trim();
		if (!text || !text.includes(q)) continue;
		const rect = el.getBoundingClientRect();
		if (rect.width > 0 && rect.height > 0 && rect.bottom >= 0 && rect.right >= 0) {
			el.scrollIntoView({ block: 'center', inline: 'center' });
			el.click();
			return { clicked: true, tag: el.tagName.toLowerCase(), text: (el.innerText || '').slice(0, 200) };
		}
	}
	return { clicked: false };
})(%s)`

func (t *Tools) clickByName(args map[string]any) tool.Result {
	var in struct {
		Query string `json:"query"`
	}
	if err := tool.DecodeArgs(args, &in, "query"); err != nil {
		return tool.Errorf("%s", err)
	}

	if err := t.session.EnsureStarted(); err != nil {
		return tool.Errorf("%s", err)
	}

	var res struct {
		Clicked bool   `json:"clicked"`
		Tag     string `json:"tag"`
		Text    string `json:"text"`
	}
	script := fmt.Sprintf(clickByNameScript, quoteJS(in.Query))
	if err := t.session.Run(0, chromedp.Evaluate(script, &res)); err != nil {
		return tool.Errorf("%s", err)
	}

	if !res.Clicked {
		return tool.Ok(map[string]any{"status": "not_found", "query": in.Query})
	}
	return tool.Ok(map[string]any{"status": "clicked", "tag": res.Tag, "text": res.Text})
}
