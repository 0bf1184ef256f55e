package browser

import (
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"willow/internal/tool"
)

func (t *Tools) registerMaps(reg *tool.Registry) {
	reg.Register(tool.Spec{
		Name:        "maps_where",
		Description: "Search for a place on Google Maps.",
		Parameters:  objectSchema(map[string]any{"query": stringProp(), "timeout": intProp()}),
	}, t.mapsWhere)

	reg.Register(tool.Spec{
		Name:        "maps_open_place",
		Description: "Open the first place result from the current Google Maps search.",
		Parameters:  noParams(),
	}, t.mapsOpenPlace)

	reg.Register(tool.Spec{
		Name:        "maps_directions",
		Description: "Get directions between two locations.",
		Parameters:  objectSchema(map[string]any{"from": stringProp(), "to": stringProp(), "timeout": intProp()}),
	}, t.mapsDirections)

	reg.Register(tool.Spec{
		Name:        "maps_set_mode",
		Description: "Set travel mode for current directions (drive, walk, transit, bike).",
		Parameters:  objectSchema(map[string]any{"mode": stringProp()}),
	}, t.mapsSetMode)

	reg.Register(tool.Spec{
		Name:        "maps_extract_details",
		Description: "Extract details (name, rating, address) from an open place page.",
		Parameters:  noParams(),
	}, t.mapsExtractDetails)
}

func (t *Tools) mapsWhere(args map[string]any) tool.Result {
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

	searchURL := "https://www.google.com/maps/search/" + url.QueryEscape(in.Query)
	err := t.session.Run(timeoutFrom(in.Timeout, 0),
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}

	_ = t.session.Run(10*time.Second, chromedp.WaitVisible(`div[role="article"]`, chromedp.ByQuery))

	current, _ := t.session.Location()
	return tool.Ok(map[string]any{"status": "searched", "query": in.Query, "url": current})
}

func (t *Tools) mapsOpenPlace(args map[string]any) tool.Result {
	err := t.session.Run(0, chromedp.Click(`div[role="article"] a`, chromedp.ByQuery))
	if err != nil {
		return tool.Errorf("no place result found: %s", err)
	}

	var name string
	err = t.session.Run(10*time.Second,
		chromedp.WaitVisible("h1", chromedp.ByQuery),
		chromedp.Text("h1", &name, chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}

	current, _ := t.session.Location()
	return tool.Ok(map[string]any{"status": "opened", "place_name": name, "url": current})
}

func (t *Tools) mapsDirections(args map[string]any) tool.Result {
	var in struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Timeout int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in, "from", "to"); err != nil {
		return tool.Errorf("%s", err)
	}

	if err := t.session.EnsureStarted(); err != nil {
		return tool.Errorf("%s", err)
	}

	dirURL := "https://www.google.com/maps/dir/" + url.QueryEscape(in.From) + "/" + url.QueryEscape(in.To)
	err := t.session.Run(timeoutFrom(in.Timeout, 0),
		chromedp.Navigate(dirURL),
		chromedp.WaitVisible(`div[role="main"]`, chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}

	current, _ := t.session.Location()
	return tool.Ok(map[string]any{"status": "directions_loaded", "from": in.From, "to": in.To, "url": current})
}

const setModeScript = `((mode) => {
	const labels = {
		drive: ['Driving', 'Drive'],
		walk: ['Walking', 'Walk'],
		transit: ['Transit'],
		bike: ['Bicycling', 'Bike'],
	};
	const wanted = labels[mode] || [];
	const buttons = Array.from(document.querySelectorAll('button'));
	for (const btn of buttons) {
		const txt = (btn.innerText || '').trim();
		const aria = btn.getAttribute('aria-label') || '';
		if (wanted.some(l => txt.includes(l) || aria.includes(l))) {
			btn.click();
			return true;
		}
	}
	return false;
})(%s)`

func (t *Tools) mapsSetMode(args map[string]any) tool.Result {
	var in struct {
		Mode string `json:"mode"`
	}
	if err := tool.DecodeArgs(args, &in, "mode"); err != nil {
		return tool.Errorf("%s", err)
	}

	switch in.Mode {
	case "drive", "walk", "transit", "bike":
	default:
		return tool.Errorf("mode must be one of: drive, walk, transit, bike")
	}

	var clicked bool
	script := fmt.Sprintf(setModeScript, quoteJS(in.Mode))
	if err := t.session.Run(0, chromedp.Evaluate(script, &clicked)); err != nil {
		return tool.Errorf("%s", err)
	}
	if !clicked {
		return tool.Errorf("could not find mode button")
	}
	return tool.Ok(map[string]any{"status": "mode_changed", "mode": in.Mode})
}

const extractDetailsScript = `(() => {
	const getText = (sel) => {
		const el = document.querySelector(sel);
		return el ? el.innerText : null;
	};
	return {
		name: getText('h1'),
		rating: getText('div[role="img"][aria-label*="stars"]'),
		address: getText('button[data-item-id="address"]'),
	};
})()`

func (t *Tools) mapsExtractDetails(args map[string]any) tool.Result {
	var details struct {
		Name    *string `json:"name"`
		Rating  *string `json:"rating"`
		Address *string `json:"address"`
	}
	if err := t.session.Run(0, chromedp.Evaluate(extractDetailsScript, &details)); err != nil {
		return tool.Errorf("%s", err)
	}

	current, _ := t.session.Location()
	return tool.Ok(map[string]any{"status": "extracted", "details": details, "url": current})
}
