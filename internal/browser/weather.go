package browser

import (
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"willow/internal/tool"
)

func (t *Tools) registerWeather(reg *tool.Registry) {
	reg.Register(tool.Spec{
		Name:        "curr_weather_location",
		Description: "Get current weather for a specified location.",
		Parameters:  objectSchema(map[string]any{"location": stringProp()}),
	}, t.currentWeather)

	reg.Register(tool.Spec{
		Name:        "future_weather_location",
		Description: "Get the weather forecast for a specified location on a given date.",
		Parameters:  objectSchema(map[string]any{"location": stringProp(), "date": stringProp()}),
	}, t.futureWeather)
}

const currentWeatherScript = `(() => {
	const q = (sel) => {
		const el = document.querySelector(sel);
		return el ? el.innerText : 'N/A';
	};
	return {
		location: q('h1'),
		temperature: q('[data-testid="TemperatureValue"]'),
		condition: q('[data-testid="wxPhrase"]'),
	};
})()`

func (t *Tools) currentWeather(args map[string]any) tool.Result {
	var in struct {
		Location string `json:"location"`
		Timeout  int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in, "location"); err != nil {
		return tool.Errorf("%s", err)
	}

	if err := t.session.EnsureStarted(); err != nil {
		return tool.Errorf("%s", err)
	}

	pageURL := "https://weather.com/weather/today/l/" + url.QueryEscape(in.Location)
	err := t.session.Run(timeoutFrom(in.Timeout, 0),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}

	_ = t.session.Run(8*time.Second,
		chromedp.WaitVisible(`[data-testid="TemperatureValue"]`, chromedp.ByQuery))

	var data struct {
		Location    string `json:"location"`
		Temperature string `json:"temperature"`
		Condition   string `json:"condition"`
	}
	if err := t.session.Run(0, chromedp.Evaluate(currentWeatherScript, &data)); err != nil {
		return tool.Errorf("%s", err)
	}

	return tool.Ok(map[string]any{"status": "retrieved", "location": in.Location, "data": data})
}

const futureWeatherScript = `((target) => {
	target = String(target).toLowerCase();
	const forecasts = document.querySelectorAll('[data-testid="DaypartDetails"]');
	const text = (root, sel) => {
		const el = root.querySelector(sel);
		return el ? el.innerText : 'N/A';
	};
	for (const f of forecasts) {
		const date = text(f, '[data-testid="detailsDateRange"]');
		if (date !== 'N/A' && date.toLowerCase().includes(target)) {
			return {
				date: date,
				high_temp: text(f, '[data-testid="highTempValue"]'),
				low_temp: text(f, '[data-testid="lowTempValue"]'),
				condition: text(f, '[data-testid="wxPhrase"]'),
			};
		}
	}
	return { date: 'not found', high_temp: 'N/A', low_temp: 'N/A', condition: 'N/A' };
})(%s)`

func (t *Tools) futureWeather(args map[string]any) tool.Result {
	var in struct {
		Location string `json:"location"`
		Date     string `json:"date"`
		Timeout  int    `json:"timeout"`
	}
	if err := tool.DecodeArgs(args, &in, "location", "date"); err != nil {
		return tool.Errorf("%s", err)
	}

	if err := t.session.EnsureStarted(); err != nil {
		return tool.Errorf("%s", err)
	}

	pageURL := "https://weather.com/weather/tenday/l/" + url.QueryEscape(in.Location)
	err := t.session.Run(timeoutFrom(in.Timeout, 0),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return tool.Errorf("%s", err)
	}

	_ = t.session.Run(8*time.Second,
		chromedp.WaitVisible(`[data-testid="DailyForecast"]`, chromedp.ByQuery))

	var data struct {
		Date      string `json:"date"`
		HighTemp  string `json:"high_temp"`
		LowTemp   string `json:"low_temp"`
		Condition string `json:"condition"`
	}
	script := fmt.Sprintf(futureWeatherScript, quoteJS(in.Date))
	if err := t.session.Run(0, chromedp.Evaluate(script, &data)); err != nil {
		return tool.Errorf("%s", err)
	}

	return tool.Ok(map[string]any{
		"status":         "retrieved",
		"location":       in.Location,
		"requested_date": in.Date,
		"data":           data,
	})
}
