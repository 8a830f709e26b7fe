// Package present maps a cached weather response onto display text and icons.
package present

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weathernow/internal/config"
	"github.com/kjstillabower/weathernow/internal/models"
)

// Background selects the day or night theme.
type Background string

const (
	Day   Background = "day"
	Night Background = "night"
)

// DefaultIconBaseURL serves condition icons by code.
const DefaultIconBaseURL = "https://openweathermap.org/img/wn/"

// Options control how a response is bound.
type Options struct {
	Unit        Unit
	Location    *time.Location
	IconBaseURL string
}

// OptionsFromConfig derives binding options from display and icon settings.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return Options{}, fmt.Errorf("load timezone: %w", err)
		}
		loc = l
	}
	return Options{
		Unit:        UnitForLocale(cfg.Locale),
		Location:    loc,
		IconBaseURL: cfg.IconURL,
	}, nil
}

// View is the bound screen state. Every field is display-ready text.
type View struct {
	Main        string      `json:"main"`
	Description string      `json:"description"`
	Background  Background  `json:"background"`
	IconCode    string      `json:"iconCode,omitempty"`
	IconURL     string      `json:"iconUrl,omitempty"`
	Placeholder Placeholder `json:"placeholder,omitempty"`
	Temp        string      `json:"temp"`
	Humidity    string      `json:"humidity"`
	Min         string      `json:"min"`
	Max         string      `json:"max"`
	WindSpeed   string      `json:"windSpeed"`
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	Sunrise     string      `json:"sunrise"`
	Sunset      string      `json:"sunset"`
	Unit        Unit        `json:"unit"`
}

// Bind maps resp onto a View. When several conditions are present the last
// one decides the text, icon and background.
func Bind(resp models.WeatherResponse, opts Options) View {
	unit := opts.Unit
	if unit == "" {
		unit = Celsius
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	v := View{Background: Day, Unit: unit}
	for _, c := range resp.Weather {
		v.Main = c.Main
		v.Description = c.Description
		v.IconCode = c.Icon
		v.Background = BackgroundFor(c.Icon)
	}
	if v.IconCode != "" {
		v.IconURL = IconURL(opts.IconBaseURL, v.IconCode)
		v.Placeholder = PlaceholderFor(v.IconCode)
	}

	v.Temp = formatTemp(resp.Main.Temp, unit)
	v.Humidity = fmt.Sprintf("%d%% Humid", resp.Main.Humidity)
	v.Min = formatTemp(resp.Main.TempMin, unit) + " min"
	v.Max = formatTemp(resp.Main.TempMax, unit) + " max"
	v.WindSpeed = strconv.FormatFloat(resp.Wind.Speed, 'f', -1, 64)
	v.Name = resp.Name
	v.Country = resp.Sys.Country
	v.Sunrise = clock(resp.Sys.Sunrise, loc)
	v.Sunset = clock(resp.Sys.Sunset, loc)
	return v
}

// BackgroundFor returns Day for icon codes ending in "d" and Night otherwise.
func BackgroundFor(icon string) Background {
	if strings.HasSuffix(icon, "d") {
		return Day
	}
	return Night
}

// formatTemp shows Celsius exactly as the API reported it; converted
// Fahrenheit values are rounded to one decimal.
func formatTemp(celsius float64, u Unit) string {
	if u == Fahrenheit {
		return strconv.FormatFloat(Convert(celsius, u), 'f', 1, 64) + string(u)
	}
	return strconv.FormatFloat(celsius, 'f', -1, 64) + string(u)
}

// clock renders epoch seconds as HH:mm in loc.
func clock(epoch int64, loc *time.Location) string {
	return time.Unix(epoch, 0).In(loc).Format("15:04")
}
