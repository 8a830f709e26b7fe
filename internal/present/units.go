package present

import (
	"strings"

	"golang.org/x/text/language"
)

// Unit is the temperature suffix shown next to every reading.
type Unit string

const (
	Celsius    Unit = "°C"
	Fahrenheit Unit = "°F"
)

// fahrenheitRegions still use Fahrenheit for everyday temperatures.
var fahrenheitRegions = map[string]bool{
	"US": true,
	"LR": true,
	"MM": true,
}

// UnitForLocale picks the unit from the locale's region. It accepts BCP 47
// tags ("en-US") and POSIX names ("en_US.UTF-8"). A locale without an explicit
// region, or one that does not parse, gets Celsius.
func UnitForLocale(locale string) Unit {
	tag, ok := parseLocale(locale)
	if !ok {
		return Celsius
	}
	region, conf := tag.Region()
	if conf != language.Exact {
		return Celsius
	}
	if fahrenheitRegions[region.String()] {
		return Fahrenheit
	}
	return Celsius
}

func parseLocale(locale string) (language.Tag, bool) {
	s := strings.TrimSpace(locale)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// Convert turns a metric reading into u.
func Convert(celsius float64, u Unit) float64 {
	if u == Fahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}
