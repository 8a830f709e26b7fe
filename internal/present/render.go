package present

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Render writes v as a plain-text panel.
func Render(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	titler := cases.Title(language.Und)
	place := v.Name
	if v.Country != "" {
		place += ", " + v.Country
	}
	rows := [][2]string{
		{"Location", place},
		{"Condition", v.Main},
		{"Description", titler.String(v.Description)},
		{"Temperature", v.Temp},
		{"Humidity", v.Humidity},
		{"Min", v.Min},
		{"Max", v.Max},
		{"Wind", v.WindSpeed},
		{"Sunrise", v.Sunrise},
		{"Sunset", v.Sunset},
		{"Theme", string(v.Background)},
	}
	if v.IconCode != "" {
		rows = append(rows, [2]string{"Icon", fmt.Sprintf("%s (%s)", v.IconURL, v.Placeholder)})
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
