package crawl

import "github.com/bull/site-search/internal/storage"

// PageLines materializes extracted units into indexable PageLine
// records. Heading lines carry the page title as their only breadcrumb;
// body lines additionally carry their nearest enclosing heading.
func PageLines(units []Unit, pageURL, pageTitle string, scopes []string) []storage.PageLine {
	lines := make([]storage.PageLine, 0, len(units))
	for _, unit := range units {
		var titles []string
		if pageTitle != "" {
			titles = append(titles, pageTitle)
		}
		if unit.Heading != "" {
			titles = append(titles, unit.Heading)
		}
		lines = append(lines, storage.PageLine{
			Text:     unit.Text,
			URL:      pageURL,
			Tag:      unit.Tag,
			Location: unit.Location,
			Sections: scopes,
			Titles:   titles,
		})
	}
	return lines
}
