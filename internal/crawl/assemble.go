package crawl

import "github.com/bull/site-search/internal/storage"

// SectionRecord pairs a Section with the body lines it contains.
type SectionRecord struct {
	Section storage.Section
	Lines   []storage.SectionLine
}

// AssembleSections regroups an extracted unit sequence into sections.
// A section opens at each heading unit and accumulates the body units
// that follow until the next heading; body text before the first heading
// is dropped. The final open section is emitted at end of input. Single
// pass, no lookahead.
func AssembleSections(units []Unit, pageURL, pageTitle string, scopes []string) []SectionRecord {
	var records []SectionRecord
	var current *SectionRecord

	for _, unit := range units {
		if IsHeading(unit.Tag) {
			if current != nil {
				records = append(records, *current)
			}
			var titles []string
			if pageTitle != "" {
				titles = append(titles, pageTitle)
			}
			titles = append(titles, unit.Text)
			current = &SectionRecord{
				Section: storage.Section{
					ID:       SectionID(pageURL, titles),
					URL:      pageURL,
					Sections: scopes,
					Titles:   titles,
				},
			}
			continue
		}

		if current == nil {
			continue
		}
		current.Lines = append(current.Lines, storage.SectionLine{
			Text:      unit.Text,
			SectionID: current.Section.ID,
			Location:  unit.Location,
		})
	}

	if current != nil {
		records = append(records, *current)
	}
	return records
}
