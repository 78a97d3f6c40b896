package export

import "time"

// Document is a renderer-agnostic multi-section report.
type Document struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Sections    []Section
}

// Section is one titled block of a document. Any of its parts may be empty.
type Section struct {
	Title      string
	Paragraphs []string
	Bullets    []string
	Table      *Dataset
}

// SectionTitles lists section titles in document order.
func (d Document) SectionTitles() []string {
	titles := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}
