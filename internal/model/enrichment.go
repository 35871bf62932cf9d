package model

// Enrichment is what the text-generation provider returns for one item.
type Enrichment struct {
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Empty reports whether the enrichment carries nothing to apply.
func (e Enrichment) Empty() bool {
	return e.Title == "" && e.Summary == ""
}
