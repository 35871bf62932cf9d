// Package digest renders a user's daily digest as Markdown.
package digest

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"feedjam/internal/ranking"
)

type Item struct {
	Title    string
	URL      string
	Comments string
	Source   string
	Summary  string
	Points   int
}

type Data struct {
	Title    string
	Datetime string
	Items    []Item
}

//go:embed digest.tmpl
var digestTpl string

var compiled = template.Must(template.New("digest").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(digestTpl))

func Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExpandVars substitutes {.CurrentDate} with now as YYYY-MM-DD (UTC).
func ExpandVars(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return strings.ReplaceAll(s, "{.CurrentDate}", now.UTC().Format("2006-01-02"))
}

// FromCandidates builds digest data from ranked candidates, keeping order.
func FromCandidates(title string, now time.Time, cands []ranking.Candidate) Data {
	d := Data{Title: ExpandVars(title, now), Datetime: now.UTC().Format(time.RFC3339)}
	for _, c := range cands {
		it := Item{Title: c.Title, URL: c.Link, Source: c.SourceName, Points: c.Points}
		if c.ArticleURL != nil && *c.ArticleURL != "" {
			it.URL = *c.ArticleURL
		}
		if c.CommentsURL != nil {
			it.Comments = *c.CommentsURL
		}
		if c.Summary != nil {
			it.Summary = strings.TrimSpace(*c.Summary)
		} else {
			it.Summary = strings.TrimSpace(c.Description)
		}
		d.Items = append(d.Items, it)
	}
	return d
}
