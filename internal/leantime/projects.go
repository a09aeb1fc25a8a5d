package leantime

import (
	"context"
	"encoding/json"

	"github.com/leanmobile/leanbridge/internal/normalize"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// ProjectHealth is the traffic-light status carried by project updates.
type ProjectHealth struct {
	Label string `json:"l"`
	Color string `json:"c"`
}

// projectHealthLabels maps the numeric status a project update stores to
// its display form.
var projectHealthLabels = map[string]ProjectHealth{
	"0": {Label: "Na dobrej drodze", Color: "#27ae60"},
	"1": {Label: "Zagrożony", Color: "#f39c12"},
	"2": {Label: "Problem", Color: "#e74c3c"},
}

// projectHealthCodes maps the color vocabulary mobile clients submit to
// the numeric codes the upstream stores.
var projectHealthCodes = map[string]int{"green": 0, "yellow": 1, "red": 2}

// HealthLabel resolves a stored status code to its display form; ok is
// false for codes outside the vocabulary.
func HealthLabel(code string) (ProjectHealth, bool) {
	h, ok := projectHealthLabels[code]
	return h, ok
}

// HealthCode resolves a submitted color word to the stored numeric
// code; ok is false for words outside the vocabulary.
func HealthCode(color string) (int, bool) {
	c, ok := projectHealthCodes[color]
	return c, ok
}

// Projects lists every project visible to the credentials.
func (s *Service) Projects(ctx context.Context, src upstream.CredentialSource) ([]Project, error) {
	raw, err := s.caller.Call(ctx, src, "leantime.rpc.projects.getAll", nil)
	if err != nil {
		return nil, err
	}
	seq := normalize.ToSequence(raw)
	projects := make([]Project, 0, len(seq))
	for _, item := range seq {
		var p Project
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// IsActive reports whether a project should appear in pickers. State 1
// is closed and -1 deleted; the string statuses cover older rows.
func IsActive(p Project) bool {
	if p.State == "1" || p.State == "-1" {
		return false
	}
	return p.Status != "closed" && p.Status != "archived"
}
