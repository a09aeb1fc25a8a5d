package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// StatusLabel is the display-ready form of one upstream ticket status.
type StatusLabel struct {
	V string `json:"v"` // status code as the upstream knows it
	L string `json:"l"` // display label
	C string `json:"c"` // hex color
}

// statusClassColors maps upstream CSS-ish class names to colors.
var statusClassColors = map[string]string{
	"new": "#2563EB", "info": "#2563EB",
	"blocked": "#DC3545", "important": "#DC3545", "danger": "#DC3545",
	"inprogress": "#F59E0B", "dark": "#F59E0B",
	"review": "#F5A623", "warning": "#F5A623",
	"done": "#28A745", "success": "#28A745",
	"archived": "#6B7280", "default": "#6B7280", "muted": "#6B7280",
}

// fallbackColors is the positional palette when no class matches.
var fallbackColors = []string{"#2563EB", "#DC3545", "#F59E0B", "#F5A623", "#28A745", "#6B7280", "#94a3b8"}

// FallbackStatusList keeps the board usable when the metadata call fails
// entirely.
var FallbackStatusList = []StatusLabel{
	{V: "3", L: "Nowe", C: "#2563EB"},
	{V: "1", L: "Zablokowane", C: "#DC3545"},
	{V: "4", L: "W toku", C: "#F59E0B"},
	{V: "2", L: "Oczekuje na akceptację", C: "#F5A623"},
	{V: "0", L: "Zrobione", C: "#28A745"},
	{V: "5", L: "Zarchiwizowane", C: "#6B7280"},
}

// DoneStatuses are the codes that count as completed.
var DoneStatuses = map[string]bool{"0": true, "5": true}

// statusEntry is the superset of fields the three upstream shapes use.
type statusEntry struct {
	Key       json.RawMessage `json:"key"`
	Code      json.RawMessage `json:"code"`
	ID        json.RawMessage `json:"id"`
	Value     json.RawMessage `json:"value"`
	Name      string          `json:"name"`
	Label     string          `json:"label"`
	Title     string          `json:"title"`
	Class     string          `json:"class"`
	ClassName string          `json:"className"`
	Color     string          `json:"color"`
	SortKey   *float64        `json:"sortKey"`
	SortIndex *float64        `json:"sortIndex"`
}

// StatusLabels decodes the status metadata result. The upstream sends one of
// three shapes: a flat code→string map, a code→object map whose name is an
// i18n key, or an array of label objects. Unknown i18n keys pass through
// untranslated. Entries sort by the explicit sort key when any entry carries
// one, otherwise document order holds. An undecodable or empty result yields
// FallbackStatusList.
func StatusLabels(raw json.RawMessage, i18n map[string]string) []StatusLabel {
	members := Members(raw)
	if len(members) == 0 {
		return FallbackStatusList
	}

	type sortable struct {
		label StatusLabel
		key   *float64
	}
	list := make([]sortable, 0, len(members))

	for i, m := range members {
		// Flat code→string shape
		var plain string
		if m.Key != "" && json.Unmarshal(m.Value, &plain) == nil {
			list = append(list, sortable{label: StatusLabel{
				V: m.Key,
				L: translate(plain, i18n),
				C: guessColor("", i),
			}})
			continue
		}

		var entry statusEntry
		if err := json.Unmarshal(m.Value, &entry); err != nil {
			continue
		}

		code := m.Key
		if code == "" {
			code = firstScalar(entry.Key, entry.Code, entry.ID, entry.Value)
			if code == "" {
				code = fmt.Sprintf("%d", i)
			}
		}
		label := firstNonEmpty(entry.Name, entry.Label, entry.Title)
		if label == "" {
			label = "Status " + code
		}
		cls := firstNonEmpty(entry.Class, entry.ClassName, entry.Color)
		sk := entry.SortKey
		if sk == nil {
			sk = entry.SortIndex
		}
		list = append(list, sortable{
			label: StatusLabel{V: code, L: translate(label, i18n), C: guessColor(cls, i)},
			key:   sk,
		})
	}

	if len(list) == 0 {
		return FallbackStatusList
	}

	hasSortKey := false
	for _, s := range list {
		if s.key != nil {
			hasSortKey = true
			break
		}
	}
	if hasSortKey {
		sort.SliceStable(list, func(a, b int) bool {
			ka, kb := list[a].key, list[b].key
			if ka == nil || kb == nil {
				return kb == nil && ka != nil
			}
			return *ka < *kb
		})
	}

	out := make([]StatusLabel, 0, len(list))
	for _, s := range list {
		out = append(out, s.label)
	}
	return out
}

func translate(label string, i18n map[string]string) string {
	if t, ok := i18n[strings.ToLower(label)]; ok {
		return t
	}
	return label
}

func guessColor(cls string, idx int) string {
	if cls != "" {
		k := strings.ToLower(strings.TrimPrefix(cls, "label-"))
		if c, ok := statusClassColors[k]; ok {
			return c
		}
	}
	return fallbackColors[idx%len(fallbackColors)]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstScalar returns the first raw value that decodes to a string or number.
func firstScalar(vals ...json.RawMessage) string {
	for _, v := range vals {
		if len(v) == 0 {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
		var n json.Number
		if json.Unmarshal(v, &n) == nil {
			return n.String()
		}
	}
	return ""
}
