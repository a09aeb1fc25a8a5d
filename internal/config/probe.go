package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Probe holds the login success-classification markers and the status
// i18n table. The upstream has no machine-readable login outcome, so success
// is inferred from redirect targets and HTML markers — inherently fragile
// against upstream markup or localization changes, which is why the exact
// strings live in configuration rather than code.
type Probe struct {
	// UserAgent sent on the login GET/POST. The upstream's edge network
	// rejects requests that do not look like a browser.
	UserAgent string `yaml:"user_agent"`

	// AuthenticatedPaths are redirect-Location fragments that prove the
	// login landed inside the authenticated area.
	AuthenticatedPaths []string `yaml:"authenticated_paths"`

	// LoginPathFragment identifies the login area itself; a redirect back
	// into it means failure.
	LoginPathFragment string `yaml:"login_path_fragment"`

	// FailureMarkers are substrings whose presence in a 200 body means the
	// login form was re-rendered.
	FailureMarkers []string `yaml:"failure_markers"`

	// StatusI18n translates upstream status i18n keys to display labels.
	StatusI18n map[string]string `yaml:"status_i18n"`
}

// DefaultProbe returns the markers observed on current upstream deployments.
func DefaultProbe() Probe {
	return Probe{
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		AuthenticatedPaths: []string{"/dashboard", "/tickets", "/projects"},
		LoginPathFragment:  "/auth/",
		FailureMarkers:     []string{`name="password"`, "notification-error", "loginForm"},
		StatusI18n: map[string]string{
			"status.new":                  "Nowe",
			"status.blocked":              "Zablokowane",
			"status.in_progress":          "W toku",
			"status.inprogress":           "W toku",
			"status.waiting_for_approval": "Oczekuje na akceptację",
			"status.review":               "Oczekuje na akceptację",
			"status.done":                 "Zrobione",
			"status.finished":             "Zrobione",
			"status.archived":             "Zarchiwizowane",
		},
	}
}

// LoadProbe returns the default probe, overlaid with the YAML file at path
// when path is non-empty. Only fields present in the file are replaced.
func LoadProbe(path string) (Probe, error) {
	probe := DefaultProbe()
	if path == "" {
		return probe, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return probe, fmt.Errorf("reading probe file: %w", err)
	}
	var override Probe
	if err := yaml.Unmarshal(data, &override); err != nil {
		return probe, fmt.Errorf("parsing probe file: %w", err)
	}
	if override.UserAgent != "" {
		probe.UserAgent = override.UserAgent
	}
	if len(override.AuthenticatedPaths) > 0 {
		probe.AuthenticatedPaths = override.AuthenticatedPaths
	}
	if override.LoginPathFragment != "" {
		probe.LoginPathFragment = override.LoginPathFragment
	}
	if len(override.FailureMarkers) > 0 {
		probe.FailureMarkers = override.FailureMarkers
	}
	for k, v := range override.StatusI18n {
		probe.StatusI18n[k] = v
	}
	return probe, nil
}
