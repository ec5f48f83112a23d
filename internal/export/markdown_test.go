package export

import (
	"strings"
	"testing"

	"github.com/lumohealth/tabsync/internal/history"
	"github.com/lumohealth/tabsync/internal/profile"
)

func TestMarkdownFull(t *testing.T) {
	p := &profile.Profile{
		ID:        "currentUser",
		Fullname:  "Alice",
		Email:     "alice@example.com",
		UpdatedAt: "2026-08-25T10:00:00Z",
	}
	records := []history.Record{
		{ID: "r1", Score: 80.5, HealthIndex: 72, CreatedAt: "2026-08-25T09:00:00Z"},
		{ID: "r2", Score: 60, Timestamp: 1724500000000},
	}

	out := Markdown(p, records)

	for _, want := range []string{
		"# tabsync export",
		"## Profile",
		"- **Name**: Alice",
		"- **Email**: alice@example.com",
		"## Analysis history",
		"| 2026-08-25T09:00:00Z | 80.5 | 72.0 | r1 |",
		"| r2 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// A record without createdAt gets its timestamp rendered instead.
	if !strings.Contains(out, "2024-08-24") {
		t.Errorf("timestamp fallback missing from output:\n%s", out)
	}
}

func TestMarkdownNilProfile(t *testing.T) {
	out := Markdown(nil, nil)

	if !strings.Contains(out, "No profile stored.") {
		t.Errorf("output missing empty-profile notice:\n%s", out)
	}
	if !strings.Contains(out, "No records.") {
		t.Errorf("output missing empty-history notice:\n%s", out)
	}
}

func TestMarkdownOmitsEmptyFields(t *testing.T) {
	out := Markdown(&profile.Profile{Fullname: "Alice"}, nil)

	if strings.Contains(out, "**Email**") {
		t.Errorf("empty email rendered:\n%s", out)
	}
	if !strings.Contains(out, "- **Name**: Alice") {
		t.Errorf("name missing:\n%s", out)
	}
}
