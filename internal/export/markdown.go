// Package export renders the profile and analysis history as a
// markdown document for inspection and backup.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumohealth/tabsync/internal/history"
	"github.com/lumohealth/tabsync/internal/profile"
)

// Markdown renders a profile (may be nil) and history records as one
// markdown document.
func Markdown(p *profile.Profile, records []history.Record) string {
	var b strings.Builder

	b.WriteString("# tabsync export\n\n")

	if p == nil {
		b.WriteString("No profile stored.\n")
	} else {
		b.WriteString("## Profile\n\n")
		writeField(&b, "Name", p.Fullname)
		writeField(&b, "Email", p.Email)
		writeField(&b, "Avatar", p.Avatar)
		writeField(&b, "Gender", p.Gender)
		writeField(&b, "Occupation", p.Occupation)
		writeField(&b, "Bio", p.Bio)
		writeField(&b, "Updated", p.UpdatedAt)
	}

	b.WriteString("\n## Analysis history\n\n")
	if len(records) == 0 {
		b.WriteString("No records.\n")
		return b.String()
	}

	b.WriteString("| When | Score | Health index | ID |\n")
	b.WriteString("|------|-------|--------------|----|\n")
	for _, r := range records {
		when := r.CreatedAt
		if when == "" && r.Timestamp > 0 {
			when = time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&b, "| %s | %.1f | %.1f | %s |\n", when, r.Score, r.HealthIndex, r.ID)
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- **%s**: %s\n", label, value)
}
