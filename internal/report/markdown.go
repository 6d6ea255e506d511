// Package report renders digest rows into the delivery formats: a
// markdown briefing grouped by topic, plus flat CSV and XLSX tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trialwatch/internal/model"
)

// trialsPerTopic caps how many trials each topic section lists. The
// digest is a briefing, not a dump.
const trialsPerTopic = 25

const untaggedTopic = "(untagged)"

// TrialURL returns the public registry page for a trial.
func TrialURL(nctID string) string {
	return "https://clinicaltrials.gov/study/" + nctID
}

// WriteMarkdown renders the digest briefing. Rows are grouped by topic
// tag (a trial tagged with two topics appears under both); topics are
// listed alphabetically with untagged trials last, and each section is
// ordered best score first with imminent completion breaking ties.
func WriteMarkdown(w io.Writer, rows []model.TrialRow, generatedAt time.Time) error {
	var b strings.Builder

	b.WriteString("# CT.gov Trial Watch Digest\n\n")
	fmt.Fprintf(&b, "_Generated: %s_\n\n", generatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total actionable trials: **%d**\n\n", len(rows))

	byTopic := map[string][]model.TrialRow{}
	for _, r := range rows {
		tags := r.TopicTags
		if len(tags) == 0 {
			tags = []string{untaggedTopic}
		}
		for _, t := range tags {
			byTopic[t] = append(byTopic[t], r)
		}
	}

	topics := make([]string, 0, len(byTopic))
	for t := range byTopic {
		if t != untaggedTopic {
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)
	if _, ok := byTopic[untaggedTopic]; ok {
		topics = append(topics, untaggedTopic)
	}

	for _, topic := range topics {
		section := byTopic[topic]
		sort.SliceStable(section, func(i, j int) bool {
			if section[i].TotalScore != section[j].TotalScore {
				return section[i].TotalScore > section[j].TotalScore
			}
			return completionKey(section[i]) < completionKey(section[j])
		})
		if len(section) > trialsPerTopic {
			section = section[:trialsPerTopic]
		}

		fmt.Fprintf(&b, "## %s\n\n", topic)
		for _, r := range section {
			writeTrialEntry(&b, r)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write markdown")
	}
	return nil
}

func writeTrialEntry(b *strings.Builder, r model.TrialRow) {
	fmt.Fprintf(b, "### %s: %s\n\n", r.NCTID, strings.TrimSpace(r.BriefTitle))
	fmt.Fprintf(b, "- **Total score:** %d  |  **Phase:** %s  |  **Modality:** %s\n", r.TotalScore, r.Phase, r.Modality)
	fmt.Fprintf(b, "- **Sponsor:** %s\n", strings.TrimSpace(r.LeadSponsorName))
	fmt.Fprintf(b, "- **Status:** %s\n", strings.TrimSpace(r.OverallStatus))
	fmt.Fprintf(b, "- **Primary completion:** %s  |  **Days to readout:** %s\n", completionDisplay(r), daysDisplay(r.DaysToPrimaryCompletion))
	fmt.Fprintf(b, "- **CT.gov results posted:** %s  |  **PubMed papers:** %d\n", yesNo(r.HasResults), r.PubMedCount)
	if email := firstContactEmail(r.Contacts); email != "" {
		fmt.Fprintf(b, "- **Central contact email:** %s\n", email)
	}
	fmt.Fprintf(b, "- **Link:** %s\n", TrialURL(r.NCTID))
	if why := whyFlagged(r.ScoreReasons); why != "" {
		fmt.Fprintf(b, "- **Why flagged:** %s\n", why)
	}
	b.WriteString("\n")
}

// completionKey sorts missing completion dates after every real date.
func completionKey(r model.TrialRow) string {
	if r.PrimaryCompletionDateParsed == "" {
		return "9999-12-31"
	}
	return r.PrimaryCompletionDateParsed
}

// completionDisplay prefers the registry's own date text over the
// anchored ISO form.
func completionDisplay(r model.TrialRow) string {
	if r.PrimaryCompletionDate != "" {
		return r.PrimaryCompletionDate
	}
	return r.PrimaryCompletionDateParsed
}

func daysDisplay(d *int) string {
	if d == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *d)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// whyFlagged condenses the score rationale to the top two urgency and
// top two major reasons.
func whyFlagged(reasons model.ScoreReasons) string {
	var parts []string
	parts = append(parts, headOf(reasons.Urgency, 2)...)
	parts = append(parts, headOf(reasons.Major, 2)...)
	return strings.Join(parts, ", ")
}

func headOf(list []string, n int) []string {
	var out []string
	for _, s := range list {
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

// firstContactEmail returns the first central contact with an email
// address, the record's reachable human.
func firstContactEmail(contacts model.ContactBundle) string {
	for _, cc := range contacts.CentralContacts {
		if cc.Email != "" {
			return cc.Email
		}
	}
	return ""
}
