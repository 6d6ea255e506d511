package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/trialwatch/internal/model"
)

// ParsePartialDate parses registry date values of varying granularity:
// "2024" (year), "2024-09" (year-month), "2024-09-03" (full date). The
// registry wraps some dates in a struct under a "date" key; that wrapper
// is unwrapped first. Year-only dates anchor to July 1 and year-month
// dates to the 15th so partial dates stay comparable for ordering. Any
// parse failure degrades to PrecisionNone with the raw string preserved —
// it never returns an error.
func ParsePartialDate(raw any) model.ParsedDate {
	if raw == nil {
		return model.ParsedDate{Precision: model.PrecisionNone}
	}

	if m, ok := raw.(map[string]any); ok {
		raw = m["date"]
	}

	s, ok := raw.(string)
	if !ok {
		s = fmt.Sprint(raw)
	}
	// Raw keeps the source text verbatim; only the working copy is trimmed.
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return model.ParsedDate{Precision: model.PrecisionNone}
	}

	none := model.ParsedDate{Raw: s, Precision: model.PrecisionNone}

	parts := strings.Split(trimmed, "-")
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return none
	}

	switch {
	case len(parts) == 1:
		return anchored(s, year, 7, 1, model.PrecisionYear)
	case len(parts) == 2:
		month, err := strconv.Atoi(parts[1])
		if err != nil {
			return none
		}
		return anchored(s, year, month, 15, model.PrecisionMonth)
	default:
		month, err := strconv.Atoi(parts[1])
		if err != nil {
			return none
		}
		day, err := strconv.Atoi(parts[2])
		if err != nil {
			return none
		}
		return anchored(s, year, month, day, model.PrecisionDay)
	}
}

// anchored builds a ParsedDate, rejecting invalid calendar dates (time.Date
// silently normalizes out-of-range components, so round-trip check them).
func anchored(raw string, year, month, day int, p model.Precision) model.ParsedDate {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return model.ParsedDate{Raw: raw, Precision: model.PrecisionNone}
	}
	return model.ParsedDate{Raw: raw, Value: &t, Precision: p}
}
