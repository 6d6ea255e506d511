package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/trialwatch/internal/model"
)

// exportColumns is the flat table schema shared by the CSV and XLSX
// exports, most useful columns first.
var exportColumns = []string{
	"nct_id",
	"brief_title",
	"phase",
	"modality",
	"overall_status",
	"lead_sponsor_name",
	"lead_sponsor_class",
	"primary_completion_date",
	"primary_completion_date_parsed",
	"days_to_primary_completion",
	"has_results",
	"pubmed_count",
	"pubmed_latest_date",
	"total_score",
	"major_score",
	"urgency_score",
	"interesting_score",
	"conditions",
	"interventions",
	"topic_tags",
	"contact_email",
	"ctgov_url",
}

func exportRecord(r model.TrialRow) []string {
	return []string{
		r.NCTID,
		r.BriefTitle,
		r.Phase,
		r.Modality,
		r.OverallStatus,
		r.LeadSponsorName,
		r.LeadSponsorClass,
		r.PrimaryCompletionDate,
		r.PrimaryCompletionDateParsed,
		daysExport(r.DaysToPrimaryCompletion),
		strconv.FormatBool(r.HasResults),
		strconv.Itoa(r.PubMedCount),
		r.PubMedLatestDate,
		strconv.Itoa(r.TotalScore),
		strconv.Itoa(r.MajorScore),
		strconv.Itoa(r.UrgencyScore),
		strconv.Itoa(r.InterestingScore),
		strings.Join(r.Conditions, ", "),
		strings.Join(r.Interventions, ", "),
		strings.Join(r.TopicTags, ", "),
		firstContactEmail(r.Contacts),
		TrialURL(r.NCTID),
	}
}

func daysExport(d *int) string {
	if d == nil {
		return ""
	}
	return strconv.Itoa(*d)
}

// WriteCSV writes the digest rows as a flat CSV table with a header row.
func WriteCSV(w io.Writer, rows []model.TrialRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(exportRecord(r)); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", r.NCTID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

// WriteXLSX writes the digest rows as a single-sheet workbook with the
// same columns as the CSV export.
func WriteXLSX(w io.Writer, rows []model.TrialRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("trials")
	if err != nil {
		return eris.Wrap(err, "report: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().SetString(col)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, cell := range exportRecord(r) {
			row.AddCell().SetString(cell)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}
