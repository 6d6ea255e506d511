package pipeline

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/trialwatch/internal/config"
	"github.com/sells-group/trialwatch/internal/model"
	"github.com/sells-group/trialwatch/internal/store"
	"github.com/sells-group/trialwatch/pkg/pubmed"
)

// CitationSource is the literature surface the linker consumes.
type CitationSource interface {
	CitationsForTrial(ctx context.Context, nctID string) ([]pubmed.Citation, error)
}

// Linker attaches literature to stored trials.
type Linker struct {
	store  store.Store
	source CitationSource
	cfg    config.PubMedConfig
	window store.Window
}

// NewLinker creates a Linker. The window selects which trials are worth a
// literature check when actionable-only linking is on.
func NewLinker(st store.Store, src CitationSource, cfg config.PubMedConfig, window store.Window) *Linker {
	return &Linker{store: st, source: src, cfg: cfg, window: window}
}

// LinkOpts adjusts one link invocation.
type LinkOpts struct {
	MaxTrials int  // 0 uses the configured per-run cap
	All       bool // link top-scored trials regardless of window
}

// LinkResult summarizes one link pass.
type LinkResult struct {
	Checked   int
	Failed    int
	Citations int
}

// Run links citations for the selected trials, strictly sequentially. A
// client error for one trial is logged and skipped; the loop continues —
// citation linking is best-effort by design.
func (l *Linker) Run(ctx context.Context, opts LinkOpts) (*LinkResult, error) {
	log := zap.L().With(zap.String("component", "link"))

	limit := opts.MaxTrials
	if limit <= 0 {
		limit = l.cfg.MaxTrialsPerRun
	}

	var (
		nctIDs []string
		err    error
	)
	if l.cfg.ActionableOnly && !opts.All {
		nctIDs, err = l.store.ActionableTrialIDs(ctx, l.window, limit)
	} else {
		nctIDs, err = l.store.TopTrialIDs(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	log.Info("linking literature", zap.Int("trials", len(nctIDs)), zap.Int("limit", limit))

	res := &LinkResult{}
	for i, nctID := range nctIDs {
		citations, err := l.source.CitationsForTrial(ctx, nctID)
		if err != nil {
			log.Warn("literature lookup failed", zap.String("nct_id", nctID), zap.Error(err))
			res.Failed++
			continue
		}

		rows := make([]model.Citation, 0, len(citations))
		for _, c := range citations {
			rows = append(rows, model.Citation{
				PMID:    c.PMID,
				Title:   c.Title,
				Source:  c.Source,
				PubDate: c.PubDate,
				DOI:     c.DOI,
			})
		}
		if err := l.store.UpsertCitations(ctx, nctID, rows); err != nil {
			return res, err
		}
		if err := l.store.UpdateCitationSummary(ctx, nctID, len(rows), latestPubDate(citations)); err != nil {
			return res, err
		}

		res.Checked++
		res.Citations += len(rows)
		if (i+1)%25 == 0 {
			log.Info("link progress", zap.Int("processed", i+1), zap.Int("total", len(nctIDs)))
		}
	}
	return res, nil
}

// latestPubDate picks the lexicographically greatest pub-date string.
// PubMed date strings are not reliably ISO, so this is a weak heuristic;
// it is stored as display metadata only.
func latestPubDate(citations []pubmed.Citation) string {
	var dates []string
	for _, c := range citations {
		if c.PubDate != "" {
			dates = append(dates, c.PubDate)
		}
	}
	if len(dates) == 0 {
		return ""
	}
	sort.Strings(dates)
	return dates[len(dates)-1]
}
