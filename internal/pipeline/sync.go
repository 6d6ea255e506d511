// Package pipeline orchestrates the watch flows: registry sync, literature
// linking, and the digest query. It owns sequencing and persistence; all
// network specifics live in the clients.
package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trialwatch/internal/config"
	"github.com/sells-group/trialwatch/internal/model"
	"github.com/sells-group/trialwatch/internal/normalize"
	"github.com/sells-group/trialwatch/internal/scorer"
	"github.com/sells-group/trialwatch/internal/store"
)

// StudySource is the registry surface the syncer consumes.
type StudySource interface {
	ForEachStudy(ctx context.Context, params map[string]string, pageSize, maxPages int, fn func(study map[string]any) error) (int, error)
}

// Syncer pulls registry topics into the store.
type Syncer struct {
	store  store.Store
	source StudySource
	cfg    config.PipelineConfig
	now    func() time.Time
}

// NewSyncer creates a Syncer.
func NewSyncer(st store.Store, src StudySource, cfg config.PipelineConfig) *Syncer {
	return &Syncer{store: st, source: src, cfg: cfg, now: time.Now}
}

// SyncOpts selects what one sync invocation covers.
type SyncOpts struct {
	Topics   []config.Topic
	MaxPages int // 0 uses the configured per-topic cap
	StoreRaw bool
}

// SyncResult summarizes one topic pull.
type SyncResult struct {
	Topic    string
	RunID    string
	Received int
	Stored   int
	Skipped  int
}

// Run syncs every selected topic sequentially. Registry or store errors
// are fatal for the run: the topic's sync-run entry is marked failed and
// the error returned, with completed topics' results preserved.
func (s *Syncer) Run(ctx context.Context, opts SyncOpts) ([]SyncResult, error) {
	log := zap.L().With(zap.String("component", "sync"))

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = s.cfg.MaxPagesPerTopic
	}

	var results []SyncResult
	for _, topic := range opts.Topics {
		res, err := s.syncTopic(ctx, log, topic, maxPages, opts.StoreRaw)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
		log.Info("topic synced",
			zap.String("topic", topic.Name),
			zap.Int("received", res.Received),
			zap.Int("stored", res.Stored),
			zap.Int("skipped", res.Skipped))
	}
	return results, nil
}

func (s *Syncer) syncTopic(ctx context.Context, log *zap.Logger, topic config.Topic, maxPages int, storeRaw bool) (*SyncResult, error) {
	runID, err := s.store.StartSyncRun(ctx, topic.Name)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC()
	stored, skipped := 0, 0

	received, walkErr := s.source.ForEachStudy(ctx, topic.CTGovParams, s.cfg.PageSize, maxPages, func(doc map[string]any) error {
		rec, ok := normalize.Study(doc)
		if !ok {
			skipped++
			return nil
		}

		// Records that matched the registry query but miss every tag
		// keyword are kept anyway; the query is the authority, the
		// keywords a review aid.
		if len(topic.TagKeywords) > 0 && !topicTextMatch(rec, topic.TagKeywords) {
			log.Debug("trial outside tag keywords", zap.String("nct_id", rec.NCTID), zap.String("topic", topic.Name))
		}

		citationCount, err := s.storedCitationCount(ctx, rec.NCTID)
		if err != nil {
			return err
		}

		scores := scorer.Score(rec, topic.InterestingKeywords, citationCount, today)

		row := buildRow(rec, topic.Name, scores, today)
		if storeRaw {
			raw, err := json.Marshal(doc)
			if err != nil {
				return eris.Wrapf(err, "pipeline: marshal raw study %s", rec.NCTID)
			}
			row.RawJSON = raw
		}

		if err := s.store.UpsertTrial(ctx, row); err != nil {
			return err
		}
		stored++
		if stored%200 == 0 {
			log.Info("sync progress", zap.String("topic", topic.Name), zap.Int("stored", stored))
		}
		return nil
	})

	if walkErr != nil {
		if failErr := s.store.FailSyncRun(ctx, runID, walkErr.Error()); failErr != nil {
			log.Warn("could not mark sync run failed", zap.String("run_id", runID), zap.Error(failErr))
		}
		return nil, eris.Wrapf(walkErr, "pipeline: sync topic %s", topic.Name)
	}

	if err := s.store.CompleteSyncRun(ctx, runID, received, stored); err != nil {
		return nil, err
	}
	return &SyncResult{Topic: topic.Name, RunID: runID, Received: received, Stored: stored, Skipped: skipped}, nil
}

// storedCitationCount reads the trial's current literature count so the
// urgency boost survives re-syncs after linking. First sightings score
// with zero.
func (s *Syncer) storedCitationCount(ctx context.Context, nctID string) (int, error) {
	row, err := s.store.GetTrial(ctx, nctID)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return row.PubMedCount, nil
}

// topicTextMatch reports whether any keyword appears in the record's
// search text, case-insensitively.
func topicTextMatch(rec *model.TrialRecord, keywords []string) bool {
	hay := strings.ToLower(rec.SearchText())
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}

// buildRow flattens a normalized record plus its scores into the
// persisted shape. The raw registry date text and the anchored ISO form
// are stored side by side.
func buildRow(rec *model.TrialRecord, topicName string, scores *model.ScoreResult, today time.Time) *model.TrialRow {
	return &model.TrialRow{
		NCTID:         rec.NCTID,
		BriefTitle:    rec.BriefTitle,
		OfficialTitle: rec.OfficialTitle,
		Acronym:       rec.Acronym,
		OverallStatus: rec.OverallStatus,
		StudyType:     rec.StudyType,

		Phase:    string(model.NormalizePhase(rec.Phases)),
		Phases:   rec.Phases,
		Modality: string(rec.Modality),

		Enrollment:     rec.Enrollment,
		EnrollmentType: rec.EnrollmentType,

		LeadSponsorName:  rec.LeadSponsorName,
		LeadSponsorClass: rec.LeadSponsorClass,

		HasResults: rec.HasResults,

		StartDate:                   rec.StartDate.Raw,
		PrimaryCompletionDate:       rec.PrimaryCompletionDate.Raw,
		PrimaryCompletionDateParsed: rec.PrimaryCompletionDate.ISO(),
		CompletionDateParsed:        rec.CompletionDate.ISO(),
		LastUpdatePostDateParsed:    rec.LastUpdatePostDate.ISO(),
		ResultsFirstPostDateParsed:  rec.ResultsFirstPostDate.ISO(),

		Conditions:        rec.Conditions,
		Interventions:     rec.Interventions,
		InterventionTypes: rec.InterventionTypes,
		Contacts:          rec.Contacts,
		LocationCount:     rec.LocationCount,

		TopicTags: []string{topicName},

		UrgencyScore:            scores.Urgency,
		MajorScore:              scores.Major,
		InterestingScore:        scores.Interesting,
		TotalScore:              scores.Total,
		DaysToPrimaryCompletion: scores.DaysToPrimaryCompletion,
		ScoreReasons:            scores.Reasons,

		LastSynced: today.Format(time.RFC3339),
	}
}
