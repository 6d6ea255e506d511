// Package store persists trials, citations, and sync runs. Two backends
// implement the same interface: SQLite for single-operator installs and
// Postgres for shared ones.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trialwatch/internal/model"
)

// Window bounds the actionable readout range in days around today:
// upcoming completions within ReadoutDays and past completions within
// RecentDays.
type Window struct {
	ReadoutDays int
	RecentDays  int
}

// Store defines the persistence interface for the watch pipeline.
type Store interface {
	// Trials
	UpsertTrial(ctx context.Context, row *model.TrialRow) error
	GetTrial(ctx context.Context, nctID string) (*model.TrialRow, error)

	// Citations
	UpsertCitations(ctx context.Context, nctID string, citations []model.Citation) error
	ListCitations(ctx context.Context, nctID string) ([]model.CitationRow, error)
	CitationCount(ctx context.Context, nctID string) (int, error)
	UpdateCitationSummary(ctx context.Context, nctID string, count int, latestDate string) error

	// Queries
	ActionableTrialIDs(ctx context.Context, w Window, limit int) ([]string, error)
	TopTrialIDs(ctx context.Context, limit int) ([]string, error)
	DigestRows(ctx context.Context, w Window, limit int) ([]model.TrialRow, error)

	// Sync run log
	StartSyncRun(ctx context.Context, topic string) (string, error)
	CompleteSyncRun(ctx context.Context, runID string, received, stored int) error
	FailSyncRun(ctx context.Context, runID string, cause string) error
	ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// unionTags merges incoming tags into the existing list, preserving
// first-appearance order. A trial found by several topics accumulates all
// their tags across syncs.
func unionTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, lists := range [][]string{existing, incoming} {
		for _, tag := range lists {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// marshalField JSON-encodes a row field for a *_json column.
func marshalField(v any, name string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrapf(err, "store: marshal %s", name)
	}
	return string(b), nil
}

// unmarshalField decodes a *_json column, tolerating NULL.
func unmarshalField(s *string, dest any, name string) error {
	if s == nil || *s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(*s), dest); err != nil {
		return eris.Wrapf(err, "store: unmarshal %s", name)
	}
	return nil
}

// utcNow renders the current UTC time in the format all timestamp columns
// use.
func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
