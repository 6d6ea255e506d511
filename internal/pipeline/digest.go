package pipeline

import (
	"context"

	"github.com/sells-group/trialwatch/internal/model"
	"github.com/sells-group/trialwatch/internal/store"
)

// Digest returns the actionable trials in digest order: highest total
// score first, imminent primary completion breaking ties.
func Digest(ctx context.Context, st store.Store, window store.Window, limit int) ([]model.TrialRow, error) {
	return st.DigestRows(ctx, window, limit)
}
