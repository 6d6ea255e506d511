package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/trialwatch/internal/config"
)

func TestInteresting_NoMatch(t *testing.T) {
	score, reasons := Interesting("a study of nothing in particular", nil)
	assert.Equal(t, 0, score)
	assert.Equal(t, []string{"No interest keywords matched"}, reasons)
}

func TestInteresting_TopicAndSignalTermsSum(t *testing.T) {
	kws := []config.WeightedKeyword{{Keyword: "lymphoma", Weight: 10}}
	score, reasons := Interesting("Randomized CAR-T trial in lymphoma", kws)
	// lymphoma(10) + randomized(4) + CAR-T(7) = 21.
	assert.Equal(t, 21, score)
	assert.Len(t, reasons, 3)
}

func TestInteresting_CaseInsensitive(t *testing.T) {
	score, _ := Interesting("crispr-based editing", nil)
	assert.Equal(t, 8, score)
}

func TestInteresting_NoCrossSourceDedup(t *testing.T) {
	// The same term on the topic list and the built-in list counts twice.
	kws := []config.WeightedKeyword{{Keyword: "CRISPR", Weight: 10}}
	score, _ := Interesting("a CRISPR study", kws)
	assert.Equal(t, 18, score)
}

func TestInteresting_ClampsAt100(t *testing.T) {
	var kws []config.WeightedKeyword
	for range 30 {
		kws = append(kws, config.WeightedKeyword{Keyword: "glioma", Weight: 9})
	}
	score, _ := Interesting("glioma", kws)
	assert.Equal(t, 100, score)
}

func TestInteresting_BlankTopicKeywordSkipped(t *testing.T) {
	kws := []config.WeightedKeyword{{Keyword: "   ", Weight: 50}}
	score, _ := Interesting(strings.Repeat("text ", 5), kws)
	assert.Equal(t, 0, score)
}
