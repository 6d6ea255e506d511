package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WeightedKeyword is an interest keyword with its score contribution.
type WeightedKeyword struct {
	Keyword string `yaml:"keyword"`
	Weight  int    `yaml:"weight"`
}

// Topic is a named registry query: search parameters sent to the registry
// API plus the keyword rules used for tagging and interest scoring.
type Topic struct {
	Name                string            `yaml:"name"`
	CTGovParams         map[string]string `yaml:"ctgov_params"`
	TagKeywords         []string          `yaml:"tag_keywords"`
	InterestingKeywords []WeightedKeyword `yaml:"interesting_keywords"`
}

// LoadTopics reads topic definitions from a YAML file. The file has a
// top-level "topics" key. At least one topic must be defined; entries
// without a name are skipped.
func LoadTopics(path string) ([]Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read topics %s", path)
	}

	var wrapper struct {
		Topics []Topic `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse topics")
	}

	topics := make([]Topic, 0, len(wrapper.Topics))
	for _, t := range wrapper.Topics {
		if t.Name == "" {
			continue
		}
		if t.InterestingKeywords == nil {
			t.InterestingKeywords = []WeightedKeyword{}
		}
		// A keyword with no declared weight contributes the default 5.
		for i := range t.InterestingKeywords {
			if t.InterestingKeywords[i].Weight == 0 {
				t.InterestingKeywords[i].Weight = 5
			}
		}
		topics = append(topics, t)
	}

	if len(topics) == 0 {
		return nil, eris.Errorf("config: no topics defined in %s", path)
	}
	return topics, nil
}

// SelectTopics filters topics by name. An empty name list selects all
// topics. Unknown names are an error so a typo does not silently sync
// nothing.
func SelectTopics(topics []Topic, names []string) ([]Topic, error) {
	if len(names) == 0 {
		return topics, nil
	}
	byName := make(map[string]Topic, len(topics))
	for _, t := range topics {
		byName[t.Name] = t
	}
	var out []Topic
	for _, n := range names {
		t, ok := byName[n]
		if !ok {
			return nil, eris.Errorf("config: unknown topic %q", n)
		}
		out = append(out, t)
	}
	return out, nil
}
