package classify

import (
	"strings"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// DetectTechnique tags a generated reply with exactly one therapeutic
// technique. Rules are ordered; the first rule with a matching cue wins.
func DetectTechnique(response string) domain.Technique {
	lower := strings.ToLower(response)
	for _, rule := range techniqueRules {
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				return rule.technique
			}
		}
	}
	return domain.TechniqueExploration
}

// ExtractTopics returns the topic keywords mentioned in text, in order of
// first appearance and without duplicates. Each token contributes at most
// one topic: the first keyword (in list order) it contains.
func ExtractTopics(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, tok := range tokens(text) {
		for _, kw := range topicKeywords {
			if !strings.Contains(tok, kw) {
				continue
			}
			if _, dup := seen[kw]; !dup {
				seen[kw] = struct{}{}
				out = append(out, kw)
			}
			break
		}
	}
	return out
}
