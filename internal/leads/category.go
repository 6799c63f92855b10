package leads

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultSynonyms maps common user phrasings onto the keywords the places
// provider actually indexes well.
var defaultSynonyms = map[string]string{
	"food":          "restaurant",
	"coffee":        "cafe",
	"coffee shop":   "cafe",
	"groceries":     "supermarket",
	"grocery":       "supermarket",
	"grocery store": "supermarket",
	"drugstore":     "pharmacy",
	"drug store":    "pharmacy",
	"attorney":      "lawyer",
	"realtor":       "real_estate_agency",
	"mechanic":      "car_repair",
	"workout":       "gym",
	"haircut":       "hair_care",
}

// Normalizer canonicalizes user-entered business categories. Unrecognized
// categories pass through cleaned but otherwise untouched.
type Normalizer struct {
	synonyms map[string]string
}

// NewNormalizer returns a Normalizer seeded with the built-in synonym table.
// Entries in extra override built-ins with the same key.
func NewNormalizer(extra map[string]string) *Normalizer {
	merged := make(map[string]string, len(defaultSynonyms)+len(extra))
	for k, v := range defaultSynonyms {
		merged[k] = v
	}
	for k, v := range extra {
		merged[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return &Normalizer{synonyms: merged}
}

// Normalize lowercases, trims, collapses inner whitespace, and applies the
// synonym table.
func (n *Normalizer) Normalize(category string) string {
	cleaned := strings.ToLower(strings.Join(strings.Fields(category), " "))
	if canonical, ok := n.synonyms[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// LoadSynonyms reads a flat YAML map of category synonyms from disk, for
// deployments that want to extend the built-in table.
func LoadSynonyms(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "leads: read synonym file")
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "leads: parse synonym file")
	}
	return out, nil
}
