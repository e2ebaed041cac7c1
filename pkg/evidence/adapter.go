// Package evidence provides the Evidence Ledger Adapter — the pure transform
// that turns an artifact's raw citation list into comparable, normalized
// EvidenceItems.
//
// Individual bad citations never fail the call: items missing a source
// identifier are dropped and surfaced as data-quality warnings. Only a
// structurally malformed list (wrong shape) is rejected.
package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/adjudex/adjudex/pkg/contracts"
)

// ErrMalformedEvidence rejects a citation payload that is not a well-formed
// list. This is the only error path; bad individual items become warnings.
var ErrMalformedEvidence = errors.New("malformed evidence list")

// citationSchema constrains the raw payload shape, not item completeness.
const citationSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"source_id":   {"type": "string"},
			"reliability": {"type": "number"},
			"stance":      {"type": "string"},
			"timestamp":   {"type": "string"},
			"topic":       {"type": "string"},
			"geography":   {"type": "string"}
		}
	}
}`

// Citation is one raw entry of an artifact's citation list.
type Citation struct {
	SourceID    string    `json:"source_id"`
	Reliability *float64  `json:"reliability,omitempty"`
	Stance      string    `json:"stance"`
	Timestamp   time.Time `json:"timestamp"`
	Topic       string    `json:"topic,omitempty"`
	Geography   string    `json:"geography,omitempty"`
}

// Adapter normalizes citation lists against a source reliability registry.
type Adapter struct {
	mu      sync.RWMutex
	ratings map[string]float64
	floor   float64
	schema  *jsonschema.Schema
}

// NewAdapter creates an adapter. Sources without a registered rating default
// to the configured reliability floor.
func NewAdapter(reliabilityFloor float64) (*Adapter, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://adjudex.schemas.local/evidence/citations.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(citationSchema)); err != nil {
		return nil, fmt.Errorf("citation schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("citation schema compile failed: %w", err)
	}

	return &Adapter{
		ratings: make(map[string]float64),
		floor:   contracts.Clamp01(reliabilityFloor),
		schema:  compiled,
	}, nil
}

// RegisterSource records the registry reliability rating for a source.
func (a *Adapter) RegisterSource(sourceID string, reliability float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ratings[sourceID] = contracts.Clamp01(reliability)
}

// Normalize validates the raw citation list shape and returns normalized
// EvidenceItems plus warnings for dropped or repaired entries.
func (a *Adapter) Normalize(raw json.RawMessage) ([]contracts.EvidenceItem, []contracts.DataQualityWarning, error) {
	if len(raw) == 0 {
		// No citations at all is valid input; the scorer surfaces it as
		// insufficient evidence, not an error.
		return []contracts.EvidenceItem{}, nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedEvidence, err)
	}
	if err := a.schema.Validate(decoded); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedEvidence, err)
	}

	var citations []Citation
	if err := json.Unmarshal(raw, &citations); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedEvidence, err)
	}

	return a.NormalizeCitations(citations)
}

// NormalizeCitations normalizes already-decoded citations.
func (a *Adapter) NormalizeCitations(citations []Citation) ([]contracts.EvidenceItem, []contracts.DataQualityWarning, error) {
	items := make([]contracts.EvidenceItem, 0, len(citations))
	var warnings []contracts.DataQualityWarning

	a.mu.RLock()
	defer a.mu.RUnlock()

	for i, c := range citations {
		if c.SourceID == "" {
			warnings = append(warnings, contracts.DataQualityWarning{
				Code:   "missing_source_id",
				Detail: "citation dropped: no source identifier",
				Index:  i,
			})
			continue
		}

		stance, ok := parseStance(c.Stance)
		if !ok {
			warnings = append(warnings, contracts.DataQualityWarning{
				Code:   "unknown_stance",
				Detail: fmt.Sprintf("stance %q treated as neutral", c.Stance),
				Index:  i,
			})
		}

		reliability := a.floor
		if c.Reliability != nil {
			reliability = contracts.Clamp01(*c.Reliability)
		} else if rated, found := a.ratings[c.SourceID]; found {
			reliability = rated
		} else {
			warnings = append(warnings, contracts.DataQualityWarning{
				Code:   "unrated_source",
				Detail: fmt.Sprintf("source %q has no registry rating, using floor", c.SourceID),
				Index:  i,
			})
		}

		items = append(items, contracts.EvidenceItem{
			SourceID:    c.SourceID,
			Reliability: reliability,
			Stance:      stance,
			Timestamp:   c.Timestamp,
			Topic:       c.Topic,
			Geography:   c.Geography,
		})
	}

	return items, warnings, nil
}

func parseStance(s string) (contracts.Stance, bool) {
	switch contracts.Stance(strings.ToUpper(s)) {
	case contracts.StanceSupporting:
		return contracts.StanceSupporting, true
	case contracts.StanceOpposing:
		return contracts.StanceOpposing, true
	case contracts.StanceNeutral, "":
		return contracts.StanceNeutral, true
	default:
		return contracts.StanceNeutral, false
	}
}

// DistinctSources returns the number of distinct source identities in items.
func DistinctSources(items []contracts.EvidenceItem) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.SourceID] = struct{}{}
	}
	return len(seen)
}
