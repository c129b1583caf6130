package recommend

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brimstore/recsys/pkg/models"
)

// ContextRule boosts matching candidates for a matching context. Rules are
// data, not code: the set ships as a YAML file and can be changed without
// redeploying the engine. An empty match field matches any context value;
// target fields select which products the boost applies to.
type ContextRule struct {
	Season     string `yaml:"season,omitempty"`
	TimeBucket string `yaml:"time_bucket,omitempty"`
	Device     string `yaml:"device,omitempty"`

	Category string `yaml:"category,omitempty"`
	Tag      string `yaml:"tag,omitempty"`

	// Boost multiplies the blended score of matching candidates. Values
	// below 1 demote, values above 1 promote.
	Boost float64 `yaml:"boost"`
}

func (r ContextRule) validate() error {
	if r.Boost <= 0 {
		return fmt.Errorf("boost must be > 0, got %g", r.Boost)
	}
	if r.Category == "" && r.Tag == "" {
		return fmt.Errorf("rule needs a category or tag target")
	}
	return nil
}

func (r ContextRule) matchesContext(sig models.ContextSignature) bool {
	return matchField(r.Season, sig.Season) &&
		matchField(r.TimeBucket, sig.TimeBucket) &&
		matchField(r.Device, sig.Device)
}

func (r ContextRule) matchesProduct(p models.Product) bool {
	if r.Category != "" && !strings.EqualFold(r.Category, p.Category) {
		return false
	}
	if r.Tag != "" {
		if strings.EqualFold(r.Tag, p.SeasonalTag) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.EqualFold(r.Tag, tag) {
				return true
			}
		}
		return false
	}
	return true
}

func matchField(rule, value string) bool {
	return rule == "" || strings.EqualFold(rule, value)
}

type ruleFile struct {
	Rules []ContextRule `yaml:"rules"`
}

// LoadContextRules parses and validates a YAML rule file.
func LoadContextRules(path string) ([]ContextRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context rules: %w", err)
	}
	return ParseContextRules(data)
}

// ParseContextRules decodes rules from YAML bytes.
func ParseContextRules(data []byte) ([]ContextRule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse context rules: %w", err)
	}
	for i, rule := range f.Rules {
		if err := rule.validate(); err != nil {
			return nil, fmt.Errorf("context rule %d: %w", i, err)
		}
	}
	return f.Rules, nil
}

// ContextualAdjuster re-weights candidate scores from situational signals.
// Adjust is pure: inputs are never mutated and the result depends only on
// the arguments, so two calls with the same inputs agree.
type ContextualAdjuster struct {
	rules []ContextRule
}

func NewContextualAdjuster(rules []ContextRule) *ContextualAdjuster {
	return &ContextualAdjuster{rules: rules}
}

// Adjust returns a new score map with every matching rule's boost applied
// multiplicatively. Candidates no rule matches keep their score unchanged.
func (a *ContextualAdjuster) Adjust(
	scores map[int64]float64,
	sig models.ContextSignature,
	products map[int64]models.Product,
) map[int64]float64 {
	adjusted := make(map[int64]float64, len(scores))
	for productID, score := range scores {
		adjusted[productID] = score
	}
	for _, rule := range a.rules {
		if !rule.matchesContext(sig) {
			continue
		}
		for productID := range scores {
			product, ok := products[productID]
			if !ok {
				continue
			}
			if rule.matchesProduct(product) {
				adjusted[productID] *= rule.Boost
			}
		}
	}
	return adjusted
}
