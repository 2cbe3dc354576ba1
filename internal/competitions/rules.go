// Package competitions derives the ordered list of borderô documents and
// their source URLs for a competition and year.
package competitions

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

// Kind is the numbering scheme of a competition.
type Kind string

const (
	// KindNested numbers documents as <code><round><match>, rounds outer.
	KindNested Kind = "nested"
	// KindSequential numbers documents as <code><n> over [Start, End].
	KindSequential Kind = "sequential"
)

// Rule is the enumeration rule of one competition.
type Rule struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Nested: rounds FirstRound..LastRound, matches 0..MatchesPerRound-1.
	FirstRound      int `yaml:"first_round,omitempty"`
	LastRound       int `yaml:"last_round,omitempty"`
	MatchesPerRound int `yaml:"matches_per_round,omitempty"`

	// Sequential: Start..End inclusive.
	Start int `yaml:"start,omitempty"`
	End   int `yaml:"end,omitempty"`
}

// Validate rejects rules that would enumerate nothing or collide.
func (r Rule) Validate() error {
	if r.Code == "" {
		return errors.New("rule has no code")
	}
	switch r.Kind {
	case KindNested:
		if r.FirstRound < 0 || r.LastRound < r.FirstRound {
			return fmt.Errorf("rule %s: invalid round range %d..%d", r.Code, r.FirstRound, r.LastRound)
		}
		// Multi-digit match positions would make <round><match> ambiguous.
		if r.MatchesPerRound < 1 || r.MatchesPerRound > 10 {
			return fmt.Errorf("rule %s: matches_per_round must be within 1..10, got %d", r.Code, r.MatchesPerRound)
		}
	case KindSequential:
		if r.Start < 0 || r.End < r.Start {
			return fmt.Errorf("rule %s: invalid range %d..%d", r.Code, r.Start, r.End)
		}
	default:
		return fmt.Errorf("rule %s: unknown kind %q", r.Code, r.Kind)
	}
	return nil
}

// Count is the number of documents the rule enumerates.
func (r Rule) Count() int {
	if r.Kind == KindNested {
		return (r.LastRound - r.FirstRound + 1) * r.MatchesPerRound
	}
	return r.End - r.Start + 1
}

// DefaultRules are the CBF competitions the robot knows about out of the box.
func DefaultRules() []Rule {
	return []Rule{
		{Code: "142", Name: "Campeonato Brasileiro Série A", Kind: KindNested, FirstRound: 1, LastRound: 38, MatchesPerRound: 10},
		{Code: "424", Name: "Copa do Brasil", Kind: KindSequential, Start: 1, End: 150},
		{Code: "242", Name: "Campeonato Brasileiro Série B", Kind: KindSequential, Start: 1, End: 380},
	}
}

type rulesFile struct {
	Competitions []Rule `yaml:"competitions"`
}

// LoadRules returns the default rules merged with the rules declared in the
// YAML file at path. Rules in the file replace defaults with the same code.
//
// A missing, unreadable or invalid file is not an error: the defaults are
// returned and the problem is logged, so the robot can always run.
func LoadRules(path string, log *logger.Logger) []Rule {
	rules := DefaultRules()
	if path == "" {
		return rules
	}
	if log == nil {
		log = logger.Nop()
	}
	logCtx := log.With("path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logCtx.Debug("Competitions file not found, using built-in rules")
		} else {
			logCtx.Warn("Failed to read competitions file, using built-in rules", "error", err)
		}
		return rules
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		logCtx.Warn("Failed to parse competitions file, using built-in rules", "error", err)
		return rules
	}

	for _, r := range file.Competitions {
		if err := r.Validate(); err != nil {
			logCtx.Warn("Ignoring invalid competition rule", "error", err)
			continue
		}
		replaced := false
		for i := range rules {
			if rules[i].Code == r.Code {
				rules[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			rules = append(rules, r)
		}
	}
	return rules
}
