package competitions

import (
	"fmt"
	"strings"

	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
)

const DefaultBaseURL = "https://conteudo.cbf.com.br/sumulas"

// Document is one derived source document.
type Document struct {
	// ID is <code><positional suffix>, e.g. "142100" for round 10, match 0.
	ID  string
	URL string
}

// Deriver maps (year, competition code) to source documents. It performs no I/O.
type Deriver struct {
	baseURL string
	rules   map[string]Rule
	log     *logger.Logger
}

func NewDeriver(baseURL string, rules []Rule, log *logger.Logger) *Deriver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	byCode := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byCode[r.Code] = r
	}
	return &Deriver{baseURL: strings.TrimSuffix(baseURL, "/"), rules: byCode, log: log}
}

// Known reports whether code has an enumeration rule.
func (d *Deriver) Known(code string) bool {
	_, ok := d.rules[code]
	return ok
}

// Derive returns the documents of a competition in download order. An unknown
// code yields an empty slice and a warning.
func (d *Deriver) Derive(year int, code string) []Document {
	rule, ok := d.rules[code]
	if !ok {
		d.log.Warn("Unknown or unsupported competition code", "competitionCode", code, "year", year)
		return []Document{}
	}

	docs := make([]Document, 0, rule.Count())
	add := func(suffix string) {
		id := code + suffix
		docs = append(docs, Document{
			ID:  id,
			URL: fmt.Sprintf("%s/%d/%sb.pdf", d.baseURL, year, id),
		})
	}

	switch rule.Kind {
	case KindNested:
		for round := rule.FirstRound; round <= rule.LastRound; round++ {
			for match := 0; match < rule.MatchesPerRound; match++ {
				add(fmt.Sprintf("%d%d", round, match))
			}
		}
	case KindSequential:
		for n := rule.Start; n <= rule.End; n++ {
			add(fmt.Sprintf("%d", n))
		}
	}
	return docs
}
