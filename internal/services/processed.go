package services

import (
	"github.com/joaovfcarvalho/robo-bordero/internal/csvstore"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

// ProcessedSet is the set of document identifiers that already have a row in
// the summary store. It is rebuilt from disk at the start of every run and
// passed explicitly; it is never shared between runs.
type ProcessedSet struct {
	ids map[string]struct{}
}

// NewProcessedSet builds the set from summary rows, skipping rows with an
// empty identifier.
func NewProcessedSet(rows []csvstore.Row) *ProcessedSet {
	s := &ProcessedSet{ids: make(map[string]struct{}, len(rows))}
	for _, row := range rows {
		if id := row[models.IDColumn]; id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s *ProcessedSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *ProcessedSet) Add(id string) {
	s.ids[id] = struct{}{}
}

func (s *ProcessedSet) Len() int {
	return len(s.ids)
}
