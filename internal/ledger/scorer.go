package ledger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/storage"
)

// breakEvenLoss is the band treated as break even rather than a real loss.
const breakEvenLoss = -0.05

// Scorer recomputes the per persona win/loss tally from the most recent
// closed ledger records. The tally is always rebuilt from scratch, never
// incremented in place, so partial recomputation cannot drift.
type Scorer struct {
	store    *Store
	db       storage.Persistence
	personas []string
	aliases  map[string]string
	depth    int
}

// NewScorer creates a scorer over the given ledger.
func NewScorer(store *Store, shard storage.Shard, personas []string, aliases map[string]string, depth int) (*Scorer, error) {
	db, err := shard(storage.ScoresDir)
	if err != nil {
		return nil, fmt.Errorf("could not init score storage: %w", err)
	}
	return &Scorer{
		store:    store,
		db:       db,
		personas: personas,
		aliases:  aliases,
		depth:    depth,
	}, nil
}

// Recompute rebuilds the tally from the last closed records and persists it.
func (s *Scorer) Recompute() map[string]int {
	scores := make(map[string]int, len(s.personas))
	for _, p := range s.personas {
		scores[p] = 0
	}

	for _, position := range s.store.RecentClosed(s.depth) {
		for _, voter := range position.Voters {
			name := s.normalize(voter)
			if _, ok := scores[name]; !ok {
				continue
			}
			switch {
			case position.Profit > 0:
				scores[name]++
			case position.Profit < breakEvenLoss:
				scores[name]--
			}
		}
	}

	key := storage.Key{Account: s.store.account, Label: "scores"}
	if err := s.db.Store(key, scores); err != nil {
		log.Warn().Err(err).Str("account", s.store.account).Msg("could not persist scores")
	}
	return scores
}

func (s *Scorer) normalize(voter string) string {
	name := strings.ToUpper(strings.TrimSpace(voter))
	if alias, ok := s.aliases[name]; ok {
		return alias
	}
	return name
}
