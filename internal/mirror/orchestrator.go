package mirror

import (
	"github.com/rs/zerolog/log"

	"github.com/danmuck/nixrm/internal/store"
)

// Orchestrator sequences one mirroring run: query the ledger, diff against
// the closure, and for each missing artifact replicate then mark. The first
// failure aborts the run; the failing artifact stays unmarked so the next
// run redoes it from scratch through the conflict-removal policy.
type Orchestrator struct {
	closure    *store.Closure
	ledger     *Ledger
	replicator *Replicator
}

func NewOrchestrator(closure *store.Closure, ledger *Ledger, replicator *Replicator) *Orchestrator {
	return &Orchestrator{closure: closure, ledger: ledger, replicator: replicator}
}

// Run mirrors every missing artifact in ascending relative-component order.
// All remote operations are sequential; nothing overlaps between artifacts.
func (o *Orchestrator) Run() error {
	installed, err := o.ledger.Query()
	if err != nil {
		return err
	}

	missing := store.Diff(o.closure.Relatives(), installed)
	log.Info().
		Int("closure", o.closure.Len()).
		Int("installed", len(installed)).
		Int("missing", len(missing)).
		Msg("closure diff")

	for _, rel := range missing {
		log.Info().Str("path", rel).Msg("installing")
		if err := o.replicator.Replicate(rel); err != nil {
			return err
		}
		if err := o.ledger.Mark(rel); err != nil {
			return err
		}
	}
	return nil
}
