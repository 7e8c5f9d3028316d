package quest

import (
	"math/rand/v2"
	"sync"
)

// Factory draws random quests from a catalog.
type Factory struct {
	catalog *Catalog

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFactory builds a factory over catalog. A nil rnd uses a randomly seeded
// PCG source; tests pass a fixed seed.
func NewFactory(catalog *Catalog, rnd *rand.Rand) *Factory {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Factory{catalog: catalog, rnd: rnd}
}

func (f *Factory) Catalog() *Catalog { return f.catalog }

// Generate picks a template for the bracket of level and instantiates it.
// It returns nil when the bucket is empty.
func (f *Factory) Generate(kind Kind, level int) *Quest {
	b := BracketForLevel(level)
	cands := f.catalog.Candidates(kind, b)
	if len(cands) == 0 {
		return nil
	}
	f.mu.Lock()
	tpl := cands[f.rnd.IntN(len(cands))]
	f.mu.Unlock()
	return NewQuest(kind, tpl.Objective, b.Min(), b.Max(), tpl.Amount, tpl.Description, tpl.Target)
}
