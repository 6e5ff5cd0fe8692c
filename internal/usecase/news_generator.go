package usecase

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/avk/trade_sim_desk/internal/domain"
)

// newsTemplate is a MarketNews without identity; Generate stamps id and time.
type newsTemplate struct {
	headline    string
	targets     []string
	priceDrift  float64
	volMult     float64
	durationSec int64
}

var defaultNewsTemplates = []newsTemplate{
	{"GLOBAL: Unexpected Rate Cut Boosts Sentiment!", []string{domain.TargetGlobal}, 0.08, 0.5, 60},
	{"GLOBAL: Geopolitical Tension Spikes Fear Index!", []string{domain.TargetGlobal}, -0.1, 2.5, 45},

	{"NEXUS: Breakthrough AI Patent Announced!", []string{"NEXUS"}, 0.15, 1.0, 30},
	{"NEXUS: Regulator Launches Investigation!", []string{"NEXUS"}, -0.2, 3.0, 45},

	{"AXION: Major Partnership Signed!", []string{"AXION"}, 0.1, 1.5, 25},

	{"HELIX: Production Halted Due to Supply Chain Issues", []string{"HELIX"}, -0.05, 2.0, 50},

	{"TIER 1: Crypto Market Spikes, Lifting Related Assets", []string{"NEXUS", "AXION"}, 0.07, 1.2, 60},
}

// NewsGenerator produces randomized market news from a fixed template table.
// In multiplayer only the host instance runs it.
type NewsGenerator struct {
	templates []newsTemplate
	rng       *rand.Rand
	timeNow   func() time.Time
}

func NewNewsGenerator() *NewsGenerator {
	return &NewsGenerator{
		templates: defaultNewsTemplates,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		timeNow:   time.Now,
	}
}

// Generate picks a template uniformly at random and stamps a fresh id and
// the current time.
func (g *NewsGenerator) Generate() domain.MarketNews {
	t := g.templates[g.rng.Intn(len(g.templates))]

	targets := make([]string, len(t.targets))
	copy(targets, t.targets)

	return domain.MarketNews{
		ID:          uuid.NewString(),
		Time:        g.timeNow(),
		Headline:    t.headline,
		Targets:     targets,
		PriceDrift:  t.priceDrift,
		VolMult:     t.volMult,
		DurationSec: t.durationSec,
	}
}
