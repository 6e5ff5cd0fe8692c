package domain

import "context"

// ProfileRepository defines durable storage for profile ledgers. The engine
// treats writes as fire-and-forget: ticking never blocks on persistence.
type ProfileRepository interface {
	SaveProfile(ctx context.Context, profile *ProfileData) error
	LoadProfiles(ctx context.Context) ([]*ProfileData, error)
	DeleteProfile(ctx context.Context, id string) error

	SaveActiveProfile(ctx context.Context, id string) error
	LoadActiveProfile(ctx context.Context) (string, error)
}

// NewsBroadcaster pushes host-generated news toward the multiplayer
// coordinator. Implementations must not block the simulation tick.
type NewsBroadcaster interface {
	BroadcastNews(news MarketNews)
}
