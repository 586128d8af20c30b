package processing

import (
	"context"
	"sync"
	"time"

	"torn_war_bot/internal/app"

	"github.com/rs/zerolog/log"
)

// APICacheConfig configures caching behavior
type APICacheConfig struct {
	// MembersTTL is how long to cache a faction's member list
	MembersTTL time.Duration
	// HistoryTTL is how long to cache the ranked war history list
	HistoryTTL time.Duration
}

// DefaultAPICacheConfig returns the cache defaults. Members are cached for
// less than the target scan interval so every scan sees fresh states.
func DefaultAPICacheConfig() APICacheConfig {
	return APICacheConfig{
		MembersTTL: 15 * time.Second,
		HistoryTTL: 10 * time.Minute,
	}
}

// CachedTornClient wraps a TornClient with caching. Ranked war polls and
// attack pages always go upstream; official reports of ended wars never
// change and are kept for the process lifetime.
type CachedTornClient struct {
	client TornClientInterface
	config APICacheConfig
	mutex  sync.RWMutex
	now    func() time.Time

	members map[int]*cachedMembers
	history *cachedPayload
	reports map[string]*app.RankedWarReport

	hits   int64
	misses int64
}

type cachedMembers struct {
	data      app.KeyedSet[app.RawMember]
	timestamp time.Time
}

type cachedPayload struct {
	data      []byte
	timestamp time.Time
}

// NewCachedTornClient creates a caching wrapper around a TornClient
func NewCachedTornClient(client TornClientInterface, config APICacheConfig) *CachedTornClient {
	return &CachedTornClient{
		client:  client,
		config:  config,
		now:     time.Now,
		members: make(map[int]*cachedMembers),
		reports: make(map[string]*app.RankedWarReport),
	}
}

// RankedWars always fetches; the tracker needs the live state
func (c *CachedTornClient) RankedWars(ctx context.Context, factionID int) ([]byte, error) {
	return c.client.RankedWars(ctx, factionID)
}

// AttacksPage always fetches
func (c *CachedTornClient) AttacksPage(ctx context.Context, from, to int64) (app.KeyedSet[app.RawAttack], error) {
	return c.client.AttacksPage(ctx, from, to)
}

// RankedWarHistory returns the cached history list or fetches a fresh one
func (c *CachedTornClient) RankedWarHistory(ctx context.Context, factionID int) ([]byte, error) {
	c.mutex.RLock()
	cached := c.history
	c.mutex.RUnlock()

	if cached != nil && c.now().Sub(cached.timestamp) < c.config.HistoryTTL {
		c.hit("rankedwar_history", cached.timestamp)
		return cached.data, nil
	}

	data, err := c.client.RankedWarHistory(ctx, factionID)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.misses++
	c.history = &cachedPayload{data: data, timestamp: c.now()}
	c.mutex.Unlock()

	return data, nil
}

// Members returns cached faction member data or fetches fresh data
func (c *CachedTornClient) Members(ctx context.Context, factionID int) (app.KeyedSet[app.RawMember], error) {
	c.mutex.RLock()
	cached := c.members[factionID]
	c.mutex.RUnlock()

	if cached != nil && c.now().Sub(cached.timestamp) < c.config.MembersTTL {
		c.hit("members", cached.timestamp)
		return cached.data, nil
	}

	data, err := c.client.Members(ctx, factionID)
	if err != nil {
		return app.KeyedSet[app.RawMember]{}, err
	}

	c.mutex.Lock()
	c.misses++
	c.members[factionID] = &cachedMembers{data: data, timestamp: c.now()}
	c.mutex.Unlock()

	return data, nil
}

// WarReport returns the cached report of an ended war or fetches it. Reports
// of wars still running are not cached.
func (c *CachedTornClient) WarReport(ctx context.Context, warID string) (*app.RankedWarReport, error) {
	c.mutex.RLock()
	cached, ok := c.reports[warID]
	c.mutex.RUnlock()

	if ok {
		c.mutex.Lock()
		c.hits++
		c.mutex.Unlock()
		log.Debug().Str("war_id", warID).Msg("Using cached war report (API call saved)")
		return cached, nil
	}

	report, err := c.client.WarReport(ctx, warID)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.misses++
	if report != nil && report.Ended() {
		c.reports[warID] = report
	}
	c.mutex.Unlock()

	return report, nil
}

// ClearCache drops the member lists and the war history. Official reports
// are kept since an ended war's report never changes.
func (c *CachedTornClient) ClearCache() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.members = make(map[int]*cachedMembers)
	c.history = nil

	log.Debug().Int("reports", len(c.reports)).Msg("API cache cleared")
}

// LogCacheStats logs the current cache statistics
func (c *CachedTornClient) LogCacheStats() {
	stats := c.GetCacheStats()
	log.Info().
		Int("valid_entries", stats.ValidEntries).
		Int("expired_entries", stats.ExpiredEntries).
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Msg("API cache stats")
}

// GetCacheStats returns cache entry and hit/miss statistics
func (c *CachedTornClient) GetCacheStats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var validEntries, expiredEntries int
	now := c.now()

	if c.history != nil {
		if now.Sub(c.history.timestamp) < c.config.HistoryTTL {
			validEntries++
		} else {
			expiredEntries++
		}
	}

	for _, cached := range c.members {
		if now.Sub(cached.timestamp) < c.config.MembersTTL {
			validEntries++
		} else {
			expiredEntries++
		}
	}

	validEntries += len(c.reports)

	return CacheStats{
		ValidEntries:   validEntries,
		ExpiredEntries: expiredEntries,
		TotalEntries:   validEntries + expiredEntries,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	ValidEntries   int
	ExpiredEntries int
	TotalEntries   int
	Hits           int64
	Misses         int64
}

func (c *CachedTornClient) hit(kind string, cachedAt time.Time) {
	c.mutex.Lock()
	c.hits++
	c.mutex.Unlock()

	log.Debug().
		Str("kind", kind).
		Dur("cache_age", c.now().Sub(cachedAt)).
		Msg("Using cached data (API call saved)")
}
