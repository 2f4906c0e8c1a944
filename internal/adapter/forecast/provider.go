// Package forecast contains the PV forecast vendor adapters. Each adapter
// keeps a persisted archive of fetched forecasts and throttles itself with
// a next-update timestamp so the scheduler can poll it freely.
package forecast

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/storage"
)

const (
	// delay applied after a vendor rate-limit response
	rateLimitBackoff = 60 * time.Minute

	defaultHTTPTimeout = 30 * time.Second
)

// persistedState is what survives restarts: the forecast archive and the
// earliest next fetch time.
type persistedState struct {
	Forecasts  domain.ForecastArchive `json:"forecasts"`
	NextUpdate time.Time              `json:"next_update"`
}

// providerBase carries the archive, persistence and throttling shared by
// every vendor adapter.
type providerBase struct {
	name     string
	store    *storage.Store
	logger   *zap.Logger
	client   *http.Client
	maxDays  int
	interval time.Duration

	mu         sync.Mutex
	archive    domain.ForecastArchive
	nextUpdate time.Time
	status     domain.Status
}

func newProviderBase(name string, store *storage.Store, interval time.Duration,
	logger *zap.Logger) providerBase {

	base := providerBase{
		name:     name,
		store:    store,
		logger:   logger.With(zap.String("provider", name)),
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		maxDays:  domain.DefaultPVMaxDays,
		interval: interval,
		archive:  domain.ForecastArchive{},
		status:   domain.StatusStarting,
	}
	base.restore()
	return base
}

func (b *providerBase) restore() {
	if b.store == nil {
		return
	}
	var state persistedState
	found, err := b.store.Load(b.storeKey(), &state)
	if err != nil {
		b.logger.Warn("could not restore forecast archive", zap.Error(err))
		return
	}
	if found {
		b.archive = state.Forecasts
		b.nextUpdate = state.NextUpdate
		b.logger.Info("forecast archive restored", zap.Int("days", len(b.archive)))
	}
}

func (b *providerBase) persist() {
	if b.store == nil {
		return
	}
	err := b.store.Save(b.storeKey(), persistedState{
		Forecasts:  b.archive,
		NextUpdate: b.nextUpdate,
	})
	if err != nil {
		b.logger.Warn("could not persist forecast archive", zap.Error(err))
	}
}

func (b *providerBase) storeKey() string {
	return b.name + "_forecasts"
}

// dueForUpdate reports whether the throttle allows a fetch now.
func (b *providerBase) dueForUpdate(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !now.Before(b.nextUpdate)
}

// storeDays merges fetched daily curves into the archive, prunes the
// retention window and re-arms the throttle.
func (b *providerBase) storeDays(now time.Time, days map[string]domain.HourlyCurve) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for date, curve := range days {
		b.archive[date] = curve
	}
	b.archive.Prune(now, b.maxDays)
	b.nextUpdate = now.Add(b.interval)
	b.status = domain.StatusNormal
	b.persist()
	b.logger.Debug("forecast archive updated",
		zap.Int("days_fetched", len(days)), zap.Time("next_update", b.nextUpdate))
}

// rateLimited arms the long vendor backoff.
func (b *providerBase) rateLimited(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = domain.StatusRateLimited
	b.nextUpdate = now.Add(rateLimitBackoff)
	b.persist()
	b.logger.Warn("vendor rate limit hit, backing off",
		zap.Time("next_update", b.nextUpdate))
}

func (b *providerBase) fault() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = domain.StatusFault
}

func (b *providerBase) Name() string {
	return b.name
}

func (b *providerBase) Forecasts() domain.ForecastArchive {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := make(domain.ForecastArchive, len(b.archive))
	for date, curve := range b.archive {
		clone[date] = curve
	}
	return clone
}

func (b *providerBase) ForecastForDate(date time.Time) domain.HourlyCurve {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.archive.ForDate(date)
}

func (b *providerBase) Status() domain.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *providerBase) NextUpdate() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextUpdate
}
