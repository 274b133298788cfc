// Package tzresolver resolves IANA zone names and UTC offsets at a given
// instant. The lookup itself is Go's own tzdata, but it is wrapped in a
// circuit breaker so a future networked tzdata service can be swapped in
// behind the same Resolver interface without touching callers.
package tzresolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrUnknownZone is returned when the zone name is not recognised.
var ErrUnknownZone = errors.New("tzresolver: unknown zone")

// Resolver answers "what location is Z" and "what is the UTC offset of Z at
// instant t", the two questions wall-clock rendering needs answered.
type Resolver interface {
	Location(ctx context.Context, zone string) (*time.Location, error)
	OffsetAt(ctx context.Context, zone string, instant time.Time) (int, error)
}

// Config tunes the circuit breaker guarding the underlying lookup.
type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultConfig returns the resolver's breaker defaults: five consecutive
// failures trip the breaker, which stays open for one minute and then lets a
// single probe request through.
func DefaultConfig() Config {
	return Config{
		MaxRequests:      1,
		Interval:         0,
		Timeout:          time.Minute,
		FailureThreshold: 5,
	}
}

// LocalResolver resolves zones via time.LoadLocation (Go's embedded or
// system tzdata), with every lookup gated by a circuit breaker.
type LocalResolver struct {
	breaker *gobreaker.CircuitBreaker[*time.Location]
	logger  *slog.Logger
	cache   map[string]*time.Location
}

// NewLocalResolver constructs a resolver. A nil logger disables logging.
func NewLocalResolver(cfg Config, logger *slog.Logger) *LocalResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	settings := gobreaker.Settings{
		Name:        "tzresolver",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("tzresolver circuit breaker state changed",
				"from", from.String(), "to", to.String())
		},
	}

	return &LocalResolver{
		breaker: gobreaker.NewCircuitBreaker[*time.Location](settings),
		logger:  logger,
		cache:   make(map[string]*time.Location),
	}
}

var _ Resolver = (*LocalResolver)(nil)

// Location resolves zone to a *time.Location, caching successful lookups
// since tzdata for a given name never changes mid-process.
func (r *LocalResolver) Location(_ context.Context, zone string) (*time.Location, error) {
	if zone == "" {
		return time.UTC, nil
	}
	if loc, ok := r.cache[zone]; ok {
		return loc, nil
	}

	loc, err := r.breaker.Execute(func() (*time.Location, error) {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, ErrUnknownZone
		}
		return loc, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.logger.Warn("tzresolver circuit open, falling back to UTC", "zone", zone)
			return time.UTC, nil
		}
		return nil, err
	}

	r.cache[zone] = loc
	return loc, nil
}

// OffsetAt returns the UTC offset, in seconds, that zone observes at
// instant, DST included.
func (r *LocalResolver) OffsetAt(ctx context.Context, zone string, instant time.Time) (int, error) {
	loc, err := r.Location(ctx, zone)
	if err != nil {
		return 0, err
	}
	_, offset := instant.In(loc).Zone()
	return offset, nil
}
