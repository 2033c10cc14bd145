package celestial

import (
	"time"

	"github.com/sessamekesh/universe-client/internal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type DatabaseParams struct {
	// RequestBatchesPerSecond bounds how often PullRequests releases a batch.
	RequestBatchesPerSecond float64
	RequestBurst            int
	MaxBatchSize            int

	EntryTTL       time.Duration
	RequestTimeout time.Duration
	MaxEntries     int

	Now    func() time.Time
	Logger *zap.Logger
}

// Database is the client side cache of celestial parameters. Lookups that miss
// queue a request which the orchestrator forwards to the server.
type Database struct {
	params DatabaseParams
	base   BaseInformation
	log    *zap.Logger

	store   *internal.EntryStore[Coordinate, Parameters]
	limiter *rate.Limiter
	queued  []Coordinate
	start   time.Time
}

func CreateDatabase(base BaseInformation, params DatabaseParams) *Database {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.RequestBatchesPerSecond <= 0 {
		params.RequestBatchesPerSecond = 10
	}
	if params.RequestBurst <= 0 {
		params.RequestBurst = 4
	}
	if params.MaxBatchSize <= 0 {
		params.MaxBatchSize = 32
	}
	if params.EntryTTL <= 0 {
		params.EntryTTL = 5 * time.Minute
	}
	if params.RequestTimeout <= 0 {
		params.RequestTimeout = 30 * time.Second
	}

	return &Database{
		params:  params,
		base:    base,
		log:     logger.With(zap.String("component", "CelestialDatabase")),
		store:   internal.CreateEntryStore[Coordinate, Parameters](params.MaxEntries),
		limiter: rate.NewLimiter(rate.Limit(params.RequestBatchesPerSecond), params.RequestBurst),
		start:   params.Now(),
	}
}

func (db *Database) BaseInformation() BaseInformation {
	return db.base
}

func (db *Database) now() int64 {
	return db.params.Now().Sub(db.start).Microseconds()
}

// Parameters returns cached parameters for c, queueing a server request on a miss.
func (db *Database) Parameters(c Coordinate) (Parameters, bool) {
	if c.IsNull() || !db.base.Contains(c) {
		return Parameters{}, false
	}

	p, has, err := db.store.Get(c, db.now())
	if err == nil {
		return p, has
	}

	reserved, reserveErr := db.store.Reserve(c, db.now())
	if reserveErr != nil {
		db.log.Warn("Cannot queue celestial request", zap.Stringer("coordinate", c), zap.Error(reserveErr))
		return Parameters{}, false
	}
	if reserved {
		db.queued = append(db.queued, c)
	}
	return Parameters{}, false
}

// PullRequests releases the next batch of queued coordinates, subject to the
// request rate limit.
func (db *Database) PullRequests() []Coordinate {
	if len(db.queued) == 0 || !db.limiter.AllowN(db.params.Now(), 1) {
		return nil
	}

	n := min(len(db.queued), db.params.MaxBatchSize)
	batch := append([]Coordinate(nil), db.queued[:n]...)
	db.queued = db.queued[n:]
	return batch
}

func (db *Database) PendingRequests() int {
	return len(db.queued)
}

func (db *Database) PushResponses(responses []Parameters) {
	now := db.now()
	for _, p := range responses {
		db.store.Set(p.Coordinate, p, now)
	}
}

// InvalidateType drops the cached entry for a coordinate whose planet type
// changed server side. The next lookup requests it again.
func (db *Database) InvalidateType(c Coordinate) {
	if db.store.Has(c) {
		db.log.Debug("Invalidating celestial entry", zap.Stringer("coordinate", c))
		db.store.Remove(c)
		db.pruneQueue()
	}
}

// Cleanup expires stale entries and forgets requests the server never
// answered so they can be retried.
func (db *Database) Cleanup() {
	now := db.now()
	ttl := db.params.EntryTTL.Microseconds()

	for _, c := range db.store.GetExpiredList(now-ttl, now-ttl) {
		db.store.Remove(c)
	}
	for _, c := range db.store.GetUnansweredList(now - db.params.RequestTimeout.Microseconds()) {
		db.log.Debug("Celestial request timed out", zap.Stringer("coordinate", c))
		db.store.Remove(c)
	}
	db.pruneQueue()
}

// pruneQueue drops queued coordinates whose reservation is gone, so a lookup
// that reserves them again queues exactly one request.
func (db *Database) pruneQueue() {
	kept := db.queued[:0]
	for _, c := range db.queued {
		if db.store.Has(c) {
			kept = append(kept, c)
		}
	}
	db.queued = kept
}
