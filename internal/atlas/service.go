// Package atlas is the aggregation core: one service that fronts every data
// source behind identifier validation, a read-through record cache,
// dispatch with fallback, snapshot archival and audit emission. Handlers
// stay thin; everything order-sensitive happens here.
package atlas

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"corpatlas/contracts/company"
	"corpatlas/internal/atlas/store"
	"corpatlas/internal/catalog"
	"corpatlas/internal/dispatch"
	"corpatlas/internal/identifier"
	"corpatlas/internal/platform/metrics"
	"corpatlas/internal/platform/middleware"
	"corpatlas/pkg/audit"
	dErrors "corpatlas/pkg/domain-errors"
)

// RecordCache fronts provider lookups. A hit skips dispatch entirely.
type RecordCache interface {
	Find(ctx context.Context, key store.Key) (*company.Record, error)
	Save(ctx context.Context, key store.Key, record *company.Record) error
}

// Archive receives every fresh provider snapshot, best effort.
type Archive interface {
	Save(ctx context.Context, key store.Key, record *company.Record) error
}

// Service orchestrates the read operations. Cache, archive, publisher and
// metrics are optional collaborators; a nil value disables the concern.
type Service struct {
	registry   *catalog.Registry
	dispatcher *dispatch.Dispatcher
	cache      RecordCache
	archive    Archive
	publisher  *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger

	archiving sync.WaitGroup
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

func WithCache(cache RecordCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

func WithArchive(archive Archive) ServiceOption {
	return func(s *Service) { s.archive = archive }
}

func WithPublisher(publisher *audit.Publisher) ServiceOption {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService builds the aggregation service over a registry and its
// dispatcher.
func NewService(registry *catalog.Registry, dispatcher *dispatch.Dispatcher, opts ...ServiceOption) *Service {
	s := &Service{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close waits for in-flight background archive writes. Call it during
// shutdown, after the HTTP server has drained.
func (s *Service) Close() {
	s.archiving.Wait()
}

// SearchOptions narrows a name search.
type SearchOptions struct {
	CountryCode string
	Limit       int
	ActiveOnly  bool
	PostalCode  string
}

// Search finds companies by name through the best available provider for
// the country. First success wins; results from one source are never mixed
// with another's, so provenance stays unambiguous.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]company.Record, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "query must not be empty")
	}
	if opts.CountryCode == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "country is required for a name search")
	}

	records, attempts, err := dispatch.First(ctx, s.dispatcher, opts.CountryCode, catalog.CapSearchByName,
		func(ctx context.Context, a catalog.Adapter) ([]company.Record, error) {
			return a.SearchByName(ctx, query, catalog.SearchFilters{
				Limit:      opts.Limit,
				ActiveOnly: opts.ActiveOnly,
				PostalCode: opts.PostalCode,
			})
		})
	if err != nil {
		s.emit(ctx, audit.ActionSearchPerformed, opts.CountryCode, "", "", outcomeOf(err), started)
		return nil, translate(err)
	}

	s.emit(ctx, audit.ActionSearchPerformed, opts.CountryCode, winner(attempts), "", audit.OutcomeOK, started)
	return records, nil
}

// Lookup resolves one company by identifier: classify and validate first,
// then cache, then ranked providers. Fresh records are cached and archived
// on the way out.
func (s *Service) Lookup(ctx context.Context, rawIdentifier, countryCode string) (*company.Record, error) {
	started := time.Now()

	cls, err := identifier.Classify(rawIdentifier, countryCode)
	if err != nil {
		s.emit(ctx, audit.ActionLookupPerformed, countryCode, "",
			audit.HashIdentifier(identifier.Normalize(rawIdentifier)), audit.OutcomeInvalid, started)
		return nil, translate(err)
	}

	key := store.Key{CountryCode: cls.CountryCode, Type: cls.Type, Value: cls.Normalized}
	hash := audit.HashIdentifier(cls.Normalized)

	if record, ok := s.cachedRecord(ctx, key); ok {
		s.emit(ctx, audit.ActionLookupPerformed, cls.CountryCode, record.Source.Provider, hash, audit.OutcomeOK, started)
		return record, nil
	}

	record, attempts, err := dispatch.First(ctx, s.dispatcher, cls.CountryCode, catalog.CapSearchByReference,
		func(ctx context.Context, a catalog.Adapter) (*company.Record, error) {
			return a.LookupByIdentifier(ctx, catalog.Identifier{
				Type:        cls.Type,
				Value:       cls.Normalized,
				CountryCode: cls.CountryCode,
			})
		})
	if err != nil {
		s.emit(ctx, audit.ActionLookupPerformed, cls.CountryCode, "", hash, outcomeOf(err), started)
		return nil, translate(err)
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, key, record); err != nil {
			s.logger.WarnContext(ctx, "record cache write failed",
				"key", key.String(),
				"error", err,
			)
		}
	}
	s.archiveAsync(ctx, key, record)

	s.emit(ctx, audit.ActionLookupPerformed, cls.CountryCode, winner(attempts), hash, audit.OutcomeOK, started)
	return record, nil
}

// Documents aggregates filings across every capable source, deduplicated by
// (type, issue date, URL) with the higher-priority source's copy kept.
func (s *Service) Documents(ctx context.Context, rawIdentifier, countryCode string) (dispatch.Partial[company.Document], error) {
	return aggregate(ctx, s, audit.ActionDocumentsFetched, rawIdentifier, countryCode, catalog.CapGetDocuments,
		catalog.Adapter.Documents, company.Document.Key)
}

// Events aggregates registry events across every capable source,
// deduplicated by (type, date, title).
func (s *Service) Events(ctx context.Context, rawIdentifier, countryCode string) (dispatch.Partial[company.Event], error) {
	return aggregate(ctx, s, audit.ActionEventsFetched, rawIdentifier, countryCode, catalog.CapGetEvents,
		catalog.Adapter.Events, company.Event.Key)
}

// Addresses fetches addresses from the best available source. Address rows
// have no stable cross-source identity, so aggregation would multiply
// near-duplicates; one authoritative source is worth more.
func (s *Service) Addresses(ctx context.Context, rawIdentifier, countryCode string) ([]company.Address, error) {
	return fetchFirst(ctx, s, audit.ActionAddressesFetched, rawIdentifier, countryCode, catalog.CapGetAddresses,
		catalog.Adapter.Addresses)
}

// Subsidiaries fetches subsidiary links from the best available source.
func (s *Service) Subsidiaries(ctx context.Context, rawIdentifier, countryCode string) ([]company.Subsidiary, error) {
	return fetchFirst(ctx, s, audit.ActionSubsidiariesFetched, rawIdentifier, countryCode, catalog.CapGetSubsidiaries,
		catalog.Adapter.Subsidiaries)
}

// Officers fetches officers from the best available source.
func (s *Service) Officers(ctx context.Context, rawIdentifier, countryCode string) ([]company.Officer, error) {
	return fetchFirst(ctx, s, audit.ActionOfficersFetched, rawIdentifier, countryCode, catalog.CapGetOfficers,
		catalog.Adapter.Officers)
}

// BeneficialOwners fetches ultimate beneficial owners from the best
// available source.
func (s *Service) BeneficialOwners(ctx context.Context, rawIdentifier, countryCode string) ([]company.BeneficialOwner, error) {
	return fetchFirst(ctx, s, audit.ActionBeneficialOwnersFetched, rawIdentifier, countryCode, catalog.CapGetBeneficialOwner,
		catalog.Adapter.BeneficialOwners)
}

// Providers reports the status of every registered provider matching the
// filter, available or not.
func (s *Service) Providers(ctx context.Context, filter catalog.StatusFilter) []catalog.Status {
	started := time.Now()
	statuses := s.registry.Statuses(filter)
	s.emit(ctx, audit.ActionProvidersListed, filter.CountryCode, "", "", audit.OutcomeOK, started)
	return statuses
}

// aggregate is the fan-out path shared by the endpoints that merge data
// across sources.
func aggregate[T any, K comparable](
	ctx context.Context,
	s *Service,
	action audit.Action,
	rawIdentifier, countryCode string,
	capability catalog.Capability,
	call func(catalog.Adapter, context.Context, catalog.Identifier) ([]T, error),
	dedupKey func(T) K,
) (dispatch.Partial[T], error) {
	started := time.Now()

	cls, err := identifier.Classify(rawIdentifier, countryCode)
	if err != nil {
		s.emit(ctx, action, countryCode, "",
			audit.HashIdentifier(identifier.Normalize(rawIdentifier)), audit.OutcomeInvalid, started)
		return dispatch.Partial[T]{}, translate(err)
	}
	ident := catalog.Identifier{Type: cls.Type, Value: cls.Normalized, CountryCode: cls.CountryCode}
	hash := audit.HashIdentifier(cls.Normalized)

	partial, err := dispatch.Fanout(ctx, s.dispatcher, cls.CountryCode, capability,
		func(ctx context.Context, a catalog.Adapter) ([]T, error) {
			return call(a, ctx, ident)
		})
	if err != nil {
		s.emit(ctx, action, cls.CountryCode, "", hash, outcomeOf(err), started)
		return dispatch.Partial[T]{}, translate(err)
	}

	partial.Items = dispatch.Dedup(partial.Items, dedupKey)
	s.emit(ctx, action, cls.CountryCode, "", hash, audit.OutcomeOK, started)
	return partial, nil
}

// fetchFirst is the single-source path shared by the endpoints where
// cross-source merging has no stable identity to dedup on.
func fetchFirst[T any](
	ctx context.Context,
	s *Service,
	action audit.Action,
	rawIdentifier, countryCode string,
	capability catalog.Capability,
	call func(catalog.Adapter, context.Context, catalog.Identifier) ([]T, error),
) ([]T, error) {
	started := time.Now()

	cls, err := identifier.Classify(rawIdentifier, countryCode)
	if err != nil {
		s.emit(ctx, action, countryCode, "",
			audit.HashIdentifier(identifier.Normalize(rawIdentifier)), audit.OutcomeInvalid, started)
		return nil, translate(err)
	}
	ident := catalog.Identifier{Type: cls.Type, Value: cls.Normalized, CountryCode: cls.CountryCode}
	hash := audit.HashIdentifier(cls.Normalized)

	items, attempts, err := dispatch.First(ctx, s.dispatcher, cls.CountryCode, capability,
		func(ctx context.Context, a catalog.Adapter) ([]T, error) {
			return call(a, ctx, ident)
		})
	if err != nil {
		s.emit(ctx, action, cls.CountryCode, "", hash, outcomeOf(err), started)
		return nil, translate(err)
	}

	s.emit(ctx, action, cls.CountryCode, winner(attempts), hash, audit.OutcomeOK, started)
	return items, nil
}

// cachedRecord consults the cache and keeps score. Cache failures other
// than a miss are logged and treated as misses; the cache must never take
// a lookup down.
func (s *Service) cachedRecord(ctx context.Context, key store.Key) (*company.Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	record, err := s.cache.Find(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.WarnContext(ctx, "record cache read failed",
				"key", key.String(),
				"error", err,
			)
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
	return record, true
}

// archiveAsync persists the snapshot off the request path. The write gets
// its own bounded context; it may outlive the request that triggered it.
func (s *Service) archiveAsync(ctx context.Context, key store.Key, record *company.Record) {
	if s.archive == nil {
		return
	}
	snapshot := record.Clone()
	requestID := middleware.GetRequestID(ctx)
	s.archiving.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.archive.Save(ctx, key, snapshot); err != nil {
			s.logger.Warn("snapshot archive write failed",
				"request_id", requestID,
				"key", key.String(),
				"error", err,
			)
		}
	})
}

// emit publishes one audit event; auditing never fails the operation.
func (s *Service) emit(ctx context.Context, action audit.Action, countryCode, provider, identifierHash string, outcome audit.Outcome, started time.Time) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Emit(ctx, audit.Event{
		Action:         action,
		CountryCode:    countryCode,
		Provider:       provider,
		IdentifierHash: identifierHash,
		Outcome:        outcome,
		DurationMS:     time.Since(started).Milliseconds(),
		RequestID:      middleware.GetRequestID(ctx),
		ClientAgent:    middleware.GetClientAgent(ctx),
	})
	if err != nil {
		s.logger.DebugContext(ctx, "audit emit failed",
			"action", action,
			"error", err,
		)
	}
}

// winner names the provider behind a successful First dispatch.
func winner(attempts []dispatch.Attempt) string {
	for _, a := range attempts {
		if a.OK {
			return a.Provider
		}
	}
	return ""
}

// outcomeOf maps a failure to its audit outcome.
func outcomeOf(err error) audit.Outcome {
	var ambiguous *identifier.AmbiguousError
	if errors.As(err, &ambiguous) || errors.Is(err, identifier.ErrInvalidIdentifier) {
		return audit.OutcomeInvalid
	}
	var exhausted *dispatch.NoProviderError
	if errors.As(err, &exhausted) && exhausted.AllAbsent() {
		return audit.OutcomeNotFound
	}
	return audit.OutcomeFailed
}
