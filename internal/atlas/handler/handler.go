// Package handler exposes the aggregation service over HTTP. Handlers
// parse and validate transport-level input, delegate to the service and
// translate failures through the shared error envelope; no orchestration
// lives here.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"corpatlas/contracts/company"
	"corpatlas/internal/atlas"
	"corpatlas/internal/catalog"
	"corpatlas/internal/dispatch"
	"corpatlas/internal/platform/middleware"
	dErrors "corpatlas/pkg/domain-errors"
	"corpatlas/pkg/platform/httputil"
)

// Service is the slice of the aggregation service the HTTP layer needs.
type Service interface {
	Search(ctx context.Context, query string, opts atlas.SearchOptions) ([]company.Record, error)
	Lookup(ctx context.Context, rawIdentifier, countryCode string) (*company.Record, error)
	Documents(ctx context.Context, rawIdentifier, countryCode string) (dispatch.Partial[company.Document], error)
	Addresses(ctx context.Context, rawIdentifier, countryCode string) ([]company.Address, error)
	Subsidiaries(ctx context.Context, rawIdentifier, countryCode string) ([]company.Subsidiary, error)
	Officers(ctx context.Context, rawIdentifier, countryCode string) ([]company.Officer, error)
	BeneficialOwners(ctx context.Context, rawIdentifier, countryCode string) ([]company.BeneficialOwner, error)
	Events(ctx context.Context, rawIdentifier, countryCode string) (dispatch.Partial[company.Event], error)
	Providers(ctx context.Context, filter catalog.StatusFilter) []catalog.Status
}

// Handler wires the company endpoints to the aggregation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the company endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/search", h.HandleSearch)
	r.Get("/v1/providers", h.HandleProviders)
	r.Route("/v1/companies/{identifier}", func(r chi.Router) {
		r.Get("/", h.HandleLookup)
		r.Get("/documents", h.HandleDocuments)
		r.Get("/addresses", h.HandleAddresses)
		r.Get("/subsidiaries", h.HandleSubsidiaries)
		r.Get("/officers", h.HandleOfficers)
		r.Get("/beneficial-owners", h.HandleBeneficialOwners)
		r.Get("/events", h.HandleEvents)
	})
}

// HandleSearch handles GET /v1/search.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	q := r.URL.Query()

	opts := atlas.SearchOptions{
		CountryCode: q.Get("country"),
		PostalCode:  q.Get("postal_code"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		opts.Limit = limit
	}
	if raw := q.Get("active_only"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "active_only must be a boolean"))
			return
		}
		opts.ActiveOnly = active
	}

	results, err := h.service.Search(ctx, q.Get("q"), opts)
	if err != nil {
		h.fail(ctx, w, "company search failed", err)
		return
	}

	h.logger.InfoContext(ctx, "company search served",
		"request_id", middleware.GetRequestID(ctx),
		"country", opts.CountryCode,
		"results", len(results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, SearchResponse{
		Results: orEmpty(results),
		Count:   len(results),
	})
}

// HandleLookup handles GET /v1/companies/{identifier}.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	record, err := h.service.Lookup(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "company lookup failed", err)
		return
	}

	h.logger.InfoContext(ctx, "company resolved",
		"request_id", middleware.GetRequestID(ctx),
		"country", record.CountryCode,
		"provider", record.Source.Provider,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleDocuments handles GET /v1/companies/{identifier}/documents.
func (h *Handler) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	partial, err := h.service.Documents(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "documents fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentsResponse{
		Documents: orEmpty(partial.Items),
		Failures:  partial.Failures,
	})
}

// HandleEvents handles GET /v1/companies/{identifier}/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	partial, err := h.service.Events(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "events fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{
		Events:   orEmpty(partial.Items),
		Failures: partial.Failures,
	})
}

// HandleAddresses handles GET /v1/companies/{identifier}/addresses.
func (h *Handler) HandleAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addresses, err := h.service.Addresses(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "addresses fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AddressesResponse{Addresses: orEmpty(addresses)})
}

// HandleSubsidiaries handles GET /v1/companies/{identifier}/subsidiaries.
func (h *Handler) HandleSubsidiaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subsidiaries, err := h.service.Subsidiaries(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "subsidiaries fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubsidiariesResponse{Subsidiaries: orEmpty(subsidiaries)})
}

// HandleOfficers handles GET /v1/companies/{identifier}/officers.
func (h *Handler) HandleOfficers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	officers, err := h.service.Officers(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "officers fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OfficersResponse{Officers: orEmpty(officers)})
}

// HandleBeneficialOwners handles GET /v1/companies/{identifier}/beneficial-owners.
func (h *Handler) HandleBeneficialOwners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owners, err := h.service.BeneficialOwners(ctx, chi.URLParam(r, "identifier"), r.URL.Query().Get("country"))
	if err != nil {
		h.fail(ctx, w, "beneficial owners fetch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BeneficialOwnersResponse{BeneficialOwners: orEmpty(owners)})
}

// HandleProviders handles GET /v1/providers.
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := catalog.StatusFilter{
		Continent:   q.Get("continent"),
		CountryCode: q.Get("country"),
		Search:      q.Get("search"),
	}
	if raw := q.Get("capability"); raw != "" {
		capability, ok := catalog.ParseCapability(raw)
		if !ok {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown capability %q", raw))
			return
		}
		filter.Capability = capability
	}

	statuses := h.service.Providers(ctx, filter)
	httputil.WriteJSON(w, http.StatusOK, ProvidersResponse{
		Providers: orEmpty(statuses),
		Count:     len(statuses),
	})
}

// fail logs the failure with its request ID and writes the error envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
