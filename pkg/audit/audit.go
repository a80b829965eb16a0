// Package audit captures structured events for every aggregation operation.
// Events are transport-agnostic: the same shape goes to the in-memory store
// in development, the Kafka topic in production, and the Postgres outbox when
// guaranteed delivery matters. Raw identifiers never appear in an event; only
// their hash does.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Category classifies audit events by their retention requirements.
type Category string

const (
	// CategoryOperations covers routine activity useful for debugging and
	// usage visibility. Can be sampled, short retention.
	CategoryOperations Category = "operations"

	// CategoryCompliance covers events with regulatory significance.
	// Beneficial-ownership queries fall under AML record-keeping duties and
	// must never be sampled away.
	CategoryCompliance Category = "compliance"
)

// Action names what happened. One action per service operation.
type Action string

const (
	ActionSearchPerformed         Action = "search_performed"
	ActionLookupPerformed         Action = "lookup_performed"
	ActionDocumentsFetched        Action = "documents_fetched"
	ActionAddressesFetched        Action = "addresses_fetched"
	ActionSubsidiariesFetched     Action = "subsidiaries_fetched"
	ActionOfficersFetched         Action = "officers_fetched"
	ActionBeneficialOwnersFetched Action = "beneficial_owners_fetched"
	ActionEventsFetched           Action = "events_fetched"
	ActionProvidersListed         Action = "providers_listed"
)

// actionCategories maps each action to its category. The map is the source
// of truth; whatever category an emitter sets is overwritten from here.
var actionCategories = map[Action]Category{
	ActionBeneficialOwnersFetched: CategoryCompliance,
}

// Category returns the category for this action. Unmapped actions are
// routine operations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Outcome is the coarse result of the audited operation.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeFailed   Outcome = "failed"
)

// Event is one audited operation.
type Event struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`

	CountryCode string `json:"country_code,omitempty"`
	// Provider is the source that answered, empty when none did.
	Provider string `json:"provider,omitempty"`
	// IdentifierHash is the SHA-256 of the queried identifier. The raw
	// value stays out of the audit trail.
	IdentifierHash string `json:"identifier_hash,omitempty"`

	Outcome    Outcome `json:"outcome"`
	DurationMS int64   `json:"duration_ms"`

	RequestID   string `json:"request_id,omitempty"`
	ClientAgent string `json:"client_agent,omitempty"`
}

// HashIdentifier hashes an identifier for inclusion in an event. Empty in,
// empty out.
func HashIdentifier(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Sink consumes audit events. Implementations: MemoryStore for development
// and tests, KafkaSink for production, OutboxStore when events must survive
// a broker outage.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
