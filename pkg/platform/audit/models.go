package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "siren/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers records created on a user's behalf.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected credentials and tokens.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lookups. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    id.UserID     `json:"user_id"`
	// Subject is the registration number the action was about.
	Subject   string `json:"subject"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// RecordID links the event to the business record it produced, if any.
	RecordID string `json:"record_id,omitempty"`
}

type AuditEvent string

const (
	EventCompanyImported       AuditEvent = "company_imported"
	EventCompanyLookedUp       AuditEvent = "company_looked_up"
	EventRegistryTokenRejected AuditEvent = "registry_token_rejected"
	EventRegistryLoginFailed   AuditEvent = "registry_login_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventCompanyImported:       CategoryCompliance,
	EventRegistryTokenRejected: CategorySecurity,
	EventRegistryLoginFailed:   CategorySecurity,
	EventCompanyLookedUp:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader answers operator queries over retained events. Only in-process sinks
// implement it; a Kafka topic is read with Kafka tooling.
type Reader interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
