package audit

import (
	"time"

	id "authapp/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle events.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers failed authentication and similar signals.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity such as token issuance.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Action    string
	Reason    string
	// Email is always masked before it reaches an event.
	Email     string
	RequestID string
	ClientIP  string
	UserAgent string
}

type AuditEvent string

const (
	EventUserCreated AuditEvent = "user_created"
	EventTokenIssued AuditEvent = "token_issued"
	EventAuthFailed  AuditEvent = "auth_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated: CategoryCompliance,
	EventAuthFailed:  CategorySecurity,
	EventTokenIssued: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
