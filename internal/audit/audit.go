// Package audit publishes authentication events. Publishing never fails the
// request that produced the event.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
)

// EventType names an audited action
type EventType string

const (
	EventLoginSucceeded EventType = "login.succeeded"
	EventLoginFailed    EventType = "login.failed"
	EventLogout         EventType = "logout"
	EventRefresh        EventType = "token.refreshed"
	EventAccessDenied   EventType = "access.denied"
)

// Event is one audit record. It never carries tokens, cookies or passwords.
type Event struct {
	Type        EventType `json:"type"`
	PrincipalID string    `json:"principal_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	Method      string    `json:"method,omitempty"`
	IP          string    `json:"ip,omitempty"`
	Route       string    `json:"route,omitempty"`
	At          time.Time `json:"at"`
}

// NewEvent builds an event for principal. A zero principal leaves the identity fields empty.
func NewEvent(typ EventType, p domain.Principal, ip string) Event {
	return Event{
		Type:        typ,
		PrincipalID: p.ID,
		Role:        string(p.Role),
		Method:      string(p.Method),
		IP:          ip,
		At:          time.Now().UTC(),
	}
}

// Publisher records audit events
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// LogPublisher writes audit events to the structured log
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Get()
	}
	return &LogPublisher{log: log.Named("audit")}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	p.log.Info("Audit event",
		zap.String("type", string(event.Type)),
		zap.String("principal_id", event.PrincipalID),
		zap.String("role", event.Role),
		zap.String("method", event.Method),
		zap.String("ip", event.IP),
		zap.String("route", event.Route),
		zap.Time("at", event.At),
	)
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
