// Package service orchestrates a registry lookup: token, company call,
// normalization, and optionally persisting the result for a user.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"siren/internal/registry"
	"siren/internal/registry/metrics"
	"siren/internal/registry/models"
	"siren/internal/registry/normalizer"
	"siren/internal/registry/payload"
	id "siren/pkg/domain"
	dErrors "siren/pkg/domain-errors"
	audit "siren/pkg/platform/audit"
	"siren/pkg/platform/sentinel"
	"siren/pkg/requestcontext"
)

// TokenSource supplies a valid registry bearer token.
type TokenSource interface {
	Token(ctx context.Context) (models.BearerToken, error)
	Invalidate(ctx context.Context)
}

// RegistryClient fetches the raw company document.
type RegistryClient interface {
	Lookup(ctx context.Context, token models.BearerToken, siren string) (payload.Raw, error)
}

// RecordStore persists business records.
type RecordStore interface {
	Save(ctx context.Context, record *models.BusinessRecord) error
	FindByID(ctx context.Context, recordID id.RecordID) (*models.BusinessRecord, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.BusinessRecord, error)
}

// Transactor runs fn inside a unit of work. Stores called with the context
// passed to fn join it.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	tokens  TokenSource
	client  RegistryClient
	records RecordStore
	tx      Transactor
	auditor AuditPublisher
	trail   audit.Reader
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithAuditReader enables AuditTrail over events retained in process.
func WithAuditReader(r audit.Reader) Option {
	return func(s *Service) {
		s.trail = r
	}
}

// WithTransactor runs record writes inside tx. A nil tx keeps writes unwrapped.
func WithTransactor(tx Transactor) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(tokens TokenSource, client RegistryClient, records RecordStore, opts ...Option) (*Service, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if client == nil {
		return nil, fmt.Errorf("registry client is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	s := &Service{
		tokens:  tokens,
		client:  client,
		records: records,
		tx:      noTx{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lookup fetches and normalizes the company registered under siren. Failures are
// *registry.Error values; registry.ErrNoData marks a company without data.
func (s *Service) Lookup(ctx context.Context, siren id.SirenNumber) (*models.Contact, error) {
	start := time.Now()
	contact, err := s.lookup(ctx, siren)
	outcome := outcomeLabel(err)
	s.metrics.IncrementLookupOutcome(outcome)

	attrs := []any{
		"siren", siren.String(),
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
	}
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "registry lookup succeeded", append(attrs, "issues", contact.Issues)...)
	case errors.Is(err, registry.ErrNoData):
		s.logger.InfoContext(ctx, "registry has no data", attrs...)
	default:
		s.logger.WarnContext(ctx, "registry lookup failed", append(attrs, "error", err)...)
	}
	return contact, err
}

func (s *Service) lookup(ctx context.Context, siren id.SirenNumber) (*models.Contact, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		s.emit(ctx, audit.Event{
			Subject: siren.String(),
			Action:  string(audit.EventRegistryLoginFailed),
			Reason:  err.Error(),
		})
		return nil, err
	}

	raw, err := s.client.Lookup(ctx, token, siren.String())
	if err != nil {
		if rejectedToken(err) {
			// The 401 still reaches the caller; only the next lookup logs in again.
			s.tokens.Invalidate(ctx)
			s.emit(ctx, audit.Event{
				Subject: siren.String(),
				Action:  string(audit.EventRegistryTokenRejected),
			})
		}
		return nil, err
	}

	contact, err := normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	contact.SirenNumber = siren.String()
	for _, issue := range contact.Issues {
		s.metrics.IncrementQualityIssue(string(issue))
	}

	s.emit(ctx, audit.Event{
		Subject: siren.String(),
		Action:  string(audit.EventCompanyLookedUp),
	})
	return contact, nil
}

// Import looks up siren and saves the result as a record owned by userID.
func (s *Service) Import(ctx context.Context, userID id.UserID, siren id.SirenNumber) (*models.BusinessRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}

	contact, err := s.Lookup(ctx, siren)
	if err != nil {
		return nil, err
	}

	record := models.NewBusinessRecord(userID, contact, requestcontext.Now(ctx))
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.records.Save(ctx, record)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save business record")
	}
	s.metrics.IncrementRecordsImported()

	s.emit(ctx, audit.Event{
		UserID:   userID,
		Subject:  siren.String(),
		Action:   string(audit.EventCompanyImported),
		Decision: "saved",
		RecordID: record.ID.String(),
	})
	s.logger.InfoContext(ctx, "business record imported",
		"user_id", userID.String(),
		"siren", siren.String(),
		"record_id", record.ID.String(),
	)
	return record, nil
}

// ListImports returns the records userID imported, newest first.
func (s *Service) ListImports(ctx context.Context, userID id.UserID) ([]*models.BusinessRecord, error) {
	records, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list business records")
	}
	return records, nil
}

// GetImport returns one record. Records owned by someone else are not found.
func (s *Service) GetImport(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.BusinessRecord, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "business record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load business record")
	}
	if record.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "business record not found")
	}
	return record, nil
}

// InvalidateToken drops the cached registry token so the next lookup logs in again.
func (s *Service) InvalidateToken(ctx context.Context) {
	s.tokens.Invalidate(ctx)
	s.logger.InfoContext(ctx, "registry token invalidated by operator",
		"request_id", requestcontext.RequestID(ctx),
	)
}

// AuditQuery selects events by company or by user. Exactly one must be set.
type AuditQuery struct {
	Siren  id.SirenNumber
	UserID id.UserID
}

// AuditTrail lists retained audit events, oldest first.
func (s *Service) AuditTrail(ctx context.Context, q AuditQuery) ([]audit.Event, error) {
	if s.trail == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "audit trail is not retained by this deployment")
	}
	var (
		events []audit.Event
		err    error
	)
	switch {
	case q.Siren != "" && q.UserID.IsNil():
		events, err = s.trail.ListBySubject(ctx, q.Siren.String())
	case q.Siren == "" && !q.UserID.IsNil():
		events, err = s.trail.ListByUser(ctx, q.UserID)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "exactly one of siren or user_id is required")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	return events, nil
}

// emit fills the user from the request when unset. Audit failures never fail
// the request.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if event.UserID.IsNil() {
		event.UserID = requestcontext.UserID(ctx)
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func rejectedToken(err error) bool {
	var re *registry.Error
	return errors.As(err, &re) && re.Category == registry.CategoryUpstreamHTTP && re.Status == http.StatusUnauthorized
}

func outcomeLabel(err error) string {
	if err == nil {
		return "found"
	}
	switch registry.GetCategory(err) {
	case registry.CategoryNotFound:
		return "no_data"
	case registry.CategoryAuthentication:
		return "authentication"
	case registry.CategoryUpstreamHTTP:
		return "upstream_http"
	case registry.CategoryTransport:
		return "transport"
	case registry.CategoryBadData:
		return "malformed"
	default:
		return "unknown"
	}
}
