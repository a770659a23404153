package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"siren/internal/registry"
	"siren/internal/registry/auth"
	"siren/internal/registry/client"
	"siren/internal/registry/metrics"
	"siren/internal/registry/models"
	"siren/internal/registry/registrytest"
	"siren/internal/registry/store"
	"siren/internal/registry/tokencache"
	id "siren/pkg/domain"
	dErrors "siren/pkg/domain-errors"
	audit "siren/pkg/platform/audit"
	"siren/pkg/platform/audit/publisher"
	auditmemory "siren/pkg/platform/audit/store/memory"
	"siren/pkg/requestcontext"
)

// =============================================================================
// Service Test Suite
// =============================================================================
// The suite runs the real authenticator, token cache and client against an
// in-process registry so the whole lookup path is exercised.

type ServiceSuite struct {
	suite.Suite
	registry *registrytest.Server
	records  *store.InMemoryRecordStore
	events   *auditmemory.InMemoryStore
	metrics  *metrics.Metrics
	service  *Service
	userID   id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.registry = registrytest.NewServer(s.T())
	s.registry.AddCompany("123456789", registrytest.MoralSingleOwner)
	s.registry.AddCompany("222222222", registrytest.MoralTwoOwners)
	s.registry.AddCompany("333333333", registrytest.Physical)
	s.registry.AddCompany("444444444", registrytest.NoPersonType)
	s.registry.AddCompany("555555555", registrytest.NoFormality)

	s.records = store.NewInMemoryRecordStore()
	s.events = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.userID = id.UserID(uuid.New())

	creds := models.Credentials{Username: registrytest.Username, Password: registrytest.Password}
	tokens := tokencache.New(auth.New(s.registry.URL), creds, tokencache.WithMetrics(s.metrics))
	cl := client.New(s.registry.URL, client.WithRetry(1, time.Millisecond))

	var err error
	s.service, err = New(tokens, cl, s.records,
		WithAuditPublisher(publisher.NewPublisher(s.events)),
		WithAuditReader(s.events),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) siren(v string) id.SirenNumber {
	n, err := id.ParseSirenNumber(v)
	s.Require().NoError(err)
	return n
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("missing collaborators are rejected", func() {
		_, err := New(nil, client.New("http://x"), store.NewInMemoryRecordStore())
		s.ErrorContains(err, "token source is required")

		_, err = New(tokencache.New(nil, models.Credentials{}), nil, store.NewInMemoryRecordStore())
		s.ErrorContains(err, "registry client is required")

		_, err = New(tokencache.New(nil, models.Credentials{}), client.New("http://x"), nil)
		s.ErrorContains(err, "record store is required")
	})
}

// =============================================================================
// Lookup Tests
// =============================================================================

func (s *ServiceSuite) TestLookup() {
	ctx := context.Background()

	s.Run("moral person with a single owner", func() {
		contact, err := s.service.Lookup(ctx, s.siren("123456789"))
		s.Require().NoError(err)

		s.Equal("123456789", contact.SirenNumber)
		s.Equal("Durand", contact.FirstName)
		s.Equal("Alice", contact.LastName)
		s.Equal("ACME", contact.CompanyName)
		s.Equal("12Ruede Paris", contact.StreetAddress)
		s.Equal("Lyon", contact.City)
		s.Equal("69000", contact.PostalCode)
		s.Equal("FR", contact.Country)
		s.Equal("EUR", contact.Currency)
		s.Equal("FR", contact.Language)
		s.Empty(contact.Email)
		s.Empty(contact.Phone)
	})

	s.Run("token is reused across lookups", func() {
		before := s.registry.Logins()
		_, err := s.service.Lookup(ctx, s.siren("222222222"))
		s.Require().NoError(err)
		_, err = s.service.Lookup(ctx, s.siren("333333333"))
		s.Require().NoError(err)
		s.LessOrEqual(s.registry.Logins()-before, 1)
	})

	s.Run("no formality is no data", func() {
		_, err := s.service.Lookup(ctx, s.siren("555555555"))
		s.ErrorIs(err, registry.ErrNoData)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.LookupOutcomes.WithLabelValues("no_data")))
	})

	s.Run("unknown company passes the registry 404 through", func() {
		_, err := s.service.Lookup(ctx, s.siren("000000000"))
		outcome := registry.Classify(err)
		s.Equal(registry.OutcomeUpstreamHTTP, outcome.Kind)
		s.Equal(http.StatusNotFound, outcome.Status)
		s.JSONEq(`{"code":404,"message":"Company not found"}`, string(outcome.Body))
	})

	s.Run("missing discriminator is malformed", func() {
		_, err := s.service.Lookup(ctx, s.siren("444444444"))
		s.ErrorIs(err, registry.ErrMalformedPayload)
		s.Equal(registry.OutcomeUnknown, registry.Classify(err).Kind)
	})
}

func (s *ServiceSuite) TestRejectedTokenIsInvalidated() {
	ctx := context.Background()
	_, err := s.service.Lookup(ctx, s.siren("123456789"))
	s.Require().NoError(err)
	s.Equal(1, s.registry.Logins())

	s.registry.FailLookups(http.StatusUnauthorized)
	_, err = s.service.Lookup(ctx, s.siren("123456789"))
	outcome := registry.Classify(err)
	s.Equal(registry.OutcomeUpstreamHTTP, outcome.Kind)
	s.Equal(http.StatusUnauthorized, outcome.Status)

	_, err = s.service.Lookup(ctx, s.siren("123456789"))
	s.Require().NoError(err)
	s.Equal(2, s.registry.Logins(), "the rejected token must be replaced")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.TokenInvalidations))
}

func (s *ServiceSuite) TestLoginFailure() {
	s.registry.FailLogins(http.StatusUnauthorized)

	_, err := s.service.Lookup(context.Background(), s.siren("123456789"))
	s.ErrorIs(err, registry.ErrAuthentication)
	s.Equal(0, s.registry.Lookups())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.LookupOutcomes.WithLabelValues("authentication")))
}

func (s *ServiceSuite) TestInvalidateTokenForcesLogin() {
	ctx := context.Background()
	_, err := s.service.Lookup(ctx, s.siren("123456789"))
	s.Require().NoError(err)

	s.service.InvalidateToken(ctx)
	_, err = s.service.Lookup(ctx, s.siren("123456789"))
	s.Require().NoError(err)

	s.Equal(2, s.registry.Logins())
}

// =============================================================================
// Import Tests
// =============================================================================

func (s *ServiceSuite) TestImport() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	record, err := s.service.Import(ctx, s.userID, s.siren("123456789"))
	s.Require().NoError(err)
	s.Equal(s.userID, record.UserID)
	s.Equal("123456789", record.SirenNumber)
	s.Equal("12Ruede Paris", record.Address)
	s.Equal("ACME", record.Company)
	s.Equal(now, record.CreatedAt)

	stored, err := s.records.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record, stored)

	events, err := s.events.ListByUser(ctx, s.userID)
	s.Require().NoError(err)
	var imported *audit.Event
	for i := range events {
		if events[i].Action == string(audit.EventCompanyImported) {
			imported = &events[i]
		}
	}
	s.Require().NotNil(imported)
	s.Equal(record.ID.String(), imported.RecordID)
	s.Equal("req-1", imported.RequestID)
	s.Equal(audit.CategoryCompliance, imported.Category)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RecordsImported))
}

func (s *ServiceSuite) TestImportRequiresUser() {
	_, err := s.service.Import(context.Background(), id.UserID{}, s.siren("123456789"))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestImportDoesNotSaveOnNoData() {
	_, err := s.service.Import(context.Background(), s.userID, s.siren("555555555"))
	s.ErrorIs(err, registry.ErrNoData)

	records, err := s.service.ListImports(context.Background(), s.userID)
	s.Require().NoError(err)
	s.Empty(records)
}

type failingStore struct{ *store.InMemoryRecordStore }

func (failingStore) Save(context.Context, *models.BusinessRecord) error {
	return errors.New("disk full")
}

func (s *ServiceSuite) TestImportStoreFailureIsInternal() {
	svc, err := New(s.service.tokens, s.service.client, failingStore{store.NewInMemoryRecordStore()})
	s.Require().NoError(err)

	_, err = svc.Import(context.Background(), s.userID, s.siren("123456789"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestAuditTrail() {
	ctx := requestcontext.WithUserID(context.Background(), s.userID)
	_, err := s.service.Lookup(ctx, s.siren("123456789"))
	s.Require().NoError(err)
	_, err = s.service.Import(ctx, s.userID, s.siren("333333333"))
	s.Require().NoError(err)

	s.Run("by company", func() {
		events, err := s.service.AuditTrail(ctx, AuditQuery{Siren: s.siren("123456789")})
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventCompanyLookedUp), events[0].Action)
		s.Equal(s.userID, events[0].UserID)
	})

	s.Run("by user", func() {
		events, err := s.service.AuditTrail(ctx, AuditQuery{UserID: s.userID})
		s.Require().NoError(err)
		s.Len(events, 3, "two lookups and one import")
	})

	s.Run("exactly one filter", func() {
		_, err := s.service.AuditTrail(ctx, AuditQuery{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = s.service.AuditTrail(ctx, AuditQuery{Siren: s.siren("123456789"), UserID: s.userID})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unavailable without a reader", func() {
		svc, err := New(s.service.tokens, s.service.client, store.NewInMemoryRecordStore())
		s.Require().NoError(err)

		_, err = svc.AuditTrail(ctx, AuditQuery{UserID: s.userID})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

type unitOfWorkKey struct{}

// recordingTransactor marks the context it hands to fn and can fail the commit.
type recordingTransactor struct {
	runs      int
	commitErr error
}

func (t *recordingTransactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.runs++
	if err := fn(context.WithValue(ctx, unitOfWorkKey{}, true)); err != nil {
		return err
	}
	return t.commitErr
}

// txCheckingStore records whether Save ran inside the unit of work.
type txCheckingStore struct {
	*store.InMemoryRecordStore
	savedInTx bool
}

func (st *txCheckingStore) Save(ctx context.Context, record *models.BusinessRecord) error {
	st.savedInTx, _ = ctx.Value(unitOfWorkKey{}).(bool)
	return st.InMemoryRecordStore.Save(ctx, record)
}

func (s *ServiceSuite) TestImportSavesInsideTransaction() {
	records := &txCheckingStore{InMemoryRecordStore: store.NewInMemoryRecordStore()}
	transactor := &recordingTransactor{}
	svc, err := New(s.service.tokens, s.service.client, records, WithTransactor(transactor))
	s.Require().NoError(err)

	_, err = svc.Import(context.Background(), s.userID, s.siren("123456789"))
	s.Require().NoError(err)
	s.Equal(1, transactor.runs)
	s.True(records.savedInTx)
}

func (s *ServiceSuite) TestImportCommitFailureIsInternal() {
	events := auditmemory.NewInMemoryStore()
	svc, err := New(s.service.tokens, s.service.client, store.NewInMemoryRecordStore(),
		WithTransactor(&recordingTransactor{commitErr: errors.New("commit failed")}),
		WithAuditPublisher(publisher.NewPublisher(events)),
	)
	s.Require().NoError(err)

	_, err = svc.Import(context.Background(), s.userID, s.siren("123456789"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	trail, err := events.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	for _, e := range trail {
		s.NotEqual(string(audit.EventCompanyImported), e.Action, "no import event without a commit")
	}
}

func (s *ServiceSuite) TestWithTransactorIgnoresNil() {
	svc, err := New(s.service.tokens, s.service.client, store.NewInMemoryRecordStore(), WithTransactor(nil))
	s.Require().NoError(err)
	s.IsType(noTx{}, svc.tx)
}

func (s *ServiceSuite) TestGetImport() {
	ctx := context.Background()
	record, err := s.service.Import(ctx, s.userID, s.siren("333333333"))
	s.Require().NoError(err)

	s.Run("owner can read", func() {
		got, err := s.service.GetImport(ctx, s.userID, record.ID)
		s.Require().NoError(err)
		s.Equal(record.ID, got.ID)
	})

	s.Run("other users cannot", func() {
		_, err := s.service.GetImport(ctx, id.UserID(uuid.New()), record.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown id", func() {
		_, err := s.service.GetImport(ctx, s.userID, id.NewRecordID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListImports() {
	ctx := context.Background()
	_, err := s.service.Import(requestcontext.WithTime(ctx, time.Now().Add(-time.Minute)), s.userID, s.siren("123456789"))
	s.Require().NoError(err)
	_, err = s.service.Import(ctx, s.userID, s.siren("333333333"))
	s.Require().NoError(err)

	records, err := s.service.ListImports(ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("333333333", records[0].SirenNumber)
}
