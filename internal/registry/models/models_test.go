package models

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "siren/pkg/domain"
)

func TestBearerTokenValid(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	assert.True(t, BearerToken{Value: "t", ExpiresAt: now.Add(time.Second)}.Valid(now))
	assert.False(t, BearerToken{Value: "t", ExpiresAt: now}.Valid(now), "expiry instant is exclusive")
	assert.False(t, BearerToken{Value: "t", ExpiresAt: now.Add(-time.Second)}.Valid(now))
	assert.False(t, BearerToken{ExpiresAt: now.Add(time.Hour)}.Valid(now), "empty value is never valid")
}

func TestNewBusinessRecordCopiesContact(t *testing.T) {
	userID := id.UserID(uuid.New())
	createdAt := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	contact := NewContact()
	contact.SirenNumber = "123456789"
	contact.FirstName = "Durand"
	contact.LastName = "Alice"
	contact.CompanyName = "ACME"
	contact.StreetAddress = "12Ruede Paris"
	contact.City = "Lyon"
	contact.PostalCode = "69000"
	contact.Country = "FR"

	record := NewBusinessRecord(userID, contact, createdAt)

	assert.False(t, record.ID.IsNil())
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, "123456789", record.SirenNumber)
	assert.Equal(t, "12Ruede Paris", record.Address)
	assert.Equal(t, "69000", record.Zip)
	assert.Equal(t, "ACME", record.Company)
	assert.Equal(t, "EUR", record.Currency)
	assert.Equal(t, "FR", record.Language)
	assert.Empty(t, record.Email)
	assert.Empty(t, record.LegalStructure)
	assert.Equal(t, createdAt, record.CreatedAt)
}

func TestCredentialsLogValueRedactsPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("login", "creds", Credentials{Username: "ops@example.fr", Password: "hunter2"})

	assert.Contains(t, buf.String(), "creds.username=ops@example.fr")
	assert.NotContains(t, buf.String(), "hunter2")
}
