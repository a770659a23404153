package models

import (
	"log/slog"
	"time"

	id "siren/pkg/domain"
)

// Credentials are the registry account secrets exchanged for a bearer token.
type Credentials struct {
	Username string
	Password string
}

// LogValue keeps the password out of logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username), slog.String("password", "[redacted]"))
}

// BearerToken is a registry session token with an absolute expiry.
type BearerToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now.
func (t BearerToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// QualityIssue flags a field the registry did not supply. Normalization never
// fails on these; they are reported alongside the record.
type QualityIssue string

const (
	IssueOwnerMissing     QualityIssue = "owner_missing"
	IssueFirstNameMissing QualityIssue = "first_name_missing"
	IssueLastNameMissing  QualityIssue = "last_name_missing"
)

// Fixed values for fields the registry does not provide.
const (
	DefaultCurrency = "EUR"
	DefaultLanguage = "FR"
)

// Contact is the flat record produced from a registry company document.
type Contact struct {
	SirenNumber   string         `json:"siren_number"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	CompanyName   string         `json:"company"`
	StreetAddress string         `json:"address"`
	City          string         `json:"city"`
	PostalCode    string         `json:"zip"`
	Country       string         `json:"country"`
	State         string         `json:"state"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	VATNumber     string         `json:"vat_number"`
	Currency      string         `json:"currency"`
	Language      string         `json:"language"`
	Issues        []QualityIssue `json:"issues,omitempty"`
}

// NewContact returns a contact with the fixed defaults applied.
func NewContact() *Contact {
	return &Contact{
		Currency: DefaultCurrency,
		Language: DefaultLanguage,
	}
}

// HasIssue reports whether the contact carries the given quality issue.
func (c *Contact) HasIssue(issue QualityIssue) bool {
	for _, i := range c.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// BusinessRecord is a contact persisted on behalf of a user.
type BusinessRecord struct {
	ID             id.RecordID `json:"id"`
	UserID         id.UserID   `json:"user_id"`
	SirenNumber    string      `json:"siren_number"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	Address        string      `json:"address"`
	City           string      `json:"city"`
	State          string      `json:"state"`
	Zip            string      `json:"zip"`
	Country        string      `json:"country"`
	Company        string      `json:"company"`
	LegalStructure string      `json:"legal_structure"`
	LegalStatus    string      `json:"legal_status"`
	VATNumber      string      `json:"vat_number"`
	Currency       string      `json:"currency"`
	Language       string      `json:"language"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewBusinessRecord copies a contact into a record owned by userID.
func NewBusinessRecord(userID id.UserID, c *Contact, createdAt time.Time) *BusinessRecord {
	return &BusinessRecord{
		ID:          id.NewRecordID(),
		UserID:      userID,
		SirenNumber: c.SirenNumber,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.StreetAddress,
		City:        c.City,
		State:       c.State,
		Zip:         c.PostalCode,
		Country:     c.Country,
		Company:     c.CompanyName,
		VATNumber:   c.VATNumber,
		Currency:    c.Currency,
		Language:    c.Language,
		CreatedAt:   createdAt,
	}
}
