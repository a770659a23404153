package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "siren/pkg/domain-errors"
)

// UserID identifies the authenticated caller that owns imported records.
type UserID uuid.UUID

// RecordID identifies a persisted business record.
type RecordID uuid.UUID

func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero UUID.
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *RecordID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// NewRecordID returns a random record ID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// ParseUserID parses a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseRecordID parses a non-nil UUID.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record ID")
	return RecordID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}

// SirenNumber is the nine-digit French company registration number.
type SirenNumber string

func (s SirenNumber) String() string { return string(s) }

// sirenLength is the number of digits in a SIREN.
const sirenLength = 9

// ParseSirenNumber accepts nine ASCII digits, ignoring surrounding whitespace
// and the single spaces commonly used to group digits ("123 456 789").
func ParseSirenNumber(s string) (SirenNumber, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if compact == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "siren number is required")
	}
	if len(compact) != sirenLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "siren number must have 9 digits")
	}
	for i := 0; i < len(compact); i++ {
		if compact[i] < '0' || compact[i] > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "siren number must have 9 digits")
		}
	}
	return SirenNumber(compact), nil
}
