package domain

import (
	"github.com/google/uuid"

	dErrors "stratus/pkg/domain-errors"
)

// Typed identifiers prevent cross-entity ID mixups at compile time.
// A RoleID can never be passed where a TenantID is expected.
type (
	TenantID  uuid.UUID
	EditionID uuid.UUID
	RoleID    uuid.UUID
	UserID    uuid.UUID
)

func NewTenantID() TenantID   { return TenantID(uuid.New()) }
func NewEditionID() EditionID { return EditionID(uuid.New()) }
func NewRoleID() RoleID       { return RoleID(uuid.New()) }
func NewUserID() UserID       { return UserID(uuid.New()) }

func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id EditionID) String() string { return uuid.UUID(id).String() }
func (id RoleID) String() string    { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EditionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's marshaling methods, so each id
// delegates explicitly. Without these, JSON payloads would carry the raw
// 16-byte array instead of the canonical string form.
func (id TenantID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id EditionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RoleID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *TenantID) UnmarshalText(data []byte) error  { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *EditionID) UnmarshalText(data []byte) error { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *RoleID) UnmarshalText(data []byte) error    { return (*uuid.UUID)(id).UnmarshalText(data) }
func (id *UserID) UnmarshalText(data []byte) error    { return (*uuid.UUID)(id).UnmarshalText(data) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return parsed, nil
}

func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return TenantID(uuid.Nil), err
	}
	return TenantID(parsed), nil
}

func ParseEditionID(raw string) (EditionID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return EditionID(uuid.Nil), err
	}
	return EditionID(parsed), nil
}

func ParseRoleID(raw string) (RoleID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return RoleID(uuid.Nil), err
	}
	return RoleID(parsed), nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID(uuid.Nil), err
	}
	return UserID(parsed), nil
}
