package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
)

// ProvisioningState tracks how far tenant creation has progressed. The
// workflow spans a registry commit and a separate storage system, so the
// state is persisted to make the remainder resumable instead of pretending
// a cross-system transaction exists.
type ProvisioningState string

const (
	// StateRegistered: the registry row and edition assignment are
	// committed; storage and seeding have not completed.
	StateRegistered ProvisioningState = "registered"
	// StateProvisioned: terminal success. Storage exists, static roles are
	// seeded, and the admin identity holds the admin role.
	StateProvisioned ProvisioningState = "provisioned"
	// StateFailed: terminal failure after registration. Steps 2-6 are safe
	// to retry because storage provisioning and seeding are idempotent.
	StateFailed ProvisioningState = "failed"
)

// tenancyNamePattern matches the rules for the unique, human-facing tenancy
// name: starts with a letter, then letters/digits/hyphens.
var tenancyNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

const (
	maxTenancyNameLength = 64
	maxDisplayNameLength = 128
)

// Tenant is the aggregate root for an isolated customer account.
//
// Invariants:
//   - TenancyName is non-empty, pattern-constrained and unique (enforced
//     case-insensitively by the registry store)
//   - ConnectionString, when present, is ciphertext; the plaintext
//     descriptor never touches the registry
//   - EditionID may be nil: feature resolution for such a tenant is a
//     domain error, never a silent empty set
//   - tenants are never physically deleted here; deactivation is external
type Tenant struct {
	ID          id.TenantID `json:"id"`
	TenancyName string      `json:"tenancy_name"`
	DisplayName string      `json:"display_name"`
	AdminEmail  string      `json:"admin_email"`
	// ConnectionString holds the encrypted connection descriptor for the
	// tenant's dedicated store. Empty means the shared/default store.
	ConnectionString string            `json:"-"`
	EditionID        *id.EditionID     `json:"edition_id,omitempty"`
	State            ProvisioningState `json:"state"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// HasEdition reports whether an edition is assigned.
func (t *Tenant) HasEdition() bool {
	return t.EditionID != nil && !t.EditionID.IsNil()
}

// AssignEdition sets the tenant's edition reference.
func (t *Tenant) AssignEdition(editionID id.EditionID, now time.Time) {
	t.EditionID = &editionID
	t.UpdatedAt = now
}

// MarkProvisioned transitions to the terminal success state.
func (t *Tenant) MarkProvisioned(now time.Time) {
	t.State = StateProvisioned
	t.UpdatedAt = now
}

// MarkFailed records a provisioning failure after registration.
func (t *Tenant) MarkFailed(now time.Time) {
	t.State = StateFailed
	t.UpdatedAt = now
}

// NewTenant builds a registered tenant, collecting every field violation
// rather than stopping at the first.
func NewTenant(tenantID id.TenantID, tenancyName, displayName, adminEmail string, now time.Time) (*Tenant, error) {
	tenancyName = strings.TrimSpace(tenancyName)
	displayName = strings.TrimSpace(displayName)
	adminEmail = strings.TrimSpace(adminEmail)

	var violations *multierror.Error
	switch {
	case tenancyName == "":
		violations = multierror.Append(violations, fmt.Errorf("tenancy name is required"))
	case len(tenancyName) > maxTenancyNameLength:
		violations = multierror.Append(violations, fmt.Errorf("tenancy name must be %d characters or less", maxTenancyNameLength))
	case !tenancyNamePattern.MatchString(tenancyName):
		violations = multierror.Append(violations, fmt.Errorf("tenancy name must start with a letter and contain only letters, digits and hyphens"))
	}
	switch {
	case displayName == "":
		violations = multierror.Append(violations, fmt.Errorf("display name is required"))
	case len(displayName) > maxDisplayNameLength:
		violations = multierror.Append(violations, fmt.Errorf("display name must be %d characters or less", maxDisplayNameLength))
	}
	if adminEmail == "" {
		violations = multierror.Append(violations, fmt.Errorf("admin email is required"))
	} else if _, err := mail.ParseAddress(adminEmail); err != nil {
		violations = multierror.Append(violations, fmt.Errorf("admin email is not a valid address"))
	}

	if err := dErrors.Validation(violations); err != nil {
		return nil, err
	}

	return &Tenant{
		ID:          tenantID,
		TenancyName: tenancyName,
		DisplayName: displayName,
		AdminEmail:  adminEmail,
		State:       StateRegistered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
