// Package i18n maps error keys raised by domain logic to user-facing
// messages. The core raises keys, never rendered text.
package i18n

// Well-known error keys.
const (
	KeyNoEditionIsSetForTenant = "NoEditionIsSetForTenant"
	KeyTenantNameAlreadyTaken  = "TenantNameAlreadyTaken"
	KeyAdminRoleMissing        = "AdminRoleMissing"
)

var messages = map[string]string{
	KeyNoEditionIsSetForTenant: "No edition is set for this tenant",
	KeyTenantNameAlreadyTaken:  "The tenancy name is already taken",
	KeyAdminRoleMissing:        "The administrative role is missing for this tenant",
}

// Localizer renders error keys. A single built-in locale for now; the
// lookup indirection is the contract the core depends on.
type Localizer struct {
	overrides map[string]string
}

func New() *Localizer {
	return &Localizer{}
}

// WithMessages returns a Localizer that prefers the given renderings.
func (l *Localizer) WithMessages(overrides map[string]string) *Localizer {
	return &Localizer{overrides: overrides}
}

// L renders a key. Unknown keys render as themselves so a missing entry is
// visible rather than silent.
func (l *Localizer) L(key string) string {
	if l.overrides != nil {
		if msg, ok := l.overrides[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
