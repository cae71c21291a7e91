package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
)

// Edition is a subscription tier. Its feature defaults apply to every
// tenant on the edition unless masked by a tenant override.
type Edition struct {
	ID          id.EditionID `json:"id"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	CreatedAt   time.Time    `json:"created_at"`
}

// FeatureValue is a (feature-name, value) pair. Both sides are opaque
// strings; interpretation (boolean, integer, enum) is external to this
// core. The owning scope (edition default vs tenant override) is implied
// by which store partition holds the record.
type FeatureValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FeatureMap indexes feature values by name. Within one scope a feature
// name appears at most once, so the map form is lossless.
func FeatureMap(values []FeatureValue) map[string]string {
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[v.Name] = v.Value
	}
	return m
}

// NewEdition builds an edition, collecting every field violation.
func NewEdition(editionID id.EditionID, name, displayName string, now time.Time) (*Edition, error) {
	name = strings.TrimSpace(name)
	displayName = strings.TrimSpace(displayName)

	var violations *multierror.Error
	if name == "" {
		violations = multierror.Append(violations, fmt.Errorf("edition name is required"))
	}
	if displayName == "" {
		displayName = name
	}
	if err := dErrors.Validation(violations); err != nil {
		return nil, err
	}

	return &Edition{
		ID:          editionID,
		Name:        name,
		DisplayName: displayName,
		CreatedAt:   now,
	}, nil
}
