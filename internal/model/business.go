package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BusinessField is the closed set of updatable BusinessData attributes.
// Unknown fields are rejected at the boundary rather than forwarded into
// storage as arbitrary keys.
type BusinessField string

const (
	FieldCoreValues BusinessField = "core_values"
	FieldPurpose    BusinessField = "purpose"
	FieldVision     BusinessField = "vision"
	FieldGoals      BusinessField = "goals"
)

// ParseBusinessField validates a field name from an external boundary.
func ParseBusinessField(s string) (BusinessField, error) {
	switch f := BusinessField(s); f {
	case FieldCoreValues, FieldPurpose, FieldVision, FieldGoals:
		return f, nil
	default:
		return "", fmt.Errorf("unknown business field %q", s)
	}
}

// ChangeHistoryEntry records one accepted BusinessData mutation.
// Immutable once written; appended atomically with the field update.
type ChangeHistoryEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	UserID        string        `json:"user_id"`
	Field         BusinessField `json:"field"`
	PreviousValue string        `json:"previous_value"`
	NewValue      string        `json:"new_value"`
	Source        string        `json:"source"`
	Confidence    float64       `json:"confidence"`
}

// BusinessData is the shared, versioned business record of a tenant. One
// record per tenant (BusinessID == TenantID), never deleted; the version
// strictly increases on every accepted write.
type BusinessData struct {
	BusinessID    string               `json:"business_id"`
	TenantID      string               `json:"tenant_id"`
	CoreValues    string               `json:"core_values,omitempty"`
	Purpose       string               `json:"purpose,omitempty"`
	Vision        string               `json:"vision,omitempty"`
	Goals         string               `json:"goals,omitempty"`
	Version       string               `json:"version"`
	LastUpdatedBy string               `json:"last_updated_by"`
	ChangeHistory []ChangeHistoryEntry `json:"change_history"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Owner implements tenant.Owned.
func (b *BusinessData) Owner() string {
	return b.TenantID
}

// Value returns the current value of a field.
func (b *BusinessData) Value(f BusinessField) (string, error) {
	switch f {
	case FieldCoreValues:
		return b.CoreValues, nil
	case FieldPurpose:
		return b.Purpose, nil
	case FieldVision:
		return b.Vision, nil
	case FieldGoals:
		return b.Goals, nil
	default:
		return "", fmt.Errorf("unknown business field %q", f)
	}
}

// SetValue assigns a field, rejecting unknown fields.
func (b *BusinessData) SetValue(f BusinessField, v string) error {
	switch f {
	case FieldCoreValues:
		b.CoreValues = v
	case FieldPurpose:
		b.Purpose = v
	case FieldVision:
		b.Vision = v
	case FieldGoals:
		b.Goals = v
	default:
		return fmt.Errorf("unknown business field %q", f)
	}
	return nil
}

// FieldPatch is one accepted write against BusinessData, carrying the audit
// attributes recorded in the change history.
type FieldPatch struct {
	Field      BusinessField
	Value      string
	UpdatedBy  string
	Source     string
	Confidence float64
}

// NextVersion increments a monotonic version string ("" → "v1", "v3" → "v4").
func NextVersion(current string) string {
	n := 0
	if s := strings.TrimPrefix(current, "v"); s != current {
		if parsed, err := strconv.Atoi(s); err == nil {
			n = parsed
		}
	}
	return "v" + strconv.Itoa(n+1)
}
