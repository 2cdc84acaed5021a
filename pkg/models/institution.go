package models

import "github.com/google/uuid"

// MapKind selects how a mapping rule produces its value.
type MapKind string

const (
	// MapStatic substitutes a fixed value regardless of row content.
	MapStatic MapKind = "static"
	// MapDynamic copies the value of the named source column.
	MapDynamic MapKind = "dynamic"
)

// Canonical transaction fields a mapping rule may target.
const (
	FieldID          = "id"
	FieldDescription = "description"
	FieldDatePending = "datePending"
	FieldDatePosted  = "datePosted"
	FieldAmount      = "amount"
	FieldTax         = "tax"
	FieldCurrency    = "currency"
	FieldMerchant    = "merchant"
	FieldTags        = "tags"
)

// TargetFields is the set of canonical fields mappings may write to.
var TargetFields = map[string]struct{}{
	FieldID:          {},
	FieldDescription: {},
	FieldDatePending: {},
	FieldDatePosted:  {},
	FieldAmount:      {},
	FieldTax:         {},
	FieldCurrency:    {},
	FieldMerchant:    {},
	FieldTags:        {},
}

// FieldMapping is one translation rule from a raw statement column to a
// canonical field. An empty TargetField means the column is ignored. For
// static rules Value carries the substituted literal; on the wire it rides
// in fromField, matching the exported mapping format.
type FieldMapping struct {
	SourceField string  `json:"fromField" yaml:"fromField"`
	TargetField string  `json:"toField" yaml:"toField"`
	Kind        MapKind `json:"mapType" yaml:"mapType"`
	Value       string  `json:"-" yaml:"-"`
}

// StaticValue returns the literal a static rule substitutes.
func (m FieldMapping) StaticValue() string {
	if m.Value != "" {
		return m.Value
	}
	return m.SourceField
}

// Institution is an issuer of statement files together with the rules that
// translate its export columns into the canonical record. Read-only to the
// ingestion pipeline.
type Institution struct {
	ID          string         `json:"institutionId" yaml:"institutionId"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Mappings    []FieldMapping `json:"mappings" yaml:"mappings"`
}

// NewInstitution builds an institution with a generated id.
func NewInstitution(name, description string) *Institution {
	return &Institution{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
}

// AddMapping appends a rule. Validation happens at registration time.
func (i *Institution) AddMapping(source, target string, kind MapKind) *Institution {
	i.Mappings = append(i.Mappings, FieldMapping{SourceField: source, TargetField: target, Kind: kind})
	return i
}
