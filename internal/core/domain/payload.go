package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The types below mirror the externally owned extraction schema. The
// engine validates extractor output against them but never edits the
// values: extraction prompts forbid arithmetic, and the engine does not
// post-process or "fix" numeric fields.

// FlexNumber holds a value the schema allows as either a JSON number or
// a string. Disclosures quote amounts inconsistently ("1 500 000",
// 1500000, "3.2%"), so the contract accepts both and preserves the
// original token.
type FlexNumber struct {
	Raw json.RawMessage
}

// UnmarshalJSON accepts a number, a string, or null.
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		n.Raw = nil
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return fmt.Errorf("expected number or string: %w", err)
		}
	}
	n.Raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// MarshalJSON writes the original token unchanged.
func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if n.Raw == nil {
		return []byte("null"), nil
	}
	return n.Raw, nil
}

// IsSet reports whether a value was present.
func (n FlexNumber) IsSet() bool {
	return n.Raw != nil
}

// Investor is one entry in the investors list field. Identity for
// merge deduplication is the exact (Name, Level) pair; no fuzzy name
// matching is applied.
type Investor struct {
	Name               string      `json:"name"`
	AmountInCash       *FlexNumber `json:"amount_in_cash,omitempty"`
	AmountInPercentage *FlexNumber `json:"amount_in_percentage,omitempty"`
	Level              *int        `json:"level,omitempty"`
}

// IdentityKey returns the exact-match deduplication key.
func (i Investor) IdentityKey() string {
	level := -1
	if i.Level != nil {
		level = *i.Level
	}
	return fmt.Sprintf("%s\x00%d", i.Name, level)
}

// ImportantDates groups the event timeline of an issue.
type ImportantDates struct {
	RecordDate      *string `json:"record_date,omitempty"`
	SubStartDate    *string `json:"sub_start_date,omitempty"`
	SubEndDate      *string `json:"sub_end_date,omitempty"`
	IncRightsDate   *string `json:"inc_rights_date,omitempty"`
	ExRightsDate    *string `json:"ex_rights_date,omitempty"`
	RightsStartDate *string `json:"rights_start_date,omitempty"`
	RightsEndDate   *string `json:"rights_end_date,omitempty"`
}

// OfferingTerms describes the mechanics of a rights issue.
type OfferingTerms struct {
	SharesRequired *int        `json:"shares_required,omitempty"`
	RightsReceived *int        `json:"rights_received,omitempty"`
	RightsRequired *int        `json:"rights_required,omitempty"`
	UnitsReceived  *int        `json:"units_received,omitempty"`
	SharesInUnit   *int        `json:"shares_in_unit,omitempty"`
	UnitSubPrice   *FlexNumber `json:"unit_sub_price,omitempty"`
	OfferedUnits   *FlexNumber `json:"offered_units,omitempty"`
}

// OfferingOutcome describes the published subscription result.
type OfferingOutcome struct {
	UnitSubTotalPct      *FlexNumber `json:"unit_sub_total_pct,omitempty"`
	UnitSubTotalCount    *FlexNumber `json:"unit_sub_total_count,omitempty"`
	TotalAmountMSEK      *FlexNumber `json:"total_amount_msek,omitempty"`
	PctWithRights        *FlexNumber `json:"pct_with_rights,omitempty"`
	PctWithoutRights     *FlexNumber `json:"pct_without_rights,omitempty"`
	PctGuarantor         *FlexNumber `json:"pct_guarantor,omitempty"`
	UnitSubWithRights    *FlexNumber `json:"unit_sub_with_rights,omitempty"`
	UnitSubWithoutRights *FlexNumber `json:"unit_sub_without_rights,omitempty"`
	UnitSubGuarantor     *FlexNumber `json:"unit_sub_guarantor,omitempty"`
}

// GeneralInfo carries issue identifiers stated in the disclosure.
type GeneralInfo struct {
	ISINUnits  *string `json:"isin_units,omitempty"`
	ISINRights *string `json:"isin_rights,omitempty"`
}

// ValidatePayload checks raw extractor output against the schema type
// for the given field. Unknown keys and type mismatches are rejected
// with ErrSchemaValidation; validation failure is recoverable and is
// recorded per (document, field), never silently coerced.
func ValidatePayload(field ExtractionField, payload json.RawMessage) error {
	var target any
	switch field {
	case FieldInvestors:
		target = &[]Investor{}
	case FieldImportantDates:
		target = &ImportantDates{}
	case FieldOfferingTerms:
		target = &OfferingTerms{}
	case FieldOfferingOutcome:
		target = &OfferingOutcome{}
	case FieldGeneralInfo:
		target = &GeneralInfo{}
	default:
		// Fields added through configuration alone carry free-form
		// payloads; require well-formed JSON only.
		target = &map[string]any{}
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: field %s: %v", ErrSchemaValidation, field, err)
	}
	return nil
}
