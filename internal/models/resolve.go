package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ResolveVisibility maps a requested visibility string onto the tagged
// Visibility type. Unknown or empty input resolves to public; any group with
// a monthly cadence is forced private afterwards by ResolveBillingCadence's
// caller, so this function stays a pure string mapping.
func ResolveVisibility(requested string) Visibility {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case string(VisibilityPrivate):
		return VisibilityPrivate
	default:
		return VisibilityPublic
	}
}

// ResolveBillingCadence maps a requested cadence onto the tagged Cadence
// type, keeping the invariant cadence == monthly iff price > 0. The price is
// authoritative: a positive price always yields monthly, a zero price always
// yields free, whatever the caller asked for.
func ResolveBillingCadence(requested string, price decimal.Decimal) Cadence {
	if price.IsPositive() {
		return CadenceMonthly
	}
	_ = requested
	return CadenceFree
}

// ResolveGroupSettings normalizes the visibility/cadence/price triple of a
// settings payload in one place and rejects combinations that violate the
// group invariants. Monthly groups are always private.
func ResolveGroupSettings(s *GroupSettings) (Visibility, Cadence, error) {
	if s.Price.IsNegative() {
		return "", "", &ValidationError{Msg: "price cannot be negative"}
	}
	cadence := ResolveBillingCadence(s.Cadence, s.Price)
	visibility := ResolveVisibility(s.Visibility)
	if cadence == CadenceMonthly {
		if strings.EqualFold(strings.TrimSpace(s.Visibility), string(VisibilityPublic)) {
			return "", "", &ValidationError{Msg: "a monthly-billed group cannot be public"}
		}
		visibility = VisibilityPrivate
	}
	return visibility, cadence, nil
}
