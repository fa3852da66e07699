package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jkhalligan/gala-ticket-platform/pkg/enums"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// TableOverride carries a table's custom pricing, when set. A per-seat price
// wins over a custom total; the total is divided across capacity and rounded
// to the nearest cent.
type TableOverride struct {
	SeatPriceCents  *int64
	TotalPriceCents *int64
	Capacity        int
}

// Discount is a validated promotion ready to apply. Validation (windows,
// usage caps) happens in the promos service before pricing sees it.
type Discount struct {
	PromoID uuid.UUID
	Type    enums.DiscountType
	Value   int64
}

// Quote is the fully resolved price for a quantity of seats.
type Quote struct {
	UnitCents     int64
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
	PromoID       *uuid.UUID
}

// ComputePrice resolves the unit price, applies the discount, and floors the
// total at zero. A fixed discount never exceeds the subtotal.
func ComputePrice(basePriceCents int64, quantity int, override *TableOverride, promo *Discount) (Quote, error) {
	if quantity < 1 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if basePriceCents < 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
	}

	unit, err := resolveUnitPrice(basePriceCents, override)
	if err != nil {
		return Quote{}, err
	}

	subtotal := unit * int64(quantity)
	discount, err := computeDiscount(subtotal, promo)
	if err != nil {
		return Quote{}, err
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	quote := Quote{
		UnitCents:     unit,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    total,
	}
	if promo != nil {
		promoID := promo.PromoID
		quote.PromoID = &promoID
	}
	return quote, nil
}

func resolveUnitPrice(basePriceCents int64, override *TableOverride) (int64, error) {
	if override == nil {
		return basePriceCents, nil
	}
	if override.SeatPriceCents != nil {
		if *override.SeatPriceCents < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "seat price must not be negative")
		}
		return *override.SeatPriceCents, nil
	}
	if override.TotalPriceCents != nil {
		if override.Capacity < 1 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "table capacity required for total price override")
		}
		if *override.TotalPriceCents < 0 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "total price must not be negative")
		}
		unit := decimal.NewFromInt(*override.TotalPriceCents).
			Div(decimal.NewFromInt(int64(override.Capacity))).
			Round(0)
		return unit.IntPart(), nil
	}
	return basePriceCents, nil
}

func computeDiscount(subtotalCents int64, promo *Discount) (int64, error) {
	if promo == nil {
		return 0, nil
	}
	if promo.Value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "discount value must not be negative")
	}

	switch promo.Type {
	case enums.DiscountTypePercentage:
		if promo.Value > 100 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
		}
		discount := decimal.NewFromInt(subtotalCents).
			Mul(decimal.NewFromInt(promo.Value)).
			Div(oneHundred).
			Round(0)
		return discount.IntPart(), nil
	case enums.DiscountTypeFixedAmount:
		if promo.Value > subtotalCents {
			return subtotalCents, nil
		}
		return promo.Value, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown discount type")
	}
}
