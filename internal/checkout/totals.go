package checkout

import (
	"github.com/shopspring/decimal"
)

// computeTotals recomputes the derived totals sequence and the per-item tax
// fields in place. Tax applies to the subtotal only (shipping is untaxed) and
// only once a fulfillment address is present.
func computeTotals(session *Session, taxRateBps int64, shipping int64) {
	var subtotal int64
	for i := range session.LineItems {
		item := &session.LineItems[i]
		item.Subtotal = item.BaseAmount - item.Discount
		subtotal += item.Subtotal
	}

	var tax int64
	if session.FulfillmentAddress != nil {
		tax = taxOn(subtotal, taxRateBps)
	}

	allocateTax(session.LineItems, tax)

	session.Totals = []Total{
		{Type: TotalTypeSubtotal, DisplayText: "Subtotal", Amount: subtotal},
		{Type: TotalTypeShipping, DisplayText: "Shipping", Amount: shipping},
		{Type: TotalTypeTax, DisplayText: "Tax", Amount: tax},
		{Type: TotalTypeTotal, DisplayText: "Total", Amount: subtotal + shipping + tax},
	}
}

// taxOn rounds half-up in minor currency units.
func taxOn(subtotal, rateBps int64) int64 {
	rate := decimal.New(rateBps, -4)
	return decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
}

// allocateTax distributes the session tax across line items proportionally to
// their subtotals. The last item absorbs the rounding remainder so that the
// per-item taxes always sum exactly to the session tax.
func allocateTax(items []LineItem, tax int64) {
	if len(items) == 0 {
		return
	}

	var subtotal int64
	for i := range items {
		subtotal += items[i].Subtotal
	}

	var allocated int64
	for i := range items {
		item := &items[i]
		if i == len(items)-1 {
			item.Tax = tax - allocated
		} else if subtotal > 0 {
			share := decimal.NewFromInt(tax).
				Mul(decimal.NewFromInt(item.Subtotal)).
				Div(decimal.NewFromInt(subtotal)).
				Round(0).IntPart()
			item.Tax = share
			allocated += share
		} else {
			item.Tax = 0
		}
		item.Total = item.Subtotal + item.Tax
	}
}
