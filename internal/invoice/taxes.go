package invoice

import (
	"context"
	"fmt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// validateTaxCeiling caps flat tax amounts against the referenced sales
// orders: summed over every invoice raised from an order, an Actual charge
// can never exceed what the order carried for that account. Percentage based
// charges scale with the billed amount and are exempt.
func validateTaxCeiling(ctx context.Context, ancestors AncestorPort, inv *Invoice) error {
	orders := referencedOrders(inv)
	if len(orders) == 0 {
		return nil
	}

	requested := make(map[string]float64)
	for _, tax := range inv.Taxes {
		if tax.ChargeType != ChargeTypeActual {
			continue
		}
		requested[tax.AccountHead] += tax.TaxAmountAfterDiscount
	}
	if len(requested) == 0 {
		return nil
	}

	ceiling := make(map[string]float64)
	consumed := make(map[string]float64)
	for _, order := range orders {
		totals, err := ancestors.ActualTaxTotals(ctx, order)
		if err != nil {
			return err
		}
		for account, amount := range totals {
			ceiling[account] += amount
		}
		booked, err := ancestors.InvoicedActualTax(ctx, order, inv.Number, true)
		if err != nil {
			return err
		}
		for account, amount := range booked {
			consumed[account] += amount
		}
	}

	epsilon := shared.RoundingEpsilon(inv.Precision)
	for account, amount := range requested {
		remaining := ceiling[account] - consumed[account]
		if remaining < 0 {
			remaining = 0
		}
		if amount > remaining+epsilon {
			return fmt.Errorf("%w: tax account %s: amount %.2f exceeds the %.2f remaining on the linked sales orders",
				ErrValidation, account, amount, remaining)
		}
	}
	return nil
}

func referencedOrders(inv *Invoice) []string {
	seen := make(map[string]struct{})
	var orders []string
	for _, item := range inv.Items {
		if item.SalesOrder == "" {
			continue
		}
		if _, ok := seen[item.SalesOrder]; ok {
			continue
		}
		seen[item.SalesOrder] = struct{}{}
		orders = append(orders, item.SalesOrder)
	}
	return orders
}
