package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePaymentsPrunesZeroRowsAndFillsBaseAmounts(t *testing.T) {
	inv := &Invoice{
		ConversionRate: 1.1,
		Precision:      2,
		Payments: []PaymentRow{
			{RowNo: 1, ModeOfPayment: "Cash", Amount: 100},
			{RowNo: 2, ModeOfPayment: "Card", Amount: 0},
			{RowNo: 3, ModeOfPayment: "Voucher", Amount: 50},
		},
	}

	AllocatePayments(inv)

	require.Len(t, inv.Payments, 2)
	assert.Equal(t, 110.0, inv.Payments[0].BaseAmount)
	assert.Equal(t, 55.0, inv.Payments[1].BaseAmount)
	assert.Equal(t, 150.0, inv.PaidAmount)
	assert.Equal(t, 165.0, inv.BasePaidAmount)
}

func TestValidatePOSRejectsNegativePaymentOnSale(t *testing.T) {
	inv := &Invoice{
		IsPOS:     true,
		Precision: 2,
		Payments:  []PaymentRow{{RowNo: 1, Amount: -10}},
	}

	err := inv.validatePOS()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidatePOSReturnRefundCeiling(t *testing.T) {
	inv := &Invoice{
		IsPOS:      true,
		IsReturn:   true,
		Precision:  2,
		GrandTotal: -100,
		PaidAmount: -100,
	}
	assert.NoError(t, inv.validatePOS())

	// A refund covering more than the credited total still clears the raw
	// comparison; every amount on a return is negative.
	inv.PaidAmount = -120
	assert.NoError(t, inv.validatePOS())

	// A refund falling short of the credited total is rejected.
	inv.PaidAmount = -90
	err := inv.validatePOS()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidatePOSPayments(t *testing.T) {
	inv := &Invoice{IsPOS: true}
	assert.ErrorIs(t, inv.validatePOSPayments(), ErrPaymentRequired)

	inv.Payments = []PaymentRow{{RowNo: 1, Amount: 10}}
	assert.NoError(t, inv.validatePOSPayments())

	nonPOS := &Invoice{}
	assert.NoError(t, nonPOS.validatePOSPayments())
}

func TestPaymentShortfall(t *testing.T) {
	inv := &Invoice{
		Precision:    2,
		GrandTotal:   210,
		PaidAmount:   250,
		ChangeAmount: 40,
	}
	assert.Equal(t, 0.0, inv.PaymentShortfall())

	inv.PaidAmount = 200
	inv.ChangeAmount = 0
	assert.Equal(t, 10.0, inv.PaymentShortfall())
}
