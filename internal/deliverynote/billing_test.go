package deliverynote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBillingStore struct {
	lines       map[int64]Line
	lineParents map[int64]string
	soLines     []int64
	directBills map[int64]float64
	soBilled    map[int64]float64

	writtenBilled  map[int64]float64
	writtenPercent map[string]float64
	writtenStatus  map[string]string
}

func newMockBillingStore() *mockBillingStore {
	return &mockBillingStore{
		lines:          make(map[int64]Line),
		lineParents:    make(map[int64]string),
		directBills:    make(map[int64]float64),
		soBilled:       make(map[int64]float64),
		writtenBilled:  make(map[int64]float64),
		writtenPercent: make(map[string]float64),
		writtenStatus:  make(map[string]string),
	}
}

func (m *mockBillingStore) GetLine(ctx context.Context, lineID int64) (*Line, string, error) {
	line, ok := m.lines[lineID]
	if !ok {
		return nil, "", ErrNotFound
	}
	return &line, m.lineParents[lineID], nil
}

func (m *mockBillingStore) LinesForSODetail(ctx context.Context, soDetail int64) ([]Line, []string, error) {
	var lines []Line
	var parents []string
	for _, id := range m.soLines {
		lines = append(lines, m.lines[id])
		parents = append(parents, m.lineParents[id])
	}
	return lines, parents, nil
}

func (m *mockBillingStore) InvoicedAmountForDNLine(ctx context.Context, dnDetail int64) (float64, error) {
	return m.directBills[dnDetail], nil
}

func (m *mockBillingStore) InvoicedAmountForSODetail(ctx context.Context, soDetail int64) (float64, error) {
	return m.soBilled[soDetail], nil
}

func (m *mockBillingStore) SetLineBilledAmount(ctx context.Context, lineID int64, amount float64) error {
	m.writtenBilled[lineID] = amount
	return nil
}

func (m *mockBillingStore) LineBillingTotals(ctx context.Context, noteNumber string) ([]Line, error) {
	var lines []Line
	for id, parent := range m.lineParents {
		if parent != noteNumber {
			continue
		}
		line := m.lines[id]
		if billed, ok := m.writtenBilled[id]; ok {
			line.BilledAmount = billed
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *mockBillingStore) SetBillingPercent(ctx context.Context, noteNumber string, percent float64, status string) error {
	m.writtenPercent[noteNumber] = percent
	m.writtenStatus[noteNumber] = status
	return nil
}

func TestUpdateForDNLineWritesInvoicedSum(t *testing.T) {
	store := newMockBillingStore()
	store.lines[7] = Line{ID: 7, Amount: 100}
	store.lineParents[7] = "DN-000001"
	store.directBills[7] = 60

	svc := NewBillingService(store, 2)
	parent, err := svc.UpdateForDNLine(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "DN-000001", parent)
	assert.Equal(t, 60.0, store.writtenBilled[7])
}

func TestUpdateForDNLineUnknownLine(t *testing.T) {
	svc := NewBillingService(newMockBillingStore(), 2)
	_, err := svc.UpdateForDNLine(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBasedOnSOAllocatesOldestFirst(t *testing.T) {
	store := newMockBillingStore()
	store.lines[1] = Line{ID: 1, Amount: 60}
	store.lines[2] = Line{ID: 2, Amount: 60}
	store.lineParents[1] = "DN-000001"
	store.lineParents[2] = "DN-000002"
	store.soLines = []int64{1, 2}
	store.directBills[1] = 20
	store.soBilled[5] = 70

	svc := NewBillingService(store, 2)
	touched, err := svc.UpdateBasedOnSO(context.Background(), 5)
	require.NoError(t, err)

	// Line 1 fills its remaining 40 first, the rest spills to line 2.
	assert.Equal(t, 60.0, store.writtenBilled[1])
	assert.Equal(t, 30.0, store.writtenBilled[2])
	assert.Equal(t, []string{"DN-000001", "DN-000002"}, touched)
}

func TestUpdateBasedOnSOPreservesDirectBilling(t *testing.T) {
	store := newMockBillingStore()
	store.lines[1] = Line{ID: 1, Amount: 100}
	store.lineParents[1] = "DN-000001"
	store.soLines = []int64{1}
	store.directBills[1] = 100
	store.soBilled[5] = 50

	svc := NewBillingService(store, 2)
	_, err := svc.UpdateBasedOnSO(context.Background(), 5)
	require.NoError(t, err)

	// A fully billed line absorbs nothing from the order allocation.
	assert.Equal(t, 100.0, store.writtenBilled[1])
}

func TestUpdateBasedOnSONoDeliveryLines(t *testing.T) {
	svc := NewBillingService(newMockBillingStore(), 2)
	touched, err := svc.UpdateBasedOnSO(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, touched)
}

func TestUpdateBillingPercentRollsUp(t *testing.T) {
	store := newMockBillingStore()
	store.lines[1] = Line{ID: 1, Amount: 100, BilledAmount: 100}
	store.lines[2] = Line{ID: 2, Amount: 100, BilledAmount: 50}
	store.lineParents[1] = "DN-000001"
	store.lineParents[2] = "DN-000001"

	svc := NewBillingService(store, 2)
	require.NoError(t, svc.UpdateBillingPercent(context.Background(), "DN-000001"))

	assert.Equal(t, 75.0, store.writtenPercent["DN-000001"])
	assert.Equal(t, "Partly Billed", store.writtenStatus["DN-000001"])
}

func TestUpdateBillingPercentCapsOverbilledLines(t *testing.T) {
	store := newMockBillingStore()
	store.lines[1] = Line{ID: 1, Amount: 100, BilledAmount: 130}
	store.lineParents[1] = "DN-000001"

	svc := NewBillingService(store, 2)
	require.NoError(t, svc.UpdateBillingPercent(context.Background(), "DN-000001"))

	assert.Equal(t, 100.0, store.writtenPercent["DN-000001"])
	assert.Equal(t, "Fully Billed", store.writtenStatus["DN-000001"])
}

func TestUpdateBillingPercentEmptyNote(t *testing.T) {
	store := newMockBillingStore()
	svc := NewBillingService(store, 2)
	require.NoError(t, svc.UpdateBillingPercent(context.Background(), "DN-000009"))

	assert.Equal(t, 0.0, store.writtenPercent["DN-000009"])
	assert.Equal(t, "Not Billed", store.writtenStatus["DN-000009"])
}
