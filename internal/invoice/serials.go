package invoice

import (
	"fmt"
)

// SerialSource resolves serial numbers recorded on linked documents.
type SerialSource interface {
	// DeliveryNoteSerials returns the serial numbers a delivery note line
	// carries for an item.
	DeliveryNoteSerials(dnDetail int64) ([]string, error)
	// InvoiceFor reports which sales invoice, if any, already references the
	// serial number.
	InvoiceFor(serialNo string) (string, error)
}

// validateSerialNumbers checks invoice serials against their delivery note
// source and rejects serials already claimed by another invoice. When a line
// references a delivery note but carries a mismatched serial count, the
// delivery note's serials are adopted.
func (inv *Invoice) validateSerialNumbers(src SerialSource) error {
	for i := range inv.Items {
		item := &inv.Items[i]
		if len(item.SerialNos) == 0 && item.DNDetail == 0 {
			continue
		}

		if item.DNDetail != 0 {
			dnSerials, err := src.DeliveryNoteSerials(item.DNDetail)
			if err != nil {
				return err
			}
			if len(item.SerialNos) != 0 && float64(len(item.SerialNos)) != item.Qty {
				item.SerialNos = dnSerials
			}
			if err := requireSubset(item, dnSerials); err != nil {
				return err
			}
		}

		if len(item.SerialNos) != 0 && float64(len(item.SerialNos)) != item.Qty {
			return fmt.Errorf("%w: row %d: %.0f serial numbers required for item %s, got %d",
				ErrValidation, item.RowNo, item.Qty, item.ItemCode, len(item.SerialNos))
		}

		for _, sn := range item.SerialNos {
			other, err := src.InvoiceFor(sn)
			if err != nil {
				return err
			}
			if other != "" && other != inv.Number {
				return fmt.Errorf("%w: serial number %s is already referenced in sales invoice %s",
					ErrConsistency, sn, other)
			}
		}
	}
	return nil
}

func requireSubset(item *Item, dnSerials []string) error {
	allowed := make(map[string]struct{}, len(dnSerials))
	for _, sn := range dnSerials {
		allowed[sn] = struct{}{}
	}
	for _, sn := range item.SerialNos {
		if _, ok := allowed[sn]; !ok {
			return fmt.Errorf("%w: row %d: serial numbers do not match delivery note %s",
				ErrConsistency, item.RowNo, item.DeliveryNote)
		}
	}
	return nil
}
