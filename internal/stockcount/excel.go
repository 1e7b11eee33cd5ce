package stockcount

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/xuri/excelize/v2"
)

const varianceSheet = "Variance"

var varianceHeader = []interface{}{
	"Line", "Barcode", "Supplier Code", "Description", "Location",
	"System Qty", "Counted Qty", "Variance", "Unit Cost", "Variance Value", "Reason", "Adjusted",
}

// ExportVarianceReport renders the variance report as an xlsx workbook.
func (s *Service) ExportVarianceReport(ctx context.Context, countID uint) ([]byte, string, error) {
	count, err := s.store.GetCount(ctx, countID)
	if err != nil {
		return nil, "", err
	}
	lines, err := s.VarianceReport(ctx, countID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", varianceSheet); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(varianceSheet, "A1", &varianceHeader); err != nil {
		return nil, "", fmt.Errorf("write header: %w", err)
	}

	for i, l := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		row := []interface{}{
			l.LineNumber,
			l.Barcode,
			l.SupplierCode,
			l.Description,
			l.StorageLocation,
			l.SystemQuantity,
			l.FinalCountQuantity,
			l.Variance,
			l.UnitCost.InexactFloat64(),
			l.VarianceValue.InexactFloat64(),
			l.DiscrepancyReason,
			l.AdjustmentApplied,
		}
		if err := f.SetSheetRow(varianceSheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), count.CountNumber + "-variance.xlsx", nil
}

type UnmatchedRow struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Recorded  int            `json:"recorded"`
	Unmatched []UnmatchedRow `json:"unmatched"`
}

// ImportCountSheet records one pass from a count sheet. Column A is the line
// number, column B the counted quantity; a non-numeric first row is treated as
// a header. Rows that cannot be applied are reported, the rest are recorded in
// one transaction.
func (s *Service) ImportCountSheet(ctx context.Context, actor models.Actor, countID uint, pass models.CountPass, r io.Reader) (*ImportResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !pass.Valid() {
		return nil, apperr.Validation("pass must be first or second")
	}

	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("could not read xlsx file: " + err.Error())
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("could not read sheet: " + err.Error())
	}

	type lineChange struct {
		id            uint
		before, after map[string]any
	}
	var (
		count   *models.PhysicalStockCount
		changes []lineChange
		started bool
	)
	result := &ImportResult{Unmatched: make([]UnmatchedRow, 0)}
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, err = tx.GetCount(ctx, countID)
		if err != nil {
			return err
		}
		if count.IsClosed() {
			return apperr.Rule(apperr.CodeCountClosed, "Count is "+string(count.Status)+" and no longer accepts counts")
		}

		items, err := tx.ListCountItems(ctx, countID, store.ItemFilter{})
		if err != nil {
			return err
		}
		byLine := make(map[int]*models.PhysicalStockCountItem, len(items))
		for i := range items {
			byLine[items[i].LineNumber] = &items[i]
		}

		seen := make(map[int]bool)
		for i, row := range rows {
			rowNo := i + 1
			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				continue
			}

			raw := strings.TrimSpace(row[0])
			line, err := strconv.Atoi(raw)
			if err != nil {
				if i == 0 {
					continue // header
				}
				result.Unmatched = append(result.Unmatched, UnmatchedRow{Row: rowNo, Value: raw, Reason: "line number is not a number"})
				continue
			}
			if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
				result.Unmatched = append(result.Unmatched, UnmatchedRow{Row: rowNo, Value: raw, Reason: "quantity missing"})
				continue
			}
			qty, err := strconv.Atoi(strings.TrimSpace(row[1]))
			if err != nil || qty < 0 {
				result.Unmatched = append(result.Unmatched, UnmatchedRow{Row: rowNo, Value: row[1], Reason: "quantity must be a non-negative integer"})
				continue
			}

			item, ok := byLine[line]
			if !ok {
				result.Unmatched = append(result.Unmatched, UnmatchedRow{Row: rowNo, Value: raw, Reason: "line not on this count"})
				continue
			}
			if seen[line] {
				result.Unmatched = append(result.Unmatched, UnmatchedRow{Row: rowNo, Value: raw, Reason: "line repeated in sheet"})
				continue
			}
			seen[line] = true

			before := countSnapshot(item)
			ok, err = s.recordCountTx(ctx, tx, actor, count, item, pass, qty)
			if err != nil {
				if e, isRule := apperr.As(err); isRule && e.Kind == apperr.KindBusinessRule {
					result.Unmatched = append(result.Unmatched, UnmatchedRow{Row: rowNo, Value: raw, Reason: e.Message})
					continue
				}
				return err
			}
			started = started || ok
			changes = append(changes, lineChange{id: item.ID, before: before, after: countSnapshot(item)})
			result.Recorded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.recordStart(ctx, actor, count, "count sheet imported")
	}
	for _, c := range changes {
		s.record(ctx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityCountItem,
			EntityID:    c.id,
			Action:      models.AuditActionCount,
			Description: fmt.Sprintf("%s count imported", pass),
			Before:      c.before,
			After:       c.after,
		})
	}
	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entityCount,
		EntityID:    countID,
		Action:      models.AuditActionCount,
		Description: fmt.Sprintf("%s count sheet imported", pass),
		After:       map[string]any{"recorded": result.Recorded, "unmatched": len(result.Unmatched)},
	})
	return result, nil
}
