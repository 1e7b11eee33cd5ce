package stockcount

import (
	"context"
	"math"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Summary struct {
	CountID            uint            `json:"count_id"`
	TotalItems         int             `json:"total_items"`
	PendingItems       int             `json:"pending_items"`
	CountedItems       int             `json:"counted_items"`
	VerifiedItems      int             `json:"verified_items"`
	DiscrepancyItems   int             `json:"discrepancy_items"`
	AdjustedItems      int             `json:"adjusted_items"`
	TotalVarianceValue decimal.Decimal `json:"total_variance_value"`
}

type VarianceLine struct {
	CountItemID        uint            `json:"count_item_id"`
	LineNumber         int             `json:"line_number"`
	InventoryItemID    uint            `json:"inventory_item_id"`
	SupplierCode       string          `json:"supplier_code"`
	Barcode            string          `json:"barcode"`
	Description        string          `json:"description"`
	StorageLocation    string          `json:"storage_location"`
	SystemQuantity     int             `json:"system_quantity"`
	FinalCountQuantity int             `json:"final_count_quantity"`
	Variance           int             `json:"variance"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	VarianceValue      decimal.Decimal `json:"variance_value"`
	DiscrepancyReason  string          `json:"discrepancy_reason"`
	AdjustmentApplied  bool            `json:"adjustment_applied"`
}

type Statistics struct {
	CountID               uint               `json:"count_id"`
	Status                models.CountStatus `json:"status"`
	TotalItems            int                `json:"total_items"`
	ItemsCounted          int                `json:"items_counted"`
	ItemsMatching         int                `json:"items_matching"`
	ProgressPercent       float64            `json:"progress_percent"`
	AccuracyPercent       float64            `json:"accuracy_percent"`
	PositiveVarianceValue decimal.Decimal    `json:"positive_variance_value"`
	NegativeVarianceValue decimal.Decimal    `json:"negative_variance_value"`
	TotalSessions         int                `json:"total_sessions"`
	ActiveSessions        int                `json:"active_sessions"`
	TotalScans            int                `json:"total_scans"`
}

// loadForReport returns the count and its lines. A missing count is an error;
// a storage failure is logged and reported as ok=false so callers degrade to
// empty aggregates.
func (s *Service) loadForReport(ctx context.Context, countID uint, f store.ItemFilter, report string) (*models.PhysicalStockCount, []models.PhysicalStockCountItem, bool, error) {
	count, err := s.store.GetCount(ctx, countID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, nil, false, err
		}
		s.log.Error("report degraded", zap.String("report", report), zap.Uint("count_id", countID), zap.Error(err))
		return nil, nil, false, nil
	}
	items, err := s.store.ListCountItems(ctx, countID, f)
	if err != nil {
		s.log.Error("report degraded", zap.String("report", report), zap.Uint("count_id", countID), zap.Error(err))
		return count, nil, false, nil
	}
	return count, items, true, nil
}

// Summary aggregates line statuses. It never mutates anything.
func (s *Service) Summary(ctx context.Context, countID uint) (*Summary, error) {
	out := &Summary{CountID: countID, TotalVarianceValue: decimal.Zero}

	_, items, ok, err := s.loadForReport(ctx, countID, store.ItemFilter{}, "summary")
	if err != nil {
		return nil, err
	}
	if !ok {
		return out, nil
	}

	out.TotalItems = len(items)
	for _, it := range items {
		switch it.Status {
		case models.CountItemStatusPending:
			out.PendingItems++
		case models.CountItemStatusCounted:
			out.CountedItems++
		case models.CountItemStatusVerified:
			out.VerifiedItems++
		case models.CountItemStatusDiscrepancy:
			out.DiscrepancyItems++
		}
		if it.AdjustmentApplied {
			out.AdjustedItems++
		}
		out.TotalVarianceValue = out.TotalVarianceValue.Add(it.VarianceValue)
	}
	return out, nil
}

// VarianceReport lists lines whose settled variance is non-zero.
func (s *Service) VarianceReport(ctx context.Context, countID uint) ([]VarianceLine, error) {
	_, items, ok, err := s.loadForReport(ctx, countID, store.ItemFilter{OnlyVariance: true}, "variance")
	if err != nil {
		return nil, err
	}
	out := make([]VarianceLine, 0, len(items))
	if !ok {
		return out, nil
	}

	for _, it := range items {
		final := it.ResolveFinalQuantity()
		if it.FinalCountQuantity != nil {
			final = *it.FinalCountQuantity
		}
		out = append(out, VarianceLine{
			CountItemID:        it.ID,
			LineNumber:         it.LineNumber,
			InventoryItemID:    it.InventoryItemID,
			SupplierCode:       it.SupplierCode,
			Barcode:            it.Barcode,
			Description:        it.Description,
			StorageLocation:    it.StorageLocation,
			SystemQuantity:     it.SystemQuantity,
			FinalCountQuantity: final,
			Variance:           it.Variance,
			UnitCost:           it.UnitCost,
			VarianceValue:      it.VarianceValue,
			DiscrepancyReason:  it.DiscrepancyReason,
			AdjustmentApplied:  it.AdjustmentApplied,
		})
	}
	return out, nil
}

// Statistics reports progress while counting is still running: a line
// matches when its latest pass equals the book quantity.
func (s *Service) Statistics(ctx context.Context, countID uint) (*Statistics, error) {
	out := &Statistics{
		CountID:               countID,
		PositiveVarianceValue: decimal.Zero,
		NegativeVarianceValue: decimal.Zero,
	}

	count, items, ok, err := s.loadForReport(ctx, countID, store.ItemFilter{}, "statistics")
	if err != nil {
		return nil, err
	}
	if count != nil {
		out.Status = count.Status
	}
	if !ok {
		return out, nil
	}

	out.TotalItems = len(items)
	for _, it := range items {
		if !it.HasCount() {
			continue
		}
		out.ItemsCounted++
		if it.ResolveFinalQuantity() == it.SystemQuantity {
			out.ItemsMatching++
		}
		switch {
		case it.VarianceValue.IsPositive():
			out.PositiveVarianceValue = out.PositiveVarianceValue.Add(it.VarianceValue)
		case it.VarianceValue.IsNegative():
			out.NegativeVarianceValue = out.NegativeVarianceValue.Add(it.VarianceValue)
		}
	}
	out.ProgressPercent = percent(out.ItemsCounted, out.TotalItems)
	out.AccuracyPercent = percent(out.ItemsMatching, out.ItemsCounted)

	sessions, err := s.store.ListSessions(ctx, countID)
	if err != nil {
		s.log.Error("statistics sessions unavailable", zap.Uint("count_id", countID), zap.Error(err))
		return out, nil
	}
	out.TotalSessions = len(sessions)
	for _, sess := range sessions {
		if sess.Status == models.SessionStatusActive {
			out.ActiveSessions++
		}
		out.TotalScans += sess.TotalScansCompleted
	}
	return out, nil
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
