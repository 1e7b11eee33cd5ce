package stockcount

import (
	"context"
	"strings"
	"time"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgBarcodeNotFound = "Item not found with this barcode"

type ScanInput struct {
	SessionID       uint
	Barcode         string
	Quantity        int
	StorageLocation string
	ClientScanID    string
	Notes           string
}

// ScanResult reports business-rule failures in-band so the scanner UI can
// show the reason without treating it as a transport error.
type ScanResult struct {
	Success     bool                `json:"success"`
	Code        string              `json:"code,omitempty"`
	Message     string              `json:"message"`
	Duplicate   bool                `json:"duplicate,omitempty"`
	ScannedItem *models.ScannedItem `json:"scanned_item,omitempty"`
}

func (s *Service) OpenSession(ctx context.Context, actor models.Actor, countID uint, zone string) (*models.ScanningSession, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		session *models.ScanningSession
		count   *models.PhysicalStockCount
		started bool
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		count, err = tx.GetCount(ctx, countID)
		if err != nil {
			return err
		}
		switch count.Status {
		case models.CountStatusCompleted:
			return apperr.Rule(apperr.CodeCountClosed, "Count is already finalized")
		case models.CountStatusCancelled:
			return apperr.Rule(apperr.CodeCountCancelled, "Count is cancelled")
		}

		now := s.now()
		started, err = s.startIfPending(ctx, tx, count, actor, now)
		if err != nil {
			return err
		}

		session = &models.ScanningSession{
			PhysicalStockCountID: countID,
			Status:               models.SessionStatusActive,
			StorageZone:          strings.TrimSpace(zone),
			StartedBy:            actor.ID,
			StartedAt:            now,
		}
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.recordStart(ctx, actor, count, "scanning session opened")
	}
	s.record(ctx, audit.LogOptions{
		Actor:       actor,
		EntityType:  entitySession,
		EntityID:    session.ID,
		Action:      models.AuditActionCreate,
		Description: "scanning session opened",
		After:       session,
	})
	return session, nil
}

// CloseSession completes an active session. Closing an already completed
// session returns it unchanged.
func (s *Service) CloseSession(ctx context.Context, actor models.Actor, id uint) (*models.ScanningSession, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	ok, err := s.store.CloseSession(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		s.record(ctx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entitySession,
			EntityID:    session.ID,
			Action:      models.AuditActionUpdate,
			Description: "scanning session closed",
			After:       session,
		})
	}
	return session, nil
}

// CloseStaleSessions completes active sessions without activity since the
// cutoff. Used by the background sweeper.
func (s *Service) CloseStaleSessions(ctx context.Context, actor models.Actor, idleFor time.Duration) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}

	now := s.now()
	stale, err := s.store.ListStaleSessions(ctx, now.Add(-idleFor))
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, sess := range stale {
		ok, err := s.store.CloseSession(ctx, sess.ID, now)
		if err != nil {
			return closed, err
		}
		if !ok {
			continue
		}
		closed++
		s.record(ctx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entitySession,
			EntityID:    sess.ID,
			Action:      models.AuditActionUpdate,
			Description: "idle scanning session closed",
			Before:      map[string]any{"last_activity": sess.LastActivity()},
		})
	}
	return closed, nil
}

func (s *Service) GetSession(ctx context.Context, id uint) (*models.ScanningSession, error) {
	return s.store.GetSession(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, countID uint) ([]models.ScanningSession, error) {
	if _, err := s.store.GetCount(ctx, countID); err != nil {
		return nil, err
	}
	return s.store.ListSessions(ctx, countID)
}

func (s *Service) ListScans(ctx context.Context, f store.ScanFilter) ([]models.ScannedItem, error) {
	return s.store.ListScans(ctx, f)
}

// Scan records one barcode read against the session's count. It only appends
// evidence; count quantities and inventory levels are left alone.
func (s *Service) Scan(ctx context.Context, actor models.Actor, in ScanInput) (*ScanResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	in.Barcode = strings.TrimSpace(in.Barcode)
	if in.Barcode == "" {
		return nil, apperr.Validation("barcode is required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return nil, apperr.Validation("quantity must be positive")
	}

	var clientID *string
	if in.ClientScanID != "" {
		id, err := uuid.Parse(in.ClientScanID)
		if err != nil {
			return nil, apperr.Validation("client_scan_id must be a uuid")
		}
		normalized := id.String()
		clientID = &normalized

		if prev, ok, err := s.replayedScan(ctx, normalized, in.SessionID); err != nil || ok {
			return prev, err
		}
	}

	session, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.scan(ctx, actor, session, in, clientID)
	if err == nil {
		return result, nil
	}

	if clientID != nil && apperr.HasCode(err, apperr.CodeDuplicate) {
		if prev, ok, lookupErr := s.replayedScan(ctx, *clientID, in.SessionID); lookupErr != nil || ok {
			return prev, lookupErr
		}
	}

	if e, ok := apperr.As(err); ok && e.Kind == apperr.KindBusinessRule {
		s.log.Debug("scan rejected",
			zap.Uint("session_id", in.SessionID),
			zap.String("barcode", in.Barcode),
			zap.String("code", e.Code))
		return &ScanResult{Success: false, Code: e.Code, Message: e.Message}, nil
	}
	return nil, err
}

func (s *Service) scan(ctx context.Context, actor models.Actor, session *models.ScanningSession, in ScanInput, clientID *string) (*ScanResult, error) {
	if session.Status != models.SessionStatusActive {
		return nil, apperr.Rule(apperr.CodeSessionNotActive, "Scanning session is not active")
	}

	count, err := s.store.GetCount(ctx, session.PhysicalStockCountID)
	if err != nil {
		return nil, err
	}
	if count.IsClosed() {
		return nil, apperr.Rule(apperr.CodeCountClosed, "Count is "+string(count.Status)+" and no longer accepts scans")
	}

	item, err := s.store.FindItemByBarcode(ctx, in.Barcode)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Rule(apperr.CodeBarcodeNotFound, msgBarcodeNotFound)
		}
		return nil, err
	}

	line, err := s.store.FindCountItemForInventory(ctx, count.ID, item.ID, strings.TrimSpace(in.StorageLocation))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Rule(apperr.CodeItemNotInCount, "Item is not part of this count")
		}
		return nil, err
	}

	location := strings.TrimSpace(in.StorageLocation)
	if location == "" {
		location = line.StorageLocation
	}

	now := s.now()
	scanned := &models.ScannedItem{
		ScanningSessionID:        session.ID,
		PhysicalStockCountItemID: line.ID,
		InventoryItemID:          item.ID,
		ClientScanID:             clientID,
		Barcode:                  item.Barcode,
		SupplierCode:             item.SupplierCode,
		QuantityScanned:          in.Quantity,
		StorageLocation:          location,
		ScannedBy:                actor.ID,
		ScannedAt:                now,
		Notes:                    in.Notes,
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		ok, err := tx.IncrementSessionScans(ctx, session.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Rule(apperr.CodeSessionNotActive, "Scanning session is not active")
		}
		return tx.CreateScan(ctx, scanned)
	})
	if err != nil {
		return nil, err
	}

	return &ScanResult{
		Success:     true,
		Message:     "Scan recorded",
		ScannedItem: scanned,
	}, nil
}

// replayedScan returns the stored result for a client scan id that was
// already accepted.
// replayedScan resolves a client_scan_id that was already stored. A replay
// from another session is refused rather than answered with foreign evidence.
func (s *Service) replayedScan(ctx context.Context, clientID string, sessionID uint) (*ScanResult, bool, error) {
	prev, err := s.store.FindScanByClientID(ctx, clientID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if prev.ScanningSessionID != sessionID {
		return &ScanResult{
			Success: false,
			Code:    apperr.CodeDuplicate,
			Message: "client_scan_id already used in another session",
		}, true, nil
	}
	return &ScanResult{
		Success:     true,
		Message:     "Scan already recorded",
		Duplicate:   true,
		ScannedItem: prev,
	}, true, nil
}

// VerifyScan marks a scan as checked by a supervisor. Verifying twice keeps
// the first verifier.
func (s *Service) VerifyScan(ctx context.Context, actor models.Actor, scanID uint) (*models.ScannedItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	ok, err := s.store.VerifyScan(ctx, scanID, actor.ID, s.now())
	if err != nil {
		return nil, err
	}
	scan, err := s.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if ok {
		s.record(ctx, audit.LogOptions{
			Actor:       actor,
			EntityType:  entityScan,
			EntityID:    scan.ID,
			Action:      models.AuditActionUpdate,
			Description: "scan verified",
			After:       map[string]any{"verified_by": actor.ID},
		})
	}
	return scan, nil
}
