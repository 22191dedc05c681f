package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const countServiceName = "stock_count"

// StockCountService runs cycle counts. Sessions lock no stock; accepted
// variances become adjustment movements through the ledger.
type StockCountService struct {
	runner *txn.Runner
	logger *zap.Logger
	clock  func() time.Time
}

// NewStockCountService creates a new StockCountService
func NewStockCountService(runner *txn.Runner, logger *zap.Logger) *StockCountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockCountService{runner: runner, logger: logger, clock: time.Now}
}

// SetClock overrides the time source
func (s *StockCountService) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

func (s *StockCountService) now() time.Time {
	return s.clock().UTC()
}

func requireStockKeeper(actor identity.Actor) error {
	if !actor.Can(identity.RoleStockKeeper) {
		return shared.NewDomainError(shared.CodeNotAuthorized, "Only a stock keeper can run cycle counts")
	}
	return nil
}

// runCount wraps a count operation in a span and a transaction
func runCount[T any](ctx context.Context, s *StockCountService, method string, actor identity.Actor, key string, fn func(ctx context.Context, tx *txn.Tx) (T, error)) (*T, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, countServiceName, method,
		telemetry.WithAttribute(telemetry.SpanAttrActorID, actor.ID()))
	defer span.End()

	if err := requireStockKeeper(actor); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	op := txn.Operation{Name: countServiceName + "." + method, ActorID: actor.ID(), Key: key}
	resp, replayed, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (T, error) {
		return fn(ctx, tx)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Cycle count operation rejected",
			zap.String("operation", method),
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrReplayed, replayed)
	telemetry.SetOK(span)
	return &resp, nil
}

// OpenSession starts a count at an active warehouse. The session expects one
// line per sellable bin plus one for units outside any bin; the DAMAGED
// quarantine bin is not counted.
func (s *StockCountService) OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	resp, err := runCount(ctx, s, "open_session", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (SessionResponse, error) {
		wh, err := tx.Warehouses().FindByID(ctx, req.WarehouseID)
		if err != nil {
			return SessionResponse{}, err
		}
		if err := wh.EnsureActive(); err != nil {
			return SessionResponse{}, err
		}
		records, err := tx.Records().FindByWarehouse(ctx, wh.ID)
		if err != nil {
			return SessionResponse{}, err
		}
		session, err := inventory.NewCountSession(wh.ID, req.Actor.ID(), inventory.CountLines(records), s.now())
		if err != nil {
			return SessionResponse{}, err
		}
		if err := tx.CountSessions().Create(ctx, session); err != nil {
			return SessionResponse{}, err
		}
		return ToSessionResponse(session), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Count session opened",
		zap.Int64("session_id", resp.ID),
		zap.Int64("warehouse_id", resp.WarehouseID),
		zap.Int("lines", len(resp.Records)),
	)
	return resp, nil
}

// RecordCount stores a physical count. The system quantity is read from the
// ledger at the time of counting, so stock moving during a session is not
// reported as variance.
func (s *StockCountService) RecordCount(ctx context.Context, req RecordCountRequest) (*CountRecordResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(req.Bin), inventory.DamagedBin) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "The DAMAGED bin is not part of cycle counts")
	}

	out, err := runCount(ctx, s, "record_count", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (CountRecordResponse, error) {
		session, err := tx.CountSessions().LockByID(ctx, req.SessionID)
		if err != nil {
			return CountRecordResponse{}, err
		}
		if err := session.EnsureOpen(); err != nil {
			return CountRecordResponse{}, err
		}
		if _, err := tx.Products().FindByID(ctx, req.ProductID); err != nil {
			return CountRecordResponse{}, err
		}
		system, err := inventory.NewLedger(txn.LedgerStore(tx)).CountableBalance(ctx, inventory.BalanceKey{
			ProductID:   req.ProductID,
			WarehouseID: session.WarehouseID,
			Bin:         req.Bin,
		})
		if err != nil {
			return CountRecordResponse{}, err
		}
		rec, err := session.Record(req.ProductID, req.Bin, system, req.Counted, req.Condition, req.Notes, req.Actor.ID(), s.now())
		if err != nil {
			return CountRecordResponse{}, err
		}
		if err := tx.CountSessions().Save(ctx, session); err != nil {
			return CountRecordResponse{}, err
		}
		return ToCountRecordResponse(rec), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Count recorded",
		zap.Int64("session_id", req.SessionID),
		zap.Int64("product_id", req.ProductID),
		zap.Int64("counted", req.Counted),
		zap.Int64("variance", out.varianceOrZero()),
	)
	return out, nil
}

// SkipLine marks an expected line as deliberately not counted
func (s *StockCountService) SkipLine(ctx context.Context, req SkipLineRequest) (*SessionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return runCount(ctx, s, "skip_line", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (SessionResponse, error) {
		session, err := tx.CountSessions().LockByID(ctx, req.SessionID)
		if err != nil {
			return SessionResponse{}, err
		}
		if _, err := session.Skip(req.ProductID, req.Bin, req.Reason, req.Actor.ID(), s.now()); err != nil {
			return SessionResponse{}, err
		}
		if err := tx.CountSessions().Save(ctx, session); err != nil {
			return SessionResponse{}, err
		}
		return ToSessionResponse(session), nil
	})
}

// AcceptVariance applies the variance of one record to the ledger
func (s *StockCountService) AcceptVariance(ctx context.Context, req ResolveVarianceRequest) (*SessionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return runCount(ctx, s, "accept_variance", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (SessionResponse, error) {
		session, err := s.lockOwningSession(ctx, tx, req.RecordID)
		if err != nil {
			return SessionResponse{}, err
		}
		rec, err := session.FindRecord(req.RecordID)
		if err != nil {
			return SessionResponse{}, err
		}
		ledger := inventory.NewLedger(txn.LedgerStore(tx), inventory.WithClock(s.clock))
		if err := s.accept(ctx, ledger, session, rec, req.Actor); err != nil {
			return SessionResponse{}, err
		}
		if err := tx.CountSessions().Save(ctx, session); err != nil {
			return SessionResponse{}, err
		}
		tx.Collect(ledger.Events()...)
		return ToSessionResponse(session), nil
	})
}

// AcceptAllVariances applies every pending variance of a session in lock order
func (s *StockCountService) AcceptAllVariances(ctx context.Context, sessionID int64, actor identity.Actor, idempotencyKey string) (*SessionResponse, error) {
	return runCount(ctx, s, "accept_all_variances", actor, idempotencyKey, func(ctx context.Context, tx *txn.Tx) (SessionResponse, error) {
		session, err := tx.CountSessions().LockByID(ctx, sessionID)
		if err != nil {
			return SessionResponse{}, err
		}
		if err := session.EnsureOpen(); err != nil {
			return SessionResponse{}, err
		}
		ledger := inventory.NewLedger(txn.LedgerStore(tx), inventory.WithClock(s.clock))
		for _, rec := range session.PendingVariances() {
			if err := s.accept(ctx, ledger, session, rec, actor); err != nil {
				return SessionResponse{}, err
			}
		}
		if err := tx.CountSessions().Save(ctx, session); err != nil {
			return SessionResponse{}, err
		}
		tx.Collect(ledger.Events()...)
		return ToSessionResponse(session), nil
	})
}

func (s *StockCountService) accept(ctx context.Context, ledger *inventory.Ledger, session *inventory.CountSession, rec *inventory.PhysicalCountRecord, actor identity.Actor) error {
	if !rec.IsCounted() || rec.Resolution != inventory.ResolutionPending {
		// Accept reports the precise state error
		return rec.Accept(nil, actor.ID(), s.now())
	}
	variance := rec.VarianceValue()
	if variance == 0 {
		return rec.Accept(nil, actor.ID(), s.now())
	}
	m, err := ledger.Adjust(ctx, inventory.AdjustRequest{
		ProductID:     rec.ProductID,
		WarehouseID:   session.WarehouseID,
		Bin:           rec.Bin,
		Delta:         variance,
		Reason:        inventory.AdjustmentReason(session.ID),
		Reference:     strconv.FormatInt(session.ID, 10),
		ReferenceKind: inventory.ReferenceCountSession,
		Actor:         actor,
	})
	if err != nil {
		return fmt.Errorf("apply variance of count record %d: %w", rec.ID, err)
	}
	id := m.ID
	return rec.Accept(&id, actor.ID(), s.now())
}

// RejectVariance leaves the balance untouched and records why
func (s *StockCountService) RejectVariance(ctx context.Context, req ResolveVarianceRequest) (*SessionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "reason: is required")
	}
	return runCount(ctx, s, "reject_variance", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (SessionResponse, error) {
		session, err := s.lockOwningSession(ctx, tx, req.RecordID)
		if err != nil {
			return SessionResponse{}, err
		}
		rec, err := session.FindRecord(req.RecordID)
		if err != nil {
			return SessionResponse{}, err
		}
		if err := rec.Reject(req.Reason, req.Actor.ID(), s.now()); err != nil {
			return SessionResponse{}, err
		}
		if err := tx.CountSessions().Save(ctx, session); err != nil {
			return SessionResponse{}, err
		}
		return ToSessionResponse(session), nil
	})
}

// CloseSession closes a fully resolved session
func (s *StockCountService) CloseSession(ctx context.Context, req CloseSessionRequest) (*SessionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	resp, err := runCount(ctx, s, "close_session", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (SessionResponse, error) {
		session, err := tx.CountSessions().LockByID(ctx, req.SessionID)
		if err != nil {
			return SessionResponse{}, err
		}
		if err := session.Close(req.Actor.ID(), s.now()); err != nil {
			return SessionResponse{}, err
		}
		if err := tx.CountSessions().Save(ctx, session); err != nil {
			return SessionResponse{}, err
		}
		tx.CollectFrom(session)
		return ToSessionResponse(session), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Count session closed", zap.Int64("session_id", resp.ID), zap.Int64("warehouse_id", resp.WarehouseID))
	return resp, nil
}

// GetSession loads a session with its records
func (s *StockCountService) GetSession(ctx context.Context, sessionID int64) (*SessionResponse, error) {
	var resp SessionResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		session, err := repos.CountSessions().FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		resp = ToSessionResponse(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// OpenSessions lists the open sessions of a warehouse
func (s *StockCountService) OpenSessions(ctx context.Context, warehouseID int64) ([]SessionResponse, error) {
	var out []SessionResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		sessions, err := repos.CountSessions().FindOpenByWarehouse(ctx, warehouseID)
		if err != nil {
			return err
		}
		out = make([]SessionResponse, len(sessions))
		for i := range sessions {
			out[i] = ToSessionResponse(&sessions[i])
		}
		return nil
	})
	return out, err
}

func (s *StockCountService) lockOwningSession(ctx context.Context, tx *txn.Tx, recordID int64) (*inventory.CountSession, error) {
	sessionID, err := tx.CountSessions().FindSessionIDByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	session, err := tx.CountSessions().LockByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.EnsureOpen(); err != nil {
		return nil, err
	}
	return session, nil
}
