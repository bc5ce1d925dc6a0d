package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bagisva/vpos-gateway/internal/domain"
	"github.com/bagisva/vpos-gateway/internal/gateway"
)

// CallbackService finalizes payment sessions from bank return callbacks.
// Banks deliver callbacks at least once, so processing is idempotent: the
// first callback to close the session wins, every later delivery is logged
// and rejected as a replay without touching the stored outcome.
type CallbackService struct {
	orders   OrderRepository
	sessions SessionRepository
	tx       TransactionCoordinator
	adapters map[domain.GatewayKind]gateway.Adapter
	logger   *slog.Logger

	// Per-order locks serialize concurrent callbacks for the same order.
	// Callbacks for different orders proceed in parallel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCallbackService(
	orders OrderRepository,
	sessions SessionRepository,
	tx TransactionCoordinator,
	adapters map[domain.GatewayKind]gateway.Adapter,
	logger *slog.Logger,
) *CallbackService {
	return &CallbackService{
		orders:   orders,
		sessions: sessions,
		tx:       tx,
		adapters: adapters,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// CallbackReceipt is the result of processing one bank callback. For a
// replayed delivery it carries the originally stored outcome, so the REST
// edge can acknowledge the bank without re-running anything.
type CallbackReceipt struct {
	Order    *domain.Order
	Outcome  *domain.Outcome
	Replayed bool
}

// Process interprets and applies one bank callback posted to the named
// gateway's return endpoint. The raw form fields are interpreted by the
// adapter first, without side effects, so a forged or malformed callback
// is rejected before any state is read.
func (s *CallbackService) Process(ctx context.Context, kind domain.GatewayKind, fields map[string]string) (*CallbackReceipt, error) {
	adapter, ok := s.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for gateway %s", kind)
	}

	result, err := adapter.InterpretCallback(fields)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(result.OrderID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.FindByOrderID(ctx, result.OrderID)
	if err != nil {
		return nil, err
	}

	if session.Gateway != kind {
		return nil, domain.NewValidationError("gateway",
			fmt.Sprintf("callback for %s session delivered to %s endpoint", session.Gateway, kind))
	}

	if session.IsTerminal() {
		s.logger.Warn("replayed callback ignored",
			"order_id", result.OrderID,
			"gateway", kind,
			"session_state", session.State,
		)
		s.releaseLock(result.OrderID)
		return s.replayReceipt(ctx, result.OrderID), domain.ErrReplayDetected
	}

	if err := session.ReceiveCallback(time.Now()); err != nil {
		return nil, err
	}
	if err := session.Close(result.Outcome); err != nil {
		return nil, err
	}

	// The session close and the order status update commit together. The
	// compare-and-set inside decides the winner; losing it must not leave a
	// half-written order behind.
	var (
		closed bool
		order  *domain.Order
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, orders OrderRepository, sessions SessionRepository) error {
		var txErr error
		closed, txErr = sessions.CloseSession(ctx, session)
		if txErr != nil {
			return fmt.Errorf("close payment session: %w", txErr)
		}
		if !closed {
			return nil
		}

		order, txErr = orders.FindByOrderID(ctx, result.OrderID)
		if txErr != nil {
			return txErr
		}

		if result.Outcome.Verified {
			txErr = order.Succeed()
		} else {
			txErr = order.Fail()
		}
		if txErr != nil {
			if errors.Is(txErr, domain.ErrInvalidTransition) {
				return nil
			}
			return txErr
		}
		return orders.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if !closed {
		// A concurrent delivery on another instance won the compare-and-set.
		s.logger.Warn("replayed callback lost session close race",
			"order_id", result.OrderID,
			"gateway", kind,
		)
		s.releaseLock(result.OrderID)
		return s.replayReceipt(ctx, result.OrderID), domain.ErrReplayDetected
	}

	s.releaseLock(result.OrderID)
	s.logVerdict(result.OrderID, kind, result.Outcome)

	return &CallbackReceipt{Order: order, Outcome: result.Outcome}, nil
}

// replayReceipt rebuilds the receipt from the stored terminal state. Best
// effort: a nil return means the caller answers with the replay error alone.
func (s *CallbackService) replayReceipt(ctx context.Context, orderID string) *CallbackReceipt {
	session, err := s.sessions.FindByOrderID(ctx, orderID)
	if err != nil || session.Outcome == nil {
		return nil
	}
	order, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil
	}
	return &CallbackReceipt{Order: order, Outcome: session.Outcome, Replayed: true}
}

func (s *CallbackService) logVerdict(orderID string, kind domain.GatewayKind, outcome *domain.Outcome) {
	if outcome.Verified {
		s.logger.Info("payment verified",
			"order_id", orderID,
			"gateway", kind,
			"auth_strength", outcome.AuthStrengthCode,
			"response_code", outcome.ResponseCode,
			"auth_code", outcome.AuthCode,
			"transaction_id", outcome.TransactionID,
		)
		return
	}
	s.logger.Info("payment rejected",
		"order_id", orderID,
		"gateway", kind,
		"reason", outcome.Reason,
		"auth_strength", outcome.AuthStrengthCode,
		"response_code", outcome.ResponseCode,
		"response_message", outcome.ResponseMessage,
	)
}

func (s *CallbackService) lockFor(orderID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[orderID] = lock
	}
	return lock
}

// releaseLock drops the per-order mutex once the session is terminal, so
// the map does not grow with every order ever processed. A waiter that
// still holds the old mutex is fine: exactly-once closing rests on the
// CloseSession compare-and-set, and a late delivery finds a terminal
// session either way.
func (s *CallbackService) releaseLock(orderID string) {
	s.mu.Lock()
	delete(s.locks, orderID)
	s.mu.Unlock()
}
