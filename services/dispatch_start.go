package services

import (
	"context"
	"sync"
	"time"

	"campusbites-telegram/api"

	"github.com/sirupsen/logrus"
)

// dispatchStartAPI is the slice of the backend client the starter needs.
type dispatchStartAPI interface {
	StartDispatch(ctx context.Context, orderID int, req api.DispatchStartRequest) (*api.DispatchStartResponse, error)
}

// StartPolicy controls how long a dispatch start is awaited and what happens
// when it runs out of time. With FailOpen set, a timeout is logged and the
// flow proceeds as if the start succeeded.
type StartPolicy struct {
	Timeout  time.Duration
	FailOpen bool
}

// DispatchStarter fires the dispatch start call for a paid order at most
// once per order per process.
type DispatchStarter struct {
	policy StartPolicy
	log    *logrus.Logger

	mu      sync.Mutex
	started map[int]bool
}

func NewDispatchStarter(policy StartPolicy, log *logrus.Logger) *DispatchStarter {
	return &DispatchStarter{
		policy:  policy,
		log:     log,
		started: make(map[int]bool),
	}
}

// Start kicks off dispatch for the order through the caller's session-scoped
// client. The first call per order wins the latch; later calls return
// immediately with no network activity. The start call races the policy
// timeout: when the timeout fires first and the policy is fail-open, Start
// returns nil and the call is left to finish on its own.
func (s *DispatchStarter) Start(ctx context.Context, backend dispatchStartAPI, orderID int, req api.DispatchStartRequest) error {
	s.mu.Lock()
	if s.started[orderID] {
		s.mu.Unlock()
		return nil
	}
	s.started[orderID] = true
	s.mu.Unlock()

	type outcome struct {
		resp *api.DispatchStartResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := backend.StartDispatch(ctx, orderID, req)
		done <- outcome{resp, err}
	}()

	timer := time.NewTimer(s.policy.Timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			s.log.WithFields(logrus.Fields{"order_id": orderID}).
				WithError(out.err).Warn("dispatch start failed")
			if s.policy.FailOpen {
				return nil
			}
			return out.err
		}
		s.log.WithFields(logrus.Fields{
			"order_id": orderID,
			"status":   out.resp.Status,
			"phase":    out.resp.Phase,
		}).Info("dispatch started")
		return nil
	case <-timer.C:
		s.log.WithFields(logrus.Fields{
			"order_id":   orderID,
			"timeout_ms": s.policy.Timeout.Milliseconds(),
		}).Warn("dispatch start timed out, proceeding")
		if s.policy.FailOpen {
			return nil
		}
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}
