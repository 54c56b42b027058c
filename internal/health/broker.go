// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"
)

// Pinger reports whether an external broker is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerChecker verifies connectivity to the event broker. An in-process
// broker has nothing to reach, so a nil pinger is always healthy.
type BrokerChecker struct {
	kind   string
	pinger Pinger
}

// NewBrokerChecker creates a checker for broker connectivity.
func NewBrokerChecker(kind string, pinger Pinger) *BrokerChecker {
	return &BrokerChecker{
		kind:   kind,
		pinger: pinger,
	}
}

func (c *BrokerChecker) Name() string {
	return "broker"
}

func (c *BrokerChecker) Check(ctx context.Context) CheckResult {
	if c.pinger == nil {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "in-process broker (" + c.kind + ")",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.pinger.Ping(pingCtx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   err.Error(),
			Message: "broker not reachable",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "broker reachable (" + c.kind + ")",
	}
}
