// Package admission implements AdmissionController (spec.md §4.2),
// grounded on the teacher's association/session establishment rejection
// pattern in internal/pfcp/session.go and internal/pfcp/association.go:
// validate preconditions in order, return the first matching cause rather
// than collecting every violation.
package admission

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/logger"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Verdict is the outcome of an admission check.
type Verdict uint8

const (
	VerdictAdmit Verdict = iota
	VerdictReject
	VerdictEvictThenAdmit
)

// Decision is the result of Admit.
type Decision struct {
	Verdict Verdict
	Reason  uci.Reason
	Evict   *session.Session // set when Verdict == VerdictEvictThenAdmit
}

// Controller implements spec.md §4.2's ordered admission checks.
type Controller struct {
	table   *session.Table
	oracle  policy.Oracle
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewController constructs an AdmissionController. burstPerSecond throttles
// how many open-session admissions are evaluated per second, with one
// limiter shared by every chip,
// protecting the EventLoop from an app hammering openRanging in a loop
// (spec.md §5's ordering guarantees assume the loop is never starved).
func NewController(table *session.Table, oracle policy.Oracle, burstPerSecond float64) *Controller {
	return &Controller{
		table:   table,
		oracle:  oracle,
		limiter: rate.NewLimiter(rate.Limit(burstPerSecond), int(burstPerSecond)+1),
		log:     logger.For("admission"),
	}
}

// Candidate is the set of facts Admit needs about the session being
// opened.
type Candidate struct {
	Handle        session.Handle
	ID            uci.SessionID
	Protocol      uci.Protocol
	Chip          uci.ChipID
	Attribution   session.AttributionSource
	StackPriority int
}

// Admit runs spec.md §4.2's ordered checks against an incoming open
// request.
func (c *Controller) Admit(cand Candidate) Decision {
	if !c.limiter.Allow() {
		c.log.Warnf("admission throttled for chip %s", cand.Chip)
		return Decision{Verdict: VerdictReject, Reason: uci.ReasonSystemPolicy}
	}

	if link, ok := cand.Attribution.FirstNonPrivileged(c.oracle); ok {
		if !c.oracle.IsAppForeground(link.UID) && !c.oracle.BackgroundRangingEnabled() {
			return Decision{Verdict: VerdictReject, Reason: uci.ReasonSystemPolicy}
		}
	}

	if c.table.GetByHandle(cand.Handle) != nil || c.table.GetByID(cand.ID) != nil {
		return Decision{Verdict: VerdictReject, Reason: uci.ReasonFromStatus(uci.StatusSessionDuplicate)}
	}

	max := c.oracle.MaxSessionsPerChip(cand.Protocol, cand.Chip)
	if c.table.CountByProtocol(cand.Protocol, cand.Chip) < max {
		return Decision{Verdict: VerdictAdmit}
	}

	if cand.Protocol != uci.ProtocolFiRa {
		return Decision{Verdict: VerdictReject, Reason: uci.ReasonMaxSessionsReached}
	}

	lowest := c.table.SessionWithLowestPriority(cand.Protocol, cand.Chip)
	if lowest == nil || lowest.StackPriority >= cand.StackPriority {
		return Decision{Verdict: VerdictReject, Reason: uci.ReasonMaxSessionsReached}
	}
	return Decision{Verdict: VerdictEvictThenAdmit, Evict: lowest}
}
