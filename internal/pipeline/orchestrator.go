package pipeline

import (
	"context"
	"fmt"

	"citegate/internal/model"
)

// State is one phase of the revision loop.
type State string

const (
	StateDrafting  State = "DRAFTING"
	StateAuditing  State = "AUDITING"
	StatePassed    State = "PASSED"
	StateRevising  State = "REVISING"
	StateEscalated State = "ESCALATED"
)

// DraftFunc produces one draft cycle. prior and guidance are empty on the
// first cycle.
type DraftFunc func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error)

// AuditFunc audits one cycle's ledger.
type AuditFunc func(ctx context.Context, ledger model.ClaimLedger) (*model.AuditReport, error)

// Orchestrator drives the bounded Draft -> Audit -> (Pass | Revise) loop.
// Guidance is carried by value between cycles; the full cycle history is
// retained so an escalation surfaces exactly why automated revision could
// not close the gap.
type Orchestrator struct {
	maxRevisionCycles int
}

// NewOrchestrator creates an orchestrator bounded at maxRevisionCycles
// draft attempts.
func NewOrchestrator(maxRevisionCycles int) *Orchestrator {
	if maxRevisionCycles <= 0 {
		maxRevisionCycles = 3
	}
	return &Orchestrator{maxRevisionCycles: maxRevisionCycles}
}

// Run executes the revision loop. It terminates in at most
// maxRevisionCycles draft attempts: PASSED returns the final ledger and
// report, exhaustion returns an ESCALATED outcome with the full history.
// Cancellation between cycles aborts the run; a started but unaudited draft
// is never a terminal result.
func (o *Orchestrator) Run(ctx context.Context, draftFn DraftFunc, auditFn AuditFunc) (*model.RunOutcome, error) {
	var cycles []model.CycleRecord
	var prior []model.SentenceClaim
	var guidance []model.GuidanceEntry
	var trace []string

	enter := func(s State) {
		trace = append(trace, string(s))
	}

	for cycle := 0; cycle < o.maxRevisionCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled before cycle %d: %w", cycle, err)
		}

		enter(StateDrafting)
		claims, ledger, err := draftFn(ctx, prior, guidance)
		if err != nil {
			return nil, fmt.Errorf("draft cycle %d: %w", cycle, err)
		}

		enter(StateAuditing)
		report, err := auditFn(ctx, ledger)
		if err != nil {
			return nil, fmt.Errorf("audit cycle %d: %w", cycle, err)
		}

		cycles = append(cycles, model.CycleRecord{
			Cycle:  cycle,
			Ledger: ledger,
			Audit:  report,
		})

		if report.Status == model.AuditStatusPass {
			enter(StatePassed)
			return &model.RunOutcome{
				Status:     model.RunStatusPass,
				Narrative:  claims,
				Ledger:     &ledger,
				Audit:      report,
				Cycles:     cycles,
				StateTrace: trace,
			}, nil
		}

		if cycle+1 < o.maxRevisionCycles {
			enter(StateRevising)
			prior = claims
			guidance = report.Guidance
		}
	}

	enter(StateEscalated)
	return &model.RunOutcome{
		Status:                model.RunStatusEscalated,
		Cycles:                cycles,
		MaxRevisionsExhausted: true,
		StateTrace:            trace,
	}, nil
}
