// Package checkout holds the plan_selection -> auth -> checkout state machine.
// It has no I/O; the service layer persists the step and acts on the results.
package checkout

import (
	"fmt"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
)

// Session describes the caller at the moment a plan is selected
type Session struct {
	Authenticated bool
	HasProfile    bool
}

// Result tells the caller what to do after a transition
type Result struct {
	Step models.CheckoutStep
	// SignOut is set when an authenticated session has no profile.
	// The session must be revoked and the flow restarts at plan selection.
	SignOut bool
}

// Flow is one checkout attempt
type Flow struct {
	Step   models.CheckoutStep
	PlanID string
}

// New starts a flow at plan selection
func New() *Flow {
	return &Flow{Step: models.StepPlanSelection}
}

// Restore rebuilds a flow from a persisted step
func Restore(step models.CheckoutStep, planID string) (*Flow, error) {
	switch step {
	case models.StepPlanSelection, models.StepAuth, models.StepCheckout:
	default:
		return nil, fmt.Errorf("%w: unknown step %q", common.ErrInvalidTransition, step)
	}
	return &Flow{Step: step, PlanID: planID}, nil
}

// SelectPlan records the plan and routes by session state
func (f *Flow) SelectPlan(planID string, s Session) (Result, error) {
	if f.Step != models.StepPlanSelection {
		return Result{Step: f.Step}, fmt.Errorf("%w: select plan from %s", common.ErrInvalidTransition, f.Step)
	}
	if planID == "" {
		return Result{Step: f.Step}, fmt.Errorf("%w: plan_id is required", common.ErrValidation)
	}

	switch {
	case !s.Authenticated:
		f.PlanID = planID
		f.Step = models.StepAuth
	case !s.HasProfile:
		f.PlanID = ""
		f.Step = models.StepPlanSelection
		return Result{Step: f.Step, SignOut: true}, nil
	default:
		f.PlanID = planID
		f.Step = models.StepCheckout
	}
	return Result{Step: f.Step}, nil
}

// Authenticated advances from auth to checkout
func (f *Flow) Authenticated() (Result, error) {
	if f.Step != models.StepAuth {
		return Result{Step: f.Step}, fmt.Errorf("%w: authenticate from %s", common.ErrInvalidTransition, f.Step)
	}
	f.Step = models.StepCheckout
	return Result{Step: f.Step}, nil
}

// Back returns to plan selection from any later step, keeping the chosen plan
func (f *Flow) Back() (Result, error) {
	if f.Step == models.StepPlanSelection {
		return Result{Step: f.Step}, fmt.Errorf("%w: already at plan selection", common.ErrInvalidTransition)
	}
	f.Step = models.StepPlanSelection
	return Result{Step: f.Step}, nil
}

// CanPay reports whether payment may be attempted
func (f *Flow) CanPay() bool {
	return f.Step == models.StepCheckout && f.PlanID != ""
}
