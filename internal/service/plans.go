package service

import (
	"context"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/plan"
)

// DescribePlan reads the parameters of a plan document and its baseplans.
func (b *Base) DescribePlan(ctx context.Context, path, onfly string) (*plan.Info, error) {
	return b.plans.Describe(ctx, path, onfly)
}

// ResolvePlan renders a plan document. An empty plan name uses the current
// plan.
func (b *Base) ResolvePlan(ctx context.Context, req plan.Request) (*plan.Result, error) {
	if req.Plan == "" {
		req.Plan = b.state.CurrentPlan
	}
	return b.plans.Resolve(ctx, req)
}
