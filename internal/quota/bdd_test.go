package quota

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
)

type quotaScenario struct {
	plans    fakePlans
	usage    *fakeUsage
	decision Decision
	err      error
}

func (s *quotaScenario) reset() {
	s.plans = fakePlans{}
	s.usage = &fakeUsage{}
	s.decision = Decision{}
	s.err = nil
}

func (s *quotaScenario) theUserIsOnThePlan(plan string) error {
	s.plans.planID = plan
	return nil
}

func (s *quotaScenario) theUserAlreadyHasProjects(n int) error {
	s.usage.u.Projects = int64(n)
	return nil
}

func (s *quotaScenario) theUserAsksTo(action string, quantity int) error {
	r := &Resolver{Plans: s.plans, Usage: s.usage}
	g := r.ForUser(context.Background(), "user-1")
	s.decision, s.err = g.CanPerformAction(context.Background(), Action(action), int64(quantity))
	return nil
}

func (s *quotaScenario) theActionShouldBeAllowed() error {
	if !s.decision.Allowed {
		return fmt.Errorf("expected allowed, got %+v err=%v", s.decision, s.err)
	}
	return nil
}

func (s *quotaScenario) theActionShouldBeDenied() error {
	if s.decision.Allowed {
		return fmt.Errorf("expected denied, got %+v", s.decision)
	}
	return nil
}

func (s *quotaScenario) theDecisionShouldReportUsageAndLimit(used, limit int) error {
	d := s.decision
	if d.CurrentUsage == nil || d.Limit == nil {
		return fmt.Errorf("usage/limit not populated: %+v", d)
	}
	if *d.CurrentUsage != int64(used) || *d.Limit != int64(limit) {
		return fmt.Errorf("expected usage=%d limit=%d, got usage=%d limit=%d", used, limit, *d.CurrentUsage, *d.Limit)
	}
	return nil
}

func (s *quotaScenario) theCheckShouldReportAnUnknownAction() error {
	if !errors.Is(s.err, ErrUnknownAction) {
		return fmt.Errorf("expected ErrUnknownAction, got %v", s.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	s := &quotaScenario{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})

	ctx.Step(`^the user is on the "([^"]*)" plan$`, s.theUserIsOnThePlan)
	ctx.Step(`^the user already has (\d+) projects$`, s.theUserAlreadyHasProjects)
	ctx.Step(`^the user asks to "([^"]*)" (\d+) times$`, s.theUserAsksTo)
	ctx.Step(`^the action should be allowed$`, s.theActionShouldBeAllowed)
	ctx.Step(`^the action should be denied$`, s.theActionShouldBeDenied)
	ctx.Step(`^the decision should report usage (\d+) and limit (\d+)$`, s.theDecisionShouldReportUsageAndLimit)
	ctx.Step(`^the check should report an unknown action$`, s.theCheckShouldReportAnUnknownAction)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
