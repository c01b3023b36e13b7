package testutil

import "testing"

// Scenario runs Given/When/Then steps as subtests in order. Steps share
// state through closures, so once a step fails the remaining ones are
// skipped rather than run against a broken fixture.
type Scenario struct {
	t      *testing.T
	failed string
}

func NewScenario(t *testing.T) *Scenario {
	t.Helper()
	return &Scenario{t: t}
}

func (s *Scenario) Given(desc string, fn func(t *testing.T)) {
	s.t.Helper()
	s.step("Given "+desc, fn)
}

func (s *Scenario) When(desc string, fn func(t *testing.T)) {
	s.t.Helper()
	s.step("When "+desc, fn)
}

func (s *Scenario) Then(desc string, fn func(t *testing.T)) {
	s.t.Helper()
	s.step("Then "+desc, fn)
}

func (s *Scenario) step(name string, fn func(t *testing.T)) {
	s.t.Helper()
	s.t.Run(name, func(t *testing.T) {
		if s.failed != "" {
			t.Skipf("skipped after failed step %q", s.failed)
		}
		fn(t)
	})
	if s.failed == "" && s.t.Failed() {
		s.failed = name
	}
}
