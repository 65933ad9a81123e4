package testutil

import "testing"

// Given, When, and Then frame multi-stage scenario tests, such as seeding a
// case roster, building a profile, and asserting its aggregates, as named
// subtests without a BDD framework.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	step(t, "Then", desc, fn)
}

func step(t *testing.T, stage, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(stage+" "+desc, fn)
}
