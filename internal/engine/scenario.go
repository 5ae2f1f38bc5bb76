package engine

import (
	"fmt"
	"strings"
)

// Scenario is the remote policy applied during a scheduled cycle.
type Scenario string

const (
	// ScenarioFavorable attempts only the non-destructive pull/merge/push.
	ScenarioFavorable Scenario = "FAVORABLE"
	// ScenarioForce overwrites the remote branch with the local one.
	ScenarioForce Scenario = "FORCE"
	// ScenarioAll attempts a favorable sync and forces only when it fails.
	ScenarioAll Scenario = "ALL"

	DefaultScenario = ScenarioAll
)

var scenarios = []Scenario{ScenarioFavorable, ScenarioForce, ScenarioAll}

// ParseScenario accepts a scenario name case-insensitively. Empty selects
// DefaultScenario.
func ParseScenario(raw string) (Scenario, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return DefaultScenario, nil
	}
	for _, s := range scenarios {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("unsupported scenario %q (must be one of: FAVORABLE, FORCE, ALL)", raw)
}

func (s Scenario) String() string { return string(s) }
