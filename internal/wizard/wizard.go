// Package wizard defines the fixed order of the assessment wizard steps.
package wizard

import (
	"errors"
	"fmt"
)

// ErrUnknownStep is returned for a route that is not part of the wizard
var ErrUnknownStep = errors.New("unknown wizard step")

// Step is one page of the assessment wizard
type Step struct {
	ID    string `json:"id"`
	Route string `json:"route"`
	Title string `json:"title"`
}

var steps = []Step{
	{ID: "client", Route: "/assessment/client", Title: "Client Information"},
	{ID: "referral", Route: "/assessment/referral", Title: "Reason for Referral"},
	{ID: "background", Route: "/assessment/background", Title: "Background"},
	{ID: "assessments", Route: "/assessment/assessments", Title: "Assessment Tools"},
	{ID: "behaviors", Route: "/assessment/behaviors", Title: "Behaviors of Concern"},
	{ID: "goals", Route: "/assessment/goals", Title: "Treatment Goals"},
	{ID: "services", Route: "/assessment/services", Title: "Service Recommendations"},
	{ID: "review", Route: "/assessment/review", Title: "Review & Export"},
}

// Steps returns the wizard steps in order
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

func indexOf(route string) (int, error) {
	for i, s := range steps {
		if s.Route == route || s.ID == route {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownStep, route)
}

// Next returns the step after route. ok is false on the last step.
func Next(route string) (step Step, ok bool, err error) {
	i, err := indexOf(route)
	if err != nil {
		return Step{}, false, err
	}
	if i == len(steps)-1 {
		return Step{}, false, nil
	}
	return steps[i+1], true, nil
}

// Prev returns the step before route. ok is false on the first step.
func Prev(route string) (step Step, ok bool, err error) {
	i, err := indexOf(route)
	if err != nil {
		return Step{}, false, err
	}
	if i == 0 {
		return Step{}, false, nil
	}
	return steps[i-1], true, nil
}
