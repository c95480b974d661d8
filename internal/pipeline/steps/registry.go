// Package steps defines the build steps, their dependencies, and how to tell
// from a session which steps have completed.
package steps

import (
	"fmt"
	"sort"

	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name     string
	Category string
	// Dependencies must all be complete.
	Dependencies []string
	// AnyOf, when set, needs at least one of its steps complete.
	AnyOf []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	pipeline.StepDiscover: {
		Name:     pipeline.StepDiscover,
		Category: session.CategoryDiscovery,
	},
	pipeline.StepScrape: {
		Name:         pipeline.StepScrape,
		Category:     session.CategoryContent,
		Dependencies: []string{pipeline.StepDiscover},
	},
	pipeline.StepIngest: {
		Name:     pipeline.StepIngest,
		Category: session.CategoryContent,
	},
	pipeline.StepProcess: {
		Name:     pipeline.StepProcess,
		Category: session.CategoryKnowledge,
		AnyOf:    []string{pipeline.StepScrape, pipeline.StepIngest},
	},
	pipeline.StepCombine: {
		Name:         pipeline.StepCombine,
		Category:     session.CategoryKnowledge,
		Dependencies: []string{pipeline.StepProcess},
	},
	pipeline.StepExport: {
		Name:         pipeline.StepExport,
		Category:     session.CategoryExport,
		Dependencies: []string{pipeline.StepCombine},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
	// OneOf lists alternatives of which none has completed.
	OneOf []string
}

func (e *DependencyError) Error() string {
	if len(e.MissingDependencies) == 0 {
		return fmt.Sprintf("%s needs one of: %v", e.Step, e.OneOf)
	}
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// Completed reports whether step has produced output in sess. Export leaves
// nothing in the session and is never complete.
func Completed(sess *session.Session, step string) bool {
	if sess == nil {
		return false
	}
	switch step {
	case pipeline.StepDiscover:
		return sess.Discovery != nil
	case pipeline.StepScrape:
		return len(sess.SiteContent) > 0
	case pipeline.StepIngest:
		return len(sess.Documents) > 0
	case pipeline.StepProcess:
		return len(knowledge.Successful(sess.Processed)) > 0
	case pipeline.StepCombine:
		return sess.Combined != nil && sess.Combined.Processed
	default:
		return false
	}
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(sess *session.Session, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !Completed(sess, dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Step: stepName, MissingDependencies: missing}
	}

	if len(def.AnyOf) > 0 {
		for _, alt := range def.AnyOf {
			if Completed(sess, alt) {
				return nil
			}
		}
		return &DependencyError{Step: stepName, OneOf: def.AnyOf}
	}

	return nil
}

// GetAvailableSteps returns, sorted, the steps whose dependencies are met.
func GetAvailableSteps(sess *session.Session) []string {
	var available []string
	for stepName := range StepRegistry {
		if ValidateDependencies(sess, stepName) == nil {
			available = append(available, stepName)
		}
	}
	sort.Strings(available)
	return available
}

// GetBlockedSteps returns, sorted, the steps whose dependencies are not met.
func GetBlockedSteps(sess *session.Session) []string {
	var blocked []string
	for stepName := range StepRegistry {
		if ValidateDependencies(sess, stepName) != nil {
			blocked = append(blocked, stepName)
		}
	}
	sort.Strings(blocked)
	return blocked
}
