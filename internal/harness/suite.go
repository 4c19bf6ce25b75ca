package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario references a script
// file that doesn't exist.
type ScenarioNotFoundError struct {
	Scenario     string
	ScriptPath   string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf(
		"scenario %q references script %q which does not exist (resolved to: %s)",
		e.Scenario,
		e.ScriptPath,
		e.ResolvedPath,
	)
}

// SuiteResult contains results from running every scenario in a directory.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Scenario     string `json:"scenario,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// FindScenarios returns the scenario files under path in lexical order. A
// file path is returned as is.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var paths []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario file in paths.
//
// For each path:
// 1. Load the scenario (and check its script exists)
// 2. Run it via RunContext
// 3. Collect and report results
func RunSuite(ctx context.Context, paths []string) *SuiteResult {
	result := &SuiteResult{}

	for _, scenarioPath := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(scenarioPath)
		if err != nil {
			result.fail(ScenarioFailure{
				ScenarioPath: scenarioPath,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		runResult, err := RunContext(ctx, scenario)
		if err != nil {
			result.fail(ScenarioFailure{
				Scenario:     scenario.Name,
				ScenarioPath: scenarioPath,
				Error:        fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		if !runResult.Pass {
			result.fail(ScenarioFailure{
				Scenario:     scenario.Name,
				ScenarioPath: scenarioPath,
				Error:        fmt.Sprintf("scenario assertions failed: %v", runResult.Errors),
			})
			continue
		}

		result.Passed++
	}

	return result
}

func (r *SuiteResult) fail(f ScenarioFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
