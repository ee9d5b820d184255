package preflight

import (
	"fmt"
	"strings"

	"karaoke/internal/config"
	"karaoke/internal/deps"
)

// Result captures the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckBinaries verifies the configured external binaries are resolvable.
func CheckBinaries(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available}
		if status.Available {
			result.Detail = status.Command
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// CheckFreeSpace verifies the workspace filesystem has at least minGiB free
// before the render stage writes the output video.
func CheckFreeSpace(path string, minGiB int) Result {
	const name = "Free space"
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "check disabled"}
	}
	free, err := freeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	required := uint64(minGiB) << 30
	if free < required {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, %d GiB required", float64(free)/(1<<30), minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))}
}

// Summarize joins failed check details into a single message, or returns ""
// when everything passed.
func Summarize(results []Result) string {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	return strings.Join(failed, "; ")
}
