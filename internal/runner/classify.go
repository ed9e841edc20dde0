// Package runner contains the task-processing state machine and the
// scheduler loop that drives it: poll the queue, run tasks one at a time
// through gemini, classify each outcome, and pause the whole loop when the
// tool reports quota exhaustion.
package runner

import (
	"strings"

	"github.com/gemrun/gemrun/internal/models"
)

// rateLimitKeywords are the stderr signatures that mark a failed invocation
// as quota/rate exhaustion rather than an ordinary failure. Matching is
// case-insensitive substring search.
var rateLimitKeywords = []string{
	"quota",
	"rate limit exceeded",
	"resource has been exhausted",
}

// Classify maps one invocation outcome to its terminal classification.
// Pure function over the exit code and the captured error stream, so it can
// be tested against literal fixtures without spawning a process.
func Classify(exitCode int, stderr string) models.Classification {
	if exitCode == 0 {
		return models.ClassSuccess
	}

	lower := strings.ToLower(stderr)
	for _, keyword := range rateLimitKeywords {
		if strings.Contains(lower, keyword) {
			return models.ClassRateLimited
		}
	}

	return models.ClassFailed
}
