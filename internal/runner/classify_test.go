package runner

import (
	"testing"

	"github.com/gemrun/gemrun/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		stderr   string
		want     models.Classification
	}{
		{
			name:     "exit zero is success",
			exitCode: 0,
			stderr:   "",
			want:     models.ClassSuccess,
		},
		{
			name:     "exit zero with noisy stderr is still success",
			exitCode: 0,
			stderr:   "warning: quota nearly reached",
			want:     models.ClassSuccess,
		},
		{
			name:     "quota keyword",
			exitCode: 1,
			stderr:   "Error: quota exceeded for project",
			want:     models.ClassRateLimited,
		},
		{
			name:     "rate limit exceeded keyword",
			exitCode: 1,
			stderr:   "429: rate limit exceeded, slow down",
			want:     models.ClassRateLimited,
		},
		{
			name:     "resource exhausted keyword mixed case",
			exitCode: 1,
			stderr:   "Resource has been exhausted (e.g. check quota).",
			want:     models.ClassRateLimited,
		},
		{
			name:     "keyword match is case-insensitive",
			exitCode: 2,
			stderr:   "RATE LIMIT EXCEEDED",
			want:     models.ClassRateLimited,
		},
		{
			name:     "non-zero without keywords is failure",
			exitCode: 1,
			stderr:   "panic: something broke",
			want:     models.ClassFailed,
		},
		{
			name:     "non-zero with empty stderr is failure",
			exitCode: 137,
			stderr:   "",
			want:     models.ClassFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.exitCode, tt.stderr)
			if got != tt.want {
				t.Errorf("Classify(%d, %q) = %v, want %v", tt.exitCode, tt.stderr, got, tt.want)
			}
		})
	}
}
