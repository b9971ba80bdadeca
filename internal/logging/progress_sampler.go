package logging

import "strings"

// DefaultProgressStep is the percent bucket width used when none is given.
const DefaultProgressStep = 5

// ProgressSampler keeps progress logging sparse. It lets through the first
// update of each stage and any update that reaches a higher percent bucket.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = DefaultProgressStep
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether an update is worth a log line. A negative percent
// means unknown and only a stage change can let it through. A nil sampler
// logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	stageChanged := stage != "" && stage != s.stage
	if stageChanged {
		s.stage = stage
		s.bucket = -1
	}
	if percent < 0 {
		return stageChanged
	}
	bucket := int(min(percent, 100) / s.step)
	if bucket <= s.bucket {
		return stageChanged
	}
	s.bucket = bucket
	return true
}

// Reset forgets the current stage and bucket.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.stage = ""
		s.bucket = -1
	}
}
