package pipeline

import (
	"time"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/pkg/config"
)

// Policy decides what a stage failure does to the request
type Policy int

const (
	// PolicyHard aborts the request with a GenerationError
	PolicyHard Policy = iota
	// PolicySoft degrades the stage and lets the request continue
	PolicySoft
)

func (p Policy) String() string {
	if p == PolicyHard {
		return "hard"
	}
	return "soft"
}

// Stage describes one generative text call
type Stage struct {
	Name      domain.StageName
	MaxTokens int
	Timeout   time.Duration
	Policy    Policy
	Fallback  string
}

// NoSummaryFallback is the caption text of a degraded summary stage
const NoSummaryFallback = "No summary available."

// Settings is the immutable pipeline configuration
type Settings struct {
	Explanation       Stage
	ConciseSummary    Stage
	ImagePrompt       Stage
	Topic             Stage
	ImageTimeout      time.Duration
	ExtractionTimeout time.Duration
	ImageSize         string
	Concurrent        bool
	VisualAnalysis    bool
}

// SettingsFromConfig derives stage definitions from configuration
func SettingsFromConfig(p *config.PipelineConfig, ai *config.AIConfig) Settings {
	return Settings{
		Explanation: Stage{
			Name:      domain.StageExplanation,
			MaxTokens: p.ExplanationMaxTokens,
			Timeout:   p.ExplanationTimeout,
			Policy:    PolicyHard,
		},
		ConciseSummary: Stage{
			Name:      domain.StageConciseSummary,
			MaxTokens: p.SummaryMaxTokens,
			Timeout:   p.SummaryTimeout,
			Policy:    PolicySoft,
			Fallback:  NoSummaryFallback,
		},
		ImagePrompt: Stage{
			Name:      domain.StageImagePrompt,
			MaxTokens: p.ImagePromptMaxTokens,
			Timeout:   p.ImagePromptTimeout,
			Policy:    PolicySoft,
		},
		Topic: Stage{
			Name:      domain.StageTopic,
			MaxTokens: p.TopicMaxTokens,
			Timeout:   p.TopicTimeout,
			Policy:    PolicyHard,
		},
		ImageTimeout:      p.ImageTimeout,
		ExtractionTimeout: p.ExtractionTimeout,
		ImageSize:         ai.ImageSize,
		Concurrent:        p.ConcurrentStages,
		VisualAnalysis:    p.VisualAnalysis,
	}
}
