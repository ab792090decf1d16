// README: Curation model, fallback reasons and request constraints.
package curation

import (
	"context"

	"vibe/internal/modules/activity"
)

const (
	// TargetSize is the number of venues a full curation contains.
	TargetSize = 5
	// MaxBlurbLength caps each summary, in characters.
	MaxBlurbLength = 300
	// DiversityWarningThreshold is the distinct-bucket ratio below which a warning is attached.
	DiversityWarningThreshold = 0.6
	// DefaultMaxPromptCandidates bounds the model prompt context.
	DefaultMaxPromptCandidates = 30
)

type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
)

// FallbackReason explains why the heuristic path produced the curation.
// The empty value means the model result was accepted.
type FallbackReason string

const (
	FallbackNone                   FallbackReason = ""
	FallbackInsufficientCandidates FallbackReason = "insufficient_candidates"
	FallbackModelUnavailable       FallbackReason = "model_unavailable"
	FallbackModelDisabled          FallbackReason = "model_disabled"
	FallbackModelFailed            FallbackReason = "model_failed"
	FallbackValidationFailed       FallbackReason = "validation_failed"
)

type Cluster struct {
	Label string   `json:"label" validate:"required,min=1,max=50"`
	IDs   []string `json:"ids" validate:"required,min=1,max=5,dive,required"`
}

type Summary struct {
	ID     string            `json:"id" validate:"required"`
	Blurb  string            `json:"blurb" validate:"required,max=300"`
	Bucket activity.Category `json:"bucket,omitempty"`
}

// Curation is the terminal output of one request.
type Curation struct {
	TopFiveIDs         []string            `json:"topFiveIds" validate:"max=5,dive,required"`
	Clusters           []Cluster           `json:"clusters" validate:"max=5,dive"`
	Summaries          []Summary           `json:"summaries" validate:"max=5,dive"`
	Rationale          string              `json:"rationale"`
	Source             Source              `json:"source"`
	FallbackReason     FallbackReason      `json:"fallbackReason,omitempty"`
	DiversityScore     float64             `json:"diversityScore"`
	BucketsRepresented []activity.Category `json:"bucketsRepresented"`
	Warnings           []string            `json:"warnings,omitempty"`
}

// Constraints tune one Curate call.
type Constraints struct {
	// AllowShort accepts fewer than TargetSize venues when fewer are eligible.
	// When false, such inputs produce an empty curation instead.
	AllowShort bool
	// DisableModel forces the heuristic path.
	DisableModel bool
	// Meter, when set, is charged once immediately before the generator is
	// called. A charge error sends the call down the heuristic path with
	// FallbackModelDisabled. It is never charged when the model cannot run.
	Meter Meter
}

// Meter admits model-assisted curations, e.g. against a per-user allowance.
type Meter interface {
	Charge(ctx context.Context) error
}

func DefaultConstraints() Constraints {
	return Constraints{AllowShort: true}
}
