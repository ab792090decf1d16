package curation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

var ErrInvalidCuration = errors.New("invalid curation")

var validate = validator.New()

// ValidationError names the hard check that failed.
type ValidationError struct {
	Check  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Check, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidCuration
}

func invalid(check, format string, args ...any) error {
	return &ValidationError{Check: check, Detail: fmt.Sprintf(format, args...)}
}

// ValidateSize requires exactly TargetSize ids, or all inputSize ids when the
// input is smaller and allowShort is set.
func ValidateSize(c Curation, inputSize int, allowShort bool) error {
	n := len(c.TopFiveIDs)
	if n == TargetSize {
		return nil
	}
	if allowShort && inputSize < TargetSize && n == inputSize {
		return nil
	}
	return invalid("size", "got %d ids for %d candidates", n, inputSize)
}

// ValidateSubset rejects ids outside the input set and repeated ids.
func ValidateSubset(c Curation, inputIDs map[string]struct{}) error {
	seen := make(map[string]bool, len(c.TopFiveIDs))
	for _, id := range c.TopFiveIDs {
		if _, ok := inputIDs[id]; !ok {
			return invalid("subset", "unknown id %q", id)
		}
		if seen[id] {
			return invalid("subset", "duplicate id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// ValidateSummaries requires a one-to-one mapping between summaries and topFiveIds.
func ValidateSummaries(c Curation) error {
	top := make(map[string]bool, len(c.TopFiveIDs))
	for _, id := range c.TopFiveIDs {
		top[id] = true
	}
	count := make(map[string]int, len(c.Summaries))
	for _, s := range c.Summaries {
		if !top[s.ID] {
			return invalid("summaries", "blurb for id %q not in topFiveIds", s.ID)
		}
		count[s.ID]++
	}
	for _, id := range c.TopFiveIDs {
		if count[id] != 1 {
			return invalid("summaries", "id %q has %d blurbs", id, count[id])
		}
	}
	return nil
}

// ValidateClusters requires every cluster id to be one of topFiveIds.
func ValidateClusters(c Curation) error {
	top := make(map[string]bool, len(c.TopFiveIDs))
	for _, id := range c.TopFiveIDs {
		top[id] = true
	}
	for _, cl := range c.Clusters {
		for _, id := range cl.IDs {
			if !top[id] {
				return invalid("clusters", "cluster %q references %q outside topFiveIds", cl.Label, id)
			}
		}
	}
	return nil
}

// Diversity is the soft diversity report.
type Diversity struct {
	Score       float64
	Represented []activity.Category
	Warnings    []string
}

// ValidateDiversity never fails; it reports distinct buckets and warns when
// they fall below DiversityWarningThreshold or miss a target bucket.
func ValidateDiversity(c Curation, buckets map[string]activity.Category, targets []activity.Category) Diversity {
	var d Diversity
	if len(c.TopFiveIDs) == 0 {
		return d
	}
	present := map[activity.Category]bool{}
	for _, id := range c.TopFiveIDs {
		if b := buckets[id]; b != "" && !present[b] {
			present[b] = true
			d.Represented = append(d.Represented, b)
		}
	}
	sort.Slice(d.Represented, func(i, j int) bool { return d.Represented[i] < d.Represented[j] })

	d.Score = float64(len(d.Represented)) / float64(len(c.TopFiveIDs))
	if d.Score < DiversityWarningThreshold {
		d.Warnings = append(d.Warnings, fmt.Sprintf("low diversity: %d distinct categories across %d venues", len(d.Represented), len(c.TopFiveIDs)))
	}
	for _, t := range targets {
		if !present[t] {
			d.Warnings = append(d.Warnings, fmt.Sprintf("requested category %q not represented", t))
		}
	}
	return d
}

// Validate runs struct checks and every hard check against input, then
// returns the diversity report. input is the candidate set the curation was
// drawn from.
func Validate(c Curation, input []venue.Candidate, targets []activity.Category, allowShort bool) (Diversity, error) {
	if err := validate.Struct(c); err != nil {
		return Diversity{}, invalid("schema", "%v", err)
	}
	ids := make(map[string]struct{}, len(input))
	buckets := make(map[string]activity.Category, len(input))
	for _, in := range input {
		ids[in.ID] = struct{}{}
		buckets[in.ID] = in.Category
	}
	checks := []func() error{
		func() error { return ValidateSize(c, len(input), allowShort) },
		func() error { return ValidateSubset(c, ids) },
		func() error { return ValidateSummaries(c) },
		func() error { return ValidateClusters(c) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return Diversity{}, err
		}
	}
	return ValidateDiversity(c, buckets, targets), nil
}
