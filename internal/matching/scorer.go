// Package matching implements the compatibility scorer: a pure, deterministic
// ranking of candidate members against a target member's tagged attributes.
// It performs no I/O; callers assemble the pool from a snapshot of member and
// tag data and may run any number of scorings concurrently.
package matching

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Signal weights. Need-to-industry cross matches dominate: a member looking
// for something a candidate's industry provides is a far stronger pairing
// signal than merely sharing a tag.
const (
	needToIndustryWeight = 3.0
	sharedIndustryWeight = 1.0
	sharedInterestWeight = 0.5
)

// DefaultTopN caps the ranked list when Options.TopN is unset.
const DefaultTopN = 10

// ErrNoAttributes is returned when the target member has no tags at all.
// Scoring cannot run against an empty attribute set; callers surface this to
// the operator rather than presenting it as a zero-result success.
var ErrNoAttributes = errors.New("matching: target member has no tags")

// Candidate is one member in the scoring pool.
type Candidate struct {
	MemberID   string
	Name       string
	Attributes AttributeSet
}

// MatchResult is one ranked candidate.
type MatchResult struct {
	MemberID string
	Name     string

	// RawScore is the unnormalised weighted sum; Score is RawScore divided by
	// the pool maximum, so the top match is always exactly 1.0.
	RawScore float64
	Score    float64

	// MatchingTagIDs are the tag identifiers that contributed to the score,
	// kept for audit and display.
	MatchingTagIDs []string
	// SharedTagNames are the names of identically shared industry/interest tags.
	SharedTagNames []string

	MatchReason string
}

// Options tunes a scoring run.
type Options struct {
	// TopN caps the length of the returned ranking. Zero means DefaultTopN;
	// negative means unlimited.
	TopN int
}

// ScoreCandidates ranks pool members by compatibility with the target.
//
// The excluded set (typically members already paired with the target, plus the
// target itself) is removed before scoring so normalisation is not skewed by
// ineligible members. Candidates with an empty attribute set or a raw score of
// zero never appear in the result. Ties keep pool iteration order, making the
// ranking deterministic for a fixed input.
func ScoreCandidates(target Candidate, pool []Candidate, excluded map[string]struct{}, opts Options) ([]MatchResult, error) {
	if target.Attributes.Empty() {
		return nil, ErrNoAttributes
	}

	targetIndustryIDs := target.Attributes.industryIDs()
	targetInterestIDs := target.Attributes.interestIDs()

	results := make([]MatchResult, 0, len(pool))
	maxRaw := 0.0

	for _, candidate := range pool {
		if candidate.MemberID == target.MemberID {
			continue
		}
		if _, skip := excluded[candidate.MemberID]; skip {
			continue
		}
		if candidate.Attributes.Empty() {
			continue
		}

		var (
			needHits       int
			needReasons    []string
			sharedTagNames []string
			matchingTagIDs []string
			seenTagIDs     = map[string]struct{}{}
		)

		recordTag := func(id string) {
			if _, seen := seenTagIDs[id]; seen {
				return
			}
			seenTagIDs[id] = struct{}{}
			matchingTagIDs = append(matchingTagIDs, id)
		}

		// Need-to-industry cross matching, both directions. The containment
		// check is deliberately loose: case-folded substring match on the
		// free-text tag names, partial-word hits included.
		for _, need := range target.Attributes.Need {
			needLower := strings.ToLower(need.Name)
			for _, industry := range candidate.Attributes.Industry {
				if strings.Contains(needLower, strings.ToLower(industry.Name)) {
					needHits++
					needReasons = append(needReasons, fmt.Sprintf(
						"%s is looking for %s; %s is in %s",
						target.Name, need.Name, candidate.Name, industry.Name,
					))
					recordTag(need.ID)
					recordTag(industry.ID)
				}
			}
		}
		for _, need := range candidate.Attributes.Need {
			needLower := strings.ToLower(need.Name)
			for _, industry := range target.Attributes.Industry {
				if strings.Contains(needLower, strings.ToLower(industry.Name)) {
					needHits++
					needReasons = append(needReasons, fmt.Sprintf(
						"%s is looking for %s; %s is in %s",
						candidate.Name, need.Name, target.Name, industry.Name,
					))
					recordTag(need.ID)
					recordTag(industry.ID)
				}
			}
		}

		// Shared tags match on identity, not text.
		sharedIndustry := 0
		for _, industry := range candidate.Attributes.Industry {
			if _, ok := targetIndustryIDs[industry.ID]; ok {
				sharedIndustry++
				sharedTagNames = append(sharedTagNames, industry.Name)
				recordTag(industry.ID)
			}
		}
		sharedInterest := 0
		for _, interest := range candidate.Attributes.Interest {
			if _, ok := targetInterestIDs[interest.ID]; ok {
				sharedInterest++
				sharedTagNames = append(sharedTagNames, interest.Name)
				recordTag(interest.ID)
			}
		}

		raw := float64(needHits)*needToIndustryWeight +
			float64(sharedIndustry)*sharedIndustryWeight +
			float64(sharedInterest)*sharedInterestWeight
		if raw == 0 {
			continue
		}
		if raw > maxRaw {
			maxRaw = raw
		}

		results = append(results, MatchResult{
			MemberID:       candidate.MemberID,
			Name:           candidate.Name,
			RawScore:       raw,
			MatchingTagIDs: matchingTagIDs,
			SharedTagNames: sharedTagNames,
			MatchReason:    buildReason(needReasons, sharedTagNames),
		})
	}

	if len(results) == 0 {
		return nil, nil
	}

	for i := range results {
		results[i].Score = results[i].RawScore / maxRaw
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	topN := opts.TopN
	if topN == 0 {
		topN = DefaultTopN
	}
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	return results, nil
}

// buildReason prefers concrete need-to-industry explanations; shared tags are
// the fallback.
func buildReason(needReasons, sharedTagNames []string) string {
	if len(needReasons) > 0 {
		return strings.Join(needReasons, ". ") + "."
	}
	if len(sharedTagNames) > 0 {
		return "Both share: " + strings.Join(sharedTagNames, ", ")
	}
	return ""
}
