// Package scoring computes the ATS fit score of a profile against a job.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/jonathan/ats-tailor/internal/parsing"
	"github.com/jonathan/ats-tailor/internal/types"
)

// Sub-score weights; they sum to 1
const (
	WeightCoverage      = 0.5
	WeightRoleRelevance = 0.2
	WeightSeniority     = 0.1
	WeightConciseness   = 0.1
	WeightEducation     = 0.1
)

// DefaultSeniority is used when no seniority term is found
const DefaultSeniority = 0.6

// Explanation messages
const (
	ExplainCoverageBelowTarget = "Coverage below target despite all keywords mapped"
	ExplainEducationMissing    = "Education requirement not satisfied"
	ExplainVerbose             = "Profile may be verbose; tighten bullets"
	ExplainGoodAlignment       = "Good alignment"
)

type seniorityTerm struct {
	term  string
	level float64
}

// seniorityTable is ordered; the job title takes the first term it contains
var seniorityTable = []seniorityTerm{
	{"intern", 0.1},
	{"junior", 0.4},
	{"jr", 0.4},
	{"mid", 0.6},
	{"senior", 0.8},
	{"sr", 0.8},
	{"staff", 0.9},
	{"principal", 1.0},
	{"lead", 0.9},
	{"manager", 0.8},
}

// Score rates profile against job given an extraction and its mapping.
// It is pure: equal inputs always give equal scores.
func Score(job types.JobDescription, profile types.CandidateProfile, extraction types.KeywordExtraction, mapping types.KeywordMapping) types.ATSScore {
	coverage := Coverage(extraction.RankedKeywords, mapping)
	role := RoleRelevance(job, mapping)
	seniority := SeniorityAlignment(job, profile)
	concise := Conciseness(profile)
	education := EducationCoverage(extraction.Keywords.Education, mapping)

	total := 10 * (WeightCoverage*coverage +
		WeightRoleRelevance*role +
		WeightSeniority*seniority +
		WeightConciseness*concise +
		WeightEducation*education)

	return types.ATSScore{
		Score: round2(math.Min(total, 10)),
		Breakdown: types.ATSBreakdown{
			KeywordCoverage: round2(coverage * 10),
			RoleRelevance:   round2(role * 10),
			Seniority:       round2(seniority * 10),
			Conciseness:     round2(concise * 10),
			Education:       round2(education * 10),
		},
		Explanations: Explain(mapping, extraction.Keywords.Education, concise, coverage),
	}
}

// Coverage is the weighted share of keywords evidenced by the profile.
// Matched entries count fully, partial entries by their similarity.
func Coverage(ranked []types.RankedKeyword, mapping types.KeywordMapping) float64 {
	weights := make(map[string]float64, len(ranked))
	var total float64
	for _, rk := range ranked {
		weights[rk.Keyword] = rk.Weight
		total += rk.Weight
	}
	if total == 0 {
		total = 1
	}

	var covered float64
	for _, e := range mapping.Matched {
		covered += weights[e.Keyword]
	}
	for _, e := range mapping.Partial {
		covered += weights[e.Keyword] * e.SimilarityValue()
	}
	return math.Min(covered/total, 1)
}

// RoleRelevance is the fraction of distinct job title and company tokens
// found in the evidence of matched or partial entries.
func RoleRelevance(job types.JobDescription, mapping types.KeywordMapping) float64 {
	terms := dedupe(parsing.ContentTokens(job.Title + " " + job.Company))
	if len(terms) == 0 {
		return 0
	}

	evidence := make(map[string]bool)
	for _, list := range [][]types.MappingEntry{mapping.Matched, mapping.Partial} {
		for _, e := range list {
			for _, tok := range parsing.ContentTokens(e.EvidenceText()) {
				evidence[tok] = true
			}
		}
	}

	hits := 0
	for _, term := range terms {
		if evidence[term] {
			hits++
		}
	}
	return math.Min(float64(hits)/float64(len(terms)), 1)
}

// SeniorityAlignment compares the job title's seniority with the highest
// seniority mentioned in experience and projects.
func SeniorityAlignment(job types.JobDescription, profile types.CandidateProfile) float64 {
	target := DefaultSeniority
	titleTokens := parsing.ContentTokens(job.Title)
	for _, st := range seniorityTable {
		if parsing.ContainsToken(titleTokens, st.term) {
			target = st.level
			break
		}
	}

	body := make([]string, 0, len(profile.Experience)+len(profile.Projects))
	body = append(body, profile.Experience...)
	body = append(body, profile.Projects...)
	profileTokens := make(map[string]bool)
	for _, item := range body {
		for _, tok := range parsing.ContentTokens(item) {
			profileTokens[tok] = true
		}
	}
	level := DefaultSeniority
	for _, st := range seniorityTable {
		if profileTokens[st.term] && st.level > level {
			level = st.level
		}
	}

	return math.Max(0, 1-math.Abs(level-target))
}

// Conciseness rates the length of experience, projects and education text
func Conciseness(profile types.CandidateProfile) float64 {
	n := utf8.RuneCountInString(profile.BodyText())
	switch {
	case n == 0:
		return 0.7
	case n <= 1200:
		return 1.0
	case n <= 2000:
		return 0.8
	case n <= 2800:
		return 0.6
	}
	return 0.4
}

// EducationCoverage is 1 when the job names no education keywords, otherwise
// matched count plus half the partial count over the education keyword count.
func EducationCoverage(educationKeywords []string, mapping types.KeywordMapping) float64 {
	if len(educationKeywords) == 0 {
		return 1
	}
	wanted := make(map[string]bool, len(educationKeywords))
	for _, kw := range educationKeywords {
		wanted[kw] = true
	}
	var hits float64
	for _, e := range mapping.Matched {
		if wanted[e.Keyword] {
			hits++
		}
	}
	for _, e := range mapping.Partial {
		if wanted[e.Keyword] {
			hits += 0.5
		}
	}
	return math.Max(0, math.Min(hits/float64(len(educationKeywords)), 1))
}

// Explain lists the reasons behind a score in a fixed order
func Explain(mapping types.KeywordMapping, educationKeywords []string, conciseness, coverage float64) []string {
	var out []string
	for _, e := range mapping.Missing {
		out = append(out, "Missing keyword: "+e.Keyword)
	}
	for _, e := range mapping.Partial {
		out = append(out, fmt.Sprintf("Partial match for %s (sim=%s)", e.Keyword, strconv.FormatFloat(e.SimilarityValue(), 'f', -1, 64)))
	}
	if len(mapping.Missing) == 0 && coverage < 0.9 {
		out = append(out, ExplainCoverageBelowTarget)
	}
	if len(educationKeywords) > 0 && !anyMatched(mapping, educationKeywords) {
		out = append(out, ExplainEducationMissing)
	}
	if conciseness < 0.8 {
		out = append(out, ExplainVerbose)
	}
	if len(out) == 0 {
		return []string{ExplainGoodAlignment}
	}
	return out
}

func anyMatched(mapping types.KeywordMapping, keywords []string) bool {
	for _, e := range mapping.Matched {
		for _, kw := range keywords {
			if e.Keyword == kw {
				return true
			}
		}
	}
	return false
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
