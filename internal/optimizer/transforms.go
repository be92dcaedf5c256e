package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/ats-tailor/internal/parsing"
	"github.com/jonathan/ats-tailor/internal/types"
)

const (
	// MaxBulletTokens bounds a tightened bullet
	MaxBulletTokens = 36
	// InsertWeightThreshold is the minimum weight of a keyword worth inserting
	InsertWeightThreshold = 0.6
	// TrimLengthLimit is the body length above which sections are trimmed
	TrimLengthLimit = 2200
)

var fillerPhrases = []string{
	"responsible for",
	"worked on",
	"helped",
	"participated in",
	"involved in",
	"leveraged",
	"utilized",
	"using",
	"with a focus on",
	"various",
}

// TightenText lowercases a bullet, strips filler phrases, collapses
// whitespace, keeps the first MaxBulletTokens tokens and capitalizes it.
func TightenText(text string) string {
	lowered := strings.ToLower(text)
	for _, phrase := range fillerPhrases {
		lowered = strings.ReplaceAll(lowered, phrase, "")
	}
	return parsing.Capitalize(parsing.TruncateTokens(lowered, MaxBulletTokens))
}

// Tighten rewrites every experience and project bullet with TightenText
func Tighten(profile types.CandidateProfile) (types.CandidateProfile, []string) {
	out := profile.Clone()
	var changes []string
	tighten := func(section string, bullets []string) {
		for i, bullet := range bullets {
			tightened := TightenText(bullet)
			if tightened != bullet {
				changes = append(changes, fmt.Sprintf("Tightened %s bullet: '%s...' -> '%s...'",
					section, parsing.Truncate(bullet, 40), parsing.Truncate(tightened, 40)))
			}
			bullets[i] = tightened
		}
	}
	tighten(types.SectionExperience, out.Experience)
	tighten(types.SectionProjects, out.Projects)
	return out, changes
}

// InsertKeywords surfaces high-weight missing keywords that the profile
// already evidences. A keyword goes into skills unless a skill already equals
// it; otherwise the first experience or project bullet containing its leading
// word is annotated with the keyword.
func InsertKeywords(profile types.CandidateProfile, ranked []types.RankedKeyword, mapping types.KeywordMapping, threshold float64) (types.CandidateProfile, []string) {
	out := profile.Clone()
	var changes []string

	var candidates []types.RankedKeyword
	for _, rk := range ranked {
		if rk.Weight >= threshold && mapping.IsMissing(rk.Keyword) {
			candidates = append(candidates, rk)
		}
	}
	if len(candidates) == 0 {
		return out, changes
	}

	all := make([]string, 0, len(out.Experience)+len(out.Projects)+len(out.Skills)+len(out.Education))
	all = append(all, out.Experience...)
	all = append(all, out.Projects...)
	all = append(all, out.Skills...)
	all = append(all, out.Education...)
	profileText := parsing.Normalize(strings.Join(all, " "))

	for _, rk := range candidates {
		kw := rk.Keyword
		if !strings.Contains(profileText, kw) {
			continue
		}
		if !hasSkill(out.Skills, kw) {
			out.Skills = append(out.Skills, kw)
			changes = append(changes, fmt.Sprintf("Inserted missing keyword '%s' into skills", kw))
			continue
		}
		if section, idx, ok := annotate(&out, kw); ok {
			changes = append(changes, fmt.Sprintf("Inserted keyword '%s' into %s bullet %d", kw, section, idx+1))
		}
	}
	return out, changes
}

func hasSkill(skills []string, kw string) bool {
	for _, s := range skills {
		if parsing.Normalize(s) == kw {
			return true
		}
	}
	return false
}

func annotate(profile *types.CandidateProfile, kw string) (string, int, bool) {
	fragment := strings.SplitN(kw, " ", 2)[0]
	sections := []struct {
		name    string
		bullets []string
	}{
		{types.SectionExperience, profile.Experience},
		{types.SectionProjects, profile.Projects},
	}
	for _, s := range sections {
		for i, bullet := range s.bullets {
			norm := parsing.Normalize(bullet)
			if strings.Contains(norm, fragment) && !strings.Contains(norm, kw) {
				s.bullets[i] = fmt.Sprintf("%s (%s)", bullet, kw)
				return s.name, i, true
			}
		}
	}
	return "", 0, false
}

// Reorder stably sorts experience and projects by how many ranked keywords each bullet contains
func Reorder(profile types.CandidateProfile, ranked []types.RankedKeyword) (types.CandidateProfile, []string) {
	out := profile.Clone()
	var changes []string

	keywords := make([]string, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))
	for _, rk := range ranked {
		if !seen[rk.Keyword] {
			seen[rk.Keyword] = true
			keywords = append(keywords, rk.Keyword)
		}
	}

	reorder := func(section string, bullets []string) []string {
		if len(bullets) <= 1 {
			return bullets
		}
		type scored struct {
			text  string
			score int
		}
		items := make([]scored, len(bullets))
		for i, b := range bullets {
			norm := parsing.Normalize(b)
			n := 0
			for _, kw := range keywords {
				if strings.Contains(norm, kw) {
					n++
				}
			}
			items[i] = scored{text: b, score: n}
		}
		sort.SliceStable(items, func(a, b int) bool { return items[a].score > items[b].score })

		reordered := make([]string, len(items))
		moved := false
		for i, it := range items {
			reordered[i] = it.text
			if it.text != bullets[i] {
				moved = true
			}
		}
		if moved {
			changes = append(changes, fmt.Sprintf("Reordered %s to surface higher-relevance bullets", section))
		}
		return reordered
	}

	out.Experience = reorder(types.SectionExperience, out.Experience)
	out.Projects = reorder(types.SectionProjects, out.Projects)
	return out, changes
}

// Trim drops at most one project, then one experience, then one education
// entry while the body text exceeds TrimLengthLimit characters.
func Trim(profile types.CandidateProfile) (types.CandidateProfile, []string) {
	out := profile.Clone()
	var changes []string
	if bodyLength(out) <= TrimLengthLimit {
		return out, changes
	}

	if n := len(out.Projects); n > 0 {
		removed := out.Projects[n-1]
		out.Projects = out.Projects[:n-1]
		changes = append(changes, fmt.Sprintf("Dropped low-priority project bullet: '%s...'", parsing.Truncate(removed, 40)))
	}
	if n := len(out.Experience); bodyLength(out) > TrimLengthLimit && n > 0 {
		removed := out.Experience[n-1]
		out.Experience = out.Experience[:n-1]
		changes = append(changes, fmt.Sprintf("Dropped low-priority experience bullet: '%s...'", parsing.Truncate(removed, 40)))
	}
	if n := len(out.Education); bodyLength(out) > TrimLengthLimit && n > 0 {
		removed := out.Education[n-1]
		out.Education = out.Education[:n-1]
		changes = append(changes, fmt.Sprintf("Trimmed education entry: '%s...'", parsing.Truncate(removed, 40)))
	}
	return out, changes
}

func bodyLength(profile types.CandidateProfile) int {
	return len([]rune(profile.BodyText()))
}
