package rendering

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/ats-tailor/internal/parsing"
	"github.com/jonathan/ats-tailor/internal/types"
)

// Layout limits
const (
	DefaultLineBudget   = 55
	MaxExperienceItems  = 8
	MaxProjectItems     = 6
	MaxEducationEntries = 3
	MaxSkillLines       = 2
	SkillLineChars      = 70
	ShortBulletChars    = 90
	MediumBulletChars   = 170
	ShortenedTokens     = 28
)

// Assembler lays a profile out as a LaTeX body within a line budget
type Assembler struct {
	lineLimit int
}

// NewAssembler creates an Assembler. A non-positive limit selects DefaultLineBudget.
func NewAssembler(lineLimit int) *Assembler {
	if lineLimit <= 0 {
		lineLimit = DefaultLineBudget
	}
	return &Assembler{lineLimit: lineLimit}
}

// Assemble estimates the profile's line usage, trims it to fit the budget
// when needed and renders the body.
func (a *Assembler) Assemble(profile types.CandidateProfile) types.AssemblerResult {
	working := profile.Clone()
	trims := []string{}

	budgets := a.Estimate(working)
	if !budgets.WithinLimit() {
		var steps []string
		working, budgets, steps = a.trimToFit(working)
		trims = append(trims, steps...)
	}

	return types.AssemblerResult{
		LaTeXSource:    BuildBody(working),
		SectionBudgets: budgets,
		TrimsApplied:   trims,
	}
}

// Estimate returns the estimated line usage of each section
func (a *Assembler) Estimate(profile types.CandidateProfile) types.SectionBudgets {
	exp := bulletLines(profile.Experience, MaxExperienceItems)
	proj := bulletLines(profile.Projects, MaxProjectItems)

	skills := 1
	if len(profile.Skills) > 0 {
		skills = utf8.RuneCountInString(strings.Join(profile.Skills, " "))/SkillLineChars + 1
	}
	edu := len(profile.Education)
	if edu < 1 {
		edu = 1
	}

	return types.SectionBudgets{
		TotalLines:      exp + proj + skills + edu,
		ExperienceLines: exp,
		ProjectLines:    proj,
		SkillsLines:     skills,
		EducationLines:  edu,
		Limit:           a.lineLimit,
	}
}

func bulletLines(bullets []string, limit int) int {
	total := 0
	for _, b := range head(bullets, limit) {
		switch n := utf8.RuneCountInString(b); {
		case n <= ShortBulletChars:
			total++
		case n <= MediumBulletChars:
			total += 2
		default:
			total += 3
		}
	}
	return total
}

// trimToFit shortens bullets, then repeatedly drops the last project, the
// last experience bullet and the last education entry, re-estimating after
// every drop. It stops once the estimate fits or every section is down to a
// single entry.
func (a *Assembler) trimToFit(profile types.CandidateProfile) (types.CandidateProfile, types.SectionBudgets, []string) {
	out := profile.Clone()
	var trims []string

	out.Experience = shortenBullets(out.Experience, MaxExperienceItems)
	out.Projects = shortenBullets(out.Projects, MaxProjectItems)
	budgets := a.Estimate(out)

	drops := []func(*types.CandidateProfile) (string, bool){dropProject, dropExperience, dropEducation}
	for !budgets.WithinLimit() {
		dropped := false
		for _, drop := range drops {
			change, ok := drop(&out)
			if !ok {
				continue
			}
			dropped = true
			trims = append(trims, change)
			budgets = a.Estimate(out)
			if budgets.WithinLimit() {
				return out, budgets, trims
			}
		}
		if !dropped {
			break
		}
	}
	return out, budgets, trims
}

func dropProject(p *types.CandidateProfile) (string, bool) {
	n := len(p.Projects)
	if n <= 1 {
		return "", false
	}
	change := fmt.Sprintf("Dropped project bullet: '%s...'", parsing.Truncate(p.Projects[n-1], 50))
	p.Projects = p.Projects[:n-1]
	return change, true
}

func dropExperience(p *types.CandidateProfile) (string, bool) {
	n := len(p.Experience)
	if n <= 1 {
		return "", false
	}
	change := fmt.Sprintf("Dropped experience bullet: '%s...'", parsing.Truncate(p.Experience[n-1], 50))
	p.Experience = p.Experience[:n-1]
	return change, true
}

func dropEducation(p *types.CandidateProfile) (string, bool) {
	n := len(p.Education)
	if n <= 1 {
		return "", false
	}
	change := fmt.Sprintf("Trimmed education entry: '%s...'", parsing.Truncate(p.Education[n-1], 50))
	p.Education = p.Education[:n-1]
	return change, true
}

func shortenBullets(bullets []string, limit int) []string {
	kept := head(bullets, limit)
	out := make([]string, len(kept))
	for i, b := range kept {
		out[i] = parsing.Capitalize(parsing.TruncateTokens(parsing.Normalize(b), ShortenedTokens))
	}
	return out
}

// BuildBody renders the four fixed sections as LaTeX
func BuildBody(profile types.CandidateProfile) string {
	lines := []string{
		"% Auto-generated resume body",
		`\section{Experience}`,
		`\begin{itemize}`,
	}
	for _, b := range head(profile.Experience, MaxExperienceItems) {
		lines = append(lines, `  \resumeItem{`+EscapeLaTeX(b)+`}`)
	}
	lines = append(lines, `\end{itemize}`, `\section{Projects}`, `\begin{itemize}`)
	for _, b := range head(profile.Projects, MaxProjectItems) {
		lines = append(lines, `  \resumeItem{`+EscapeLaTeX(b)+`}`)
	}
	lines = append(lines, `\end{itemize}`, `\section{Skills}`)
	for _, l := range SkillLines(profile.Skills, SkillLineChars, MaxSkillLines) {
		lines = append(lines, `\resumeSubheading{`+EscapeLaTeX(l)+`}{}`)
	}
	lines = append(lines, `\section{Education}`)
	for _, e := range head(profile.Education, MaxEducationEntries) {
		lines = append(lines, `\resumeSubheading{`+EscapeLaTeX(e)+`}{}`)
	}
	return strings.Join(lines, "\n")
}

// SkillLines packs skills into comma-separated lines of at most maxChars,
// keeping at most maxLines. There is always at least one line.
func SkillLines(skills []string, maxChars, maxLines int) []string {
	var lines []string
	current := ""
	for _, skill := range skills {
		candidate := skill
		if current != "" {
			candidate = current + ", " + skill
		}
		if utf8.RuneCountInString(candidate) <= maxChars {
			current = candidate
		} else {
			if current != "" {
				lines = append(lines, current)
			}
			current = skill
		}
		if len(lines) >= maxLines {
			break
		}
	}
	if current != "" && len(lines) < maxLines {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
