package keywords

import (
	"strings"
	"unicode"

	"github.com/jonathan/ats-tailor/internal/types"
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var actionVerbs = set(
	"led", "lead", "managed", "built", "designed", "implemented", "optimized", "delivered",
	"improved", "architected", "automated", "developed", "deployed", "migrated", "refactored", "mentored",
)

var educationTerms = set(
	"bachelors", "bachelor", "masters", "master", "phd", "mba", "degree",
	"computer science", "information technology", "engineering", "certification",
	"aws certified", "azure certified", "google cloud certified",
)

var toolTerms = set(
	"python", "java", "javascript", "typescript", "node", "react", "nextjs",
	"aws", "gcp", "azure", "docker", "kubernetes", "sql", "postgres", "mysql", "redis",
	"spark", "hadoop", "pytorch", "tensorflow", "scikit-learn", "sklearn", "pandas", "numpy",
	"airflow", "kafka",
)

var responsibilityTerms = set(
	"ownership", "collaboration", "communication", "roadmap", "planning", "delivery",
	"stakeholder", "requirements", "testing", "monitoring", "observability", "mentorship", "leadership",
)

// Classify assigns a category to a normalized keyword. The first matching rule wins:
// the fixed vocabularies, then digits imply a tool, then a multi-word phrase
// opening with an action verb is a responsibility, and everything else is a skill.
func Classify(keyword string) types.Category {
	key := strings.ToLower(keyword)
	switch {
	case actionVerbs[key]:
		return types.CategoryActionVerbs
	case educationTerms[key]:
		return types.CategoryEducation
	case toolTerms[key]:
		return types.CategoryTools
	case responsibilityTerms[key]:
		return types.CategoryResponsibilities
	case strings.IndexFunc(key, unicode.IsDigit) >= 0:
		return types.CategoryTools
	}
	if words := strings.Fields(key); len(words) > 1 && actionVerbs[words[0]] {
		return types.CategoryResponsibilities
	}
	return types.CategorySkills
}
