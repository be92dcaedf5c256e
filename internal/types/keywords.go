package types

// Category is the bucket a ranked keyword is classified into
type Category string

// Keyword categories
const (
	CategorySkills           Category = "skills"
	CategoryTools            Category = "tools"
	CategoryResponsibilities Category = "responsibilities"
	CategoryEducation        Category = "education"
	CategoryActionVerbs      Category = "action_verbs"
)

// Categories returns the five fixed categories in schema order
func Categories() []Category {
	return []Category{
		CategorySkills,
		CategoryTools,
		CategoryResponsibilities,
		CategoryEducation,
		CategoryActionVerbs,
	}
}

// ParseCategory maps a bucket name onto one of the fixed categories.
// The second return value is false for anything unrecognized.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// RankedKeyword is a normalized phrase extracted from a job description
type RankedKeyword struct {
	Keyword  string   `json:"keyword"`
	Category Category `json:"category"`
	Weight   float64  `json:"weight"`
}

// KeywordBuckets groups extracted keywords by category
type KeywordBuckets struct {
	Skills           []string `json:"skills"`
	Tools            []string `json:"tools"`
	Responsibilities []string `json:"responsibilities"`
	Education        []string `json:"education"`
	ActionVerbs      []string `json:"action_verbs"`
}

// NewKeywordBuckets returns buckets with every list initialized
func NewKeywordBuckets() KeywordBuckets {
	return KeywordBuckets{
		Skills:           []string{},
		Tools:            []string{},
		Responsibilities: []string{},
		Education:        []string{},
		ActionVerbs:      []string{},
	}
}

// Add appends a keyword to the bucket for its category.
// Unknown categories land in skills.
func (b *KeywordBuckets) Add(keyword string, category Category) {
	switch category {
	case CategoryTools:
		b.Tools = append(b.Tools, keyword)
	case CategoryResponsibilities:
		b.Responsibilities = append(b.Responsibilities, keyword)
	case CategoryEducation:
		b.Education = append(b.Education, keyword)
	case CategoryActionVerbs:
		b.ActionVerbs = append(b.ActionVerbs, keyword)
	default:
		b.Skills = append(b.Skills, keyword)
	}
}

// Get returns the keywords in one bucket
func (b KeywordBuckets) Get(category Category) []string {
	switch category {
	case CategorySkills:
		return b.Skills
	case CategoryTools:
		return b.Tools
	case CategoryResponsibilities:
		return b.Responsibilities
	case CategoryEducation:
		return b.Education
	case CategoryActionVerbs:
		return b.ActionVerbs
	}
	return nil
}

// Deduped returns a copy with duplicates removed from each bucket, first occurrence wins
func (b KeywordBuckets) Deduped() KeywordBuckets {
	return KeywordBuckets{
		Skills:           dedupeStrings(b.Skills),
		Tools:            dedupeStrings(b.Tools),
		Responsibilities: dedupeStrings(b.Responsibilities),
		Education:        dedupeStrings(b.Education),
		ActionVerbs:      dedupeStrings(b.ActionVerbs),
	}
}

// KeywordExtraction is the output of keyword extraction
type KeywordExtraction struct {
	Keywords       KeywordBuckets  `json:"keywords"`
	RankedKeywords []RankedKeyword `json:"ranked_keywords"`
}

// KeywordList returns the ranked keyword phrases in rank order
func (e KeywordExtraction) KeywordList() []string {
	out := make([]string, 0, len(e.RankedKeywords))
	for _, rk := range e.RankedKeywords {
		out = append(out, rk.Keyword)
	}
	return out
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
