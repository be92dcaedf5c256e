// Package types provides type definitions for structured data used throughout the ATS tailoring pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// JobDescription is the job posting a profile is tailored against
type JobDescription struct {
	Title       string `json:"title" validate:"required,max=300"`
	Company     string `json:"company,omitempty" validate:"max=300"`
	Location    string `json:"location,omitempty" validate:"max=300"`
	Description string `json:"description" validate:"required"`
}

// Validate validates the JobDescription using the validator.
func (j *JobDescription) Validate() error {
	validate := validator.New()
	if err := validate.Struct(j); err != nil {
		return err
	}
	if strings.TrimSpace(j.Title) == "" || strings.TrimSpace(j.Description) == "" {
		return &InputError{Field: "job", Message: "title and description must not be blank"}
	}
	return nil
}

// CandidateProfile holds the four ordered sections of a candidate's résumé.
// Transforms never modify a profile in place; they work on a Clone.
type CandidateProfile struct {
	Experience []string `json:"experience" validate:"max=200,dive,max=2000"`
	Projects   []string `json:"projects" validate:"max=200,dive,max=2000"`
	Skills     []string `json:"skills" validate:"max=200,dive,max=2000"`
	Education  []string `json:"education" validate:"max=200,dive,max=2000"`
}

// Validate validates the CandidateProfile using the validator.
func (p *CandidateProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Clone returns a deep copy of the profile
func (p CandidateProfile) Clone() CandidateProfile {
	return CandidateProfile{
		Experience: cloneStrings(p.Experience),
		Projects:   cloneStrings(p.Projects),
		Skills:     cloneStrings(p.Skills),
		Education:  cloneStrings(p.Education),
	}
}

// BodyText joins experience, projects and education with single spaces.
// This is the text the conciseness and trim rules measure.
func (p CandidateProfile) BodyText() string {
	parts := make([]string, 0, len(p.Experience)+len(p.Projects)+len(p.Education))
	parts = append(parts, p.Experience...)
	parts = append(parts, p.Projects...)
	parts = append(parts, p.Education...)
	return strings.Join(parts, " ")
}

// Section names used to tag profile chunks
const (
	SectionExperience = "experience"
	SectionProjects   = "projects"
	SectionSkills     = "skills"
	SectionEducation  = "education"
)

// Sections returns the profile sections in flattening order
func (p CandidateProfile) Sections() []ProfileSection {
	return []ProfileSection{
		{Name: SectionExperience, Items: p.Experience},
		{Name: SectionProjects, Items: p.Projects},
		{Name: SectionSkills, Items: p.Skills},
		{Name: SectionEducation, Items: p.Education},
	}
}

// ProfileSection is a named, ordered list of profile entries
type ProfileSection struct {
	Name  string
	Items []string
}

// InputError reports a malformed job or profile payload
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Field + ": " + e.Message
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
