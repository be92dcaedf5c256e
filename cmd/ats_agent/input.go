package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/ats-tailor/internal/types"
)

// readJSONFile decodes the JSON document at path into v
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// readInputs loads a job description and candidate profile from JSON files
func readInputs(jobPath, profilePath string) (types.JobDescription, types.CandidateProfile, error) {
	var job types.JobDescription
	if err := readJSONFile(jobPath, &job); err != nil {
		return types.JobDescription{}, types.CandidateProfile{}, err
	}
	var profile types.CandidateProfile
	if err := readJSONFile(profilePath, &profile); err != nil {
		return types.JobDescription{}, types.CandidateProfile{}, err
	}
	return job, profile, nil
}

// writeOutput writes v as indented JSON to path, or to stdout when path is empty
func writeOutput(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
