// Package dataset validates and analyzes JSONL training datasets for the
// assistant: one example per line, a messages array plus metadata.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Example is one training record.
type Example struct {
	Messages []Message `json:"messages"`
	Metadata Metadata  `json:"metadata"`
}

// Message is one chat message inside a training record.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Metadata carries the labels attached to an example.
type Metadata struct {
	Category            string   `json:"category,omitempty"`
	RiskLevel           string   `json:"risk_level,omitempty"`
	TechniquesMentioned []string `json:"techniques_mentioned,omitempty"`
}

var validCategories = map[string]bool{
	"check_in": true, "tecnica": true, "conversacion": true, "crisis": true, "resumen": true,
}

var validRiskLevels = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

// forbiddenWords must not appear in assistant messages of the dataset.
var forbiddenWords = []string{
	"diagnóstico", "diagnostico", "prescribo", "receto",
	"tienes depresión", "tienes ansiedad", "sufres de",
}

// referralMarkers: crisis examples must refer the user to professional help.
var referralMarkers = []string{"988", "741741", "911", "emergencia", "profesional"}

const maxAssistantWords = 300

// ValidateExample checks one record and returns its problems, if any.
func ValidateExample(ex Example) []string {
	var errs []string

	if len(ex.Messages) == 0 {
		return []string{"missing 'messages' field"}
	}
	if len(ex.Messages) < 2 {
		errs = append(errs, "at least 2 messages required")
	}

	for i, msg := range ex.Messages {
		if msg.Role == "" || msg.Content == "" {
			errs = append(errs, fmt.Sprintf("message %d incomplete (missing role or content)", i))
		}
		switch msg.Role {
		case "system", "user", "assistant":
		default:
			errs = append(errs, fmt.Sprintf("message %d has invalid role: %q", i, msg.Role))
		}
	}

	if ex.Metadata.Category != "" && !validCategories[ex.Metadata.Category] {
		errs = append(errs, fmt.Sprintf("invalid category: %q", ex.Metadata.Category))
	}
	if ex.Metadata.RiskLevel != "" && !validRiskLevels[ex.Metadata.RiskLevel] {
		errs = append(errs, fmt.Sprintf("invalid risk level: %q", ex.Metadata.RiskLevel))
	}

	var assistantJoined []string
	for _, msg := range ex.Messages {
		if msg.Role != "assistant" {
			continue
		}
		content := strings.ToLower(msg.Content)
		assistantJoined = append(assistantJoined, content)

		for _, word := range forbiddenWords {
			if strings.Contains(content, word) {
				errs = append(errs, fmt.Sprintf("contains forbidden word: %q", word))
			}
		}
		if n := len(strings.Fields(content)); n > maxAssistantWords {
			errs = append(errs, fmt.Sprintf("assistant reply too long: %d words (max %d)", n, maxAssistantWords))
		}
	}

	if ex.Metadata.RiskLevel == "high" || ex.Metadata.RiskLevel == "critical" {
		joined := strings.Join(assistantJoined, " ")
		hasReferral := false
		for _, marker := range referralMarkers {
			if strings.Contains(joined, marker) {
				hasReferral = true
				break
			}
		}
		if !hasReferral {
			errs = append(errs, "crisis example without appropriate referral")
		}
	}

	return errs
}

// LineError ties validation problems to a line number in the JSONL file.
type LineError struct {
	Line   int      `json:"line"`
	Errors []string `json:"errors"`
}

// Report summarizes a dataset validation run.
type Report struct {
	Total   int         `json:"total"`
	Valid   int         `json:"valid"`
	Invalid int         `json:"invalid"`
	Errors  []LineError `json:"errors"`
}

// Validate reads JSONL records from r and validates each line.
func Validate(r io.Reader) (*Report, error) {
	report := &Report{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		report.Total++

		var ex Example
		if err := json.Unmarshal([]byte(raw), &ex); err != nil {
			report.Invalid++
			report.Errors = append(report.Errors, LineError{Line: line, Errors: []string{"invalid JSON: " + err.Error()}})
			continue
		}

		if errs := ValidateExample(ex); len(errs) > 0 {
			report.Invalid++
			report.Errors = append(report.Errors, LineError{Line: line, Errors: errs})
		} else {
			report.Valid++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return report, nil
}

// Stats aggregates dataset composition.
type Stats struct {
	Total           int            `json:"total"`
	ByCategory      map[string]int `json:"by_category"`
	ByRiskLevel     map[string]int `json:"by_risk_level"`
	AvgLength       float64        `json:"avg_length"`
	TechniquesCount map[string]int `json:"techniques_count"`
}

// Analyze computes composition statistics over JSONL records from r.
// Unparseable lines are skipped.
func Analyze(r io.Reader) (*Stats, error) {
	stats := &Stats{
		ByCategory:      make(map[string]int),
		ByRiskLevel:     make(map[string]int),
		TechniquesCount: make(map[string]int),
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	totalWords := 0
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var ex Example
		if err := json.Unmarshal([]byte(raw), &ex); err != nil {
			continue
		}
		stats.Total++

		category := ex.Metadata.Category
		if category == "" {
			category = "unknown"
		}
		stats.ByCategory[category]++

		risk := ex.Metadata.RiskLevel
		if risk == "" {
			risk = "unknown"
		}
		stats.ByRiskLevel[risk]++

		for _, tech := range ex.Metadata.TechniquesMentioned {
			stats.TechniquesCount[tech]++
		}
		for _, msg := range ex.Messages {
			if msg.Role == "assistant" {
				totalWords += len(strings.Fields(msg.Content))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	if stats.Total > 0 {
		stats.AvgLength = float64(totalWords) / float64(stats.Total)
	}
	return stats, nil
}
