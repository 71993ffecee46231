// Package contact extracts contact details from free chat text.
package contact

import (
	"regexp"
	"strings"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

	// Tried in order; the first pattern with any match wins.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\+?1[-.\s]?)?(\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})`),
		regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?(\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4})`),
		regexp.MustCompile(`(\d{3,4}[-.\s]?\d{3,4}[-.\s]?\d{3,4})`),
	}

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|i am|i'm|call me)\s+([a-zA-Z\s]{2,30})`),
		regexp.MustCompile(`(?i)name:\s*([a-zA-Z\s]{2,30})`),
	}

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:work at|company|from)\s+([a-zA-Z\s&.,]{2,50})`),
		regexp.MustCompile(`(?i)company:\s*([a-zA-Z\s&.,]{2,50})`),
	}
)

// Extract returns the contact details found in text. It has no side effects.
func Extract(text string) domain.ContactInfo {
	return domain.ContactInfo{
		Name:    firstCapture(namePatterns, text),
		Email:   Email(text),
		Phone:   Phone(text),
		Company: firstCapture(companyPatterns, text),
	}
}

// Email returns the first email address in text, or "".
func Email(text string) string {
	if m := emailPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Phone returns the whole match of the first phone pattern that matches text.
func Phone(text string) string {
	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}
