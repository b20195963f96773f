package workflow

import (
	"strings"
)

// Task validation bounds. MaxTaskChars is configurable via Options;
// these are the fixed lower bounds.
const (
	minTaskChars = 10
	minTaskWords = 3
)

// markupPatterns are rejected outright: the task is plain text and
// these only ever show up in injection attempts.
var markupPatterns = []string{"<script", "javascript:", "onerror=", "<iframe"}

// ValidateTask checks a task description before a run starts.
// maxChars <= 0 disables the upper length bound.
func ValidateTask(task string, maxChars int) error {
	cleaned := strings.TrimSpace(task)

	if cleaned == "" {
		return &InvalidTaskError{Reason: "task description is empty"}
	}
	if len(cleaned) < minTaskChars {
		return &InvalidTaskError{Reason: "task description is too short; describe the application in more detail"}
	}
	if maxChars > 0 && len(cleaned) > maxChars {
		return &InvalidTaskError{Reason: "task description exceeds the configured maximum length"}
	}

	lower := strings.ToLower(cleaned)
	for _, pat := range markupPatterns {
		if strings.Contains(lower, pat) {
			return &InvalidTaskError{Reason: "task description contains markup; describe the application in plain text"}
		}
	}

	words := strings.Fields(lower)
	if len(words) < minTaskWords {
		return &InvalidTaskError{Reason: "task description needs at least three words"}
	}

	// Repeated-character and gibberish screens: real descriptions use a
	// varied alphabet and mostly vowel-bearing words.
	if distinctLetters(cleaned) < 5 {
		return &InvalidTaskError{Reason: "task description does not look like a meaningful request"}
	}
	if !mostlyRealWords(words) {
		return &InvalidTaskError{Reason: "task description does not look like plain English; try e.g. \"create a calculator app with basic arithmetic\""}
	}

	return nil
}

func distinctLetters(s string) int {
	seen := make(map[rune]bool)
	for _, r := range strings.ToLower(s) {
		if r != ' ' {
			seen[r] = true
		}
	}
	return len(seen)
}

// mostlyRealWords reports whether at least 40% of words carry a
// plausible vowel ratio for English.
func mostlyRealWords(words []string) bool {
	const vowels = "aeiou"

	valid := 0
	counted := 0
	for _, word := range words {
		var letters []rune
		for _, r := range word {
			if r >= 'a' && r <= 'z' {
				letters = append(letters, r)
			}
		}
		if len(letters) < 2 {
			continue
		}
		counted++

		vowelCount := 0
		for _, r := range letters {
			if strings.ContainsRune(vowels, r) {
				vowelCount++
			}
		}
		if vowelCount > 0 && float64(vowelCount)/float64(len(letters)) > 0.15 {
			valid++
		}
	}
	if counted == 0 {
		return false
	}
	return float64(valid)/float64(counted) >= 0.4
}
