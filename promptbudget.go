package memory

import "time"

// EnforceBudget trims parts until BuildPromptBlock's rendered length is at
// most maxChars, in value-hierarchy order: drop the lowest-ranked memory
// (last element) first, then the oldest short-term turn (first element),
// then truncate the summary to whatever budget remains, dropping it
// entirely once that budget reaches zero. Section headers and the user
// message are never trimmed, so when they alone exceed maxChars the
// returned parts still render longer than maxChars.
func EnforceBudget(parts PromptParts, maxChars int, now time.Time) PromptParts {
	if maxChars <= 0 {
		parts.Memories = nil
		parts.ShortTerm = nil
		parts.Summary = ""
		return parts
	}

	for len(BuildPromptBlock(parts, now)) > maxChars {
		if len(parts.Memories) > 0 {
			parts.Memories = parts.Memories[:len(parts.Memories)-1]
			continue
		}
		if len(parts.ShortTerm) > 0 {
			parts.ShortTerm = parts.ShortTerm[1:]
			continue
		}
		if parts.Summary == "" {
			break
		}

		overshoot := len(BuildPromptBlock(parts, now)) - maxChars
		runes := []rune(parts.Summary)
		newLen := len(runes) - overshoot
		if newLen <= 0 {
			parts.Summary = ""
			break
		}
		if newLen >= len(runes) {
			break
		}
		parts.Summary = string(runes[:newLen])
	}

	return parts
}
