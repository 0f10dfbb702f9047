package memory

import (
	"fmt"
	"strings"
	"time"
)

// PromptParts is the structured content the budget enforcer trims and the
// builder renders into the final prompt block.
type PromptParts struct {
	Summary     string
	Memories    []RankedItem
	ShortTerm   []TranscriptEvent
	UserMessage string
}

// roleLabel renders a TranscriptRole with the capitalization the prompt
// block format uses ("User", "Assistant", "Tool", "System").
func roleLabel(role TranscriptRole) string {
	switch role {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleTool:
		return "Tool"
	default:
		return "System"
	}
}

// BuildPromptBlock renders the deterministic prompt block format: a
// summary header, ranked memories, verbatim short-term turns, and the
// user message, in that fixed section order.
func BuildPromptBlock(parts PromptParts, now time.Time) string {
	var b strings.Builder

	b.WriteString("[MEMORY_SUMMARY]\n")
	if parts.Summary != "" {
		b.WriteString(parts.Summary)
		b.WriteByte('\n')
	}

	b.WriteString("[MEMORY_RELEVANT]\n")
	for _, m := range parts.Memories {
		b.WriteString(renderMemoryLine(m, now))
		b.WriteByte('\n')
	}

	b.WriteString("[SHORT_TERM]\n")
	for _, t := range parts.ShortTerm {
		b.WriteString("- ")
		b.WriteString(roleLabel(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}

	b.WriteString("[USER_MESSAGE]\n")
	b.WriteString(parts.UserMessage)
	b.WriteByte('\n')

	return b.String()
}

func renderMemoryLine(m RankedItem, now time.Time) string {
	tags := "none"
	if len(m.Item.Metadata.Tags) > 0 {
		tags = strings.Join(m.Item.Metadata.Tags, ",")
	}
	ageSeconds := int64(now.Sub(m.Item.Metadata.UpdatedAt).Seconds())
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	return fmt.Sprintf("* %s %s [tags: %s] [salience: %d] [age_s: %d]",
		m.Item.Kind.PromptTag(), m.Item.Content, tags, m.Item.Metadata.Salience, ageSeconds)
}
