package memory

import (
	"sort"
	"strings"
	"time"
)

// BuildQueryText renders "<role>: <content>\n" for each recent turn in
// chronological order, followed by "user: <user_msg>" with no trailing
// newline. This is the text fed to the vector store's embedder.
func BuildQueryText(userMsg string, recentTurns []TranscriptEvent) string {
	var b strings.Builder
	for _, t := range recentTurns {
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString("user: ")
	b.WriteString(userMsg)
	return b.String()
}

// RankedItem is a ScoredItem after the scoring formula has been applied.
type RankedItem struct {
	Item       MemoryItem
	Similarity float64
	Score      float64
}

// Rank scores candidates by score = similarity + alpha*recency + beta*salience
// with recency = 1/(1+age_seconds/half_life_seconds), salience normalized to
// 0..1, and returns them sorted descending by score, ties broken by
// similarity then by MemoryItem.Metadata.UpdatedAt descending.
func Rank(candidates []ScoredItem, scoring ScoringConfig, now time.Time) []RankedItem {
	halfLife := scoring.RecencyHalfLifeSeconds
	if halfLife <= 0 {
		halfLife = 1
	}

	ranked := make([]RankedItem, len(candidates))
	for i, c := range candidates {
		age := now.Sub(c.Item.Metadata.UpdatedAt).Seconds()
		if age < 0 {
			age = 0
		}
		recency := 1.0 / (1.0 + age/float64(halfLife))
		salience := float64(c.Item.Metadata.Salience) / 100.0

		ranked[i] = RankedItem{
			Item:       c.Item,
			Similarity: c.Similarity,
			Score:      c.Similarity + scoring.AlphaRecency*recency + scoring.BetaSalience*salience,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].Item.Metadata.UpdatedAt.After(ranked[j].Item.Metadata.UpdatedAt)
	})

	return ranked
}
