package memory

import (
	"regexp"
	"sort"
	"time"
)

// patternRule maps a regex to a memory kind and the priority bucket it was
// registered under; higher priority is checked first.
type patternRule struct {
	pattern  *regexp.Regexp
	kind     MemoryKind
	priority int
}

// HeuristicExtractor classifies transcript sentences into memory kinds by a
// prioritized regex rule set.
type HeuristicExtractor struct {
	minContentChars int
	maxMemoryChars  int
	rules           []patternRule
}

// NewHeuristicExtractor builds the extractor with the full rule catalog,
// sorted by descending priority so the first match wins.
func NewHeuristicExtractor(extractor ExtractorConfig, prompt PromptConfig) *HeuristicExtractor {
	rules := []patternRule{
		// 100 -> Identity
		{regexp.MustCompile(`(?i)\b(my name is|i'm called|call me)\s+\w+`), KindIdentity, 100},
		{regexp.MustCompile(`(?i)\b(i am|i'm)\s+\d+\s*(years? old|yo)\b`), KindIdentity, 100},
		{regexp.MustCompile(`(?i)\b(i live in|i'm from|based in)\s+\w+`), KindIdentity, 100},
		{regexp.MustCompile(`(?i)\b(i work (at|for|as)|my job is|i'm a)\s+\w+`), KindIdentity, 100},
		{regexp.MustCompile(`(?i)\b(i speak|i'm (fluent in|native)|my (native|first) language)\b`), KindIdentity, 100},

		// 95 -> Constraint
		{regexp.MustCompile(`(?i)\b(do not|don't|never|must not|cannot|can't|shouldn't|won't)\b`), KindConstraint, 95},
		{regexp.MustCompile(`(?i)\b(it's (important|critical|essential|crucial) that|always make sure)\b`), KindConstraint, 95},

		// 90 -> Aversion
		{regexp.MustCompile(`(?i)\b(i hate|i can't stand|i dislike|i despise|i loathe)\b`), KindAversion, 90},
		{regexp.MustCompile(`(?i)\b(i'm allergic to|i'm intolerant|i can't (eat|have|use))\b`), KindAversion, 90},
		{regexp.MustCompile(`(?i)\b(i'm (annoyed|frustrated|bothered) (by|when)|it annoys me)\b`), KindAversion, 90},

		// 85 -> Preference
		{regexp.MustCompile(`(?i)\b(i|we)\s+(like|love|prefer|enjoy|adore)\b`), KindPreference, 85},
		{regexp.MustCompile(`(?i)\b(my favorite|i prefer|i always choose|i'm a fan of)\b`), KindPreference, 85},
		{regexp.MustCompile(`(?i)\b(i usually|i tend to|i often|i always)\b`), KindPreference, 85},

		// 82 -> Policy
		{regexp.MustCompile(`(?i)\b(always respond|always use|use .+ format|respond in|answer in)\b`), KindPolicy, 82},
		{regexp.MustCompile(`(?i)\b(be (concise|brief|detailed|formal|casual)|keep (it|things|responses))\b`), KindPolicy, 82},
		{regexp.MustCompile(`(?i)\b(speak|write|reply|answer)\s+(in|only in)\s+\w+`), KindPolicy, 82},

		// 80 -> Goal
		{regexp.MustCompile(`(?i)\b(i|we)\s+(want|need|plan|aim|intend|hope)\s+to\b`), KindGoal, 80},
		{regexp.MustCompile(`(?i)\b(my goal is|i'm trying to|i'm (working|learning|studying))\b`), KindGoal, 80},
		{regexp.MustCompile(`(?i)\b(one day i|someday i|i dream of|in the future)\b`), KindGoal, 80},

		// 75 -> Decision
		{regexp.MustCompile(`(?i)\b(i|we)\s+(decided|will|chose|picked|selected|went with)\b`), KindDecision, 75},
		{regexp.MustCompile(`(?i)\b(i'm going to|we're going to|let's (go with|use|do))\b`), KindDecision, 75},

		// 72 -> Task
		{regexp.MustCompile(`(?i)\b(todo|to-do|next step|action item|need to do)\b`), KindTask, 72},
		{regexp.MustCompile(`(?i)\b(remind me to|don't forget to|remember to|i should)\b`), KindTask, 72},

		// 70 -> Feedback
		{regexp.MustCompile(`(?i)\b(good job|well done|that's (wrong|incorrect|right)|you (should|shouldn't))\b`), KindFeedback, 70},
		{regexp.MustCompile(`(?i)\b(actually|no,|that's not|incorrect|you made a mistake)\b`), KindFeedback, 70},

		// 65 -> CodeArtifact
		{regexp.MustCompile(`(?i)\b(the (file|function|class|module|method|variable) (is|called|named))\b`), KindCodeArtifact, 65},
		{regexp.MustCompile(`\.(rs|py|ts|tsx|js|jsx|go|java|cpp|c|h|hpp|css|html|json|yaml|yml|toml|sql)\b`), KindCodeArtifact, 65},
		{regexp.MustCompile(`(?i)\b(commit|branch|merge|pull request|pr|issue)\s*(#?\d+|[a-f0-9]{7,})`), KindCodeArtifact, 65},
		{regexp.MustCompile(`(?i)\b(in|at|see)\s+[a-zA-Z_][a-zA-Z0-9_]*::\w+`), KindCodeArtifact, 65},

		// 62 -> Procedure
		{regexp.MustCompile(`(?i)\b(how to|step\s*\d+|first,?\s+(you|we)|then,?\s+(you|we))\b`), KindProcedure, 62},
		{regexp.MustCompile(`(?i)\b(to do this|the process is|follow these|here's how)\b`), KindProcedure, 62},

		// 60 -> Fact
		{regexp.MustCompile(`(?i)\b(i am|i'm|i have|i've got|i own|my .+ is)\b`), KindFact, 60},
		{regexp.MustCompile(`(?i)\b(i know|i remember|i learned|i read|i heard)\b`), KindFact, 60},
		{regexp.MustCompile(`(?i)\b(the project|this (app|application|system|code|codebase))\s+(is|uses|has)\b`), KindFact, 60},

		// 55 -> DocumentArtifact
		{regexp.MustCompile(`(?i)\b(the (document|doc|spec|readme|wiki|guide|manual))\s+(is|says|mentions)\b`), KindDocumentArtifact, 55},
		{regexp.MustCompile(`\.(md|txt|pdf|docx?|xlsx?|pptx?)\b`), KindDocumentArtifact, 55},

		// 50 -> MediaArtifact
		{regexp.MustCompile(`\.(png|jpg|jpeg|gif|svg|mp3|wav|mp4|webm|ogg)\b`), KindMediaArtifact, 50},
		{regexp.MustCompile(`(?i)\b(the (image|picture|photo|audio|video|sound))\s+(shows|is|was)\b`), KindMediaArtifact, 50},
	}

	sort.SliceStable(rules, func(i, j int) bool { return rules[i].priority > rules[j].priority })

	return &HeuristicExtractor{
		minContentChars: extractor.MinContentChars,
		maxMemoryChars:  prompt.MaxMemoryChars,
		rules:           rules,
	}
}

// ExtractFromEvent runs the extractor over a single transcript event,
// mapping its role to the matching MemorySource.
func (e *HeuristicExtractor) ExtractFromEvent(event TranscriptEvent, now time.Time) []MemoryItem {
	var source MemorySource
	switch event.Role {
	case RoleUser:
		source = NewSource(SourceUser)
	case RoleAssistant:
		source = NewSource(SourceAssistant)
	case RoleTool:
		source = NewSource(SourceTool)
	default:
		source = NewSource(SourceSystem)
	}
	return e.extractFromText(event.SessionID, source, event.Content, now)
}

func (e *HeuristicExtractor) extractFromText(session SessionID, source MemorySource, text string, now time.Time) []MemoryItem {
	var items []MemoryItem

	for _, chunk := range splitSentences(text) {
		if len([]rune(chunk)) < e.minContentChars {
			continue
		}

		kind, matched := e.firstMatch(chunk)
		if !matched {
			continue
		}

		metadata := NewMetadata(source, now).WithSalience(defaultExtractorSalience(kind))
		item, err := NewMemoryItem(session, kind, chunk, metadata)
		if err != nil {
			continue
		}
		item = item.TruncateToBudget(e.maxMemoryChars)

		if err := item.Validate(e.maxMemoryChars); err != nil {
			continue
		}

		items = append(items, item)
	}

	return items
}

func (e *HeuristicExtractor) firstMatch(chunk string) (MemoryKind, bool) {
	for _, r := range e.rules {
		if r.pattern.MatchString(chunk) {
			return r.kind, true
		}
	}
	return "", false
}

// splitSentences splits text at any of `. ! ? \n`, keeping non-empty,
// trimmed fragments.
func splitSentences(text string) []string {
	var parts []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		switch r {
		case '.', '!', '?', '\n':
			if i > start {
				if s := trimRunes(runes[start:i]); s != "" {
					parts = append(parts, s)
				}
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		if s := trimRunes(runes[start:]); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func trimRunes(r []rune) string {
	s := string(r)
	start, end := 0, len(s)
	for start < end && isTrimSpace(s[start]) {
		start++
	}
	for end > start && isTrimSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isTrimSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// defaultExtractorSalience is the kind-default salience table used at
// extraction time, distinct from MemoryKind.DefaultImportance (a separate
// per-kind prior that neither ranking nor retention reads).
func defaultExtractorSalience(kind MemoryKind) int {
	switch kind {
	case KindIdentity:
		return 90
	case KindConstraint, KindPolicy:
		return 80
	case KindDecision:
		return 75
	case KindPreference, KindGoal, KindAversion, KindFeedback:
		return 70
	case KindToolResult, KindCodeArtifact:
		return 65
	case KindFact, KindProcedure, KindTask, KindPlan:
		return 60
	case KindEpisode, KindReflection, KindDocumentArtifact, KindMediaArtifact:
		return 55
	default:
		return 50
	}
}
