package memory

import "strings"

// KindSchemaVersion identifies the wire/storage shape of MemoryKind for
// migration and telemetry purposes.
const KindSchemaVersion = 1

// RetentionClass is a coarse retention intent for a memory kind; concrete
// TTL durations live in RetentionConfig, not here.
type RetentionClass string

const (
	RetentionPermanent RetentionClass = "permanent"
	RetentionLong      RetentionClass = "long"
	RetentionMedium    RetentionClass = "medium"
	RetentionShort     RetentionClass = "short"
	RetentionEphemeral RetentionClass = "ephemeral"
)

// MemoryFamily is the broad bucket a MemoryKind belongs to.
type MemoryFamily string

const (
	FamilySemantic   MemoryFamily = "semantic"
	FamilyEpisodic   MemoryFamily = "episodic"
	FamilyProcedural MemoryFamily = "procedural"
	FamilyArtifact   MemoryFamily = "artifact"
	FamilyMeta       MemoryFamily = "meta"
	FamilyOther      MemoryFamily = "other"
	FamilyUnknown    MemoryFamily = "unknown"
)

// MergeHint communicates how items of a kind typically evolve, used by the
// semantic-dedup merge step.
type MergeHint string

const (
	MergeReplace    MergeHint = "replace"
	MergeAppend     MergeHint = "append"
	MergeAccumulate MergeHint = "accumulate"
)

// MemoryKind is the closed taxonomy of memory item categories. Numeric codes
// are stable across schema migrations; an unrecognized stored name
// deserializes to Unknown rather than failing.
type MemoryKind string

const (
	KindIdentity         MemoryKind = "identity"
	KindFact             MemoryKind = "fact"
	KindPreference       MemoryKind = "preference"
	KindAversion         MemoryKind = "aversion"
	KindConstraint       MemoryKind = "constraint"
	KindPolicy           MemoryKind = "policy"
	KindGoal             MemoryKind = "goal"
	KindTask             MemoryKind = "task"
	KindPlan             MemoryKind = "plan"
	KindDecision         MemoryKind = "decision"
	KindProcedure        MemoryKind = "procedure"
	KindEpisode          MemoryKind = "episode"
	KindReflection       MemoryKind = "reflection"
	KindSummary          MemoryKind = "summary"
	KindFeedback         MemoryKind = "feedback"
	KindToolResult       MemoryKind = "tool_result"
	KindCodeArtifact     MemoryKind = "code_artifact"
	KindDocumentArtifact MemoryKind = "document_artifact"
	KindMediaArtifact    MemoryKind = "media_artifact"
	KindOther            MemoryKind = "other"
	KindUnknown          MemoryKind = "unknown"
)

// AllKinds lists every known kind, excluding Unknown.
var AllKinds = []MemoryKind{
	KindIdentity, KindFact, KindPreference, KindAversion, KindConstraint,
	KindPolicy, KindGoal, KindTask, KindPlan, KindDecision, KindProcedure,
	KindEpisode, KindReflection, KindSummary, KindFeedback, KindToolResult,
	KindCodeArtifact, KindDocumentArtifact, KindMediaArtifact, KindOther,
}

// Code returns the stable numeric code for storage/indexing, not derived
// from declaration order so it survives additions to the taxonomy.
func (k MemoryKind) Code() uint8 {
	switch k {
	case KindIdentity:
		return 1
	case KindFact:
		return 2
	case KindPreference:
		return 3
	case KindAversion:
		return 4
	case KindConstraint:
		return 5
	case KindPolicy:
		return 6
	case KindGoal:
		return 7
	case KindTask:
		return 8
	case KindPlan:
		return 9
	case KindDecision:
		return 10
	case KindProcedure:
		return 11
	case KindEpisode:
		return 12
	case KindReflection:
		return 13
	case KindSummary:
		return 14
	case KindFeedback:
		return 15
	case KindToolResult:
		return 16
	case KindCodeArtifact:
		return 17
	case KindDocumentArtifact:
		return 18
	case KindMediaArtifact:
		return 19
	case KindOther:
		return 20
	default:
		return 255
	}
}

// KindFromCode converts a stored numeric code back into a MemoryKind,
// mapping anything unrecognized to Unknown.
func KindFromCode(code uint8) MemoryKind {
	switch code {
	case 1:
		return KindIdentity
	case 2:
		return KindFact
	case 3:
		return KindPreference
	case 4:
		return KindAversion
	case 5:
		return KindConstraint
	case 6:
		return KindPolicy
	case 7:
		return KindGoal
	case 8:
		return KindTask
	case 9:
		return KindPlan
	case 10:
		return KindDecision
	case 11:
		return KindProcedure
	case 12:
		return KindEpisode
	case 13:
		return KindReflection
	case 14:
		return KindSummary
	case 15:
		return KindFeedback
	case 16:
		return KindToolResult
	case 17:
		return KindCodeArtifact
	case 18:
		return KindDocumentArtifact
	case 19:
		return KindMediaArtifact
	case 20:
		return KindOther
	default:
		return KindUnknown
	}
}

// PromptTag is the parenthesized tag used in the prompt block, e.g. "(fact)".
func (k MemoryKind) PromptTag() string { return "(" + string(k) + ")" }

// Family returns the broad classification used for filtering and policy mapping.
func (k MemoryKind) Family() MemoryFamily {
	switch k {
	case KindIdentity, KindFact, KindPreference, KindAversion, KindConstraint, KindPolicy:
		return FamilySemantic
	case KindEpisode, KindReflection, KindSummary:
		return FamilyEpisodic
	case KindGoal, KindTask, KindPlan, KindDecision, KindProcedure:
		return FamilyProcedural
	case KindCodeArtifact, KindDocumentArtifact, KindMediaArtifact:
		return FamilyArtifact
	case KindFeedback, KindToolResult:
		return FamilyMeta
	case KindOther:
		return FamilyOther
	default:
		return FamilyUnknown
	}
}

// DefaultImportance is the kind's importance prior (0..=100), distinct
// from the heuristic extractor's own salience table in extractor.go, which
// governs the salience actually assigned to newly extracted items. Rank
// does not read this prior; it scores by the item's stored salience.
func (k MemoryKind) DefaultImportance() uint8 {
	switch k {
	case KindIdentity:
		return 100
	case KindConstraint:
		return 95
	case KindFact:
		return 90
	case KindPolicy:
		return 88
	case KindGoal:
		return 85
	case KindProcedure:
		return 82
	case KindPreference, KindAversion:
		return 80
	case KindDecision, KindPlan:
		return 75
	case KindTask, KindReflection, KindFeedback:
		return 70
	case KindCodeArtifact:
		return 65
	case KindSummary:
		return 60
	case KindDocumentArtifact, KindMediaArtifact:
		return 55
	case KindEpisode:
		return 45
	case KindToolResult:
		return 35
	case KindOther:
		return 20
	default:
		return 10
	}
}

// DefaultRetention returns the kind's retention-class prior.
func (k MemoryKind) DefaultRetention() RetentionClass {
	switch k {
	case KindIdentity:
		return RetentionPermanent
	case KindFact, KindPreference, KindAversion, KindConstraint, KindPolicy,
		KindProcedure, KindCodeArtifact, KindDocumentArtifact, KindMediaArtifact:
		return RetentionLong
	case KindGoal, KindReflection, KindSummary, KindDecision, KindPlan, KindEpisode, KindFeedback:
		return RetentionMedium
	case KindTask, KindOther:
		return RetentionShort
	default:
		return RetentionEphemeral
	}
}

// MergeHintFor returns the merge prior for typical evolution of this kind.
func (k MemoryKind) MergeHintFor() MergeHint {
	switch k {
	case KindIdentity, KindFact, KindPreference, KindAversion, KindConstraint, KindPolicy, KindProcedure:
		return MergeReplace
	case KindGoal, KindTask, KindPlan, KindDecision, KindReflection, KindSummary,
		KindFeedback, KindCodeArtifact, KindDocumentArtifact, KindMediaArtifact:
		return MergeAccumulate
	default:
		return MergeAppend
	}
}

// IsProfileSemantic reports whether this kind is primarily stable
// profile/semantic memory about the user or agent.
func (k MemoryKind) IsProfileSemantic() bool { return k.Family() == FamilySemantic }

// IsPlanning reports whether this kind is primarily planning/procedural memory.
func (k MemoryKind) IsPlanning() bool { return k.Family() == FamilyProcedural }

// IsEpisodic reports whether this kind is primarily episodic memory.
func (k MemoryKind) IsEpisodic() bool { return k.Family() == FamilyEpisodic }

// IsArtifact reports whether this kind references an artifact.
func (k MemoryKind) IsArtifact() bool { return k.Family() == FamilyArtifact }

// ParseKind parses canonical snake_case, kebab-case, CamelCase, and a set
// of common aliases. Unrecognized input returns InvalidInput; use
// ParseKindLossy for a best-effort Unknown fallback.
func ParseKind(s string) (MemoryKind, error) {
	raw := strings.TrimSpace(s)

	switch strings.ToLower(raw) {
	case "pref":
		return KindPreference, nil
	case "todo":
		return KindTask, nil
	case "doc":
		return KindDocumentArtifact, nil
	}

	switch {
	case matchesCanonical(raw, "identity"):
		return KindIdentity, nil
	case matchesCanonical(raw, "fact"):
		return KindFact, nil
	case matchesCanonical(raw, "preference"):
		return KindPreference, nil
	case matchesCanonical(raw, "aversion"), matchesCanonical(raw, "dislike"):
		return KindAversion, nil
	case matchesCanonical(raw, "constraint"), matchesCanonical(raw, "rule"):
		return KindConstraint, nil
	case matchesCanonical(raw, "policy"), matchesCanonical(raw, "instruction"):
		return KindPolicy, nil
	case matchesCanonical(raw, "goal"), matchesCanonical(raw, "objective"):
		return KindGoal, nil
	case matchesCanonical(raw, "task"):
		return KindTask, nil
	case matchesCanonical(raw, "plan"):
		return KindPlan, nil
	case matchesCanonical(raw, "decision"), matchesCanonical(raw, "choice"):
		return KindDecision, nil
	case matchesCanonical(raw, "procedure"), matchesCanonical(raw, "playbook"),
		matchesCanonical(raw, "runbook"), matchesCanonical(raw, "workflow"):
		return KindProcedure, nil
	case matchesCanonical(raw, "episode"), matchesCanonical(raw, "event"),
		matchesCanonical(raw, "observation"):
		return KindEpisode, nil
	case matchesCanonical(raw, "reflection"), matchesCanonical(raw, "insight"):
		return KindReflection, nil
	case matchesCanonical(raw, "summary"):
		return KindSummary, nil
	case matchesCanonical(raw, "feedback"):
		return KindFeedback, nil
	case matchesCanonical(raw, "tool_result"), matchesCanonical(raw, "tooloutput"),
		matchesCanonical(raw, "tool_output"), matchesCanonical(raw, "tool"):
		return KindToolResult, nil
	case matchesCanonical(raw, "code_artifact"), matchesCanonical(raw, "code"):
		return KindCodeArtifact, nil
	case matchesCanonical(raw, "document_artifact"), matchesCanonical(raw, "document"):
		return KindDocumentArtifact, nil
	case matchesCanonical(raw, "media_artifact"), matchesCanonical(raw, "media"):
		return KindMediaArtifact, nil
	case matchesCanonical(raw, "other"):
		return KindOther, nil
	case matchesCanonical(raw, "unknown"):
		return KindUnknown, nil
	}

	return "", newError("ParseKind", ErrInvalidInput, nil)
}

// ParseKindLossy is a forgiving variant of ParseKind that maps anything it
// cannot recognize to Unknown instead of failing.
func ParseKindLossy(s string) MemoryKind {
	k, err := ParseKind(s)
	if err != nil {
		return KindUnknown
	}
	return k
}

// matchesCanonical normalizes input (collapsing separators, splitting
// CamelCase boundaries, lowercasing) and compares it against a canonical
// snake_case name without allocating an intermediate string.
func matchesCanonical(input, canonical string) bool {
	it := newKindNormIter(input)
	for i := 0; i < len(canonical); i++ {
		b, ok := it.next()
		if !ok || b != canonical[i] {
			return false
		}
	}
	_, ok := it.next()
	return !ok
}

type kindNormIter struct {
	s                   string
	idx                 int
	pendingSep          bool
	lastWasLowerOrDigit bool
	emittedAny          bool
	carry               byte
	hasCarry            bool
}

func newKindNormIter(s string) *kindNormIter {
	return &kindNormIter{s: s}
}

func isSepByte(b byte) bool {
	switch b {
	case '_', '-', ' ', '.', '/', '\\', ':':
		return true
	}
	return false
}

func isASCIIAlnum(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func isASCIILowerOrDigit(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func isASCIIUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

func toASCIILower(b byte) byte {
	if isASCIIUpper(b) {
		return b + ('a' - 'A')
	}
	return b
}

// next returns the next normalized byte in the stream, collapsing
// separators and CamelCase boundaries into single '_' emissions.
func (it *kindNormIter) next() (byte, bool) {
	if it.hasCarry {
		it.hasCarry = false
		return it.carry, true
	}

	for it.idx < len(it.s) {
		b := it.s[it.idx]
		it.idx++

		if isSepByte(b) || !isASCIIAlnum(b) {
			it.pendingSep = true
			it.lastWasLowerOrDigit = false
			continue
		}

		lower := toASCIILower(b)
		camelBoundary := isASCIIUpper(b) && it.lastWasLowerOrDigit
		it.lastWasLowerOrDigit = isASCIILowerOrDigit(b)

		if it.emittedAny && (it.pendingSep || camelBoundary) {
			it.pendingSep = false
			it.carry = lower
			it.hasCarry = true
			return '_', true
		}

		it.pendingSep = false
		it.emittedAny = true
		return lower, true
	}

	return 0, false
}
