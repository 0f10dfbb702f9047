package memory

import (
	"math"
	"sort"
	"strings"
	"time"
)

// MemorySource identifies what produced a memory item.
type MemorySource struct {
	Kind       SourceKind `json:"kind"`
	Model      string     `json:"model,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Prompt     string     `json:"prompt,omitempty"`
}

// SourceKind enumerates the recognized MemorySource variants.
type SourceKind string

const (
	SourceUser      SourceKind = "user"
	SourceAssistant SourceKind = "assistant"
	SourceTool      SourceKind = "tool"
	SourceSystem    SourceKind = "system"
	SourceSTT       SourceKind = "stt"
	SourceTTS       SourceKind = "tts"
	SourceImageGen  SourceKind = "image_gen"
	SourceVision    SourceKind = "vision"
)

// NewSource builds a plain (non-multimodal) source value.
func NewSource(kind SourceKind) MemorySource { return MemorySource{Kind: kind} }

// ModelName returns the model attribution carried by multimodal sources.
func (s MemorySource) ModelName() string { return s.Model }

// IsMultimodal reports whether the source came from a non-text modality.
func (s MemorySource) IsMultimodal() bool {
	switch s.Kind {
	case SourceSTT, SourceTTS, SourceImageGen, SourceVision:
		return true
	default:
		return false
	}
}

// Modality tags the content medium of a memory item, independent of its kind.
type Modality string

const (
	ModalityText       Modality = "text"
	ModalityAudio      Modality = "audio"
	ModalityImage      Modality = "image"
	ModalityVideo      Modality = "video"
	ModalityCode       Modality = "code"
	ModalityMultimodal Modality = "multimodal"
)

const modalityTagPrefix = "modality:"
const modelTagPrefix = "model:"

// AsTag renders the modality as a reserved-prefix tag, e.g. "modality:text".
func (m Modality) AsTag() string { return modalityTagPrefix + string(m) }

// ModalityFromTag parses a "modality:" tag back into a Modality, reporting
// false if the tag does not carry the reserved prefix.
func ModalityFromTag(tag string) (Modality, bool) {
	if !strings.HasPrefix(tag, modalityTagPrefix) {
		return "", false
	}
	return Modality(strings.TrimPrefix(tag, modalityTagPrefix)), true
}

// MemoryMetadata carries everything about a MemoryItem that is not its
// content: provenance, salience, tags, retention, and access statistics.
type MemoryMetadata struct {
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Salience        int        `json:"salience"`
	Tags            []string   `json:"tags,omitempty"`
	TTLSeconds      *int64     `json:"ttl_seconds,omitempty"`
	Source          MemorySource `json:"source"`
	RetrievalCount  int64      `json:"retrieval_count"`
	LastRetrievedAt *time.Time `json:"last_retrieved_at,omitempty"`
}

// NewMetadata builds metadata with created_at == updated_at == now and a
// default salience of 50, per the extractor's construction step.
func NewMetadata(source MemorySource, now time.Time) MemoryMetadata {
	return MemoryMetadata{
		CreatedAt: now,
		UpdatedAt: now,
		Salience:  50,
		Source:    source,
	}
}

// WithSalience returns a copy with the given salience, clamped to 0..100.
func (m MemoryMetadata) WithSalience(salience int) MemoryMetadata {
	m.Salience = clampSalience(salience)
	return m
}

// WithTags returns a copy with tags set, kept lexicographically ordered.
func (m MemoryMetadata) WithTags(tags []string) MemoryMetadata {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	m.Tags = sorted
	return m
}

// WithTTL returns a copy with a TTL override set.
func (m MemoryMetadata) WithTTL(seconds int64) MemoryMetadata {
	m.TTLSeconds = &seconds
	return m
}

// AddModality inserts a modality tag, keeping Tags lexicographically ordered
// and free of duplicates.
func (m MemoryMetadata) AddModality(mod Modality) MemoryMetadata {
	return m.addTag(mod.AsTag())
}

// AddModelTag inserts a "model:" attribution tag.
func (m MemoryMetadata) AddModelTag(model string) MemoryMetadata {
	return m.addTag(modelTagPrefix + model)
}

func (m MemoryMetadata) addTag(tag string) MemoryMetadata {
	for _, t := range m.Tags {
		if t == tag {
			return m
		}
	}
	tags := append(append([]string(nil), m.Tags...), tag)
	sort.Strings(tags)
	m.Tags = tags
	return m
}

// Modalities returns every modality tag present on the item.
func (m MemoryMetadata) Modalities() []Modality {
	var mods []Modality
	for _, t := range m.Tags {
		if mod, ok := ModalityFromTag(t); ok {
			mods = append(mods, mod)
		}
	}
	return mods
}

// PrimaryModality returns the first modality tag, defaulting to text when
// none is present.
func (m MemoryMetadata) PrimaryModality() Modality {
	mods := m.Modalities()
	if len(mods) == 0 {
		return ModalityText
	}
	return mods[0]
}

// HasModality reports whether the given modality tag is present.
func (m MemoryMetadata) HasModality(mod Modality) bool {
	for _, t := range m.Tags {
		if t == mod.AsTag() {
			return true
		}
	}
	return false
}

// ModelFromTags returns the "model:" attribution tag's value, if present.
func (m MemoryMetadata) ModelFromTags() (string, bool) {
	for _, t := range m.Tags {
		if strings.HasPrefix(t, modelTagPrefix) {
			return strings.TrimPrefix(t, modelTagPrefix), true
		}
	}
	return "", false
}

// RecordRetrieval bumps the retrieval counter and timestamp. PrepareContext
// does not call it, so retrieval statistics are only updated by callers
// that do.
func (m MemoryMetadata) RecordRetrieval(now time.Time) MemoryMetadata {
	m.RetrievalCount++
	m.LastRetrievedAt = &now
	return m
}

// IsFrequentlyUsed reports whether the item has been retrieved at least
// three times within the last seven days.
func (m MemoryMetadata) IsFrequentlyUsed(now time.Time) bool {
	if m.RetrievalCount < 3 || m.LastRetrievedAt == nil {
		return false
	}
	return now.Sub(*m.LastRetrievedAt) <= 7*24*time.Hour
}

// DynamicSalience folds retrieval frequency and recency into the stored
// base salience: base + ln(1+retrieval_count)*5*recency_factor, clamped to
// 0..100. This is a usage-weighted adjustment surfaced only through this
// helper; callers that want the static prior continue to read Salience
// directly.
func (m MemoryMetadata) DynamicSalience(now time.Time, halfLife time.Duration) int {
	if halfLife <= 0 {
		halfLife = 7 * 24 * time.Hour
	}
	ageSeconds := now.Sub(m.UpdatedAt).Seconds()
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	recencyFactor := 1.0 / (1.0 + ageSeconds/halfLife.Seconds())
	boost := math.Log1p(float64(m.RetrievalCount)) * 5 * recencyFactor
	return clampSalience(m.Salience + int(math.Round(boost)))
}

func clampSalience(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
