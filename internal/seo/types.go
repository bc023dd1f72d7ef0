package seo

import "strings"

type Language string

const (
	LanguageFR Language = "fr"
	LanguageEN Language = "en"
)

// ParseLanguage maps anything other than "en" to French.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageEN)) {
		return LanguageEN
	}
	return LanguageFR
}

type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCreative     Tone = "creative"
	ToneMinimal      Tone = "minimal"
)

func ParseTone(s string) Tone {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneCreative, ToneMinimal:
		return t
	default:
		return ToneProfessional
	}
}

// Request is one piece of project text to optimize.
type Request struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	TargetKeywords []string `json:"targetKeywords,omitempty"`
	Language       Language `json:"language,omitempty"`
	Tone           Tone     `json:"tone,omitempty"`
}

func (r Request) normalized() Request {
	r.Language = ParseLanguage(string(r.Language))
	r.Tone = ParseTone(string(r.Tone))
	return r
}

// Content is the optimized text. Fallback is set when the local heuristics produced it.
type Content struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
	Slug            string   `json:"slug"`
	Confidence      float64  `json:"confidence"`
	Suggestions     []string `json:"suggestions"`
	Fallback        bool     `json:"fallback"`
}

type Analysis struct {
	Score            int                `json:"score"`
	Issues           []string           `json:"issues"`
	Improvements     []string           `json:"improvements"`
	KeywordDensity   map[string]float64 `json:"keywordDensity"`
	ReadabilityScore float64            `json:"readabilityScore"`
}

const (
	MaxTitleLength = 60
	MaxMetaLength  = 160

	fallbackConfidence = 0.5
	// AI replies always rank above the fallback.
	minAIConfidence     = 0.51
	defaultAIConfidence = 0.7
	maxKeywords         = 8
)
