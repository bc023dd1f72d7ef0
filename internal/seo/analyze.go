package seo

import (
	"math"
	"regexp"
	"strings"
)

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// AnalyzeContent scores text for SEO without calling any service.
func AnalyzeContent(text string, keywords []string) Analysis {
	words := strings.Fields(strings.ToLower(text))
	total := len(words)

	density := make(map[string]float64, len(keywords))
	for _, kw := range keywords {
		needle := strings.ToLower(strings.TrimSpace(kw))
		if needle == "" || total == 0 {
			density[kw] = 0
			continue
		}
		n := 0
		for _, w := range words {
			if strings.Contains(w, needle) {
				n++
			}
		}
		density[kw] = float64(n) / float64(total)
	}

	sentences := 0
	for _, s := range sentenceBreak.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	readability := 206.835 - 1.015*(float64(total)/float64(sentences))
	readability = math.Max(0, math.Min(100, readability))

	score := 50
	if total >= 150 && total <= 300 {
		score += 20
	}
	if readability > 60 {
		score += 15
	}
	inRange, allLow := false, true
	for _, d := range density {
		if d > 0.01 && d < 0.05 {
			inRange = true
		}
		if d >= 0.01 {
			allLow = false
		}
	}
	if inRange {
		score += 15
	}

	a := Analysis{
		Score:            score,
		Issues:           []string{},
		Improvements:     []string{},
		KeywordDensity:   density,
		ReadabilityScore: math.Round(readability),
	}
	if total < 100 {
		a.Issues = append(a.Issues, "description too short")
		a.Improvements = append(a.Improvements, "add more detail about the project")
	}
	if total > 400 {
		a.Issues = append(a.Issues, "description too long")
		a.Improvements = append(a.Improvements, "condense the main content")
	}
	if readability < 50 {
		a.Issues = append(a.Issues, "low readability")
		a.Improvements = append(a.Improvements, "use shorter sentences")
	}
	if len(density) > 0 && allLow {
		a.Issues = append(a.Issues, "keyword density too low")
		a.Improvements = append(a.Improvements, "include more relevant keywords")
	}
	return a
}

var recommendedKeywords = map[Language]map[string][]string{
	LanguageFR: {
		"web-design":     {"design web", "ui/ux", "interface utilisateur", "site web", "responsive"},
		"graphic-design": {"design graphique", "identité visuelle", "création graphique", "print"},
		"branding":       {"branding", "identité de marque", "logo", "charte graphique"},
		"photography":    {"photographie", "photo", "shooting", "portrait", "paysage"},
		"illustration":   {"illustration", "dessin", "art numérique", "création"},
		"development":    {"développement", "programmation", "code", "application", "web"},
	},
	LanguageEN: {
		"web-design":     {"web design", "ui/ux", "user interface", "website", "responsive"},
		"graphic-design": {"graphic design", "visual identity", "design", "print"},
		"branding":       {"branding", "brand identity", "logo", "brand guidelines"},
		"photography":    {"photography", "photo", "portrait", "landscape", "commercial"},
		"illustration":   {"illustration", "drawing", "digital art", "artwork"},
		"development":    {"development", "programming", "coding", "application", "web"},
	},
}

// RecommendedKeywords returns a copy of the keyword list for a category.
func RecommendedKeywords(category string, lang Language) []string {
	lang = ParseLanguage(string(lang))
	if kws, ok := recommendedKeywords[lang][strings.ToLower(strings.TrimSpace(category))]; ok {
		return append([]string(nil), kws...)
	}
	return []string{"portfolio", "creative", "professional"}
}
