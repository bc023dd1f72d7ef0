package seo

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BasicOptimization is the deterministic fallback. It never does I/O and
// always returns a title of at most 60 runes and a meta description of at most 160.
func BasicOptimization(req Request) Content {
	req = req.normalized()
	description := optimizeDescription(req.Description, req.Category, req.Language)
	metaSource := req.Description
	if strings.TrimSpace(metaSource) == "" {
		metaSource = description
	}
	return Content{
		Title:           optimizeTitle(req.Title, req.Language),
		Description:     description,
		MetaDescription: metaDescription(metaSource),
		Keywords:        fallbackKeywords(req),
		Slug:            Slug(req.Title),
		Confidence:      fallbackConfidence,
		Suggestions:     fallbackSuggestions(req.Language),
		Fallback:        true,
	}
}

func titleSuffix(lang Language) string {
	if lang == LanguageEN {
		return " - Professional Portfolio"
	}
	return " - Portfolio Professionnel"
}

func optimizeTitle(title string, lang Language) string {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	switch {
	case n > MaxTitleLength:
		return ellipsize(title, MaxTitleLength)
	case n == 0:
		return strings.TrimPrefix(titleSuffix(lang), " - ")
	case n < 30:
		if s := title + titleSuffix(lang); utf8.RuneCountInString(s) <= MaxTitleLength {
			return s
		}
	}
	return title
}

func descriptionPadding(category string, lang Language) string {
	if category = strings.TrimSpace(category); category == "" {
		category = "portfolio"
	}
	if lang == LanguageEN {
		return "This " + category + " project showcases my technical and creative skills. Discover my innovative approach and the results achieved."
	}
	return "Ce projet " + category + " démontre mes compétences techniques et créatives. Découvrez mon approche innovante et les résultats obtenus."
}

func optimizeDescription(description, category string, lang Language) string {
	description = strings.TrimSpace(description)
	words := strings.Fields(description)
	switch {
	case len(words) < 50:
		if description == "" {
			return descriptionPadding(category, lang)
		}
		return description + " " + descriptionPadding(category, lang)
	case len(words) > 100:
		return strings.Join(words[:100], " ") + "..."
	}
	return description
}

func metaDescription(text string) string {
	words := strings.Fields(text)
	if len(words) > 25 {
		words = words[:25]
	}
	return ellipsize(strings.Join(words, " "), MaxMetaLength)
}

func fallbackKeywords(req Request) []string {
	creative := "créatif"
	if req.Language == LanguageEN {
		creative = "creative"
	}
	candidates := make([]string, 0, len(req.Tags)+4)
	candidates = append(candidates, req.Tags...)
	candidates = append(candidates, req.Category, "portfolio", "design", creative)
	return dedupeKeywords(candidates, maxKeywords)
}

func dedupeKeywords(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, limit)
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
		if len(out) == limit {
			break
		}
	}
	return out
}

func fallbackSuggestions(lang Language) []string {
	if lang == LanguageEN {
		return []string{
			"Use relevant keywords in the title",
			"Add more detail to the description",
			"Include a clear call-to-action",
		}
	}
	return []string{
		"Utilisez des mots-clés pertinents dans le titre",
		"Ajoutez plus de détails dans la description",
		"Incluez un call-to-action clair",
	}
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s, strips accents and joins alphanumeric runs with hyphens.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	plain = slugSeparators.ReplaceAllString(strings.ToLower(plain), "-")
	return strings.Trim(plain, "-")
}

// ellipsize keeps s within limit runes, replacing the tail with "..." when cut.
func ellipsize(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:limit-3]), unicode.IsSpace) + "..."
}
