package seo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidReply = errors.New("seo: invalid model reply")

type aiReply struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        []string `json:"keywords"`
	Slug            string   `json:"slug"`
	Confidence      *float64 `json:"confidence"`
	Suggestions     []string `json:"suggestions"`
}

// extractJSONObject decodes the first JSON object embedded in text.
func extractJSONObject(text string, dst any) error {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return fmt.Errorf("%w: no json object", ErrInvalidReply)
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return nil
}

// parseReply validates the model output and clamps it to the length targets.
func parseReply(text string, req Request) (Content, error) {
	var r aiReply
	if err := extractJSONObject(text, &r); err != nil {
		return Content{}, err
	}
	title := strings.TrimSpace(r.Title)
	description := strings.TrimSpace(r.Description)
	if title == "" || description == "" {
		return Content{}, fmt.Errorf("%w: missing title or description", ErrInvalidReply)
	}
	confidence := defaultAIConfidence
	if r.Confidence != nil {
		if *r.Confidence < 0 || *r.Confidence > 1 {
			return Content{}, fmt.Errorf("%w: confidence %v out of range", ErrInvalidReply, *r.Confidence)
		}
		confidence = *r.Confidence
	}
	if confidence < minAIConfidence {
		confidence = minAIConfidence
	}

	meta := strings.TrimSpace(r.MetaDescription)
	if meta == "" {
		meta = metaDescription(description)
	}
	keywords := dedupeKeywords(r.Keywords, maxKeywords)
	if len(keywords) == 0 {
		keywords = fallbackKeywords(req)
	}
	slug := Slug(r.Slug)
	if slug == "" {
		slug = Slug(title)
	}
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return Content{
		Title:           ellipsize(title, MaxTitleLength),
		Description:     description,
		MetaDescription: ellipsize(meta, MaxMetaLength),
		Keywords:        keywords,
		Slug:            slug,
		Confidence:      confidence,
		Suggestions:     suggestions,
	}, nil
}
