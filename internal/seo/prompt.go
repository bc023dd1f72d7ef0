package seo

import (
	"fmt"
	"strings"
)

func systemPrompt(lang Language) string {
	if lang == LanguageEN {
		return "You are an SEO and digital marketing expert. You optimize content to improve its organic search ranking. Reply with a single JSON object."
	}
	return "Tu es un expert en SEO et en marketing digital. Tu optimises les contenus pour améliorer leur référencement naturel. Réponds avec un unique objet JSON."
}

func toneName(t Tone, lang Language) string {
	if lang == LanguageEN {
		return string(t)
	}
	switch t {
	case ToneCreative:
		return "créatif"
	case ToneMinimal:
		return "minimaliste"
	default:
		return "professionnel"
	}
}

var toneInstructions = map[Language]map[Tone][]string{
	LanguageEN: {
		ToneProfessional: {
			"Use sophisticated and precise vocabulary",
			"Emphasize expertise and results",
			"Include appropriate technical terms",
			"Adopt a formal but accessible style",
			"Include concrete metrics and achievements",
		},
		ToneCreative: {
			"Use expressive and imaginative language",
			"Incorporate personality and emotion",
			"Favor metaphors and visual descriptions",
			"Adopt a dynamic and inspiring style",
			"Emphasize innovation and originality",
		},
		ToneMinimal: {
			"Prioritize conciseness and clarity",
			"Eliminate superfluous words",
			"Use short and impactful sentences",
			"Adopt a direct and efficient style",
			"Focus on the essential",
		},
	},
	LanguageFR: {
		ToneProfessional: {
			"Utilisez un vocabulaire soutenu et précis",
			"Mettez l'accent sur l'expertise et les résultats",
			"Privilégiez les termes techniques appropriés",
			"Adoptez un style formel mais accessible",
			"Incluez des métriques et réalisations concrètes",
		},
		ToneCreative: {
			"Utilisez un langage expressif et imagé",
			"Incorporez de la personnalité et de l'émotion",
			"Privilégiez les métaphores et descriptions visuelles",
			"Adoptez un style dynamique et inspirant",
			"Mettez l'accent sur l'innovation et l'originalité",
		},
		ToneMinimal: {
			"Privilégiez la concision et la clarté",
			"Éliminez les mots superflus",
			"Utilisez des phrases courtes et impactantes",
			"Adoptez un style direct et efficace",
			"Concentrez-vous sur l'essentiel",
		},
	},
}

const replyShape = `{
  "title": "...",
  "description": "...",
  "metaDescription": "...",
  "keywords": ["...", "..."],
  "slug": "...",
  "confidence": 0.8,
  "suggestions": ["...", "..."]
}`

func buildPrompt(req Request) string {
	var b strings.Builder
	tone := toneName(req.Tone, req.Language)
	if req.Language == LanguageEN {
		fmt.Fprintf(&b, "Optimize this portfolio content for SEO with a %s tone:\n\n", tone)
		fmt.Fprintf(&b, "Current title: %s\nCurrent description: %s\nCategory: %s\nTags: %s\n",
			req.Title, req.Description, req.Category, strings.Join(req.Tags, ", "))
		if len(req.TargetKeywords) > 0 {
			fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(req.TargetKeywords, ", "))
		}
		b.WriteString("\nTone instructions:\n")
	} else {
		fmt.Fprintf(&b, "Optimise ce contenu de portfolio pour le SEO avec un ton %s :\n\n", tone)
		fmt.Fprintf(&b, "Titre actuel : %s\nDescription actuelle : %s\nCatégorie : %s\nTags : %s\n",
			req.Title, req.Description, req.Category, strings.Join(req.Tags, ", "))
		if len(req.TargetKeywords) > 0 {
			fmt.Fprintf(&b, "Mots-clés cibles : %s\n", strings.Join(req.TargetKeywords, ", "))
		}
		b.WriteString("\nInstructions de ton :\n")
	}
	for _, line := range toneInstructions[req.Language][req.Tone] {
		b.WriteString("- " + line + "\n")
	}
	if req.Language == LanguageEN {
		b.WriteString("\nReply with JSON only. Title 50-60 characters, description 150-300 words, meta description 150-160 characters, confidence between 0 and 1:\n")
	} else {
		b.WriteString("\nRéponds uniquement en JSON. Titre de 50-60 caractères, description de 150-300 mots, meta description de 150-160 caractères, confidence entre 0 et 1 :\n")
	}
	b.WriteString(replyShape)
	return b.String()
}
