package platforms

import "strings"

// CategoryRule maps one raw signal (language, field or tag) to a category.
type CategoryRule struct {
	Signal   string
	Category string
}

// Policy holds the product decisions applied during conversion. Rules are
// ordered; the first item signal with a matching rule wins.
type Policy struct {
	GitHubLanguages  []CategoryRule
	BehanceFields    []CategoryRule
	DribbbleTags     []CategoryRule
	GitHubFallback   string
	DesignFallback   string
	GitHubFeatured   int64
	BehanceFeatured  int64
	DribbbleFeatured int64
}

func DefaultPolicy() Policy {
	return Policy{
		GitHubLanguages: []CategoryRule{
			{"JavaScript", "web-development"},
			{"TypeScript", "web-development"},
			{"React", "web-development"},
			{"Vue", "web-development"},
			{"Angular", "web-development"},
			{"HTML", "web-development"},
			{"CSS", "web-development"},
			{"SCSS", "web-development"},
			{"Python", "backend-development"},
			{"Java", "backend-development"},
			{"C#", "backend-development"},
			{"Go", "backend-development"},
			{"Rust", "backend-development"},
			{"PHP", "backend-development"},
			{"Ruby", "backend-development"},
			{"Swift", "mobile-development"},
			{"Kotlin", "mobile-development"},
			{"Dart", "mobile-development"},
			{"Flutter", "mobile-development"},
			{"C++", "system-programming"},
			{"C", "system-programming"},
			{"Shell", "devops"},
			{"Dockerfile", "devops"},
			{"YAML", "devops"},
		},
		BehanceFields: []CategoryRule{
			{"Graphic Design", "graphic-design"},
			{"Web Design", "web-design"},
			{"UI/UX", "ui-ux"},
			{"Branding", "branding"},
			{"Illustration", "illustration"},
			{"Photography", "photography"},
			{"Motion Graphics", "motion-graphics"},
			{"Art Direction", "art-direction"},
			{"Architecture", "architecture"},
			{"Fashion", "fashion"},
			{"Industrial Design", "industrial-design"},
			{"Interaction Design", "interaction-design"},
			{"Product Design", "product-design"},
			{"Packaging", "packaging"},
		},
		DribbbleTags: []CategoryRule{
			{"ui", "ui-ux"},
			{"ux", "ui-ux"},
			{"web", "web-design"},
			{"mobile", "mobile-design"},
			{"app", "mobile-design"},
			{"logo", "branding"},
			{"branding", "branding"},
			{"identity", "branding"},
			{"illustration", "illustration"},
			{"icon", "icon-design"},
			{"typography", "typography"},
			{"print", "print-design"},
			{"poster", "print-design"},
			{"packaging", "packaging"},
			{"motion", "motion-graphics"},
			{"animation", "motion-graphics"},
			{"photography", "photography"},
			{"mockup", "mockup"},
		},
		GitHubFallback:   "development",
		DesignFallback:   "design",
		GitHubFeatured:   10,
		BehanceFeatured:  50,
		DribbbleFeatured: 100,
	}
}

// lookupCategory walks signals in item order and returns the first mapped category.
func lookupCategory(rules []CategoryRule, signals []string, foldCase bool, fallback string) string {
	for _, sig := range signals {
		if foldCase {
			sig = strings.ToLower(sig)
		}
		for _, r := range rules {
			if r.Signal == sig {
				return r.Category
			}
		}
	}
	return fallback
}
