package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type GitHubRepository struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Description     *string  `json:"description"`
	HTMLURL         string   `json:"html_url"`
	Homepage        *string  `json:"homepage"`
	Language        *string  `json:"language"`
	Topics          []string `json:"topics"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	PushedAt        string   `json:"pushed_at"`
	StargazersCount int64    `json:"stargazers_count"`
	ForksCount      int64    `json:"forks_count"`
	IsArchived      bool     `json:"archived"`
	Fork            bool     `json:"fork"`
}

func (r GitHubRepository) Platform() Platform { return GitHub }
func (r GitHubRepository) ItemID() string     { return strconv.FormatInt(r.ID, 10) }
func (r GitHubRepository) Popularity() int64  { return r.StargazersCount }
func (r GitHubRepository) Forked() bool       { return r.Fork }
func (r GitHubRepository) Archived() bool     { return r.IsArchived }

type gitHubUser struct {
	Login       string  `json:"login"`
	ID          int64   `json:"id"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	Company     *string `json:"company"`
	Location    *string `json:"location"`
	PublicRepos int64   `json:"public_repos"`
	Followers   int64   `json:"followers"`
	Following   int64   `json:"following"`
}

// GitHubClient talks to the GitHub REST v3 API. The token is optional; without
// it only public repositories of the named user are visible.
type GitHubClient struct {
	token     string
	appToken  string
	baseURL   string
	userAgent string
	client    *http.Client
	policy    Policy
}

func NewGitHubClient(token string, opts Options) *GitHubClient {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &GitHubClient{
		token:     strings.TrimSpace(token),
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: ua,
		client:    opts.httpClient(),
		policy:    opts.policy(),
	}
}

func (c *GitHubClient) Platform() Platform { return GitHub }

// WithAppToken sets a server token used for username lookups when the
// credential carries none of its own.
func (c *GitHubClient) WithAppToken(token string) *GitHubClient {
	c.appToken = strings.TrimSpace(token)
	return c
}

func (c *GitHubClient) headers() map[string]string {
	h := map[string]string{
		"Accept":     "application/vnd.github.v3+json",
		"User-Agent": c.userAgent,
	}
	if tok := firstNonEmpty(c.token, c.appToken); tok != "" {
		h["Authorization"] = "Bearer " + tok
	}
	return h
}

func (c *GitHubClient) GetUserProfile(ctx context.Context, username string) (Profile, error) {
	if strings.TrimSpace(username) == "" {
		return Profile{}, fmt.Errorf("github: username is required")
	}
	var u gitHubUser
	if err := getJSON(ctx, c.client, GitHub, c.baseURL+"/users/"+url.PathEscape(username), c.headers(), &u); err != nil {
		return Profile{}, err
	}
	return Profile{
		Platform:    GitHub,
		Username:    u.Login,
		DisplayName: deref(u.Name),
		Bio:         deref(u.Bio),
		Company:     deref(u.Company),
		Location:    deref(u.Location),
		AvatarURL:   u.AvatarURL,
		ProfileURL:  u.HTMLURL,
		Followers:   u.Followers,
		ItemCount:   u.PublicRepos,
	}, nil
}

// GetUserItems lists repositories, most recently updated first by default.
// With the credential's own token the authenticated user's repositories are
// listed instead; an app token keeps the username endpoint.
func (c *GitHubClient) GetUserItems(ctx context.Context, username string, opts ItemOptions) ([]RawItem, error) {
	if opts.Sort == "" {
		opts.Sort = "updated"
	}
	if opts.Type == "" {
		opts.Type = "owner"
	}
	endpoint := "/user/repos"
	if c.token == "" {
		if strings.TrimSpace(username) == "" {
			return nil, fmt.Errorf("github: username is required")
		}
		endpoint = "/users/" + url.PathEscape(username) + "/repos"
	}
	u := c.baseURL + endpoint
	if q := itemQuery(opts).Encode(); q != "" {
		u += "?" + q
	}

	var repos []GitHubRepository
	if err := getJSON(ctx, c.client, GitHub, u, c.headers(), &repos); err != nil {
		return nil, err
	}
	out := make([]RawItem, 0, len(repos))
	for _, r := range repos {
		out = append(out, r)
	}
	return out, nil
}

func (c *GitHubClient) ConvertToProjectDraft(item RawItem) (ProjectDraft, error) {
	repo, ok := item.(GitHubRepository)
	if !ok {
		return ProjectDraft{}, fmt.Errorf("github: cannot convert %T", item)
	}
	return convertGitHubRepository(repo, c.policy), nil
}

func convertGitHubRepository(repo GitHubRepository, pol Policy) ProjectDraft {
	language := deref(repo.Language)
	description := strings.TrimSpace(deref(repo.Description))
	original := description
	if description == "" {
		kind := language
		if kind == "" {
			kind = "development"
		}
		description = kind + " project on GitHub"
	}

	tags := make([]string, 0, 7)
	if language != "" {
		tags = append(tags, language)
	}
	tags = append(tags, firstN(repo.Topics, 5)...)
	tags = append(tags, GitHub.DisplayName())

	var signals []string
	if language != "" {
		signals = []string{language}
	}

	return ProjectDraft{
		Title:               normalizeTitle(repo.Name),
		Description:         description,
		OriginalDescription: original,
		ProjectURL:          repo.HTMLURL,
		SourceURL:           repo.HTMLURL,
		Tags:                tags,
		Category:            lookupCategory(pol.GitHubLanguages, signals, false, pol.GitHubFallback),
		ExternalID:          repo.ItemID(),
		Source:              GitHub,
		Featured:            repo.StargazersCount > pol.GitHubFeatured,
		Order:               repo.StargazersCount,
		CreatedAt:           parseRFC3339(repo.CreatedAt),
		UpdatedAt:           parseRFC3339(repo.UpdatedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
