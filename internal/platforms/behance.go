package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type BehanceStats struct {
	Views         int64 `json:"views"`
	Appreciations int64 `json:"appreciations"`
	Comments      int64 `json:"comments"`
}

type BehanceProject struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	PublishedOn int64             `json:"published_on"`
	CreatedOn   int64             `json:"created_on"`
	ModifiedOn  int64             `json:"modified_on"`
	URL         string            `json:"url"`
	Privacy     string            `json:"privacy"`
	Fields      []string          `json:"fields"`
	Covers      map[string]string `json:"covers"`
	Tags        []string          `json:"tags"`
	Stats       BehanceStats      `json:"stats"`
}

func (p BehanceProject) Platform() Platform { return Behance }
func (p BehanceProject) ItemID() string     { return strconv.FormatInt(p.ID, 10) }
func (p BehanceProject) Popularity() int64  { return p.Stats.Appreciations }
func (p BehanceProject) Forked() bool       { return false }

// Archived reports projects that are no longer publicly visible.
func (p BehanceProject) Archived() bool {
	return p.Privacy != "" && p.Privacy != "public"
}

type behanceUser struct {
	ID          int64             `json:"id"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Location    string            `json:"location"`
	Company     string            `json:"company"`
	Occupation  string            `json:"occupation"`
	URL         string            `json:"url"`
	Images      map[string]string `json:"images"`
	Stats       struct {
		Followers     int64 `json:"followers"`
		Appreciations int64 `json:"appreciations"`
		Views         int64 `json:"views"`
	} `json:"stats"`
}

// BehanceClient talks to the Behance v2 API. Every call needs an API key.
type BehanceClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	policy  Policy
}

func NewBehanceClient(apiKey string, opts Options) *BehanceClient {
	base := opts.BaseURL
	if base == "" {
		base = "https://www.behance.net/v2"
	}
	return &BehanceClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(base, "/"),
		client:  opts.httpClient(),
		policy:  opts.policy(),
	}
}

func (c *BehanceClient) Platform() Platform { return Behance }

func (c *BehanceClient) endpoint(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	return c.baseURL + path + "?" + q.Encode()
}

func (c *BehanceClient) GetUserProfile(ctx context.Context, username string) (Profile, error) {
	if c.apiKey == "" {
		return Profile{}, missingCredential(Behance, "api key")
	}
	var payload struct {
		User behanceUser `json:"user"`
	}
	if err := getJSON(ctx, c.client, Behance, c.endpoint("/users/"+url.PathEscape(username), nil), nil, &payload); err != nil {
		return Profile{}, err
	}
	u := payload.User
	return Profile{
		Platform:    Behance,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Occupation,
		Location:    u.Location,
		Company:     u.Company,
		AvatarURL:   u.Images["138"],
		ProfileURL:  u.URL,
		Followers:   u.Stats.Followers,
	}, nil
}

// GetUserItems lists projects sorted by publication date unless opts.Sort says otherwise.
func (c *BehanceClient) GetUserItems(ctx context.Context, username string, opts ItemOptions) ([]RawItem, error) {
	if c.apiKey == "" {
		return nil, missingCredential(Behance, "api key")
	}
	if opts.Sort == "" {
		opts.Sort = "published_date"
	}
	opts.Type, opts.Timeframe = "", ""
	var payload struct {
		Projects []BehanceProject `json:"projects"`
	}
	u := c.endpoint("/users/"+url.PathEscape(username)+"/projects", itemQuery(opts))
	if err := getJSON(ctx, c.client, Behance, u, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]RawItem, 0, len(payload.Projects))
	for _, p := range payload.Projects {
		out = append(out, p)
	}
	return out, nil
}

func (c *BehanceClient) ConvertToProjectDraft(item RawItem) (ProjectDraft, error) {
	p, ok := item.(BehanceProject)
	if !ok {
		return ProjectDraft{}, fmt.Errorf("behance: cannot convert %T", item)
	}
	return convertBehanceProject(p, c.policy), nil
}

func behanceDescription(p BehanceProject) string {
	return fmt.Sprintf("Creative project in: %s. %d appreciations, %d views.",
		strings.Join(p.Fields, ", "), p.Stats.Appreciations, p.Stats.Views)
}

func convertBehanceProject(p BehanceProject, pol Policy) ProjectDraft {
	description := behanceDescription(p)

	tags := make([]string, 0, 9)
	tags = append(tags, firstN(p.Tags, 5)...)
	tags = append(tags, firstN(p.Fields, 3)...)
	tags = append(tags, Behance.DisplayName())

	image := p.Covers["404"]
	if image == "" {
		image = p.Covers["230"]
	}

	return ProjectDraft{
		Title:               normalizeTitle(p.Name),
		Description:         description,
		OriginalDescription: description,
		ImageURL:            image,
		ProjectURL:          p.URL,
		Tags:                tags,
		Category:            lookupCategory(pol.BehanceFields, p.Fields, false, pol.DesignFallback),
		ExternalID:          p.ItemID(),
		Source:              Behance,
		Featured:            p.Stats.Appreciations > pol.BehanceFeatured,
		Order:               p.Stats.Appreciations + p.Stats.Views,
		CreatedAt:           unixTime(p.CreatedOn),
		UpdatedAt:           unixTime(p.ModifiedOn),
	}
}
