package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type DribbbleImages struct {
	HiDPI  *string `json:"hidpi"`
	Normal string  `json:"normal"`
	Teaser string  `json:"teaser"`
}

type DribbbleShot struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Images      DribbbleImages `json:"images"`
	PublishedAt string         `json:"published_at"`
	UpdatedAt   string         `json:"updated_at"`
	HTMLURL     string         `json:"html_url"`
	Animated    bool           `json:"animated"`
	Tags        []string       `json:"tags"`
	LowProfile  bool           `json:"low_profile"`
	ViewsCount  int64          `json:"views_count"`
	LikesCount  int64          `json:"likes_count"`
}

func (s DribbbleShot) Platform() Platform { return Dribbble }
func (s DribbbleShot) ItemID() string     { return strconv.FormatInt(s.ID, 10) }
func (s DribbbleShot) Popularity() int64  { return s.LikesCount }
func (s DribbbleShot) Forked() bool       { return false }

// Archived is always false: the API only lists live shots, and low-profile
// shots still appear on the owner's profile.
func (s DribbbleShot) Archived() bool { return false }

type dribbbleUser struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Login              string  `json:"login"`
	Username           string  `json:"username"`
	HTMLURL            string  `json:"html_url"`
	AvatarURL          string  `json:"avatar_url"`
	Bio                *string `json:"bio"`
	Location           *string `json:"location"`
	FollowersCount     int64   `json:"followers_count"`
	ShotsCount         int64   `json:"shots_count"`
	LikesReceivedCount int64   `json:"likes_received_count"`
}

// DribbbleClient talks to the Dribbble v2 API. The token is optional for public data.
type DribbbleClient struct {
	token    string
	appToken string
	baseURL  string
	client   *http.Client
	policy   Policy
}

func NewDribbbleClient(token string, opts Options) *DribbbleClient {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.dribbble.com/v2"
	}
	return &DribbbleClient{
		token:   strings.TrimSpace(token),
		baseURL: strings.TrimRight(base, "/"),
		client:  opts.httpClient(),
		policy:  opts.policy(),
	}
}

func (c *DribbbleClient) Platform() Platform { return Dribbble }

// WithAppToken sets a server token used for username lookups.
func (c *DribbbleClient) WithAppToken(token string) *DribbbleClient {
	c.appToken = strings.TrimSpace(token)
	return c
}

func (c *DribbbleClient) headers() map[string]string {
	tok := firstNonEmpty(c.token, c.appToken)
	if tok == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

func (c *DribbbleClient) GetUserProfile(ctx context.Context, username string) (Profile, error) {
	var u dribbbleUser
	if err := getJSON(ctx, c.client, Dribbble, c.baseURL+"/users/"+url.PathEscape(username), c.headers(), &u); err != nil {
		return Profile{}, err
	}
	login := u.Username
	if login == "" {
		login = u.Login
	}
	return Profile{
		Platform:    Dribbble,
		Username:    login,
		DisplayName: u.Name,
		Bio:         deref(u.Bio),
		Location:    deref(u.Location),
		AvatarURL:   u.AvatarURL,
		ProfileURL:  u.HTMLURL,
		Followers:   u.FollowersCount,
		ItemCount:   u.ShotsCount,
	}, nil
}

// GetUserItems lists shots, most recent first by default.
func (c *DribbbleClient) GetUserItems(ctx context.Context, username string, opts ItemOptions) ([]RawItem, error) {
	if opts.Sort == "" {
		opts.Sort = "recent"
	}
	opts.Type = ""
	endpoint := "/user/shots"
	if c.token == "" {
		endpoint = "/users/" + url.PathEscape(username) + "/shots"
	}
	u := c.baseURL + endpoint
	if q := itemQuery(opts).Encode(); q != "" {
		u += "?" + q
	}
	var shots []DribbbleShot
	if err := getJSON(ctx, c.client, Dribbble, u, c.headers(), &shots); err != nil {
		return nil, err
	}
	out := make([]RawItem, 0, len(shots))
	for _, s := range shots {
		out = append(out, s)
	}
	return out, nil
}

func (c *DribbbleClient) ConvertToProjectDraft(item RawItem) (ProjectDraft, error) {
	s, ok := item.(DribbbleShot)
	if !ok {
		return ProjectDraft{}, fmt.Errorf("dribbble: cannot convert %T", item)
	}
	return convertDribbbleShot(s, c.policy), nil
}

func convertDribbbleShot(s DribbbleShot, pol Policy) ProjectDraft {
	original := strings.TrimSpace(deref(s.Description))
	description := original
	if description == "" {
		description = "Creative design published on Dribbble"
	}

	tags := make([]string, 0, 7)
	tags = append(tags, firstN(s.Tags, 5)...)
	tags = append(tags, Dribbble.DisplayName(), "Design")

	image := deref(s.Images.HiDPI)
	if image == "" {
		image = s.Images.Normal
	}

	return ProjectDraft{
		Title:               normalizeTitle(s.Title),
		Description:         description,
		OriginalDescription: original,
		ImageURL:            image,
		ProjectURL:          s.HTMLURL,
		Tags:                tags,
		Category:            lookupCategory(pol.DribbbleTags, s.Tags, true, pol.DesignFallback),
		ExternalID:          s.ItemID(),
		Source:              Dribbble,
		Featured:            s.LikesCount > pol.DribbbleFeatured,
		Order:               s.LikesCount + s.ViewsCount,
		CreatedAt:           parseRFC3339(s.PublishedAt),
		UpdatedAt:           parseRFC3339(s.UpdatedAt),
	}
}
