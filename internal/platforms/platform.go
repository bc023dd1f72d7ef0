package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Platform string

const (
	GitHub   Platform = "github"
	Behance  Platform = "behance"
	Dribbble Platform = "dribbble"
)

// All lists the supported platforms in their canonical order.
var All = []Platform{GitHub, Behance, Dribbble}

// ParsePlatform accepts any casing and surrounding whitespace.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case GitHub, Behance, Dribbble:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported platform %q", s)
	}
}

// DisplayName is the tag appended to every draft imported from p.
func (p Platform) DisplayName() string {
	switch p {
	case GitHub:
		return "GitHub"
	case Behance:
		return "Behance"
	case Dribbble:
		return "Dribbble"
	default:
		return string(p)
	}
}

// Client is the capability every platform adapter implements.
// GetUserItems performs exactly one page request; ConvertToProjectDraft never does I/O.
type Client interface {
	Platform() Platform
	GetUserProfile(ctx context.Context, username string) (Profile, error)
	GetUserItems(ctx context.Context, username string, opts ItemOptions) ([]RawItem, error)
	ConvertToProjectDraft(item RawItem) (ProjectDraft, error)
}

// RawItem is a platform-native payload. The accessors expose just enough for
// settings-driven filtering before conversion.
type RawItem interface {
	Platform() Platform
	ItemID() string
	// Popularity is stars on GitHub, appreciations on Behance and likes on Dribbble.
	Popularity() int64
	Forked() bool
	Archived() bool
}

type ItemOptions struct {
	Sort    string
	PerPage int
	Page    int
	// Type is GitHub's repository affiliation filter ("owner", "member", "all").
	Type string
	// Timeframe is Dribbble's popularity window ("week", "month", "ever"...).
	Timeframe string
}

type Profile struct {
	Platform    Platform `json:"platform"`
	Username    string   `json:"username"`
	DisplayName string   `json:"name,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Location    string   `json:"location,omitempty"`
	Company     string   `json:"company,omitempty"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	ProfileURL  string   `json:"profileUrl,omitempty"`
	Followers   int64    `json:"followers"`
	ItemCount   int64    `json:"itemCount"`
}

// ProjectDraft is the canonical cross-platform project produced by every client.
type ProjectDraft struct {
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	OriginalDescription string    `json:"originalDescription,omitempty"`
	SEODescription      string    `json:"seoDescription,omitempty"`
	Slug                string    `json:"slug,omitempty"`
	ImageURL            string    `json:"imageUrl,omitempty"`
	ProjectURL          string    `json:"projectUrl,omitempty"`
	SourceURL           string    `json:"sourceUrl,omitempty"`
	Tags                []string  `json:"tags"`
	Category            string    `json:"category"`
	ExternalID          string    `json:"externalId"`
	Source              Platform  `json:"source"`
	Featured            bool      `json:"featured"`
	Order               int64     `json:"order"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Key is the per-portfolio uniqueness key of an imported project.
func (d ProjectDraft) Key() string {
	return string(d.Source) + ":" + d.ExternalID
}

// SyncSettings is the per-credential import policy.
type SyncSettings struct {
	MaxProjects       int      `json:"maxProjects,omitempty"`
	ExcludeForked     bool     `json:"excludeForked,omitempty"`
	MinStars          int64    `json:"minStars,omitempty"`
	MinLikes          int64    `json:"minLikes,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	AutoSync          bool     `json:"autoSync,omitempty"`
	SyncIntervalHours int      `json:"syncInterval,omitempty"`
}

const (
	DefaultMaxProjects       = 50
	DefaultSyncIntervalHours = 24
)

func DefaultSettings() SyncSettings {
	return SyncSettings{
		MaxProjects:       DefaultMaxProjects,
		ExcludeForked:     true,
		SyncIntervalHours: DefaultSyncIntervalHours,
	}
}

// InitialSettings is the narrower profile used for a portfolio's first import.
func InitialSettings(p Platform) SyncSettings {
	s := SyncSettings{MaxProjects: 20, AutoSync: true, SyncIntervalHours: DefaultSyncIntervalHours}
	if p == GitHub {
		s.ExcludeForked = true
		s.MinStars = 1
	} else {
		s.MinLikes = 5
	}
	return s
}

// ItemLimit returns MaxProjects or the default when unset.
func (s SyncSettings) ItemLimit() int {
	if s.MaxProjects <= 0 {
		return DefaultMaxProjects
	}
	return s.MaxProjects
}

func (s SyncSettings) Interval() time.Duration {
	h := s.SyncIntervalHours
	if h <= 0 {
		h = DefaultSyncIntervalHours
	}
	return time.Duration(h) * time.Hour
}

// Options configures a client constructor.
type Options struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	Policy     *Policy
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 20 * time.Second}
}

func (o Options) policy() Policy {
	if o.Policy != nil {
		return *o.Policy
	}
	return DefaultPolicy()
}

// Credentials carries the secrets a single sync run may use.
type Credentials struct {
	// AccessToken belongs to the credential's own account and selects the
	// authenticated-user endpoints.
	AccessToken string
	APIKey      string
	// AppToken is a server-wide token. It only authenticates lookups by
	// username and never changes whose items are listed.
	AppToken    string
}

// Factory builds a client for one credential set.
type Factory func(creds Credentials, opts Options) Client

// Registry maps each platform to its client constructor.
var Registry = map[Platform]Factory{
	GitHub:   func(c Credentials, o Options) Client { return NewGitHubClient(c.AccessToken, o).WithAppToken(c.AppToken) },
	Behance:  func(c Credentials, o Options) Client { return NewBehanceClient(c.APIKey, o) },
	Dribbble: func(c Credentials, o Options) Client { return NewDribbbleClient(c.AccessToken, o).WithAppToken(c.AppToken) },
}

// NewClient looks up p in the registry.
func NewClient(p Platform, creds Credentials, opts Options) (Client, error) {
	f, ok := Registry[p]
	if !ok {
		return nil, fmt.Errorf("unsupported platform %q", p)
	}
	return f(creds, opts), nil
}
