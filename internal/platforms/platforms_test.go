package platforms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"
)

type stubTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (s stubTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return s.fn(r)
}

func httpJSON(status int, body string, headers map[string]string) *http.Response {
	h := make(http.Header)
	for k, v := range headers {
		h.Set(k, v)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func stubOptions(fn func(*http.Request) (*http.Response, error)) Options {
	return Options{HTTPClient: &http.Client{Transport: stubTransport{fn: fn}}}
}

func strPtr(s string) *string { return &s }

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" GitHub ")
	if err != nil || p != GitHub {
		t.Fatalf("unexpected: p=%q err=%v", p, err)
	}
	if _, err := ParsePlatform("myspace"); err == nil {
		t.Fatalf("expected error for unsupported platform")
	}
}

func TestRegistryCoversAllPlatforms(t *testing.T) {
	for _, p := range All {
		c, err := NewClient(p, Credentials{}, Options{})
		if err != nil {
			t.Fatalf("NewClient(%s): %v", p, err)
		}
		if c.Platform() != p {
			t.Fatalf("client for %s reports %s", p, c.Platform())
		}
	}
	if _, err := NewClient("myspace", Credentials{}, Options{}); err == nil {
		t.Fatalf("expected unsupported platform error")
	}
}

func TestSettingsDefaults(t *testing.T) {
	var s SyncSettings
	if s.ItemLimit() != 50 {
		t.Fatalf("expected default item limit 50, got %d", s.ItemLimit())
	}
	if s.Interval() != 24*time.Hour {
		t.Fatalf("expected 24h interval, got %s", s.Interval())
	}
	d := DefaultSettings()
	if !d.ExcludeForked || d.MaxProjects != 50 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if i := InitialSettings(GitHub); i.MinStars != 1 || i.MaxProjects != 20 {
		t.Fatalf("unexpected initial github settings: %+v", i)
	}
	if i := InitialSettings(Dribbble); i.MinLikes != 5 {
		t.Fatalf("unexpected initial dribbble settings: %+v", i)
	}
}

func TestGitHubConvert_FeaturedThreshold(t *testing.T) {
	c := NewGitHubClient("", Options{})
	for _, tc := range []struct {
		stars    int64
		featured bool
	}{{9, false}, {10, false}, {11, true}, {500, true}} {
		d, err := c.ConvertToProjectDraft(GitHubRepository{ID: 1, Name: "x", StargazersCount: tc.stars})
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if d.Featured != tc.featured {
			t.Fatalf("stars=%d: expected featured=%v", tc.stars, tc.featured)
		}
		if d.Order != tc.stars {
			t.Fatalf("order should equal stars, got %d", d.Order)
		}
	}
}

func TestGitHubConvert_Mapping(t *testing.T) {
	c := NewGitHubClient("", Options{})
	repo := GitHubRepository{
		ID:          42,
		Name:        "portfolio",
		HTMLURL:     "https://github.com/u/portfolio",
		Language:    strPtr("TypeScript"),
		Topics:      []string{"a", "b", "c", "d", "e", "f"},
		CreatedAt:   "2024-01-02T03:04:05Z",
		UpdatedAt:   "2024-02-02T03:04:05Z",
		Description: nil,
	}
	d, err := c.ConvertToProjectDraft(repo)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if d.Category != "web-development" {
		t.Fatalf("expected web-development, got %q", d.Category)
	}
	wantTags := []string{"TypeScript", "a", "b", "c", "d", "e", "GitHub"}
	if !reflect.DeepEqual(d.Tags, wantTags) {
		t.Fatalf("tags mismatch: %v", d.Tags)
	}
	if d.ExternalID != "42" || d.Source != GitHub {
		t.Fatalf("bad identity: %+v", d)
	}
	if d.Description != "TypeScript project on GitHub" || d.OriginalDescription != "" {
		t.Fatalf("unexpected description: %q / %q", d.Description, d.OriginalDescription)
	}
	if d.CreatedAt.Year() != 2024 || d.UpdatedAt.Month() != time.February {
		t.Fatalf("timestamps not parsed: %v %v", d.CreatedAt, d.UpdatedAt)
	}

	noLang, _ := c.ConvertToProjectDraft(GitHubRepository{ID: 1, Name: "x"})
	if noLang.Category != "development" || noLang.Description != "development project on GitHub" {
		t.Fatalf("unexpected fallback: %+v", noLang)
	}
	if !reflect.DeepEqual(noLang.Tags, []string{"GitHub"}) {
		t.Fatalf("platform tag must always be present: %v", noLang.Tags)
	}

	if _, err := c.ConvertToProjectDraft(DribbbleShot{}); err == nil {
		t.Fatalf("expected wrong-type error")
	}
}

func TestConvertIsPure(t *testing.T) {
	gh := GitHubRepository{ID: 7, Name: "n", Language: strPtr("Go"), Topics: []string{"cli"}, StargazersCount: 12}
	be := BehanceProject{ID: 8, Name: "b", Fields: []string{"Branding"}, Tags: []string{"logo"}, Stats: BehanceStats{Appreciations: 60, Views: 10}}
	dr := DribbbleShot{ID: 9, Title: "d", Tags: []string{"Logo"}, LikesCount: 101}

	for _, tc := range []struct {
		c    Client
		item RawItem
	}{
		{NewGitHubClient("", Options{}), gh},
		{NewBehanceClient("k", Options{}), be},
		{NewDribbbleClient("", Options{}), dr},
	} {
		a, err := tc.c.ConvertToProjectDraft(tc.item)
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		b, _ := tc.c.ConvertToProjectDraft(tc.item)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("conversion not deterministic for %s", tc.c.Platform())
		}
		if !a.Featured {
			t.Fatalf("%s item above threshold should be featured", tc.c.Platform())
		}
	}
}

func TestBehanceConvert(t *testing.T) {
	c := NewBehanceClient("k", Options{})
	p := BehanceProject{
		ID:         100,
		Name:       "Brand refresh",
		URL:        "https://behance.net/gallery/100",
		Fields:     []string{"Photography", "Branding", "Illustration", "Fashion"},
		Tags:       []string{"t1", "t2"},
		Covers:     map[string]string{"230": "small.jpg"},
		CreatedOn:  1700000000,
		ModifiedOn: 1700003600,
		Stats:      BehanceStats{Appreciations: 50, Views: 1000},
	}
	d, err := c.ConvertToProjectDraft(p)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if d.Featured {
		t.Fatalf("50 appreciations must not be featured")
	}
	if d.Category != "photography" {
		t.Fatalf("first matching field wins, got %q", d.Category)
	}
	if d.ImageURL != "small.jpg" {
		t.Fatalf("expected 230 cover fallback, got %q", d.ImageURL)
	}
	if d.Order != 1050 {
		t.Fatalf("order should be appreciations+views, got %d", d.Order)
	}
	wantTags := []string{"t1", "t2", "Photography", "Branding", "Illustration", "Behance"}
	if !reflect.DeepEqual(d.Tags, wantTags) {
		t.Fatalf("tags mismatch: %v", d.Tags)
	}
	if !strings.Contains(d.Description, "50 appreciations") {
		t.Fatalf("unexpected description: %q", d.Description)
	}
	if d.CreatedAt.Unix() != 1700000000 {
		t.Fatalf("created_on not mapped: %v", d.CreatedAt)
	}

	other, _ := c.ConvertToProjectDraft(BehanceProject{ID: 1, Fields: []string{"3D Art"}})
	if other.Category != "design" {
		t.Fatalf("expected design fallback, got %q", other.Category)
	}
}

func TestDribbbleConvert(t *testing.T) {
	c := NewDribbbleClient("", Options{})
	s := DribbbleShot{
		ID:         5,
		Title:      "Onboarding",
		Images:     DribbbleImages{HiDPI: strPtr("hi.png"), Normal: "n.png"},
		Tags:       []string{"Illustration", "UI"},
		LikesCount: 100,
		ViewsCount: 900,
	}
	d, err := c.ConvertToProjectDraft(s)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if d.Featured {
		t.Fatalf("100 likes must not be featured")
	}
	if d.Category != "illustration" {
		t.Fatalf("tag lookup should be case-insensitive and ordered, got %q", d.Category)
	}
	if d.ImageURL != "hi.png" || d.Order != 1000 {
		t.Fatalf("unexpected image/order: %q %d", d.ImageURL, d.Order)
	}
	if d.Description != "Creative design published on Dribbble" {
		t.Fatalf("unexpected fallback description %q", d.Description)
	}
	if got := d.Tags[len(d.Tags)-2:]; !reflect.DeepEqual(got, []string{"Dribbble", "Design"}) {
		t.Fatalf("platform tags missing: %v", d.Tags)
	}
}

func TestCustomPolicy(t *testing.T) {
	pol := DefaultPolicy()
	pol.GitHubFeatured = 0
	pol.GitHubLanguages = []CategoryRule{{"Go", "cloud"}}
	c := NewGitHubClient("", Options{Policy: &pol})
	d, _ := c.ConvertToProjectDraft(GitHubRepository{ID: 1, Language: strPtr("Go"), StargazersCount: 1})
	if d.Category != "cloud" || !d.Featured {
		t.Fatalf("policy not applied: %+v", d)
	}
}

func TestGitHubGetUserItems_PublicEndpoint(t *testing.T) {
	var gotURL, gotAuth, gotUA string
	c := NewGitHubClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		return httpJSON(200, `[{"id":1,"name":"a","stargazers_count":3,"fork":true},{"id":2,"name":"b","archived":true}]`, nil), nil
	}))
	items, err := c.GetUserItems(context.Background(), "octo", ItemOptions{PerPage: 30})
	if err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if len(items) != 2 || !items[0].Forked() || items[0].Popularity() != 3 || !items[1].Archived() {
		t.Fatalf("unexpected items: %+v", items)
	}
	if !strings.HasPrefix(gotURL, "https://api.github.com/users/octo/repos?") ||
		!strings.Contains(gotURL, "per_page=30") || !strings.Contains(gotURL, "sort=updated") || !strings.Contains(gotURL, "type=owner") {
		t.Fatalf("unexpected url %q", gotURL)
	}
	if gotAuth != "" || gotUA != "SmartPortfolio/1.0" {
		t.Fatalf("unexpected headers auth=%q ua=%q", gotAuth, gotUA)
	}
}

func TestGitHubGetUserItems_TokenUsesAuthenticatedEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	c := NewGitHubClient("tok", stubOptions(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		return httpJSON(200, `[]`, nil), nil
	}))
	if _, err := c.GetUserItems(context.Background(), "octo", ItemOptions{}); err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if gotPath != "/user/repos" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected path=%q auth=%q", gotPath, gotAuth)
	}
}

func TestGitHubGetUserItems_AppTokenKeepsUsernameEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	c := Registry[GitHub](Credentials{AppToken: "app"}, stubOptions(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		return httpJSON(200, `[]`, nil), nil
	}))
	if _, err := c.GetUserItems(context.Background(), "alice", ItemOptions{}); err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if gotPath != "/users/alice/repos" || gotAuth != "Bearer app" {
		t.Fatalf("unexpected path=%q auth=%q", gotPath, gotAuth)
	}
}

func TestDribbbleGetUserItems_AppTokenKeepsUsernameEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	c := Registry[Dribbble](Credentials{AppToken: "app"}, stubOptions(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		return httpJSON(200, `[]`, nil), nil
	}))
	if _, err := c.GetUserItems(context.Background(), "alice", ItemOptions{}); err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if gotPath != "/v2/users/alice/shots" || gotAuth != "Bearer app" {
		t.Fatalf("unexpected path=%q auth=%q", gotPath, gotAuth)
	}
}

func TestUpstreamErrorKinds(t *testing.T) {
	cases := []struct {
		status  int
		headers map[string]string
		target  error
	}{
		{404, nil, ErrUpstreamNotFound},
		{401, nil, ErrUpstreamAuth},
		{403, nil, ErrUpstreamAuth},
		{403, map[string]string{"X-RateLimit-Remaining": "0"}, ErrUpstreamRateLimited},
		{429, nil, ErrUpstreamRateLimited},
	}
	for _, tc := range cases {
		c := NewGitHubClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
			return httpJSON(tc.status, `{"message":"nope"}`, tc.headers), nil
		}))
		_, err := c.GetUserProfile(context.Background(), "ghost")
		if !errors.Is(err, tc.target) {
			t.Fatalf("status=%d: expected %v, got %v", tc.status, tc.target, err)
		}
		var ue *UpstreamError
		if !errors.As(err, &ue) || ue.Status != tc.status || ue.Platform != GitHub {
			t.Fatalf("status=%d: expected UpstreamError with status, got %#v", tc.status, err)
		}
	}

	c := NewGitHubClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		return httpJSON(500, `boom`, nil), nil
	}))
	_, err := c.GetUserProfile(context.Background(), "x")
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Kind != KindStatus || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected generic status error, got %v", err)
	}
}

func TestUpstreamNetworkAndBadJSON(t *testing.T) {
	c := NewDribbbleClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		return nil, context.DeadlineExceeded
	}))
	_, err := c.GetUserItems(context.Background(), "d", ItemOptions{})
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	c = NewDribbbleClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		return httpJSON(200, `{not json`, nil), nil
	}))
	_, err = c.GetUserItems(context.Background(), "d", ItemOptions{})
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Kind != KindBadResponse {
		t.Fatalf("expected bad response error, got %v", err)
	}
}

func TestGitHubGetUserProfile(t *testing.T) {
	c := NewGitHubClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/users/octo" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		return httpJSON(200, `{"login":"octo","name":"Octo Cat","bio":null,"public_repos":8,"followers":3}`, nil), nil
	}))
	p, err := c.GetUserProfile(context.Background(), "octo")
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if p.Username != "octo" || p.DisplayName != "Octo Cat" || p.ItemCount != 8 || p.Followers != 3 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := c.GetUserProfile(context.Background(), " "); err == nil {
		t.Fatalf("expected username required error")
	}
}

func TestBehanceRequiresAPIKey(t *testing.T) {
	called := false
	c := NewBehanceClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		called = true
		return httpJSON(200, `{}`, nil), nil
	}))
	_, err := c.GetUserItems(context.Background(), "b", ItemOptions{})
	if !errors.Is(err, ErrUpstreamAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if called {
		t.Fatalf("no request should be made without an api key")
	}
}

func TestBehanceGetUserItems(t *testing.T) {
	var gotQuery string
	c := NewBehanceClient("key1", stubOptions(func(r *http.Request) (*http.Response, error) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/v2/users/bee/projects" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		return httpJSON(200, `{"projects":[{"id":3,"name":"p","privacy":"public","stats":{"appreciations":7,"views":1}},{"id":4,"privacy":"private"}]}`, nil), nil
	}))
	items, err := c.GetUserItems(context.Background(), "bee", ItemOptions{PerPage: 10})
	if err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if len(items) != 2 || items[0].Popularity() != 7 || items[0].Archived() || !items[1].Archived() {
		t.Fatalf("unexpected items: %+v", items)
	}
	if !strings.Contains(gotQuery, "api_key=key1") || !strings.Contains(gotQuery, "sort=published_date") || !strings.Contains(gotQuery, "per_page=10") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestBehanceGetUserProfile(t *testing.T) {
	c := NewBehanceClient("k", stubOptions(func(r *http.Request) (*http.Response, error) {
		return httpJSON(200, `{"user":{"username":"bee","display_name":"Bee","company":"Hive","images":{"138":"a.png"},"stats":{"followers":9}}}`, nil), nil
	}))
	p, err := c.GetUserProfile(context.Background(), "bee")
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if p.DisplayName != "Bee" || p.AvatarURL != "a.png" || p.Followers != 9 || p.Company != "Hive" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestDribbbleEndpoints(t *testing.T) {
	var paths []string
	c := NewDribbbleClient("", stubOptions(func(r *http.Request) (*http.Response, error) {
		paths = append(paths, r.URL.Path)
		return httpJSON(200, `[{"id":1,"title":"s","likes_count":4,"low_profile":true}]`, nil), nil
	}))
	items, err := c.GetUserItems(context.Background(), "dri", ItemOptions{})
	if err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if len(items) != 1 || items[0].Archived() || items[0].Popularity() != 4 {
		t.Fatalf("unexpected items %+v", items)
	}

	authed := NewDribbbleClient("t", stubOptions(func(r *http.Request) (*http.Response, error) {
		paths = append(paths, r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer t" {
			t.Fatalf("missing bearer token")
		}
		return httpJSON(200, `[]`, nil), nil
	}))
	if _, err := authed.GetUserItems(context.Background(), "dri", ItemOptions{}); err != nil {
		t.Fatalf("GetUserItems: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"/v2/users/dri/shots", "/v2/user/shots"}) {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestHelpers(t *testing.T) {
	if truncate("abc", 2) != "ab" || truncate("abc", 0) != "abc" {
		t.Fatalf("truncate failed")
	}
	if normalizeTitle("   ") != "" {
		t.Fatalf("normalizeTitle should trim to empty")
	}
	if len(normalizeTitle(strings.Repeat("a", 300))) != 160 {
		t.Fatalf("normalizeTitle should cap to 160")
	}
	if got := firstN([]string{"a", " ", "b", "c"}, 3); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("firstN unexpected %v", got)
	}
	if !parseRFC3339("garbage").IsZero() || !unixTime(0).IsZero() {
		t.Fatalf("invalid timestamps should be zero")
	}
}
