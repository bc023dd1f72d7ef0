package platforms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrUpstreamNotFound    = errors.New("upstream: not found")
	ErrUpstreamAuth        = errors.New("upstream: authentication failed")
	ErrUpstreamRateLimited = errors.New("upstream: rate limited")
	ErrUpstreamTimeout     = errors.New("upstream: timeout")
)

type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindNetwork     ErrorKind = "network"
	KindBadResponse ErrorKind = "bad_response"
	KindStatus      ErrorKind = "status"
)

// UpstreamError preserves the raw status and message of a failed platform call.
type UpstreamError struct {
	Platform Platform
	Kind     ErrorKind
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s api error: %d %s", e.Platform.DisplayName(), e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Platform.DisplayName(), e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets callers match on the kind sentinels.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstreamNotFound:
		return e.Kind == KindNotFound
	case ErrUpstreamAuth:
		return e.Kind == KindAuth
	case ErrUpstreamRateLimited:
		return e.Kind == KindRateLimited
	case ErrUpstreamTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

func statusError(p Platform, res *http.Response, body []byte) *UpstreamError {
	e := &UpstreamError{
		Platform: p,
		Kind:     KindStatus,
		Status:   res.StatusCode,
		Message:  truncate(http.StatusText(res.StatusCode)+" "+string(body), 300),
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case res.StatusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case res.StatusCode == http.StatusForbidden && res.Header.Get("X-RateLimit-Remaining") == "0":
		e.Kind = KindRateLimited
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		e.Kind = KindAuth
	}
	return e
}

func transportError(p Platform, err error) *UpstreamError {
	e := &UpstreamError{Platform: p, Kind: KindNetwork, Message: err.Error(), Err: err}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		e.Kind = KindTimeout
	}
	return e
}

func missingCredential(p Platform, what string) *UpstreamError {
	return &UpstreamError{Platform: p, Kind: KindAuth, Message: what + " required"}
}
