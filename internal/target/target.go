package target

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrUnknownTarget is returned when a target name is not configured.
// This is a caller error (bad configuration or typo), not a remote failure.
var ErrUnknownTarget = errors.New("unknown target")

// Algorithm selects the HMAC hash used when signing requests for a target.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// ParseAlgorithm parses a configured algorithm name.
// An empty value defaults to sha1.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "", "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	default:
		return "", fmt.Errorf("unsupported signing algorithm: %q", s)
	}
}

// Credentials holds everything needed to talk to one remote target
// (tenant/site). Loaded at startup, read-only afterwards.
type Credentials struct {
	Name         string
	BaseURL      string // scheme+host, no trailing slash
	ListPath     string // e.g. "/api/stock"
	Token        string
	Secret       string
	Algorithm    Algorithm
	VendorPrefix string // header prefix: x-{vendor}-date etc.

	// SuccessFlag means a 2xx status alone is not enough: the response
	// body must also carry {"success": true}.
	SuccessFlag bool

	PageSize int
	MaxPages int

	// Listing-page retry policy. Updates are never retried.
	MaxRetries   int
	BackoffMs    int
	BackoffMaxMs int

	// Requests per second for listing calls, 0 = unlimited.
	RateLimit float64

	TimeoutSeconds int

	CacheSliding  time.Duration
	CacheAbsolute time.Duration
}

// Validate checks that the credential set is usable. Missing token or
// secret is a startup-time failure, not a per-request one.
func (c *Credentials) Validate() error {
	if c.Name == "" {
		return errors.New("target name is required")
	}
	if c.Token == "" {
		return fmt.Errorf("target %s: token is required", c.Name)
	}
	if c.Secret == "" {
		return fmt.Errorf("target %s: secret is required", c.Name)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("target %s: invalid base URL %q", c.Name, c.BaseURL)
	}
	if c.ListPath == "" || !strings.HasPrefix(c.ListPath, "/") {
		return fmt.Errorf("target %s: list path must start with '/'", c.Name)
	}
	return nil
}

// Registry resolves a logical target name to its credentials.
// Static after construction, safe for concurrent reads.
type Registry struct {
	targets map[string]*Credentials
}

// NewRegistry builds a registry from validated credential sets.
func NewRegistry(creds []*Credentials) (*Registry, error) {
	targets := make(map[string]*Credentials, len(creds))
	for _, c := range creds {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, ok := targets[c.Name]; ok {
			return nil, fmt.Errorf("duplicate target: %s", c.Name)
		}
		targets[c.Name] = c
	}
	return &Registry{targets: targets}, nil
}

// Resolve returns the credentials for a target name.
func (r *Registry) Resolve(name string) (*Credentials, error) {
	c, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	return c, nil
}

// Names returns the configured target names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	return names
}
