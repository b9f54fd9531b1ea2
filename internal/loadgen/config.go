package loadgen

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RunConfig describes one benchmark run. It is immutable for the run's
// lifetime: validate it once, then hand it to the scheduler.
type RunConfig struct {
	// TestID names the scenario being driven. The CLI checks it
	// against the scenario registry before any load is generated.
	TestID string

	// VUs is the number of concurrent virtual users. Must be >= 1.
	VUs int

	// Duration is the nominal load phase length. Zero is valid and
	// performs no iterations.
	Duration time.Duration

	// BaseURL is the target's base address, e.g. https://localhost:8443.
	BaseURL string

	// Username and Password are optional basic-auth credentials.
	Username string
	Password string

	// Insecure skips TLS certificate verification. This is a deliberate
	// allowance for benchmarking disposable targets and must never be
	// the default anywhere else.
	Insecure bool
}

// Validate rejects a malformed config before any load is generated.
func (c *RunConfig) Validate() error {
	if c.TestID == "" {
		return fmt.Errorf("test identifier is required")
	}
	if c.VUs < 1 {
		return fmt.Errorf("vus must be >= 1, got %d", c.VUs)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must be >= 0, got %s", c.Duration)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must use http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", c.BaseURL)
	}
	return nil
}

// SplitAuth parses a "user:pass" pair as accepted by the CLI.
func SplitAuth(auth string) (user, pass string, err error) {
	if auth == "" {
		return "", "", nil
	}
	user, pass, ok := strings.Cut(auth, ":")
	if !ok {
		return "", "", fmt.Errorf("auth must be user:pass, got %q", auth)
	}
	return user, pass, nil
}
