// Package updater checks the project release feed for a newer version. The
// check is informational only; it never downloads or installs anything.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the latest-release feed.
const DefaultEndpoint = "https://api.github.com/repos/cpadlab/project-key/releases/latest"

const checkTimeout = 5 * time.Second

// Checker fetches the latest published version.
type Checker struct {
	endpoint string
	current  string
	client   *http.Client
	log      *zap.Logger
}

// New returns a checker comparing against the given running version.
func New(current string, log *zap.Logger) *Checker {
	return NewWithEndpoint(DefaultEndpoint, current, log)
}

// NewWithEndpoint returns a checker against a custom feed.
func NewWithEndpoint(endpoint, current string, log *zap.Logger) *Checker {
	return &Checker{
		endpoint: endpoint,
		current:  current,
		client:   &http.Client{Timeout: checkTimeout},
		log:      log,
	}
}

type release struct {
	TagName string `json:"tag_name"`
}

// Check returns the latest published version and whether it is newer than
// the running one.
func (c *Checker) Check(ctx context.Context) (latest string, newer bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", false, fmt.Errorf("updater: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "project-key")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("updater: version check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("updater: version check returned status %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", false, fmt.Errorf("updater: malformed release feed: %w", err)
	}
	if rel.TagName == "" {
		return "", false, fmt.Errorf("updater: release feed has no tag")
	}
	return rel.TagName, IsNewer(rel.TagName, c.current), nil
}

// LogCheck runs the check and reports the outcome through the logger only.
// Network failures are logged at debug level and swallowed.
func (c *Checker) LogCheck(ctx context.Context) {
	latest, newer, err := c.Check(ctx)
	if err != nil {
		c.log.Debug("version check failed", zap.Error(err))
		return
	}
	if newer {
		c.log.Info("a newer version is available",
			zap.String("current", c.current), zap.String("latest", latest))
		return
	}
	c.log.Debug("running the latest version", zap.String("current", c.current))
}

// IsNewer compares two dotted version strings, ignoring a leading "v".
// Non-numeric segments compare lexically; a malformed candidate is never
// considered newer.
func IsNewer(candidate, current string) bool {
	a := splitVersion(candidate)
	b := splitVersion(current)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := segment(a, i), segment(b, i)
		if av == bv {
			continue
		}
		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			return an > bn
		}
		return av > bv
	}
	return false
}

func splitVersion(v string) []string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil
	}
	return strings.Split(v, ".")
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}
