package security

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultPwnedBaseURL is the Have I Been Pwned range endpoint.
const DefaultPwnedBaseURL = "https://api.pwnedpasswords.com/range/"

const pwnedTimeout = 5 * time.Second

// PwnedClient checks passwords against the Have I Been Pwned corpus using
// the k-anonymity range API: only the first five hex characters of the
// SHA-1 digest ever leave the process.
type PwnedClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewPwnedClient returns a client against the public API.
func NewPwnedClient() *PwnedClient {
	return NewPwnedClientWithBase(DefaultPwnedBaseURL)
}

// NewPwnedClientWithBase returns a client against a custom endpoint.
func NewPwnedClientWithBase(baseURL string) *PwnedClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &PwnedClient{
		baseURL:   baseURL,
		userAgent: "project-key",
		client:    &http.Client{Timeout: pwnedTimeout},
	}
}

// CheckPassword returns how many times the password appears in known
// breaches, zero meaning no known exposure. Network failures surface as
// errors; callers must not treat an error as a clean result.
func (p *PwnedClient) CheckPassword(ctx context.Context, password string) (int, error) {
	digest := sha1.Sum([]byte(password))
	full := strings.ToUpper(hex.EncodeToString(digest[:]))
	prefix, suffix := full[:5], full[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+prefix, nil)
	if err != nil {
		return 0, fmt.Errorf("security: failed to build breach request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Add-Padding", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("security: breach lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("security: breach lookup returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, suffix+":")
		if !ok {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return 0, fmt.Errorf("security: malformed breach response line %q: %w", line, err)
		}
		return count, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("security: failed to read breach response: %w", err)
	}
	return 0, nil
}
