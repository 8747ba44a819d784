package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jichul/internal/core"
)

const (
	defaultRemoteTimeout = 10 * time.Second
	maxRemoteBody        = 32 << 20
)

// RemoteConfig describes where a published copy of data.json lives.
type RemoteConfig struct {
	// Repo is either "owner/repo" or a full base URL; "/data.json" is
	// appended to a base URL.
	Repo    string
	Branch  string
	Token   string
	Timeout time.Duration

	// Overridable for tests.
	RawBaseURL string
	APIBaseURL string
	Client     *http.Client
}

// RemoteLoader fetches the snapshot document over HTTP. With a token and an
// owner/repo it goes through the GitHub contents API, otherwise it reads the
// raw file anonymously. It is read-only.
type RemoteLoader struct {
	cfg    RemoteConfig
	client *http.Client
}

func NewRemoteLoader(cfg RemoteConfig) *RemoteLoader {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRemoteTimeout
	}
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = "https://raw.githubusercontent.com"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteLoader{cfg: cfg, client: client}
}

func (l *RemoteLoader) Name() string { return "remote" }

func (l *RemoteLoader) isURL() bool {
	return strings.HasPrefix(l.cfg.Repo, "http://") || strings.HasPrefix(l.cfg.Repo, "https://")
}

// URL returns the address the loader will read from.
func (l *RemoteLoader) URL() string {
	if l.isURL() {
		return strings.TrimRight(l.cfg.Repo, "/") + "/" + JSONFileName
	}
	if l.cfg.Token != "" {
		u := fmt.Sprintf("%s/repos/%s/contents/%s", strings.TrimRight(l.cfg.APIBaseURL, "/"), l.cfg.Repo, JSONFileName)
		if l.cfg.Branch != "main" {
			u += "?ref=" + l.cfg.Branch
		}
		return u
	}
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(l.cfg.RawBaseURL, "/"), l.cfg.Repo, l.cfg.Branch, JSONFileName)
}

func (l *RemoteLoader) Load(ctx context.Context) (*core.Snapshot, error) {
	if strings.TrimSpace(l.cfg.Repo) == "" {
		return nil, unavailable(l.Name(), fmt.Errorf("no remote configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	viaAPI := l.cfg.Token != "" && !l.isURL()
	body, err := l.fetch(ctx, l.URL(), viaAPI)
	if err != nil {
		return nil, unavailable(l.Name(), err)
	}
	if viaAPI {
		body, err = decodeContents(body)
		if err != nil {
			return nil, unavailable(l.Name(), err)
		}
	}
	s, err := DecodeSnapshot(body)
	if err != nil {
		return nil, unavailable(l.Name(), err)
	}
	return s, nil
}

func (l *RemoteLoader) fetch(ctx context.Context, url string, withToken bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if withToken {
		req.Header.Set("Authorization", "token "+l.cfg.Token)
		req.Header.Set("Accept", "application/vnd.github+json")
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeContents unwraps the GitHub contents API envelope.
func decodeContents(body []byte) ([]byte, error) {
	var envelope struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode contents response: %w", err)
	}
	if envelope.Encoding != "" && envelope.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported contents encoding %q", envelope.Encoding)
	}
	// The API wraps the base64 payload at 60 columns.
	clean := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, envelope.Content)
	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode base64 content: %w", err)
	}
	return raw, nil
}
