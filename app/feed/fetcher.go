package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"feedward/app/urlguard"
)

const maxFeedBodySize = 10 * 1024 * 1024

// FeedFetcher retrieves and parses one feed document. Behind an interface so
// the orchestrator can be tested with a fake that never touches the network.
type FeedFetcher interface {
	Run(ctx context.Context, feedURL string) (*FetchedFeed, error)
}

type Fetcher struct {
	validator *urlguard.Validator
	parser    *Parser
	timeout   time.Duration
	userAgent string
}

var _ FeedFetcher = (*Fetcher)(nil)

func NewFetcher(validator *urlguard.Validator, timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		validator: validator,
		parser:    NewParser(),
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Run validates the URL, downloads the document over a connection pinned to
// the validated addresses, and parses it. The URL is never fetched when
// validation fails.
func (f *Fetcher) Run(ctx context.Context, feedURL string) (*FetchedFeed, error) {
	result := f.validator.Validate(ctx, feedURL)
	if !result.Valid {
		return nil, fmt.Errorf("unsafe feed URL: %s", result.Reason)
	}

	data, err := f.download(ctx, feedURL, result.Addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %s", normalizeErrorText(err))
	}

	fetched, err := f.parser.Run(data)
	if err != nil {
		return nil, errors.New(normalizeErrorText(err))
	}

	return fetched, nil
}

func (f *Fetcher) download(ctx context.Context, feedURL string, addrs []urlguard.ResolvedAddr) ([]byte, error) {
	dialer := &net.Dialer{Timeout: f.timeout}

	transport := &http.Transport{
		// Connect only to the addresses resolved at validation time. The
		// hostname is not resolved again, so a rebinding DNS answer between
		// validation and fetch has no effect.
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var lastErr error
			for _, addr := range addrs {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(addr.IP.String(), addr.Port))
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			if lastErr == nil {
				lastErr = errors.New("no pinned addresses to dial")
			}
			return nil, lastErr
		},
		TLSHandshakeTimeout: f.timeout,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
		// The pinned dialer ignores the dial target, so only same-host
		// redirects keep the pin meaningful.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			if req.URL.Hostname() != via[0].URL.Hostname() {
				return errors.New("cross-host redirect refused")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// normalizeErrorText flattens an error into one display string: joined
// errors collapse into a comma-separated list, and the trailing ": "
// artifact some wrapping paths leave behind is stripped.
func normalizeErrorText(err error) string {
	var parts []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			parts = append(parts, e.Error())
		}
	} else {
		parts = append(parts, err.Error())
	}

	text := strings.Join(parts, ", ")
	text = strings.TrimSuffix(strings.TrimSpace(text), ":")
	return strings.TrimSpace(text)
}
