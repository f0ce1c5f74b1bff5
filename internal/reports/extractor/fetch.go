package extractor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/storage"
	"github.com/medflow/report-explainer/pkg/config"
)

var (
	// ErrFetchFailed is returned when a source URL cannot be downloaded
	ErrFetchFailed = errors.New("failed to fetch source document")

	// ErrBlockedAddress is returned when a source URL resolves to a
	// loopback, private, link-local or otherwise non-public address
	ErrBlockedAddress = errors.New("destination address is not public")
)

const maxRedirects = 3

// nonPublicRanges are globally routable by the address rules but never
// valid document hosts.
var nonPublicRanges = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// Fetcher downloads documents referenced by URL into an in-memory buffer
type Fetcher struct {
	httpClient *http.Client
	maxSize    int64
}

// NewFetcher creates a fetcher bounded by the upload limits. It only
// connects to public addresses; the check runs on every dial, so it also
// covers redirects and hosts whose DNS answer changes. Proxies are
// disabled because they would hide the real destination.
func NewFetcher(cfg *config.UploadConfig) *Fetcher {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: publicOnly,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	client := &http.Client{
		Timeout:   cfg.FetchTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return NewFetcherWithClient(client, cfg.MaxSize)
}

// NewFetcherWithClient creates a fetcher using the given HTTP client as
// is, without the public address check
func NewFetcherWithClient(client *http.Client, maxSize int64) *Fetcher {
	return &Fetcher{httpClient: client, maxSize: maxSize}
}

// Fetch downloads rawURL. The caller owns the returned buffer and must
// release it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*storage.Buffer, domain.DocumentFormat, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.FormatUnknown, fmt.Errorf("%w: unsupported URL", ErrFetchFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.FormatUnknown, fmt.Errorf("%w: create request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/pdf, text/plain;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.FormatUnknown, ctxErr
		}
		return nil, domain.FormatUnknown, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.FormatUnknown, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	if resp.ContentLength > f.maxSize {
		return nil, domain.FormatUnknown, fmt.Errorf("%w: %w", ErrFetchFailed, storage.ErrTooLarge)
	}

	buf, err := storage.ReadAll(resp.Body, f.maxSize)
	if err != nil {
		return nil, domain.FormatUnknown, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	return buf, ParseFormat(resp.Header.Get("Content-Type")), nil
}

// publicOnly is a dialer control hook that refuses non-public addresses
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !isPublic(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}
	for _, p := range nonPublicRanges {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
