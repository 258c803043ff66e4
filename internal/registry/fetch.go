package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FetchConfig controls plain-HTTPS policy retrieval.
type FetchConfig struct {
	AllowPrivateHosts bool
	MaxRedirects      int
	Timeout           time.Duration
	MaxSize           int64
}

func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		AllowPrivateHosts: false,
		MaxRedirects:      5,
		Timeout:           30 * time.Second,
		MaxSize:           MaxPolicySize,
	}
}

// FetchResult is a policy document downloaded over HTTPS.
type FetchResult struct {
	Data   []byte
	SHA256 string
	Size   int64
}

// FetchPolicy downloads a policy document from an HTTPS URL. Policies are
// small, so the body is held in memory and hashed for pin recording.
func FetchPolicy(ctx context.Context, policyURL string, config FetchConfig) (*FetchResult, error) {
	if err := ValidatePolicyURL(policyURL, config.AllowPrivateHosts); err != nil {
		return nil, fmt.Errorf("invalid policy URL: %w", err)
	}

	client := createSecureClient(config)

	req, err := http.NewRequestWithContext(ctx, "GET", policyURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	maxSize := config.MaxSize
	if maxSize <= 0 {
		maxSize = MaxPolicySize
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("policy exceeds maximum size limit (%d bytes)", maxSize)
	}

	sum := sha256.Sum256(data)
	return &FetchResult{
		Data:   data,
		SHA256: hex.EncodeToString(sum[:]),
		Size:   int64(len(data)),
	}, nil
}

// ValidatePolicyURL rejects non-HTTPS schemes and, unless overridden,
// private or reserved hosts.
func ValidatePolicyURL(rawURL string, allowPrivate bool) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	// SECURITY: Only allow https:// scheme
	if parsed.Scheme != "https" {
		return fmt.Errorf("only https:// URLs allowed for policy downloads; got %q", parsed.Scheme)
	}

	// SECURITY: Block private/reserved IPs (unless explicitly allowed)
	if !allowPrivate {
		host := strings.ToLower(parsed.Hostname())
		if host == "localhost" {
			return fmt.Errorf("localhost not allowed (use --unsafe-allow-private-policy-hosts to override)")
		}
		if ip := net.ParseIP(host); ip != nil && IsPrivateOrReservedIP(ip) {
			return fmt.Errorf("private/reserved IP address not allowed: %s (use --unsafe-allow-private-policy-hosts to override)", host)
		}
	}

	return nil
}

// IsPrivateOrReservedIP reports whether an address belongs to a private,
// loopback, link-local, or otherwise reserved range.
func IsPrivateOrReservedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() {
		return true
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 0:
			return true
		case ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127: // CGNAT
			return true
		case ip4[0] == 192 && ip4[1] == 0 && (ip4[2] == 0 || ip4[2] == 2):
			return true
		case ip4[0] == 198 && (ip4[1] == 18 || ip4[1] == 19):
			return true
		case ip4[0] == 198 && ip4[1] == 51 && ip4[2] == 100:
			return true
		case ip4[0] == 203 && ip4[1] == 0 && ip4[2] == 113:
			return true
		case ip4[0] >= 240:
			return true
		}
	}

	return false
}

func createSecureClient(config FetchConfig) *http.Client {
	var dialCtx func(ctx context.Context, network, addr string) (net.Conn, error)
	if config.AllowPrivateHosts {
		dialer := &net.Dialer{Timeout: 30 * time.Second}
		dialCtx = dialer.DialContext
	} else {
		dialCtx = safeDialContext
	}

	maxRedirects := config.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 5
	}

	redirectCount := 0

	return &http.Client{
		Timeout: config.Timeout,
		// SECURITY: Validate each redirect target
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirectCount++
			if redirectCount > maxRedirects {
				return fmt.Errorf("too many redirects (%d)", redirectCount)
			}
			if err := ValidatePolicyURL(req.URL.String(), config.AllowPrivateHosts); err != nil {
				return fmt.Errorf("redirect to insecure URL blocked: %w", err)
			}
			return nil
		},
		Transport: &http.Transport{
			// SECURITY: Validate resolved IPs at connect time
			DialContext: dialCtx,
			// SECURITY: Disable proxy to prevent SSRF via proxy
			Proxy: nil,
		},
	}
}

func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %s", host)
	}

	for _, ip := range ips {
		if IsPrivateOrReservedIP(ip) {
			return nil, fmt.Errorf("DNS resolved to private/reserved IP address (%s -> %s); connection blocked", host, ip.String())
		}
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}
