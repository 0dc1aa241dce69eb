package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CosmoTheDev/ctrlgrade/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const (
	maxRedirects   = 10
	maxBodyBytes   = 8 << 20 // bounds how much of a page is read and parsed
	probeUserAgent = "ctrlgrade/1.0 (+https://github.com/CosmoTheDev/ctrlgrade)"
)

// DeploymentProbe issues a single GET against a live deployment and records
// transport, header and content facts. Every HTTP status is a valid result;
// only transport failures mark the target unreachable.
type DeploymentProbe struct {
	client *http.Client
}

// NewDeploymentProbe returns a probe whose whole exchange is bounded by timeout.
func NewDeploymentProbe(timeout time.Duration) *DeploymentProbe {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Accept-Encoding is set explicitly so the compression header is observable.
	transport.DisableCompression = true
	return NewDeploymentProbeWithClient(&http.Client{
		Timeout:   timeout,
		Transport: transport,
	})
}

// NewDeploymentProbeWithClient wraps an existing client (tests pass the
// httptest server's). Its redirect policy is replaced.
func NewDeploymentProbeWithClient(c *http.Client) *DeploymentProbe {
	cp := *c
	cp.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &DeploymentProbe{client: &cp}
}

// Probe fetches rawURL once.
func (p *DeploymentProbe) Probe(ctx context.Context, rawURL string) *models.DeploymentEvidence {
	ev := &models.DeploymentEvidence{SecurityHeaders: map[string]bool{}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		ev.Error = fmt.Sprintf("building request: %v", err)
		return ev
	}
	req.Header.Set("User-Agent", probeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd, deflate")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		ev.Error = err.Error()
		slog.Warn("Deployment unreachable", "url", rawURL, "collector", "probe", "error", err)
		return ev
	}
	defer resp.Body.Close()
	ev.ResponseTimeMs = time.Since(start).Milliseconds()

	ev.Analyzed = true
	ev.Reachable = true
	ev.StatusCode = resp.StatusCode
	ev.Redirects = redirectCount(resp)
	ev.FinalURL = resp.Request.URL.String()
	ev.HTTPS = resp.Request.URL.Scheme == "https"
	ev.ContentType = resp.Header.Get("Content-Type")
	for _, h := range models.SecurityHeaderNames {
		ev.SecurityHeaders[h] = resp.Header.Get(h) != ""
	}
	ev.HasCaching = hasCaching(resp.Header)
	if enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc != "" && enc != "identity" {
		ev.HasCompression = true
		ev.Compression = enc
	}

	body, err := readBody(resp.Body, ev.Compression)
	if err != nil {
		// Headers were observed; only the content checks are lost.
		ev.Error = fmt.Sprintf("reading body: %v", err)
		slog.Warn("Deployment body unreadable", "url", rawURL, "collector", "probe", "error", err)
		return ev
	}
	ev.PageSizeBytes = int64(len(body))

	if isHTML(ev.ContentType, body) {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			ev.HTMLParsed = true
			inspectHTML(doc, ev)
		}
	}

	slog.Info("Deployment probed", "url", rawURL, "status", ev.StatusCode,
		"redirects", ev.Redirects, "duration", time.Duration(ev.ResponseTimeMs)*time.Millisecond)
	return ev
}

// redirectCount walks the redirect chain recorded on the final request.
func redirectCount(resp *http.Response) int {
	n := 0
	for r := resp.Request; r != nil && r.Response != nil; r = r.Response.Request {
		n++
	}
	return n
}

func hasCaching(h http.Header) bool {
	cc := strings.ToLower(h.Get("Cache-Control"))
	switch {
	case strings.Contains(cc, "max-age"), strings.Contains(cc, "s-maxage"),
		strings.Contains(cc, "immutable"), strings.Contains(cc, "public"):
		return true
	case h.Get("ETag") != "", h.Get("Last-Modified") != "":
		return true
	case h.Get("Expires") != "" && !strings.Contains(cc, "no-store"):
		return true
	}
	return false
}

// readBody decodes the response according to its Content-Encoding.
func readBody(r io.Reader, encoding string) ([]byte, error) {
	var dec io.Reader
	switch encoding {
	case "", "identity":
		dec = r
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		dec = gz
	case "br":
		dec = brotli.NewReader(r)
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		dec = zr
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		dec = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	return io.ReadAll(io.LimitReader(dec, maxBodyBytes))
}

func isHTML(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "html") {
		return true
	}
	if ct != "" {
		return false
	}
	return strings.Contains(strings.ToLower(http.DetectContentType(body)), "html")
}

func inspectHTML(doc *goquery.Document, ev *models.DeploymentEvidence) {
	ev.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	if ev.Title == "" {
		ev.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "viewport":
			ev.HasViewport = true
		case "description":
			if strings.TrimSpace(content) != "" {
				ev.HasMetaDescription = true
			}
		}
	})
}
