package collector

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const samplePage = `<!doctype html>
<html><head>
<title> Acme Dashboard </title>
<meta name="Viewport" content="width=device-width, initial-scale=1">
<meta name="description" content="Acme's product dashboard">
</head><body><h1>Hello</h1></body></html>`

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, s string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll([]byte(s), nil)
}

func newTestProbe(ts *httptest.Server) *DeploymentProbe {
	c := ts.Client()
	c.Timeout = 5 * time.Second
	if tr, ok := c.Transport.(*http.Transport); ok {
		tr.DisableCompression = true
	}
	return NewDeploymentProbeWithClient(c)
}

func TestProbeDecodesCompressedBodies(t *testing.T) {
	tests := []struct {
		encoding string
		body     func(*testing.T, string) []byte
	}{
		{"gzip", gzipBytes},
		{"br", brotliBytes},
		{"zstd", zstdBytes},
	}
	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			payload := tt.body(t, samplePage)
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Content-Encoding", tt.encoding)
				w.Header().Set("Cache-Control", "public, max-age=600")
				w.Header().Set("X-Content-Type-Options", "nosniff")
				_, _ = w.Write(payload)
			}))
			defer ts.Close()

			ev := newTestProbe(ts).Probe(context.Background(), ts.URL)
			if !ev.Reachable || ev.StatusCode != 200 {
				t.Fatalf("unexpected probe result: %+v", ev)
			}
			if !ev.HasCompression || ev.Compression != tt.encoding {
				t.Fatalf("compression = %v/%q", ev.HasCompression, ev.Compression)
			}
			if !ev.HTMLParsed || ev.Title != "Acme Dashboard" || !ev.HasViewport || !ev.HasMetaDescription {
				t.Fatalf("content checks failed: %+v", ev)
			}
			if ev.PageSizeBytes != int64(len(samplePage)) {
				t.Fatalf("page size = %d, want decoded size %d", ev.PageSizeBytes, len(samplePage))
			}
			if !ev.HasCaching {
				t.Fatal("expected caching to be detected")
			}
			if !ev.SecurityHeaders["X-Content-Type-Options"] || ev.SecurityHeaders["Content-Security-Policy"] {
				t.Fatalf("unexpected security headers: %v", ev.SecurityHeaders)
			}
			if ev.HTTPS {
				t.Fatal("plain httptest server is not HTTPS")
			}
		})
	}
}

func TestProbeCountsRedirectsAndAcceptsErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/step", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/step", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/missing", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	ev := newTestProbe(ts).Probe(context.Background(), ts.URL+"/")
	if !ev.Reachable || !ev.Analyzed {
		t.Fatalf("a 404 is a valid response: %+v", ev)
	}
	if ev.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", ev.StatusCode)
	}
	if ev.Redirects != 2 {
		t.Fatalf("redirects = %d, want 2", ev.Redirects)
	}
	if ev.FinalURL != ts.URL+"/missing" {
		t.Fatalf("final URL = %q", ev.FinalURL)
	}
	if ev.HTMLParsed {
		t.Fatal("text/plain error body must not be parsed as HTML")
	}
}

func TestProbeHTTPSAndHeaders(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
			w.Header().Set(h, "x")
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>t</title></head></html>"))
	}))
	defer ts.Close()

	ev := newTestProbe(ts).Probe(context.Background(), ts.URL)
	if !ev.HTTPS {
		t.Fatal("expected HTTPS")
	}
	if missing := ev.MissingSecurityHeaders(); len(missing) != 0 {
		t.Fatalf("unexpected missing headers: %v", missing)
	}
	if ev.HasCompression {
		t.Fatal("uncompressed response reported as compressed")
	}
}

func TestProbeUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	ev := NewDeploymentProbe(2*time.Second).Probe(context.Background(), url)
	if ev.Reachable || ev.Analyzed {
		t.Fatalf("closed server must be unreachable: %+v", ev)
	}
	if ev.Error == "" {
		t.Fatal("expected transport error")
	}
}
