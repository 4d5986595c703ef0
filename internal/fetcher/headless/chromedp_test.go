package headless

import (
	"context"
	"net/http"
	"testing"

	"github.com/chromedp/cdproto/network"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

func TestNewChromedpLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{MaxParallel: -1}); err == nil {
		t.Fatal("expected error for negative max parallel")
	}
	fetcher, err := NewChromedp(Config{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer fetcher.Close()
	if cap(fetcher.limiter) != 2 {
		t.Fatalf("expected limiter capacity 2, got %d", cap(fetcher.limiter))
	}
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status: 204,
			URL:    "https://example.com/rendered",
		},
	})
	status, url := meta.snapshotWithFallbacks("https://req", "")
	if status != 204 || url != "https://example.com/rendered" {
		t.Fatalf("unexpected snapshot values: status=%d url=%s", status, url)
	}

	meta = newResponseMeta()
	status, url = meta.snapshotWithFallbacks("https://req", "https://final")
	if status != http.StatusOK || url != "https://final" {
		t.Fatalf("expected fallback values, got status=%d url=%s", status, url)
	}

	meta = newResponseMeta()
	_, url = meta.snapshotWithFallbacks("https://req", "")
	if url != "https://req" {
		t.Fatalf("expected request url fallback, got %s", url)
	}
}

func TestResponseMetaIgnoresSubresources(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type: network.ResourceTypeScript,
		Response: &network.Response{
			Status: 500,
			URL:    "https://example.com/app.js",
		},
	})
	status, url := meta.snapshotWithFallbacks("https://req", "")
	if status != http.StatusOK || url != "https://req" {
		t.Fatalf("subresource response leaked into snapshot: status=%d url=%s", status, url)
	}
}

func TestNoopFetcherError(t *testing.T) {
	t.Parallel()

	fetcher := NewNoop()
	if _, err := fetcher.Fetch(context.Background(), crawler.FetchRequest{}); err == nil {
		t.Fatal("expected error from noop fetcher")
	}
}
