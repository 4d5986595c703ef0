package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/contact-crawler/internal/crawler"
)

func TestHeuristic_ShouldPromote_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := crawler.FetchResponse{
		StatusCode: 200,
		Body:       []byte(""),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	for _, body := range []string{
		`<div id="__next"></div>`,
		`<div id="app"></div>`,
		`<app-root ng-version="17.0.0"></app-root>`,
	} {
		resp := crawler.FetchResponse{StatusCode: 200, Body: []byte(body)}
		require.True(t, h.ShouldPromote(resp), body)
	}
}

func TestHeuristic_ShouldPromote_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	resp := crawler.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_PlainHTMLStaysProbe(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := crawler.FetchResponse{
		StatusCode: 200,
		Body:       []byte(`<html><body><p>Contact us at info@acme.com for details about our services and team.</p></body></html>`),
	}
	require.False(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := crawler.FetchResponse{
		StatusCode: 404,
		Body:       []byte("not found"),
	}
	require.False(t, h.ShouldPromote(resp))
}
