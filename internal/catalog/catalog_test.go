package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/internal/infrastructure/fetch"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

const indexPage = `<html><body>
<a href="LtoWconv.asp?ID=12&Edible=1">  Shad (Elf) </a>
<a href="LtoWconv.asp?ID=7">Kob</a>
<a href="LtoWconv.asp?ID=12&Edible=1">Shad again</a>
<a href="LtoWconv.asp?ID=9&Edible=0"></a>
<a href="LtoWconv.asp?Edible=1">Index</a>
<a href="/about.asp?ID=3">About</a>
<a href="http://other.example/LtoWconv.asp?ID=30&Edible=0">Remote</a>
</body></html>`

func TestParseIndex(t *testing.T) {
	t.Parallel()

	doc, err := dom.ParseString(indexPage)
	require.NoError(t, err)
	base, _ := url.Parse("http://fish.example/LengthToWeight/LtoWconv.asp?Edible=1")

	got := ParseIndex(doc, base, true)
	want := []species.EntityDescriptor{
		{ID: "12", Name: "Shad (Elf)", IsEdible: true, DetailURL: "http://fish.example/LengthToWeight/LtoWconv.asp?ID=12&Edible=1"},
		{ID: "7", Name: "Kob", IsEdible: true, DetailURL: "http://fish.example/LengthToWeight/LtoWconv.asp?ID=7"},
		{ID: "30", Name: "Remote", IsEdible: false, DetailURL: "http://other.example/LtoWconv.asp?ID=30&Edible=0"},
	}
	assert.Equal(t, want, got)
}

func TestParseIndex_Empty(t *testing.T) {
	t.Parallel()

	doc, _ := dom.ParseString(`<p>no links</p>`)
	assert.Empty(t, ParseIndex(doc, nil, false))
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/LtoWconv.asp", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("Edible") {
		case "1":
			fmt.Fprint(w, `<a href="LtoWconv.asp?ID=1&Edible=1">Shad</a><a href="LtoWconv.asp?ID=2&Edible=1">Kob</a>`)
		default:
			fmt.Fprint(w, `<a href="LtoWconv.asp?ID=2&Edible=1">Kob</a><a href="LtoWconv.asp?ID=5">Blaasop</a>`)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver(fetch.NewHTTPFetcher(), []string{
		srv.URL + "/LtoWconv.asp?Edible=1",
		srv.URL + "/LtoWconv.asp?Edible=0",
	}, nil)

	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "5"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.False(t, got[2].IsEdible)
	assert.True(t, got[1].IsEdible)
}

func TestResolver_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewResolver(fetch.NewHTTPFetcher(), []string{srv.URL}, nil).Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogUnreachable))
	assert.Equal(t, errors.ErrCodeCatalogUnreachable, errors.GetCode(err))
}

//Personal.AI order the ending
