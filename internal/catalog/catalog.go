// Package catalog turns the remote species indices into an ordered list of
// entity descriptors.
package catalog

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/internal/infrastructure/fetch"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// detailPage is the path fragment shared by every species detail link.
const detailPage = "LtoWconv.asp"

var (
	idPattern     = regexp.MustCompile(`ID=(\d+)`)
	ediblePattern = regexp.MustCompile(`Edible=(\d+)`)
)

// ParseIndex extracts descriptors from one index document.  A link qualifies
// when its href names the detail page with an ID parameter and its text is
// non-empty.  Links without an Edible parameter inherit defaultEdible.
// Duplicate ids keep their first occurrence.
func ParseIndex(doc *dom.Document, base *url.URL, defaultEdible bool) []species.EntityDescriptor {
	var out []species.EntityDescriptor
	seen := make(map[string]bool)

	for _, link := range doc.Links(base) {
		name := strings.TrimSpace(link.Text)
		if name == "" || !strings.Contains(link.Href, detailPage) {
			continue
		}
		m := idPattern.FindStringSubmatch(link.Href)
		if m == nil {
			continue
		}
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true

		edible := defaultEdible
		if em := ediblePattern.FindStringSubmatch(link.Href); em != nil {
			edible = em[1] == "1"
		}
		out = append(out, species.EntityDescriptor{
			ID:        id,
			Name:      name,
			IsEdible:  edible,
			DetailURL: link.Href,
		})
	}
	return out
}

// Resolver fetches and parses every configured index.
type Resolver struct {
	fetcher fetch.Fetcher
	urls    []string
	logger  logging.Logger
}

// NewResolver returns a Resolver over the index URLs, resolved in order.
func NewResolver(fetcher fetch.Fetcher, urls []string, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{fetcher: fetcher, urls: urls, logger: logger}
}

// Resolve returns the union of all indices in index order, deduplicated by
// id.  Failure to fetch any index is fatal to the run and reported as
// ErrCodeCatalogUnreachable.
func (r *Resolver) Resolve(ctx context.Context) ([]species.EntityDescriptor, error) {
	var out []species.EntityDescriptor
	seen := make(map[string]bool)

	for _, raw := range r.urls {
		base, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogUnreachable, "invalid catalog URL").WithDetail(raw)
		}
		node, err := r.fetcher.Fetch(ctx, raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogUnreachable, "failed to fetch catalog").WithDetail(raw)
		}

		edible := base.Query().Get("Edible") == "1"
		found := ParseIndex(dom.FromNode(node), base, edible)
		added := 0
		for _, d := range found {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
			added++
		}
		r.logger.Info("catalog resolved",
			logging.String("url", raw),
			logging.Int("species", len(found)),
			logging.Int("new", added))
	}
	return out, nil
}

//Personal.AI order the ending
