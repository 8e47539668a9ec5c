package pipeline_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/internal/catalog"
	"github.com/turtacn/fishlwr/internal/extraction"
	"github.com/turtacn/fishlwr/internal/fallback"
	"github.com/turtacn/fishlwr/internal/infrastructure/fetch"
	"github.com/turtacn/fishlwr/internal/pipeline"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/regression"
	"github.com/turtacn/fishlwr/internal/testutil"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

func threeColumnPage(n int) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><table><tr><td>Measure Type</td><td>Length</td><td>Weight</td></tr>`)
	for i := 1; i <= n; i++ {
		l := float64(20 + 5*i)
		fmt.Fprintf(&sb, `<tr><td>Total length</td><td>%g cm</td><td>%.4f kg</td></tr>`, l, 0.00001*l*l*l)
	}
	sb.WriteString(`</table></body></html>`)
	return sb.String()
}

const noTablePage = `<html><body><p>No measurements published.</p></body></html>`

func newExtractor() *extraction.Extractor {
	return extraction.NewExtractor(extraction.NewChain(nil), "SPECIES:")
}

func newFitter() *regression.Fitter {
	return regression.NewFitter(regression.DefaultOptions())
}

type staticResolver []species.EntityDescriptor

func (s staticResolver) Resolve(context.Context) ([]species.EntityDescriptor, error) {
	return s, nil
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context) ([]species.EntityDescriptor, error) {
	return nil, errors.New(errors.ErrCodeCatalogUnreachable, "index down")
}

// pageFetcher serves pages by URL and optionally runs hook before answering.
type pageFetcher struct {
	pages map[string]string
	hook  func(ctx context.Context, url string) error
}

func (f *pageFetcher) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	if f.hook != nil {
		if err := f.hook(ctx, url); err != nil {
			return nil, err
		}
	}
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New(errors.ErrCodeFetchHTTPStatus, "not found").WithDetail(url)
	}
	return []byte(p), nil
}

type recordingArchiver struct {
	mu   sync.Mutex
	keys []string
}

func (a *recordingArchiver) ArchiveRaw(_ context.Context, runID, entityID string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, runID+"/"+entityID)
	return nil
}

func entities(n int) []species.EntityDescriptor {
	out := make([]species.EntityDescriptor, n)
	for i := range out {
		id := fmt.Sprint(i + 1)
		out[i] = species.EntityDescriptor{ID: id, Name: "Species " + id, IsEdible: true, DetailURL: "http://fish.test/" + id}
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/LtoWconv.asp", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ID") {
		case "":
			_, _ = w.Write([]byte(`<html><body>
<a href="LtoWconv.asp?ID=1&Edible=1">Kob</a>
<a href="LtoWconv.asp?ID=2&Edible=1">Mystery</a>
</body></html>`))
		case "1":
			_, _ = w.Write([]byte(threeColumnPage(10)))
		default:
			_, _ = w.Write([]byte(noTablePage))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fetcher := fetch.NewHTTPFetcher(fetch.WithTimeout(5 * time.Second))
	resolver := catalog.NewResolver(fetcher, []string{srv.URL + "/LtoWconv.asp?Edible=1"}, nil)
	archiver := &recordingArchiver{}

	p := pipeline.New(pipeline.Options{WorkerCount: 2, ArchiveRaw: true}, resolver, fetcher, newExtractor(), newFitter(),
		pipeline.WithArchiver(archiver))

	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	s := out.Summary
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Success)
	assert.Equal(t, 1, s.Failure)
	assert.Equal(t, 0, s.Cancelled)
	assert.Equal(t, map[string]int{pipeline.CategoryNoTableFound: 1}, s.ByCategory)
	assert.NotEmpty(t, s.RunID)

	require.Len(t, out.Dataset.Results, 1)
	r := out.Dataset.Results[0]
	assert.Equal(t, "1", r.EntityID)
	assert.Equal(t, "Kob", r.EntityName)
	assert.Equal(t, 10, r.SampleCount)
	assert.InDelta(t, 3.0, r.B, 1e-2)
	assert.Len(t, out.Dataset.Records, 10)
	assert.Equal(t, 1, out.Report.Added)

	assert.Equal(t, "fixed_three_column", out.Items[0].Strategy)
	assert.Equal(t, pipeline.ItemStatusFailed, out.Items[1].Status)
	assert.Len(t, archiver.keys, 2)
}

func TestRun_CatalogUnreachable(t *testing.T) {
	t.Parallel()

	p := pipeline.New(pipeline.Options{}, failingResolver{}, &pageFetcher{}, newExtractor(), newFitter())
	out, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogUnreachable))
}

func TestRun_AllFailedIsNotAnError(t *testing.T) {
	t.Parallel()

	es := entities(3)
	p := pipeline.New(pipeline.Options{WorkerCount: 3}, staticResolver(es), &pageFetcher{}, newExtractor(), newFitter())
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Summary.Success)
	assert.Equal(t, 3, out.Summary.Failure)
	assert.Equal(t, 3, out.Summary.ByCategory[pipeline.CategoryEntityFetchFailed])
	assert.Empty(t, out.Dataset.Results)
}

func TestRun_CancelledBeforeDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	es := entities(5)
	p := pipeline.New(pipeline.Options{WorkerCount: 2}, staticResolver(es), &pageFetcher{}, newExtractor(), newFitter())
	out, err := p.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Summary.Cancelled)
	assert.Equal(t, 0, out.Summary.Success+out.Summary.Failure)
	for i, it := range out.Items {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, pipeline.ItemStatusCancelled, it.Status)
	}
}

func TestRun_InFlightItemsDrainAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	es := entities(4)
	f := &pageFetcher{pages: map[string]string{}}
	for _, e := range es {
		f.pages[e.DetailURL] = threeColumnPage(5)
	}
	var once sync.Once
	f.hook = func(itemCtx context.Context, _ string) error {
		once.Do(cancel)
		// the item context survives run cancellation
		return itemCtx.Err()
	}

	p := pipeline.New(pipeline.Options{WorkerCount: 1, ItemTimeout: time.Second}, staticResolver(es), f, newExtractor(), newFitter())
	out, err := p.Run(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Summary.Success)
	assert.Equal(t, 3, out.Summary.Cancelled)
	assert.Equal(t, pipeline.ItemStatusSuccess, out.Items[0].Status)
	require.Len(t, out.Dataset.Results, 1)
	assert.Equal(t, "1", out.Dataset.Results[0].EntityID)
}

func TestRun_Fallback(t *testing.T) {
	t.Parallel()

	es := []species.EntityDescriptor{{ID: "50", Name: "Dageraad", IsEdible: true, DetailURL: "http://fish.test/50"}}
	f := &pageFetcher{pages: map[string]string{"http://fish.test/50": noTablePage}}
	fb, err := fallback.New([]fallback.Entry{{
		Name:  "Dageraad",
		Curve: &fallback.Curve{A: 0.00002, B: 3, From: 20, To: 60, Step: 10},
	}})
	require.NoError(t, err)

	p := pipeline.New(pipeline.Options{}, staticResolver(es), f, newExtractor(), newFitter(), pipeline.WithFallback(fb))
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Summary.Success)
	assert.Equal(t, 1, out.Summary.Synthetic)
	assert.Equal(t, pipeline.StrategyFallback, out.Items[0].Strategy)
	require.Len(t, out.Dataset.Records, 5)
	for _, rec := range out.Dataset.Records {
		assert.True(t, rec.IsSynthetic)
		assert.Equal(t, "50", rec.EntityID)
	}
}

func TestRun_MergesIntoBase(t *testing.T) {
	t.Parallel()

	base := &species.CanonicalDataset{
		Results: []species.RegressionResult{{EntityID: "1", EntityName: "Species 1", A: 1, B: 3, RSquared: 0.5, SampleCount: 3}},
	}
	es := entities(1)
	f := &pageFetcher{pages: map[string]string{es[0].DetailURL: threeColumnPage(6)}}

	p := pipeline.New(pipeline.Options{}, staticResolver(es), f, newExtractor(), newFitter())
	out, err := p.Run(context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Report.Replaced)
	require.Len(t, out.Dataset.Results, 1)
	assert.Equal(t, 6, out.Dataset.Results[0].SampleCount)
	assert.Equal(t, 0.5, base.Results[0].RSquared)
}

func TestRun_FailedFitKeepsRecords(t *testing.T) {
	t.Parallel()

	page := `<table>
<tr><td>Total length</td><td>30 cm</td><td>0.30 kg</td></tr>
<tr><td>Total length</td><td>30 cm</td><td>0.40 kg</td></tr>
<tr><td>Total length</td><td>30 cm</td><td>0.50 kg</td></tr>
</table>`
	es := entities(1)
	f := &pageFetcher{pages: map[string]string{es[0].DetailURL: page}}

	p := pipeline.New(pipeline.Options{}, staticResolver(es), f, newExtractor(), newFitter())
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Summary.ByCategory[pipeline.CategoryDegenerateFit])
	assert.Empty(t, out.Dataset.Results)
	assert.Len(t, out.Dataset.Records, 3)
}

func TestRun_LogsFailuresWithCategory(t *testing.T) {
	t.Parallel()

	es := entities(2)
	f := &pageFetcher{pages: map[string]string{
		es[0].DetailURL: threeColumnPage(4),
		es[1].DetailURL: noTablePage,
	}}
	rec := testutil.NewRecordingLogger()

	p := pipeline.New(pipeline.Options{}, staticResolver(es), f, newExtractor(), newFitter(), pipeline.WithLogger(rec))
	_, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	failed := rec.Find(logging.LevelWarn, "species failed")
	require.Len(t, failed, 1)
	for key, want := range map[string]string{
		"entity_id":   "2",
		"entity_name": "Species 2",
		"category":    pipeline.CategoryNoTableFound,
	} {
		v, ok := failed[0].Field(key)
		require.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}
	_, ok := failed[0].Field("run_id")
	assert.True(t, ok)
}

// ctxLocker fails with the context's error once it is done, like a Redis
// SetNX on a cancelled context.
type ctxLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	lockErr error
}

func (l *ctxLocker) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return l.lockErr
	}
	l.locks++
	return nil
}

func (l *ctxLocker) Unlock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocks++
	return nil
}

func TestRun_MergeLock(t *testing.T) {
	t.Parallel()

	es := entities(2)
	f := &pageFetcher{pages: map[string]string{
		es[0].DetailURL: threeColumnPage(5),
		es[1].DetailURL: threeColumnPage(6),
	}}
	lock := &ctxLocker{}

	p := pipeline.New(pipeline.Options{WorkerCount: 2}, staticResolver(es), f, newExtractor(), newFitter(), pipeline.WithMergeLock(lock))
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, out.Dataset.Results, 2)
	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks)
}

func TestRun_MergeLockAfterRunTimeout(t *testing.T) {
	t.Parallel()

	es := entities(1)
	f := &pageFetcher{pages: map[string]string{es[0].DetailURL: threeColumnPage(5)}}
	f.hook = func(context.Context, string) error {
		time.Sleep(150 * time.Millisecond)
		return nil
	}
	lock := &ctxLocker{}

	opts := pipeline.Options{WorkerCount: 1, RunTimeout: 50 * time.Millisecond, ItemTimeout: 5 * time.Second}
	p := pipeline.New(opts, staticResolver(es), f, newExtractor(), newFitter(), pipeline.WithMergeLock(lock))
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, 1, out.Summary.Success)
	require.Len(t, out.Dataset.Results, 1, "results collected before the timeout are folded")
	assert.Equal(t, "1", out.Dataset.Results[0].EntityID)
	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks)
}

func TestRun_MergeLockUnavailable(t *testing.T) {
	t.Parallel()

	es := entities(1)
	f := &pageFetcher{pages: map[string]string{es[0].DetailURL: threeColumnPage(5)}}
	lock := &ctxLocker{lockErr: fmt.Errorf("held elsewhere")}

	p := pipeline.New(pipeline.Options{}, staticResolver(es), f, newExtractor(), newFitter(), pipeline.WithMergeLock(lock))
	out, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.IsCode(err, errors.CodeCacheError))
	assert.Zero(t, lock.unlocks)
}

func TestCategoryOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{errors.New(errors.ErrCodeFetchTimeout, "x"), pipeline.CategoryEntityFetchFailed},
		{errors.New(errors.ErrCodeDegenerateFit, "x"), pipeline.CategoryDegenerateFit},
		{errors.Wrap(errors.New(errors.ErrCodeNoTableFound, "x"), errors.ErrCodeEntityFetchFailed, "y"), pipeline.CategoryEntityFetchFailed},
		{fmt.Errorf("plain"), pipeline.CategoryInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pipeline.CategoryOf(tt.err))
	}
}

//Personal.AI order the ending
