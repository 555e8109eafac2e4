package reader

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"komavi/internal/geometry"
)

// loadJobCacheSize bounds how many spread load jobs are retained for
// rapid re-navigation.
const loadJobCacheSize = 6

// spreadFetchConcurrency caps simultaneous page fetches within one
// spread load.
const spreadFetchConcurrency = 4

// SpreadPage pairs a page with its load outcome. Image and Err are both
// nil while the page is still loading (or was published unsized).
type SpreadPage struct {
	Metadata PageMetadata
	Image    ReaderImage
	Err      error
}

func (p SpreadPage) Loaded() bool {
	return p.Image != nil || p.Err != nil
}

// SpreadLoadJob is one in-flight or completed batch load for a spread.
// The job completes once every page has an image or an error; a single
// failing page never fails the job.
type SpreadLoadJob struct {
	Hash string

	done      chan struct{}
	result    []SpreadPage
	cancel    context.CancelFunc
	cancelled atomic.Bool
	evicted   atomic.Bool
}

// Await blocks until the job completes or ctx is cancelled.
func (j *SpreadLoadJob) Await(ctx context.Context) ([]SpreadPage, error) {
	select {
	case <-j.done:
		return j.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the result is available.
func (j *SpreadLoadJob) Done() <-chan struct{} {
	return j.done
}

// Result returns the completed result, or nil while in flight.
func (j *SpreadLoadJob) Result() []SpreadPage {
	select {
	case <-j.done:
		return j.result
	default:
		return nil
	}
}

func (j *SpreadLoadJob) Cancel() {
	j.cancelled.Store(true)
	j.cancel()
}

func (j *SpreadLoadJob) Cancelled() bool {
	return j.cancelled.Load()
}

// ImageLoader orchestrates per-spread image acquisition: dimension
// probes for unsized pages, target decode size computation from the
// active scale type, and bounded-concurrency page fetches. Identical
// requests are deduplicated through a small job cache.
type ImageLoader struct {
	source ImageSource

	// inUse reports whether the visible UI still holds the image, in
	// which case cache eviction must not close it. Nil means nothing is
	// ever in use.
	inUse func(PageID) bool

	jobs *lru.Cache[string, *SpreadLoadJob]
}

func NewImageLoader(source ImageSource, inUse func(PageID) bool) *ImageLoader {
	l := &ImageLoader{source: source, inUse: inUse}
	cache, err := lru.NewWithEvict(loadJobCacheSize, func(_ string, job *SpreadLoadJob) {
		l.releaseJob(job)
	})
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	l.jobs = cache
	return l
}

// Resize grows the job cache to hold at least size jobs. It never
// shrinks below the default capacity.
func (l *ImageLoader) Resize(size int) {
	if size < loadJobCacheSize {
		size = loadJobCacheSize
	}
	l.jobs.Resize(size)
}

// LaunchLoadJob returns the cached job for this exact request if one is
// still valid, otherwise starts a new batch load. ctx bounds the whole
// job, not just this call.
func (l *ImageLoader) LaunchLoadJob(
	ctx context.Context,
	spread []PageMetadata,
	containerSize geometry.Size,
	layout PageLayout,
	scaleType ScaleType,
	allowUpsample bool,
) *SpreadLoadJob {
	hash := loadJobFingerprint(spread, containerSize, layout, scaleType, allowUpsample)
	if cached, ok := l.jobs.Get(hash); ok && !cached.Cancelled() {
		return cached
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &SpreadLoadJob{
		Hash:   hash,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	l.jobs.Add(hash, job)

	go l.runLoadJob(jobCtx, job, spread, containerSize, scaleType, allowUpsample)
	return job
}

func (l *ImageLoader) runLoadJob(
	ctx context.Context,
	job *SpreadLoadJob,
	spread []PageMetadata,
	containerSize geometry.Size,
	scaleType ScaleType,
	allowUpsample bool,
) {
	defer job.cancel()

	pages := l.resolveOriginalSizes(ctx, spread)

	scale := spreadScaleFor(pages, containerSize, maxPageSize(pages, containerSize), scaleType)
	zoomFactor := scale.Transformation().Scale

	result := make([]SpreadPage, len(pages))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(spreadFetchConcurrency)
	for i, page := range pages {
		targetSize := scaledContentSizeForPage(page, scaleType, allowUpsample, pages, containerSize, zoomFactor)
		debugLog("load request for page %d of book %s, zoom factor %.3f, target size %v",
			page.Number, page.BookID, zoomFactor, targetSize)

		i, page := i, page
		group.Go(func() error {
			fetchSize := targetSize
			if scaleType == ScaleOriginal {
				fetchSize = geometry.Size{}
			}
			image, err := l.source.FetchPage(groupCtx, page.ID(), fetchSize, allowUpsample)
			result[i] = SpreadPage{Metadata: page, Image: image, Err: err}
			if err != nil {
				log.Printf("failed to load page %d of book %s: %v", page.Number, page.BookID, err)
			}
			return nil
		})
	}
	_ = group.Wait()

	if ctx.Err() != nil {
		job.cancelled.Store(true)
		for _, p := range result {
			if p.Image != nil {
				p.Image.Close()
			}
		}
		return
	}

	job.result = result
	close(job.done)

	if job.evicted.Load() {
		l.closeUnused(result)
	}
}

// resolveOriginalSizes probes true pixel dimensions for pages the
// server reported without sizes. Probe failures leave the page unsized;
// its image will be decoded at original resolution.
func (l *ImageLoader) resolveOriginalSizes(ctx context.Context, spread []PageMetadata) []PageMetadata {
	resolved := make([]PageMetadata, 0, len(spread))
	for _, page := range spread {
		if page.Size != nil {
			resolved = append(resolved, page)
			continue
		}
		size, err := l.source.FetchOriginalSize(ctx, page.ID())
		if err != nil {
			log.Printf("failed to probe size of page %d of book %s: %v", page.Number, page.BookID, err)
			resolved = append(resolved, page)
			continue
		}
		resolved = append(resolved, page.WithSize(size))
	}
	return resolved
}

// LoadScaledPages re-decodes already-displayed pages at a new zoom
// factor. Results bypass the job cache; debouncing is the caller's
// responsibility.
func (l *ImageLoader) LoadScaledPages(
	ctx context.Context,
	pages []PageMetadata,
	containerSize geometry.Size,
	zoomFactor float64,
	scaleType ScaleType,
	allowUpsample bool,
) []SpreadPage {
	resampled := make([]SpreadPage, 0, len(pages))
	for _, page := range pages {
		targetSize := scaledContentSizeForPage(page, scaleType, allowUpsample, pages, containerSize, zoomFactor)
		debugLog("resample request for page %d of book %s, zoom factor %.3f, target size %v",
			page.Number, page.BookID, zoomFactor, targetSize)

		image, err := l.source.FetchPage(ctx, page.ID(), targetSize, allowUpsample)
		resampled = append(resampled, SpreadPage{Metadata: page, Image: image, Err: err})
	}
	return resampled
}

// ClearCache drops all retained jobs, releasing images the UI no longer
// uses. In-flight jobs keep running.
func (l *ImageLoader) ClearCache() {
	l.jobs.Purge()
}

func (l *ImageLoader) releaseJob(job *SpreadLoadJob) {
	select {
	case <-job.done:
		l.closeUnused(job.result)
	default:
		job.evicted.Store(true)
	}
}

func (l *ImageLoader) closeUnused(pages []SpreadPage) {
	for _, p := range pages {
		if p.Image == nil {
			continue
		}
		if l.inUse != nil && l.inUse(p.Image.PageID()) {
			continue
		}
		p.Image.Close()
	}
}

// maxPageSize is each page's share of the container: width split evenly,
// full height.
func maxPageSize(pages []PageMetadata, containerSize geometry.Size) geometry.Size {
	return geometry.Size{
		Width:  containerSize.Width / len(pages),
		Height: containerSize.Height,
	}
}

// spreadScaleFor builds the scale state for a freshly loaded spread,
// deriving the zoom from the active scale type. The offset is left at
// center; callers snap it to the edge they start reading from.
func spreadScaleFor(
	pages []PageMetadata,
	areaSize geometry.Size,
	maxPageSize geometry.Size,
	scaleType ScaleType,
) *ScreenScale {
	constrained := spreadContentSize(pages, maxPageSize)

	scale := NewScreenScale()
	scale.SetAreaSize(areaSize)
	if !constrained.IsZero() {
		scale.SetTargetSize(constrained.ToF())
	}

	origin := geometry.Point{}
	switch scaleType {
	case ScaleScreen:
		scale.SetZoom(0, origin)
	case ScaleFitWidth:
		if constrained.Width < areaSize.Width {
			scale.SetZoom(1, origin)
		} else {
			scale.SetZoom(0, origin)
		}
	case ScaleFitHeight:
		if constrained.Height < areaSize.Height {
			scale.SetZoom(1, origin)
		} else {
			scale.SetZoom(0, origin)
		}
	case ScaleOriginal:
		var actual geometry.Size
		for _, p := range pages {
			if p.Size == nil {
				continue
			}
			actual.Width += p.Size.Width
			if p.Size.Height > actual.Height {
				actual.Height = p.Size.Height
			}
		}
		if actual.Width > areaSize.Width || actual.Height > areaSize.Height {
			zoom := math.Max(
				float64(actual.Width)/float64(constrained.Width),
				float64(actual.Height)/float64(constrained.Height),
			) / scale.ScaleFor100PercentZoom()
			scale.SetZoom(zoom, origin)
		} else {
			scale.SetZoom(0, origin)
		}
	}

	return scale
}

// scaledContentSizeForPage computes the decode target size for one page
// of a spread. The clamp order matters: with upsampling disallowed the
// zoomed size is first capped at the true pixel size, then raised back
// to at least the fit size when the fit size itself exceeds the true
// pixel size, so screen coverage wins over avoiding upsampling.
func scaledContentSizeForPage(
	page PageMetadata,
	scaleType ScaleType,
	allowUpsample bool,
	spread []PageMetadata,
	containerSize geometry.Size,
	zoomFactor float64,
) geometry.Size {
	available := maxPageSize(spread, containerSize)
	constrained := page.ContentSizeForArea(available)
	actual := constrained
	if page.Size != nil {
		actual = *page.Size
	}

	zoomed := geometry.Size{
		Width:  int(math.Round(float64(constrained.Width) * zoomFactor)),
		Height: int(math.Round(float64(constrained.Height) * zoomFactor)),
	}

	if scaleType == ScaleOriginal {
		return zoomed.CoerceAtMost(actual)
	}

	if !allowUpsample && (zoomed.Height > actual.Height || zoomed.Width > actual.Width) {
		zoomed = zoomed.CoerceAtMost(actual)
	}
	if constrained.Height > actual.Height || constrained.Width > actual.Width {
		zoomed = zoomed.CoerceAtLeast(constrained)
	}
	return zoomed
}

// loadJobFingerprint is the dedup key for a spread load request. It
// covers everything that changes the decoded output.
func loadJobFingerprint(
	pages []PageMetadata,
	containerSize geometry.Size,
	layout PageLayout,
	scaleType ScaleType,
	allowUpsample bool,
) string {
	var b strings.Builder
	for _, p := range pages {
		if p.Size != nil {
			fmt.Fprintf(&b, "%s/%d@%dx%d;", p.BookID, p.Number, p.Size.Width, p.Size.Height)
		} else {
			fmt.Fprintf(&b, "%s/%d;", p.BookID, p.Number)
		}
	}
	fmt.Fprintf(&b, "|%dx%d|%d|%d|%t", containerSize.Width, containerSize.Height, layout, scaleType, allowUpsample)
	return b.String()
}
