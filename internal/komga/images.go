package komga

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"komavi/internal/geometry"
	"komavi/internal/imaging"
	"komavi/internal/reader"
)

// ImageSource decodes Komga page images at the reader's requested
// display size.
type ImageSource struct {
	client *Client
	filter imaging.Filter
}

func NewImageSource(client *Client, filter imaging.Filter) *ImageSource {
	return &ImageSource{client: client, filter: filter}
}

func pagePath(id reader.PageID) string {
	return "/api/v1/books/" + id.BookID + "/pages/" + strconv.Itoa(id.Number)
}

// FetchPage downloads and decodes one page. A zero target size keeps
// the original dimensions; otherwise pixels are resampled to exactly
// targetSize, which the caller computed with its own upsampling policy.
func (s *ImageSource) FetchPage(ctx context.Context, id reader.PageID, targetSize geometry.Size, allowUpsample bool) (reader.ReaderImage, error) {
	data, err := s.client.do(ctx, http.MethodGet, pagePath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d of book %s: %w", id.Number, id.BookID, err)
	}

	img, original, err := imaging.DecodeScaled(data, targetSize, s.filter)
	if err != nil {
		return nil, fmt.Errorf("decode page %d of book %s: %w", id.Number, id.BookID, err)
	}
	return imaging.NewPageImage(id, img, original), nil
}

// FetchOriginalSize probes page dimensions. The page-list metadata is
// tried first; without analyzed media the image header is read instead.
func (s *ImageSource) FetchOriginalSize(ctx context.Context, id reader.PageID) (geometry.Size, error) {
	pages, err := s.client.BookPages(ctx, id.BookID)
	if err == nil {
		for _, page := range pages {
			if page.Number == id.Number && page.Size != nil {
				return *page.Size, nil
			}
		}
	}

	data, err := s.client.do(ctx, http.MethodGet, pagePath(id), nil)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("fetch page %d of book %s: %w", id.Number, id.BookID, err)
	}
	size, err := imaging.DecodeSize(data)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("probe page %d of book %s: %w", id.Number, id.BookID, err)
	}
	return size, nil
}
