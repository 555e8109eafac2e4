package komga

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	gocache "github.com/patrickmn/go-cache"

	"komavi/internal/geometry"
	"komavi/internal/reader"
)

// Wire shapes, trimmed to the fields the reader consumes.

type bookDTO struct {
	ID       string `json:"id"`
	SeriesID string `json:"seriesId"`
	Name     string `json:"name"`
	Media    struct {
		PagesCount int `json:"pagesCount"`
	} `json:"media"`
	ReadProgress *struct {
		Page      int  `json:"page"`
		Completed bool `json:"completed"`
	} `json:"readProgress"`
}

type pageDTO struct {
	Number int `json:"number"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b bookDTO) toBook() reader.Book {
	book := reader.Book{
		ID:        b.ID,
		SeriesID:  b.SeriesID,
		Title:     b.Name,
		PageCount: b.Media.PagesCount,
	}
	if b.ReadProgress != nil {
		book.ReadProgress = &reader.ReadProgress{
			Page:      b.ReadProgress.Page,
			Completed: b.ReadProgress.Completed,
		}
	}
	return book
}

func (c *Client) Book(ctx context.Context, bookID string) (reader.Book, error) {
	key := "book:" + bookID
	if cached, ok := c.metadata.Get(key); ok {
		return cached.(reader.Book), nil
	}

	var dto bookDTO
	if err := c.getJSON(ctx, "/api/v1/books/"+url.PathEscape(bookID), &dto); err != nil {
		return reader.Book{}, fmt.Errorf("get book %s: %w", bookID, err)
	}
	book := dto.toBook()
	c.metadata.Set(key, book, gocache.DefaultExpiration)
	return book, nil
}

func (c *Client) BookPages(ctx context.Context, bookID string) ([]reader.PageMetadata, error) {
	key := "pages:" + bookID
	if cached, ok := c.metadata.Get(key); ok {
		return cached.([]reader.PageMetadata), nil
	}

	var dtos []pageDTO
	if err := c.getJSON(ctx, "/api/v1/books/"+url.PathEscape(bookID)+"/pages", &dtos); err != nil {
		return nil, fmt.Errorf("get pages of book %s: %w", bookID, err)
	}

	pages := make([]reader.PageMetadata, 0, len(dtos))
	for _, dto := range dtos {
		page := reader.PageMetadata{BookID: bookID, Number: dto.Number}
		// Older Komga versions omit dimensions until media analysis ran.
		if dto.Width > 0 && dto.Height > 0 {
			size := geometry.Size{Width: dto.Width, Height: dto.Height}
			page.Size = &size
		}
		pages = append(pages, page)
	}
	c.metadata.Set(key, pages, gocache.DefaultExpiration)
	return pages, nil
}

func (c *Client) sibling(ctx context.Context, bookID, direction string) (*reader.Book, error) {
	var dto bookDTO
	err := c.getJSON(ctx, "/api/v1/books/"+url.PathEscape(bookID)+"/"+direction, &dto)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s book of %s: %w", direction, bookID, err)
	}
	book := dto.toBook()
	return &book, nil
}

// PreviousBook returns nil without error when the book is the first of
// its series.
func (c *Client) PreviousBook(ctx context.Context, bookID string) (*reader.Book, error) {
	return c.sibling(ctx, bookID, "previous")
}

func (c *Client) NextBook(ctx context.Context, bookID string) (*reader.Book, error) {
	return c.sibling(ctx, bookID, "next")
}

// MarkProgress records the furthest page read. The cached book entry is
// dropped so the next load sees fresh progress.
func (c *Client) MarkProgress(ctx context.Context, bookID string, page int) error {
	body, err := json.Marshal(map[string]any{"page": page})
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPatch, "/api/v1/books/"+url.PathEscape(bookID)+"/read-progress", body); err != nil {
		return fmt.Errorf("mark progress of book %s: %w", bookID, err)
	}
	c.metadata.Delete("book:" + bookID)
	return nil
}
