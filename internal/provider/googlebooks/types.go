package googlebooks

import "github.com/sakif/bookifyme/internal/model"

// volumesResponse is the raw body of GET /volumes?q=...
type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

// volume is a single Google Books volume.
type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
	SaleInfo   saleInfo   `json:"saleInfo"`
}

type volumeInfo struct {
	Title         string     `json:"title"`
	Authors       []string   `json:"authors"`
	Description   string     `json:"description"`
	Categories    []string   `json:"categories"`
	ImageLinks    imageLinks `json:"imageLinks"`
	AverageRating *float64   `json:"averageRating"`
	RatingsCount  *int64     `json:"ratingsCount"`
	PublishedDate string     `json:"publishedDate"`
	PageCount     *int64     `json:"pageCount"`
	Language      string     `json:"language"`
	PreviewLink   string     `json:"previewLink"`
	InfoLink      string     `json:"infoLink"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

type saleInfo struct {
	ListPrice *listPrice `json:"listPrice"`
}

type listPrice struct {
	Amount       *float64 `json:"amount"`
	CurrencyCode string   `json:"currencyCode"`
}

// toBookData maps a volume into the provider-neutral shape. Defaults for
// missing title, author and description are applied later by model.BookData.
func (v *volume) toBookData() model.BookData {
	info := &v.VolumeInfo

	thumb := info.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = info.ImageLinks.SmallThumbnail
	}

	d := model.BookData{
		ExternalID:    v.ID,
		Title:         info.Title,
		Authors:       info.Authors,
		Description:   htmlToMarkdown(info.Description),
		Categories:    info.Categories,
		Thumbnail:     thumb,
		Rating:        info.AverageRating,
		RatingsCount:  info.RatingsCount,
		PublishedDate: info.PublishedDate,
		PageCount:     info.PageCount,
		Language:      info.Language,
		PreviewLink:   info.PreviewLink,
		InfoLink:      info.InfoLink,
	}
	if lp := v.SaleInfo.ListPrice; lp != nil {
		d.Price = lp.Amount
		d.Currency = lp.CurrencyCode
	}
	return d
}
