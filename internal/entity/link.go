// Package entity defines the short link entity and the errors shared by the
// use case, storage and delivery layers.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrSlugExists is returned when a link with the same slug is already stored.
	ErrSlugExists = errors.New("slug exists")
	// ErrLinkNotFound is returned when no link is stored under the requested slug.
	ErrLinkNotFound = errors.New("link not found")
	// ErrMissingURL is returned when the URL to shorten is empty.
	ErrMissingURL = errors.New("url is required")
	// ErrInvalidURL is returned when the URL to shorten is not a well-formed absolute URL.
	ErrInvalidURL = errors.New("invalid url format")
	// ErrURLTooLong is returned when the URL to shorten exceeds MaxURLLength.
	ErrURLTooLong = errors.New("url is too long")
	// ErrMissingSlug is returned when a redirect is requested without a slug.
	ErrMissingSlug = errors.New("missing slug")
)

// MaxURLLength is the longest original URL accepted for shortening.
const MaxURLLength = 2048

// ShortLink maps a short slug to the original URL.
type ShortLink struct {
	ID          int64     // ID is the storage identifier of the link.
	Slug        string    // Slug is the unique short identifier used in /s/{slug}.
	OriginalURL string    // OriginalURL is the absolute URL the slug redirects to.
	Owner       string    // Owner is the subject that created the link, empty for anonymous links.
	LinkStats             // LinkStats contains click statistics of the link.
	ShortURL    string    // ShortURL is the public short URL. It is derived and never stored.
	CreatedAt   time.Time // CreatedAt is the creation timestamp of the link.
}

// LinkStats contains statistics related to a short link.
type LinkStats struct {
	Clicks int64 // Clicks is the number of resolved redirects.
}
