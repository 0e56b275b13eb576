package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when no free slug was found, even with the longer fallback length.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating slug")

// ErrShortenerFailed wraps failures of the delegated shortening service.
var ErrShortenerFailed = errors.New("external shortener failed")

const (
	slugAlphabet          = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultSlugLength     = 6
	defaultMaxRetries     = 5
	fallbackLengthStep    = 4
	clickIncrementTimeout = 5 * time.Second
)

type linkRepository interface {
	Save(ctx context.Context, link *entity.ShortLink) (*entity.ShortLink, error)
	RetrieveBySlug(ctx context.Context, slug string) (*entity.ShortLink, error)
	IncrementClicks(ctx context.Context, slug string) error
	ListByOwner(ctx context.Context, owner string) ([]entity.ShortLink, error)
}

type externalShortener interface {
	Shorten(ctx context.Context, originalURL string) (string, error)
}

type Option func(*LinkUseCase)

func WithSlugLength(n int) Option {
	return func(uc *LinkUseCase) {
		if n > 0 {
			uc.slugLength = n
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(uc *LinkUseCase) {
		if n > 0 {
			uc.maxRetries = n
		}
	}
}

// WithBaseURL sets the public origin used to build short URLs, e.g. https://sho.rt.
func WithBaseURL(baseURL string) Option {
	return func(uc *LinkUseCase) {
		uc.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithExternalShortener delegates shortening to s. Delegated links are not
// stored, so they have no slug and no click statistics.
func WithExternalShortener(s externalShortener) Option {
	return func(uc *LinkUseCase) {
		uc.external = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(uc *LinkUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

type LinkUseCase struct {
	repo       linkRepository
	external   externalShortener
	logger     *slog.Logger
	baseURL    string
	slugLength int
	maxRetries int
	now        func() time.Time
	clicks     sync.WaitGroup
}

func NewLinkUseCase(repo linkRepository, opts ...Option) *LinkUseCase {
	uc := &LinkUseCase{
		repo:       repo,
		logger:     slog.Default(),
		slugLength: defaultSlugLength,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *LinkUseCase) shortURL(slug string) string {
	return uc.baseURL + "/s/" + slug
}

// ShortenURL normalizes rawURL and stores it under a fresh slug owned by owner
// (empty for anonymous callers).
func (uc *LinkUseCase) ShortenURL(ctx context.Context, rawURL, owner string) (*entity.ShortLink, error) {
	const op = "usecase.LinkUseCase.ShortenURL"

	originalURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if uc.external != nil {
		shortURL, err := uc.external.Shorten(ctx, originalURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrShortenerFailed, err)
		}

		return &entity.ShortLink{
			OriginalURL: originalURL,
			Owner:       owner,
			ShortURL:    shortURL,
			CreatedAt:   uc.now().UTC(),
		}, nil
	}

	// After maxRetries collisions the slug grows, which widens the space enough
	// for the remaining attempts.
	for attempt := 0; attempt < 2*uc.maxRetries; attempt++ {
		length := uc.slugLength
		if attempt >= uc.maxRetries {
			length += fallbackLengthStep
		}

		slug, err := gonanoid.Generate(slugAlphabet, length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
		}

		link, err := uc.repo.Save(ctx, &entity.ShortLink{
			Slug:        slug,
			OriginalURL: originalURL,
			Owner:       owner,
			CreatedAt:   uc.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, entity.ErrSlugExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		link.ShortURL = uc.shortURL(link.Slug)
		return link, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveSlug returns the link stored under slug and counts the click in the
// background. The returned link carries the count stored before this click.
// A failed click increment is logged and does not fail the resolution.
func (uc *LinkUseCase) ResolveSlug(ctx context.Context, slug string) (*entity.ShortLink, error) {
	const op = "usecase.LinkUseCase.ResolveSlug"

	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrMissingSlug)
	}

	link, err := uc.repo.RetrieveBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve slug: %w", op, err)
	}

	uc.countClick(context.WithoutCancel(ctx), slug)

	link.ShortURL = uc.shortURL(link.Slug)
	return link, nil
}

func (uc *LinkUseCase) countClick(ctx context.Context, slug string) {
	const op = "usecase.LinkUseCase.countClick"

	uc.clicks.Add(1)
	go func() {
		defer uc.clicks.Done()

		ctx, cancel := context.WithTimeout(ctx, clickIncrementTimeout)
		defer cancel()

		if err := uc.repo.IncrementClicks(ctx, slug); err != nil {
			uc.logger.WarnContext(ctx, "failed to increment clicks",
				slog.String("op", op),
				slog.String("slug", slug),
				slog.Any("err", err),
			)
		}
	}()
}

// Wait blocks until every click increment started by ResolveSlug has finished.
// Call it after the HTTP server stopped accepting requests.
func (uc *LinkUseCase) Wait() {
	uc.clicks.Wait()
}

// GetLinkStats returns the link stored under slug without counting a click.
func (uc *LinkUseCase) GetLinkStats(ctx context.Context, slug string) (*entity.ShortLink, error) {
	const op = "usecase.LinkUseCase.GetLinkStats"

	link, err := uc.repo.RetrieveBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	link.ShortURL = uc.shortURL(link.Slug)
	return link, nil
}

// ListLinks returns the links of owner, newest first. Anonymous callers get
// an empty list.
func (uc *LinkUseCase) ListLinks(ctx context.Context, owner string) ([]entity.ShortLink, error) {
	const op = "usecase.LinkUseCase.ListLinks"

	if owner == "" {
		return []entity.ShortLink{}, nil
	}

	links, err := uc.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	for i := range links {
		links[i].ShortURL = uc.shortURL(links[i].Slug)
	}

	return links, nil
}
