package http

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// shortenRequest represents the structure for a request to shorten a URL.
type shortenRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// linkResponse represents a short link. Delegated links carry no slug and no clicks.
type linkResponse struct {
	Slug        string    `json:"slug,omitempty"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	Clicks      *int64    `json:"clicks,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toLinkResponse(link *entity.ShortLink) linkResponse {
	resp := linkResponse{
		Slug:        link.Slug,
		ShortURL:    link.ShortURL,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	}

	if link.Slug != "" {
		clicks := link.Clicks
		resp.Clicks = &clicks
	}

	return resp
}

// linksResponse represents the caller's links, newest first.
type linksResponse struct {
	Links []linkResponse `json:"links"`
}

func toLinksResponse(links []entity.ShortLink) linksResponse {
	resp := linksResponse{Links: make([]linkResponse, 0, len(links))}
	for i := range links {
		resp.Links = append(resp.Links, toLinkResponse(&links[i]))
	}
	return resp
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	linkNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "link not found",
	}

	invalidTokenResponse = errorResponse{
		Status:  statusError,
		Message: "invalid or expired token",
	}

	shortenerUnavailableResponse = errorResponse{
		Status:  statusError,
		Message: "shortening service is unavailable, please try again",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("url must not exceed %d characters", entity.MaxURLLength)
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}

// urlFieldErrorResponse reports a problem the use case found with the url field.
func urlFieldErrorResponse(tag string) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors: []validationError{
			{Field: "url", Message: messageForTag(tag)},
		},
	}
}
