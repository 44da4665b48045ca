// Package regclient submits registrations on behalf of an applicant. Input is
// checked with the server's own rules first so obvious mistakes never leave
// the machine; the server remains the authority.
package regclient

import (
	"context"
	"errors"
	"time"

	"registration-service/internal/adminclient"
	"registration-service/internal/apperror"
	"registration-service/internal/catalog"
	"registration-service/internal/registration"
)

type Client struct {
	api     *adminclient.Client
	catalog *catalog.Catalog
	now     func() time.Time
}

func New(api *adminclient.Client) *Client {
	return &Client{api: api, now: time.Now}
}

// LoadCatalog fetches the offerings so Validate can check service and course.
func (c *Client) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	cat, err := c.api.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	c.catalog = cat
	return cat, nil
}

// Validate applies the same rules as the server.
func (c *Client) Validate(in registration.Input) error {
	_, err := registration.Validate(in, c.now(), c.catalog)
	return err
}

// Submit validates locally and then creates the registration.
func (c *Client) Submit(ctx context.Context, in registration.Input) (*registration.Registration, error) {
	if err := c.Validate(in); err != nil {
		return nil, err
	}
	return c.api.Create(ctx, in)
}

// Message is the text to show the applicant for err: the validation summary
// or the server's message verbatim.
func Message(err error) string {
	var apiErr *adminclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// FieldErrors returns per-field messages, from either side, when there are any.
func FieldErrors(err error) map[string]string {
	var apiErr *adminclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
