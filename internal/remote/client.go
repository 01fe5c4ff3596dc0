// Package remote provides the persistence client the CV store talks to. It scopes every
// call to the current identity, classifies failures, and retries idempotent reads.
package remote

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/types"
	"go.uber.org/zap"
)

// Repository is the storage contract implemented by the Postgres and SQLite backends.
// Getters return (nil, nil) when the row does not exist.
type Repository interface {
	CreateCV(ctx context.Context, rec *types.CVRecord) (uuid.UUID, error)
	GetCV(ctx context.Context, id uuid.UUID) (*types.CVRecord, error)
	UpdateCV(ctx context.Context, id, userID uuid.UUID, patch *types.CVPatch) (bool, error)
	DeleteCV(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ListCVsByUser(ctx context.Context, userID uuid.UUID) ([]types.CVSummary, error)
	TemplateSource
}

// TemplateSource lists the templates a new CV may start from.
type TemplateSource interface {
	ListActiveTemplates(ctx context.Context) ([]types.Template, error)
}

// Client is the identity-scoped persistence client.
type Client struct {
	repo      Repository
	templates TemplateSource
	identity  Identity
	retry     RetryConfig
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTemplateSource serves ListActiveTemplates from src instead of the repository.
func WithTemplateSource(src TemplateSource) Option {
	return func(c *Client) { c.templates = src }
}

// WithRetry overrides the read retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client acting for identity.
func NewClient(repo Repository, identity Identity, opts ...Option) *Client {
	c := &Client{
		repo:      repo,
		templates: repo,
		identity:  identity,
		retry:     DefaultRetryConfig(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentIdentity returns the acting user or an AuthRequiredError.
func (c *Client) CurrentIdentity(ctx context.Context) (uuid.UUID, error) {
	return c.identity.CurrentIdentity(ctx)
}

// ReadCV loads the full record for id. Records owned by another user are reported
// as not found.
func (c *Client) ReadCV(ctx context.Context, id uuid.UUID) (*types.CVRecord, error) {
	userID, err := c.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := withRetry(ctx, c.retry, c.logger, "read cv", func() (*types.CVRecord, error) {
		r, err := c.repo.GetCV(ctx, id)
		return r, classify("read cv", err)
	})
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.UserID != userID {
		return nil, &NotFoundError{ID: id}
	}
	rec.Data.Normalize()
	return rec, nil
}

// CreateCV inserts rec for the current identity and returns the assigned id.
func (c *Client) CreateCV(ctx context.Context, rec *types.CVRecord) (uuid.UUID, error) {
	userID, err := c.identity.CurrentIdentity(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	rec.UserID = userID

	id, err := c.repo.CreateCV(ctx, rec)
	if err != nil {
		return uuid.Nil, classify("create cv", err)
	}
	if id == uuid.Nil {
		return uuid.Nil, &WriteRejectedError{Op: "create cv", Reason: "no id assigned"}
	}
	return id, nil
}

// UpdateCV writes patch to the CV with id.
func (c *Client) UpdateCV(ctx context.Context, id uuid.UUID, patch *types.CVPatch) error {
	userID, err := c.identity.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	ok, err := c.repo.UpdateCV(ctx, id, userID, patch)
	if err != nil {
		return classify("update cv", err)
	}
	if !ok {
		return &WriteRejectedError{Op: "update cv", ID: id, Reason: "no such cv for user"}
	}
	return nil
}

// DeleteCV removes the CV with id.
func (c *Client) DeleteCV(ctx context.Context, id uuid.UUID) error {
	userID, err := c.identity.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	ok, err := c.repo.DeleteCV(ctx, id, userID)
	if err != nil {
		return classify("delete cv", err)
	}
	if !ok {
		return &NotFoundError{ID: id}
	}
	return nil
}

// ListCVs returns the CVs of owner, most recently updated first.
func (c *Client) ListCVs(ctx context.Context, owner uuid.UUID) ([]types.CVSummary, error) {
	return withRetry(ctx, c.retry, c.logger, "list cvs", func() ([]types.CVSummary, error) {
		cvs, err := c.repo.ListCVsByUser(ctx, owner)
		return cvs, classify("list cvs", err)
	})
}

// ListActiveTemplates returns the templates a new CV may use.
func (c *Client) ListActiveTemplates(ctx context.Context) ([]types.Template, error) {
	return withRetry(ctx, c.retry, c.logger, "list templates", func() ([]types.Template, error) {
		tpls, err := c.templates.ListActiveTemplates(ctx)
		return tpls, classify("list templates", err)
	})
}
