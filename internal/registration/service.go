package registration

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"math"
	"net"
	"strings"
	"time"

	"registration-service/internal/apperror"
	"registration-service/internal/catalog"
	"registration-service/internal/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500

	statsCacheKey = "stats"
)

// Notifier receives every successfully created registration. Implementations
// are called synchronously on the request path and must not block.
type Notifier interface {
	Name() string
	NotifyCreated(ctx context.Context, reg Registration) error
}

// DeleteNotifier is implemented by notifiers that also record deletions.
type DeleteNotifier interface {
	NotifyDeleted(ctx context.Context, id string) error
}

type Service interface {
	Create(ctx context.Context, in Input) (*Registration, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id string) (*Registration, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

type Options struct {
	// Timeout bounds every store call. Zero means 5s.
	Timeout         time.Duration
	DefaultPageSize int
	MaxPageSize     int
	StatsTTL        time.Duration
	Now             func() time.Time
}

type service struct {
	repo      Repository
	catalog   *catalog.Catalog
	notifiers []Notifier
	stats     *cache.Cache
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(repo Repository, cat *catalog.Catalog, notifiers []Notifier, opts Options, logger *slog.Logger, m *metrics.Metrics) Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &service{
		repo:      repo,
		catalog:   cat,
		notifiers: notifiers,
		stats:     cache.New(opts.StatsTTL, 2*opts.StatsTTL),
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

func (s *service) Create(ctx context.Context, in Input) (*Registration, error) {
	now := s.opts.Now()

	reg, err := Validate(in, now, s.catalog)
	if err != nil {
		s.metrics.RecordValidationFailure(ctx)
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if _, err := s.repo.GetByEmail(storeCtx, reg.Email); err == nil {
		return nil, apperror.Wrap(ErrEmailTaken, apperror.CodeConflict, "Email already registered")
	} else if !errors.Is(err, ErrRegistrationNotFound) {
		return nil, s.storeError(ctx, "lookup by email", err)
	}

	reg.ID = uuid.NewString()
	reg.CreatedAt = now.UTC().Truncate(time.Microsecond)

	created, err := s.repo.Create(storeCtx, &reg)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperror.Wrap(err, apperror.CodeConflict, "Email already registered")
		}
		return nil, s.storeError(ctx, "create", err)
	}

	s.stats.Delete(statsCacheKey)
	s.metrics.RecordRegistrationCreated(ctx)
	s.logger.InfoContext(ctx, "registration created", "id", created.ID, "service", created.Service)

	s.notifyCreated(context.WithoutCancel(ctx), *created)

	return created, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	params = s.normalizeListParams(params)

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	records, total, err := s.repo.List(storeCtx, params)
	if err != nil {
		return nil, s.storeError(ctx, "list", err)
	}
	s.metrics.RecordListViewed(ctx)

	totalPages := 0
	if total > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}

	return &ListResult{
		Records:         records,
		Total:           total,
		Page:            params.Page,
		PageSize:        params.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     params.Page < totalPages,
		HasPreviousPage: params.Page > 1,
	}, nil
}

func (s *service) Get(ctx context.Context, id string) (*Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	reg, err := s.repo.GetByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return nil, notFound(id)
		}
		return nil, s.storeError(ctx, "get", err)
	}
	return reg, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.repo.Delete(storeCtx, id); err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return notFound(id)
		}
		return s.storeError(ctx, "delete", err)
	}

	s.stats.Delete(statsCacheKey)
	s.metrics.RecordRegistrationDeleted(ctx)
	s.logger.InfoContext(ctx, "registration deleted", "id", id)

	s.notifyDeleted(context.WithoutCancel(ctx), id)
	return nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	if cached, ok := s.stats.Get(statsCacheKey); ok {
		return cached.(*Stats), nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	counts, err := s.repo.CountByService(storeCtx)
	if err != nil {
		return nil, s.storeError(ctx, "stats", err)
	}

	stats := &Stats{ByService: counts}
	for _, c := range counts {
		stats.Total += c.Count
	}
	if stats.ByService == nil {
		stats.ByService = []ServiceCount{}
	}

	s.stats.SetDefault(statsCacheKey, stats)
	return stats, nil
}

func (s *service) normalizeListParams(p ListParams) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = s.opts.DefaultPageSize
	}
	if p.PageSize > s.opts.MaxPageSize {
		p.PageSize = s.opts.MaxPageSize
	}
	// keep the row offset within a Postgres int4
	if maxPage := math.MaxInt32 / p.PageSize; p.Page > maxPage {
		p.Page = maxPage
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Service = strings.TrimSpace(p.Service)
	return p
}

func (s *service) notifyCreated(ctx context.Context, reg Registration) {
	for _, n := range s.notifiers {
		start := time.Now()
		err := n.NotifyCreated(ctx, reg)
		s.metrics.RecordNotification(ctx, n.Name(), time.Since(start), err)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to publish new registration",
				"notifier", n.Name(),
				"id", reg.ID,
				"error", err,
			)
		}
	}
}

func (s *service) notifyDeleted(ctx context.Context, id string) {
	for _, n := range s.notifiers {
		dn, ok := n.(DeleteNotifier)
		if !ok {
			continue
		}
		if err := dn.NotifyDeleted(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish deletion",
				"notifier", n.Name(),
				"id", id,
				"error", err,
			)
		}
	}
}

// storeError classifies a store failure as retryable or internal.
func (s *service) storeError(ctx context.Context, op string, err error) error {
	if isUnavailable(err) {
		s.logger.WarnContext(ctx, "store unavailable", "op", op, "error", err)
		return apperror.Wrap(err, apperror.CodeUnavailable, "Service temporarily unavailable, please retry")
	}
	s.logger.ErrorContext(ctx, "store failure", "op", op, "error", err)
	return apperror.Wrap(err, apperror.CodeInternal, "Internal server error")
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func notFound(id string) error {
	return apperror.Wrap(ErrRegistrationNotFound, apperror.CodeNotFound, "Registration not found").
		WithField("id", id)
}
