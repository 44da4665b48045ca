package registration

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Repository interface {
	Create(ctx context.Context, reg *Registration) (*Registration, error)
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEmail(ctx context.Context, email string) (*Registration, error)
	List(ctx context.Context, params ListParams) ([]Registration, int, error)
	Delete(ctx context.Context, id string) error
	CountByService(ctx context.Context) ([]ServiceCount, error)
}

var searchColumns = []string{"full_name", "email", "phone", "service", "course"}

type repository struct {
	db     *bun.DB
	logger *slog.Logger
}

func NewRepository(db *bun.DB, logger *slog.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, reg *Registration) (*Registration, error) {
	_, err := r.db.NewInsert().Model(reg).Returning("*").Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return reg, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Registration, error) {
	reg := new(Registration)
	err := r.db.NewSelect().Model(reg).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Registration, error) {
	reg := new(Registration)
	err := r.db.NewSelect().
		Model(reg).
		Where("email = ?", NormalizeEmail(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

// List returns one page of registrations, newest first, and the number of
// rows matching the filter before pagination. Rows that cannot be coerced
// are skipped and logged.
func (r *repository) List(ctx context.Context, params ListParams) ([]Registration, int, error) {
	var rows []rawRegistration
	q := r.db.NewSelect().Model(&rows)

	if params.Search != "" {
		pattern := "%" + escapeLike(params.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, col := range searchColumns {
				q = q.WhereOr("? ILIKE ?", bun.Ident(col), pattern)
			}
			return q
		})
	}
	if params.Service != "" {
		q = q.Where("service = ?", params.Service)
	}

	total, err := q.
		OrderExpr("created_at DESC, id DESC").
		Limit(params.PageSize).
		Offset((params.Page - 1) * params.PageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	out := make([]Registration, 0, len(rows))
	for _, raw := range rows {
		reg, ok := Coerce(raw)
		if !ok {
			r.logger.WarnContext(ctx, "skipping malformed registration row",
				"id", str(raw.ID),
				"has_email", raw.Email != nil,
				"has_created_at", raw.CreatedAt != nil,
			)
			continue
		}
		out = append(out, *reg)
	}
	// rows skipped on this page are not counted; skipped rows on other pages still are
	total -= len(rows) - len(out)
	return out, total, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	reg := &Registration{ID: id}
	result, err := r.db.NewDelete().Model(reg).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *repository) CountByService(ctx context.Context) ([]ServiceCount, error) {
	var counts []ServiceCount
	err := r.db.NewSelect().
		Model((*Registration)(nil)).
		Column("service").
		ColumnExpr("count(*) AS count").
		Group("service").
		OrderExpr("count DESC, service ASC").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

// escapeLike makes % _ and \ in a search term match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
