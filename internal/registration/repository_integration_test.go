package registration_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"registration-service/internal/apperror"
	"registration-service/internal/logger"
	"registration-service/internal/metrics"
	"registration-service/internal/registration"
	"registration-service/testing/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Postgres(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	pg.RunMigrations(t, registration.Models(), registration.Indexes()...)

	ctx := context.Background()
	repo := registration.NewRepository(pg.DB, logger.Discard())
	newReg := func(email string, createdAt time.Time) *registration.Registration {
		return &registration.Registration{
			ID:            uuid.NewString(),
			FullName:      "Test " + email,
			Email:         email,
			Phone:         "9876543210",
			Qualification: "B.Tech",
			PassingYear:   2022,
			Service:       "EduTech",
			Course:        "Online Tutoring",
			CreatedAt:     createdAt.UTC().Truncate(time.Microsecond),
		}
	}

	t.Run("create and read back", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		reg := newReg("one@example.com", time.Now())
		_, err := repo.Create(ctx, reg)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, reg.Email, got.Email)
		assert.True(t, reg.CreatedAt.Equal(got.CreatedAt))

		got, err = repo.GetByEmail(ctx, "  ONE@example.com")
		require.NoError(t, err)
		assert.Equal(t, reg.ID, got.ID)
	})

	t.Run("unique constraint maps to ErrEmailTaken", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		_, err := repo.Create(ctx, newReg("dup@example.com", time.Now()))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newReg("dup@example.com", time.Now()))
		assert.ErrorIs(t, err, registration.ErrEmailTaken)
	})

	t.Run("concurrent creates with same email", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		svc := registration.NewService(repo, nil, nil, registration.Options{}, logger.Discard(), metrics.NewMock())
		in := validInput()

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Create(ctx, in)
			}(i)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			assert.True(t, apperror.IsCode(err, apperror.CodeConflict), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, successes)

		_, total, err := repo.List(ctx, registration.ListParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("pages are stable and complete", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 23; i++ {
			// pairs share a timestamp to exercise the id tiebreak
			_, err := repo.Create(ctx, newReg(fmt.Sprintf("p%02d@example.com", i), base.Add(time.Duration(i/2)*time.Minute)))
			require.NoError(t, err)
		}

		seen := map[string]bool{}
		var prev *registration.Registration
		for page := 1; page <= 5; page++ {
			rows, total, err := repo.List(ctx, registration.ListParams{Page: page, PageSize: 5})
			require.NoError(t, err)
			assert.Equal(t, 23, total)
			for i := range rows {
				r := rows[i]
				assert.False(t, seen[r.ID], "duplicate %s", r.ID)
				seen[r.ID] = true
				if prev != nil {
					assert.False(t, r.CreatedAt.After(prev.CreatedAt), "not sorted by createdAt desc")
				}
				prev = &r
			}
		}
		assert.Len(t, seen, 23)
	})

	t.Run("search and service filter", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		a := newReg("alpha@example.com", time.Now())
		a.FullName = "Alpha 100%"
		b := newReg("beta@example.com", time.Now())
		b.Service = "Data Science"
		b.Course = "Machine Learning"
		for _, r := range []*registration.Registration{a, b} {
			_, err := repo.Create(ctx, r)
			require.NoError(t, err)
		}

		rows, total, err := repo.List(ctx, registration.ListParams{Page: 1, PageSize: 10, Search: "MACHINE"})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, b.ID, rows[0].ID)

		_, total, err = repo.List(ctx, registration.ListParams{Page: 1, PageSize: 10, Search: "%"})
		require.NoError(t, err)
		assert.Equal(t, 1, total, "percent must match literally")

		_, total, err = repo.List(ctx, registration.ListParams{Page: 1, PageSize: 10, Service: "EduTech"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		counts, err := repo.CountByService(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []registration.ServiceCount{
			{Service: "EduTech", Count: 1},
			{Service: "Data Science", Count: 1},
		}, counts)
	})

	t.Run("delete", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		reg := newReg("gone@example.com", time.Now())
		_, err := repo.Create(ctx, reg)
		require.NoError(t, err)

		assert.ErrorIs(t, repo.Delete(ctx, uuid.NewString()), registration.ErrRegistrationNotFound)
		require.NoError(t, repo.Delete(ctx, reg.ID))
		_, err = repo.GetByID(ctx, reg.ID)
		assert.ErrorIs(t, err, registration.ErrRegistrationNotFound)
	})

	t.Run("malformed rows are coerced or skipped", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, registration.TableName)

		_, err := pg.DB.ExecContext(ctx, `ALTER TABLE registrations
			ALTER COLUMN email DROP NOT NULL,
			ALTER COLUMN qualification DROP NOT NULL`)
		require.NoError(t, err)
		t.Cleanup(func() {
			testdb.CleanupTables(t, pg.DB, registration.TableName)
			_, _ = pg.DB.ExecContext(ctx, `ALTER TABLE registrations
				ALTER COLUMN email SET NOT NULL,
				ALTER COLUMN qualification SET NOT NULL`)
		})

		good := uuid.NewString()
		_, err = pg.DB.ExecContext(ctx, `INSERT INTO registrations
			(id, full_name, email, phone, qualification, passing_year, service, course, message, created_at)
			VALUES (?, 'No Qual', 'noqual@example.com', '9876543210', NULL, 2020, 'EduTech', 'Online Tutoring', '', now()),
			       (?, 'No Email', NULL, '9876543210', 'BSc', 2020, 'EduTech', 'Online Tutoring', '', now())`,
			good, uuid.NewString())
		require.NoError(t, err)

		rows, total, err := repo.List(ctx, registration.ListParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total, "skipped rows must not be counted")
		require.Len(t, rows, 1)
		assert.Equal(t, good, rows[0].ID)
		assert.Equal(t, registration.DefaultQualification, rows[0].Qualification)
	})
}
