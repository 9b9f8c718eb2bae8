package postgres

import (
	"context"
	"testing"
	"time"

	"autopost-backend/internal/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeRepository_Create(t *testing.T) {
	hasAccount := true
	newSubmission := func(token *string) *domain.IntakeSubmission {
		return &domain.IntakeSubmission{
			FullName:     "Sam Boxer",
			Email:        "sam@example.com",
			BusinessType: "boxer_fighter",
			Platforms: map[string]domain.PlatformAnswer{
				"tiktok": {HasAccount: &hasAccount, HandleOrURL: "@sam", AddToWorkflow: true},
			},
			IntakeToken: token,
		}
	}

	t.Run("Should mark the beta request completed in the same transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		token := "tok-1"
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO intake_submissions").
			WithArgs("Sam Boxer", "sam@example.com", (*string)(nil), "boxer_fighter", (*string)(nil),
				(*string)(nil), (*string)(nil),
				`{"tiktok":{"hasAccount":true,"handleOrUrl":"@sam","addToWorkflow":true,"wantsAccountCreation":null}}`,
				&token).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("intake-1", time.Now()))
		mock.ExpectExec("UPDATE video_requests SET intake_completed").
			WithArgs(token).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		sub := newSubmission(&token)
		err = NewIntakeRepository(mock).Create(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, "intake-1", sub.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should skip the request update without a token", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO intake_submissions").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("intake-2", time.Now()))
		mock.ExpectCommit()

		err = NewIntakeRepository(mock).Create(context.Background(), newSubmission(nil))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
