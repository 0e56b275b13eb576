package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type LinkRepositoryTestSuite struct {
	suite.Suite
	errUnknown error
	columns    []string
	mock       sqlmock.Sqlmock
	repo       *LinkRepository
}

func (suite *LinkRepositoryTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.columns = []string{"id", "slug", "original_url", "owner", "clicks", "created_at"}
}

func (suite *LinkRepositoryTestSuite) SetupSubTest() {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		suite.T().Fatalf("Failed to create mock database: %v", err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	suite.T().Cleanup(func() {
		db.Close()
	})

	suite.mock = mock
	suite.repo = NewLinkRepository(db)
}

func (suite *LinkRepositoryTestSuite) TearDownSubTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
}

func (suite *LinkRepositoryTestSuite) TestSave() {
	link := &entity.ShortLink{
		Slug:        "abc123",
		OriginalURL: "https://example.com",
		Owner:       "alice",
	}

	suite.Run("slug exists", func() {
		suite.mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("abc123", "https://example.com", "alice", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(suite.columns))

		got, err := suite.repo.Save(context.Background(), link)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrSlugExists)
		suite.Nil(got)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("abc123", "https://example.com", "alice", sqlmock.AnyArg()).
			WillReturnError(suite.errUnknown)

		got, err := suite.repo.Save(context.Background(), link)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(got)
	})

	suite.Run("anonymous owner is stored as null", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow(2, "xyz789", "https://example.com", nil, 0, time.Time{})

		suite.mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("xyz789", "https://example.com", nil, sqlmock.AnyArg()).
			WillReturnRows(rows)

		got, err := suite.repo.Save(context.Background(), &entity.ShortLink{
			Slug:        "xyz789",
			OriginalURL: "https://example.com",
		})

		suite.NoError(err)
		suite.NotNil(got)
		suite.Empty(got.Owner)
	})

	suite.Run("success", func() {
		createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(suite.columns).
			AddRow(1, "abc123", "https://example.com", "alice", 0, createdAt)

		suite.mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("abc123", "https://example.com", "alice", sqlmock.AnyArg()).
			WillReturnRows(rows)

		got, err := suite.repo.Save(context.Background(), link)

		suite.NoError(err)
		suite.NotNil(got)
		suite.Equal(int64(1), got.ID)
		suite.Equal("abc123", got.Slug)
		suite.Equal("https://example.com", got.OriginalURL)
		suite.Equal("alice", got.Owner)
		suite.Zero(got.Clicks)
		suite.Equal(createdAt, got.CreatedAt)
	})
}

func (suite *LinkRepositoryTestSuite) TestRetrieveBySlug() {
	suite.Run("link not found", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("abc123").
			WillReturnRows(sqlmock.NewRows(suite.columns))

		got, err := suite.repo.RetrieveBySlug(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(got)
	})

	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		got, err := suite.repo.RetrieveBySlug(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(got)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow(1, "abc123", "https://example.com", nil, 3, time.Time{})

		suite.mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("abc123").
			WillReturnRows(rows)

		got, err := suite.repo.RetrieveBySlug(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(got)
		suite.Equal("abc123", got.Slug)
		suite.Equal("https://example.com", got.OriginalURL)
		suite.Equal(int64(3), got.Clicks)
	})
}

func (suite *LinkRepositoryTestSuite) TestIncrementClicks() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`UPDATE links SET clicks = clicks \+ 1`).
			WithArgs("abc123").
			WillReturnError(suite.errUnknown)

		err := suite.repo.IncrementClicks(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("unknown slug is a no-op", func() {
		suite.mock.ExpectExec(`UPDATE links SET clicks = clicks \+ 1`).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.repo.IncrementClicks(context.Background(), "missing")

		suite.NoError(err)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`UPDATE links SET clicks = clicks \+ 1`).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.repo.IncrementClicks(context.Background(), "abc123")

		suite.NoError(err)
	})
}

func (suite *LinkRepositoryTestSuite) TestListByOwner() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("alice").
			WillReturnError(suite.errUnknown)

		links, err := suite.repo.ListByOwner(context.Background(), "alice")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(links)
	})

	suite.Run("no links", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(suite.columns))

		links, err := suite.repo.ListByOwner(context.Background(), "alice")

		suite.NoError(err)
		suite.NotNil(links)
		suite.Empty(links)
	})

	suite.Run("success", func() {
		newer := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(suite.columns).
			AddRow(2, "new222", "https://example.com/new", "alice", 1, newer).
			AddRow(1, "old111", "https://example.com/old", "alice", 5, older)

		suite.mock.ExpectQuery(`SELECT (.+) FROM links (.+) ORDER BY created_at DESC`).
			WithArgs("alice").
			WillReturnRows(rows)

		links, err := suite.repo.ListByOwner(context.Background(), "alice")

		suite.NoError(err)
		suite.Len(links, 2)
		suite.Equal("new222", links[0].Slug)
		suite.Equal("old111", links[1].Slug)
		suite.Equal(int64(5), links[1].Clicks)
	})
}

func TestLinkRepository(t *testing.T) {
	suite.Run(t, new(LinkRepositoryTestSuite))
}
