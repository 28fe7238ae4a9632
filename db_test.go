package soltoken

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func testDatabase(t *testing.T, db Database) {
	t.Helper()

	_, err := db.GetSubmission("missing")
	assert.True(t, errors.Is(err, ErrSubmissionNotFound))

	first := Submission{
		Signature:   "sig-1",
		Route:       "create_user",
		Payer:       "payer-1",
		SubmittedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, db.RecordSubmission(first))

	second := Submission{
		Signature:   "sig-2",
		Route:       "mint",
		Payer:       "payer-1",
		SubmittedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, db.RecordSubmission(second))

	got, err := db.GetSubmission("sig-1")
	assert.NoError(t, err)
	assert.Equal(t, first.Route, got.Route)
	assert.Equal(t, first.Payer, got.Payer)

	all, err := db.ListSubmissions("")
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	mints, err := db.ListSubmissions("mint")
	assert.NoError(t, err)
	assert.Len(t, mints, 1)
	assert.Equal(t, "sig-2", mints[0].Signature)

	// Same signature again must replace, not duplicate.
	first.Route = "deposit"
	assert.NoError(t, db.RecordSubmission(first))

	all, err = db.ListSubmissions("")
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Error(t, db.RecordSubmission(Submission{Route: "mint"}))
}

func TestSqlLiteDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	defer func() {
		_ = os.Remove(path)
	}()

	db, err := NewSqlLiteDatabase(path)
	assert.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	testDatabase(t, db)
}

func TestInMemoryDatabase(t *testing.T) {
	db := NewInMemoryDatabase()
	defer func() {
		_ = db.Close()
	}()

	testDatabase(t, db)
}
