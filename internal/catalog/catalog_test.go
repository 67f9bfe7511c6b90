package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skilldesk/skilldesk-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	questions []model.Question
	err       error
}

func (s *staticLister) List(ctx context.Context) ([]model.Question, error) {
	return s.questions, s.err
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	_, err := Load(context.Background(), &staticLister{})
	assert.Error(t, err)
}

func TestLoadPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	_, err := Load(context.Background(), &staticLister{err: storeErr})
	assert.ErrorIs(t, err, storeErr)
}

func TestCatalogLookups(t *testing.T) {
	cat := New([]model.Question{
		{ID: 10, Text: "first"},
		{ID: 20, Text: "second"},
	})

	assert.Equal(t, 2, cat.Len())

	q, ok := cat.ByIndex(0)
	require.True(t, ok)
	assert.Equal(t, 10, q.ID)

	q, ok = cat.ByID(20)
	require.True(t, ok)
	assert.Equal(t, "second", q.Text)

	_, ok = cat.ByIndex(2)
	assert.False(t, ok)
	_, ok = cat.ByIndex(-1)
	assert.False(t, ok)
	_, ok = cat.ByID(99)
	assert.False(t, ok)
}

func TestLoadFileParsesBothFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	data := `[
		{"id": 5, "text": "modern field name"},
		{"question": "legacy field name"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	questions, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, 5, questions[0].ID)
	assert.Equal(t, "modern field name", questions[0].Text)

	// Records without an ID are numbered by position.
	assert.Equal(t, 2, questions[1].ID)
	assert.Equal(t, "legacy field name", questions[1].Text)
}

func TestLoadFileRejectsTextlessRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1}]`), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
