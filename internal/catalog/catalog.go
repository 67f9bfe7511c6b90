package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/skilldesk/skilldesk-backend/internal/model"
)

// Lister is the read surface of the question store.
type Lister interface {
	List(ctx context.Context) ([]model.Question, error)
}

// Catalog is the immutable, ordered question set. It is loaded once at
// process start and never mutated afterwards, so it is safe for concurrent
// reads without locking.
type Catalog struct {
	questions []model.Question
	indexByID map[int]int
}

// Load reads the full question set from the store. An empty catalog is an
// error: the server cannot administer an assessment without questions.
func Load(ctx context.Context, store Lister) (*Catalog, error) {
	questions, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, errors.New("question catalog is empty")
	}
	return New(questions), nil
}

// New builds a Catalog from an already-ordered question slice.
func New(questions []model.Question) *Catalog {
	index := make(map[int]int, len(questions))
	for i, q := range questions {
		index[q.ID] = i
	}
	return &Catalog{questions: questions, indexByID: index}
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// ByIndex returns the question at a zero-based position.
func (c *Catalog) ByIndex(i int) (model.Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return model.Question{}, false
	}
	return c.questions[i], true
}

// ByID returns the question with the given stable ID.
func (c *Catalog) ByID(id int) (model.Question, bool) {
	i, ok := c.indexByID[id]
	if !ok {
		return model.Question{}, false
	}
	return c.questions[i], true
}

// All returns the ordered question slice. Callers must not modify it.
func (c *Catalog) All() []model.Question {
	return c.questions
}

// fileQuestion tolerates both {"id", "text"} and the legacy
// {"question"} field name found in older question exports.
type fileQuestion struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Question string `json:"question"`
}

// LoadFile parses a questions JSON file for seeding. Records without an
// explicit ID are numbered by position, 1-based.
func LoadFile(path string) ([]model.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []fileQuestion
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	questions := make([]model.Question, 0, len(entries))
	for i, e := range entries {
		text := e.Text
		if text == "" {
			text = e.Question
		}
		if text == "" {
			return nil, fmt.Errorf("question %d has no text", i+1)
		}
		id := e.ID
		if id == 0 {
			id = i + 1
		}
		questions = append(questions, model.Question{ID: id, Text: text})
	}
	return questions, nil
}
