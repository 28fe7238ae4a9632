package soltoken

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

type InMemoryDatabase struct {
	subs map[string]Submission
	mu   sync.RWMutex
}

var _ Database = &InMemoryDatabase{}

func NewInMemoryDatabase() *InMemoryDatabase {
	return &InMemoryDatabase{
		subs: make(map[string]Submission),
	}
}

func (db *InMemoryDatabase) RecordSubmission(sub Submission) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if sub.Signature == "" {
		return errors.New("submission requires a signature")
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	db.subs[sub.Signature] = sub
	return nil
}

func (db *InMemoryDatabase) GetSubmission(signature string) (Submission, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	sub, ok := db.subs[signature]
	if !ok {
		return Submission{}, errors.Wrapf(ErrSubmissionNotFound, "signature %s", signature)
	}
	return sub, nil
}

func (db *InMemoryDatabase) ListSubmissions(route string) ([]Submission, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var subs []Submission
	for _, sub := range db.subs {
		if route == "" || sub.Route == route {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (db *InMemoryDatabase) Close() error {
	return nil
}
