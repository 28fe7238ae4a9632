package soltoken

import (
	"time"
)

// Submission is one broadcast transaction as the client observed it. The
// log exists so a caller can check whether a prior pipeline run actually
// reached the network before retrying it.
type Submission struct {
	Signature   string
	Route       string
	Payer       string
	SubmittedAt time.Time
}

type Database interface {
	RecordSubmission(sub Submission) (err error)
	GetSubmission(signature string) (sub Submission, err error)
	ListSubmissions(route string) (subs []Submission, err error)
	Close() (err error)
}
