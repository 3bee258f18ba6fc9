package session

import "time"

// A FetchRecord remembers a completed fetch, so that it can be skipped next time without asking the provider.
type FetchRecord struct {
	URL       string
	ID        string
	Dir       string
	Path      string
	Size      int64
	FetchedAt time.Time
}

type Database interface {
	// LookupFetch returns (nil, nil) if there is no record for the URL and directory.
	LookupFetch(url string, dir string) (*FetchRecord, error)
	WriteFetch(*FetchRecord) error
}

type NilDatabase struct{}

func (d NilDatabase) LookupFetch(_ string, _ string) (*FetchRecord, error) {
	return nil, nil
}

func (d NilDatabase) WriteFetch(_ *FetchRecord) error {
	return nil
}
