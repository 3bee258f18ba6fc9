// Package boltdb implements the fetch index on a bbolt file.
package boltdb

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alanbriolat/youtube-to-go/internal/session"
)

var Buckets = struct {
	Metadata []byte
	Fetches  []byte
}{
	Metadata: []byte("__metadata__"),
	Fetches:  []byte("fetches"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

type Database interface {
	Close() error

	session.Database
}

type database struct {
	*bbolt.DB
}

// New opens (or creates) the index at path. Only one process can hold it open; a second one gives up after a second.
func New(path string) (_ Database, err error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open fetch index %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Fetches); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes != nil {
			if err = json.Unmarshal(versionBytes, &version); err != nil {
				return err
			}
		}
		if version > currentVersion {
			return fmt.Errorf("fetch index version %d is newer than supported version %d", version, currentVersion)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &database{db}, nil
}

func fetchKey(url string, dir string) []byte {
	return []byte(dir + "\x00" + url)
}

func (d database) LookupFetch(url string, dir string) (record *session.FetchRecord, err error) {
	err = d.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(Buckets.Fetches).Get(fetchKey(url, dir))
		if data == nil {
			return nil
		}
		record = &session.FetchRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (d database) WriteFetch(record *session.FetchRecord) error {
	if data, err := json.Marshal(record); err != nil {
		return err
	} else {
		return d.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(Buckets.Fetches).Put(fetchKey(record.URL, record.Dir), data)
		})
	}
}
