package document

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/youbihi/facture-tracker/internal/currency"
)

const (
	bucketName         = "documents"
	snapshotBucketName = "rate_snapshots"
)

// DB defines the interface for database operations
type DB interface {
	// SaveDocument saves a document to the database
	SaveDocument(doc *Document) error

	// GetDocument retrieves a document by ID
	GetDocument(id string) (*Document, error)

	// ListDocuments returns all documents
	ListDocuments() ([]*Document, error)

	// DeleteDocument removes a document from the database
	DeleteDocument(id string) error

	// SaveRateSnapshot persists a historical exchange rate snapshot
	SaveRateSnapshot(snapshot *currency.Snapshot) error

	// GetRateSnapshot retrieves the rate snapshot stored for an ISO date
	GetRateSnapshot(date string) (*currency.Snapshot, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. It also satisfies
// currency.SnapshotStore, so historical rates survive restarts.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(snapshotBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveDocument saves a document to the database
func (b *BoltDB) SaveDocument(doc *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		return bucket.Put([]byte(doc.ID), data)
	})
}

// GetDocument retrieves a document by ID
func (b *BoltDB) GetDocument(id string) (*Document, error) {
	var doc *Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document not found: %s", id)
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns all documents
func (b *BoltDB) ListDocuments() ([]*Document, error) {
	documents := make([]*Document, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling document: %w", err)
			}
			documents = append(documents, &doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// DeleteDocument removes a document from the database
func (b *BoltDB) DeleteDocument(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// SaveRateSnapshot persists a historical exchange rate snapshot keyed by its
// ISO date
func (b *BoltDB) SaveRateSnapshot(snapshot *currency.Snapshot) error {
	if snapshot.Date == "" {
		return fmt.Errorf("snapshot has no date")
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucketName))
		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshaling rate snapshot: %w", err)
		}
		return bucket.Put([]byte(snapshot.Date), data)
	})
}

// GetRateSnapshot retrieves the rate snapshot stored for an ISO date
func (b *BoltDB) GetRateSnapshot(date string) (*currency.Snapshot, error) {
	var snapshot *currency.Snapshot
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucketName))
		data := bucket.Get([]byte(date))
		if data == nil {
			return fmt.Errorf("rate snapshot not found: %s", date)
		}
		return json.Unmarshal(data, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
