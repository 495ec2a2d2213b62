package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"
)

const createTableCQL = `CREATE TABLE IF NOT EXISTS transcripts (
	id uuid PRIMARY KEY,
	created_at timestamp,
	record text
)`

// CassandraStore writes one row per record.
type CassandraStore struct {
	session *gocql.Session
	now     func() time.Time
}

// ConnectCassandra opens a session on keyspace and makes sure the
// transcripts table exists.
func ConnectCassandra(hosts []string, keyspace string) (*CassandraStore, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	if err := session.Query(createTableCQL).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create transcripts table: %w", err)
	}

	return &CassandraStore{session: session, now: time.Now}, nil
}

// Append implements Store. id must be a UUID.
func (s *CassandraStore) Append(ctx context.Context, id string, doc json.RawMessage) error {
	uuid, err := gocql.ParseUUID(id)
	if err != nil {
		return fmt.Errorf("history: invalid record id %q: %w", id, err)
	}

	query := `INSERT INTO transcripts (id, created_at, record) VALUES (?, ?, ?)`
	if err := s.session.Query(query, uuid, s.now(), string(doc)).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}
	return nil
}

type row struct {
	createdAt time.Time
	record    string
}

// List implements Store. The table is scanned and ordered client-side by
// created_at.
func (s *CassandraStore) List(ctx context.Context, limit int) ([]json.RawMessage, error) {
	iter := s.session.Query(`SELECT created_at, record FROM transcripts`).WithContext(ctx).Iter()

	var (
		rows []row
		r    row
	)
	for iter.Scan(&r.createdAt, &r.record) {
		rows = append(rows, r)
		r = row{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error fetching transcripts: %w", err)
	}

	return tail(orderRows(rows), limit), nil
}

// orderRows sorts rows by creation time and drops records that are not
// valid JSON.
func orderRows(rows []row) []json.RawMessage {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].createdAt.Before(rows[j].createdAt)
	})

	docs := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		if json.Valid([]byte(r.record)) {
			docs = append(docs, json.RawMessage(r.record))
		}
	}
	return docs
}

// Close closes the session.
func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}
