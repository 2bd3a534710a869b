package trace

import (
	"database/sql"
	"fmt"
	"os"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteWriter stores transactions in a SQLite database. Rows are buffered
// and inserted in batches, one database transaction per batch.
type SQLiteWriter struct {
	*sql.DB

	path      string
	buffer    []Transaction
	batchSize int
}

// NewSQLiteWriter creates a writer for path. An empty path picks a unique
// file name in the working directory.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		path:      path,
		batchSize: 10000,
	}
}

// Path returns the database file.
func (t *SQLiteWriter) Path() string {
	return t.path
}

// Init creates the database and its table. It refuses to reuse an existing
// file.
func (t *SQLiteWriter) Init() error {
	if t.path == "" {
		t.path = "coresim_trace_" + xid.New().String() + ".sqlite3"
	}

	if _, err := os.Stat(t.path); err == nil {
		return fmt.Errorf("file %s already exists", t.path)
	}

	db, err := sql.Open("sqlite3", t.path)
	if err != nil {
		return fmt.Errorf("failed to open trace database: %w", err)
	}
	t.DB = db

	if err := t.createTable(); err != nil {
		return err
	}

	atexit.Register(func() { _ = t.Close() })

	return nil
}

func (t *SQLiteWriter) createTable() error {
	stmts := []string{
		`create table bus_trace
		(
			id          varchar(32) not null primary key,
			location    varchar(100),
			bus         varchar(16),
			addr        integer,
			is_write    integer,
			byte_enable integer,
			wdata       integer,
			rdata       integer,
			is_error    integer,
			issue_cycle integer,
			grant_cycle integer,
			valid_cycle integer
		);`,
		`create index bus_trace_issue_index on bus_trace (issue_cycle);`,
		`create index bus_trace_addr_index on bus_trace (addr);`,
	}

	for _, s := range stmts {
		if _, err := t.Exec(s); err != nil {
			return fmt.Errorf("failed to create trace table: %w", err)
		}
	}

	return nil
}

// Write buffers a transaction and flushes once a batch is full.
func (t *SQLiteWriter) Write(tx Transaction) error {
	t.buffer = append(t.buffer, tx)
	if len(t.buffer) >= t.batchSize {
		return t.Flush()
	}
	return nil
}

// Flush inserts all buffered transactions.
func (t *SQLiteWriter) Flush() error {
	if len(t.buffer) == 0 {
		return nil
	}

	dbtx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin trace batch: %w", err)
	}

	stmt, err := dbtx.Prepare(
		`insert into bus_trace values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = dbtx.Rollback()
		return fmt.Errorf("failed to prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range t.buffer {
		_, err := stmt.Exec(
			tx.ID,
			tx.Where,
			string(tx.Bus),
			tx.Addr,
			tx.Write,
			tx.BE,
			tx.WData,
			tx.RData,
			tx.Err,
			tx.Issue,
			tx.Grant,
			tx.Valid,
		)
		if err != nil {
			_ = dbtx.Rollback()
			return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trace batch: %w", err)
	}

	t.buffer = nil

	return nil
}

// Close flushes and closes the database. Closing twice is a no-op.
func (t *SQLiteWriter) Close() error {
	if t.DB == nil {
		return nil
	}

	err := t.Flush()
	if cerr := t.DB.Close(); err == nil {
		err = cerr
	}
	t.DB = nil

	return err
}
