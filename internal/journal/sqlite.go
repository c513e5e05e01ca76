package journal

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"StopLineTrader/internal/model"
)

// SQLiteJournal persists the session audit trail to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteJournal opens (or creates) the SQLite database and runs migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite journal opened: %s", dbPath)
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT,
			side      TEXT,
			qty       INTEGER,
			price     REAL,
			handle    TEXT,
			kind      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS reconciliations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT,
			side         TEXT,
			filled       INTEGER,
			cash_after   REAL,
			shares_after INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recon_ts ON reconciliations(timestamp)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			end_cash        REAL,
			canceled_orders INTEGER,
			positions       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ts ON sessions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (j *SQLiteJournal) RecordOrder(evt *OrderEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO orders
		(timestamp, symbol, side, qty, price, handle, kind)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, string(evt.Side), evt.Qty, evt.Price, evt.Handle, evt.Kind,
	)
	return err
}

func (j *SQLiteJournal) RecordCancel(evt *CancelEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO reconciliations
		(timestamp, symbol, side, filled, cash_after, shares_after)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, string(evt.Side), evt.Filled, evt.CashAfter, evt.SharesAfter,
	)
	return err
}

func (j *SQLiteJournal) RecordSessionEnd(sum *model.SessionSummary) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(`INSERT INTO sessions
		(timestamp, end_cash, canceled_orders, positions)
		VALUES (?,?,?,?)`,
		sum.FlattenedAt.Unix(), sum.EndCash, sum.CanceledOrders, len(sum.Positions),
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	log.Println("[INFO] closing sqlite journal")
	return j.db.Close()
}
