package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// historyStore persists a log of grammar submissions, grounded on the
// teacher's server/dao/sqlite per-table DB wrapper pattern (one struct per
// table, an init() that creates it if missing, sql.Open("sqlite", ...)).
type historyStore struct {
	db *sql.DB
}

func newHistoryStore(fileName string) (*historyStore, error) {
	db, err := sql.Open("sqlite", fileName)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	hs := &historyStore{db: db}
	if err := hs.init(); err != nil {
		db.Close()
		return nil, err
	}
	return hs, nil
}

func (hs *historyStore) init() error {
	stmt := `CREATE TABLE IF NOT EXISTS submissions (
		id TEXT NOT NULL PRIMARY KEY,
		grammar TEXT NOT NULL,
		verdict TEXT NOT NULL,
		submitted INTEGER NOT NULL
	);`
	_, err := hs.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("init submissions table: %w", err)
	}
	return nil
}

func (hs *historyStore) record(id, grammarText, verdict string) {
	// Best-effort: a logging failure must never fail the analysis request
	// that triggered it.
	_, _ = hs.db.Exec(
		`INSERT INTO submissions (id, grammar, verdict, submitted) VALUES (?, ?, ?, ?)`,
		id, grammarText, verdict, time.Now().Unix(),
	)
}

type historyEntry struct {
	ID        string `json:"id"`
	Verdict   string `json:"verdict"`
	Submitted int64  `json:"submitted"`
}

func (hs *historyStore) list(limit int) ([]historyEntry, error) {
	rows, err := hs.db.Query(
		`SELECT id, verdict, submitted FROM submissions ORDER BY submitted DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var entries []historyEntry
	for rows.Next() {
		var e historyEntry
		if err := rows.Scan(&e.ID, &e.Verdict, &e.Submitted); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (hs *historyStore) Close() error {
	return hs.db.Close()
}
