// Package store is the write-behind persistence bridge: the world loop
// hands it snapshots and keeps simulating; a single writer goroutine
// batches them into SQLite. Reads happen only at join and boot.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"wildmere.gg/internal/sim/world"
)

type Store struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqPlayer reqKind = iota + 1
	reqCommunities
	reqStructures
	reqStorage
	reqDeleteStructure
)

type req struct {
	kind reqKind

	player      world.PlayerSnapshot
	communities []world.CommunitySnapshot
	structures  []world.StructureSnapshot
	storage     world.StorageSnapshot
	deleteID    string
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection for the writer's open transaction, one for the
	// synchronous join/boot reads. WAL lets the reads proceed mid-batch.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		// High buffer: a save burst (every player on the interval tick)
		// must never stall the sim.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS communities (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS structures (
			group_id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS storages (
			id TEXT PRIMARY KEY,
			doc TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.Exec(st); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

// Close drains the queue, commits, and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the writer falls behind; the next interval save
		// carries the same state again.
	}
}

func (s *Store) SavePlayer(snap world.PlayerSnapshot) {
	s.enqueue(req{kind: reqPlayer, player: snap})
}

func (s *Store) SaveCommunities(snaps []world.CommunitySnapshot) {
	s.enqueue(req{kind: reqCommunities, communities: snaps})
}

func (s *Store) SaveStructures(snaps []world.StructureSnapshot) {
	s.enqueue(req{kind: reqStructures, structures: snaps})
}

func (s *Store) SaveStorage(snap world.StorageSnapshot) {
	s.enqueue(req{kind: reqStorage, storage: snap})
}

func (s *Store) DeleteStructureGroup(groupID string) {
	s.enqueue(req{kind: reqDeleteStructure, deleteID: groupID})
}

// LoadPlayer returns the persisted snapshot for an id, or nil for a new
// player. Called synchronously on the transport's join path.
func (s *Store) LoadPlayer(ctx context.Context, id string) (*world.PlayerSnapshot, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM players WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap world.PlayerSnapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return nil, fmt.Errorf("player %s: %w", id, err)
	}
	return &snap, nil
}

// LoadAll recovers the shared world state at boot. Player snapshots are
// loaded lazily at join instead.
func (s *Store) LoadAll(ctx context.Context) (world.BootState, error) {
	var boot world.BootState

	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM communities`)
	if err != nil {
		return boot, err
	}
	defer rows.Close()
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return boot, err
		}
		var snap world.CommunitySnapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			return boot, err
		}
		boot.Communities = append(boot.Communities, snap)
	}
	if err := rows.Err(); err != nil {
		return boot, err
	}

	srows, err := s.db.QueryContext(ctx, `SELECT doc FROM structures`)
	if err != nil {
		return boot, err
	}
	defer srows.Close()
	for srows.Next() {
		var doc string
		if err := srows.Scan(&doc); err != nil {
			return boot, err
		}
		var snap world.StructureSnapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			return boot, err
		}
		boot.Structures = append(boot.Structures, snap)
	}
	if err := srows.Err(); err != nil {
		return boot, err
	}

	trows, err := s.db.QueryContext(ctx, `SELECT doc FROM storages`)
	if err != nil {
		return boot, err
	}
	defer trows.Close()
	for trows.Next() {
		var doc string
		if err := trows.Scan(&doc); err != nil {
			return boot, err
		}
		var snap world.StorageSnapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			return boot, err
		}
		boot.Storages = append(boot.Storages, snap)
	}
	return boot, trows.Err()
}

func (s *Store) loop() {
	ctx := context.Background()

	upsertPlayer, _ := s.db.Prepare(`INSERT OR REPLACE INTO players(id,doc,updated_at) VALUES(?,?,?)`)
	upsertCommunity, _ := s.db.Prepare(`INSERT OR REPLACE INTO communities(id,doc,updated_at) VALUES(?,?,?)`)
	upsertStructure, _ := s.db.Prepare(`INSERT OR REPLACE INTO structures(group_id,doc,updated_at) VALUES(?,?,?)`)
	upsertStorage, _ := s.db.Prepare(`INSERT OR REPLACE INTO storages(id,doc,updated_at) VALUES(?,?,?)`)
	deleteStructure, _ := s.db.Prepare(`DELETE FROM structures WHERE group_id = ?`)
	defer func() {
		for _, st := range []*sql.Stmt{upsertPlayer, upsertCommunity, upsertStructure, upsertStorage, deleteStructure} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	now := func() string { return time.Now().UTC().Format(time.RFC3339Nano) }

	exec := func(stmt *sql.Stmt, args ...any) bool {
		if stmt == nil {
			return true
		}
		if _, err := tx.Stmt(stmt).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqPlayer:
			doc, _ := json.Marshal(r.player)
			exec(upsertPlayer, r.player.ID, string(doc), now())

		case reqCommunities:
			ts := now()
			for _, c := range r.communities {
				doc, _ := json.Marshal(c)
				if !exec(upsertCommunity, c.ID, string(doc), ts) {
					break
				}
			}

		case reqStructures:
			ts := now()
			for _, st := range r.structures {
				doc, _ := json.Marshal(st)
				if !exec(upsertStructure, st.GroupID, string(doc), ts) {
					break
				}
			}

		case reqStorage:
			doc, _ := json.Marshal(r.storage)
			exec(upsertStorage, r.storage.ID, string(doc), now())

		case reqDeleteStructure:
			exec(deleteStructure, r.deleteID)
		}

		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
