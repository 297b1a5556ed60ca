package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNoDatabase = errors.New("persistence disabled")

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents an account record in the database
type PlayerRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow holds survival statistics for one account
type StatsRow struct {
	PlayerID     int64
	Deaths       int
	DeathsHunger int
	DeathsThirst int
	DeathsRest   int
	Survived     float64 // seconds alive across all lives
	LongestLife  float64
	BlocksPlaced int
	MealsEaten   int
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite has a single writer
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		player_id INTEGER PRIMARY KEY REFERENCES players(id),
		deaths INTEGER NOT NULL DEFAULT 0,
		deaths_hunger INTEGER NOT NULL DEFAULT 0,
		deaths_thirst INTEGER NOT NULL DEFAULT 0,
		deaths_rest INTEGER NOT NULL DEFAULT 0,
		survived REAL NOT NULL DEFAULT 0,
		longest_life REAL NOT NULL DEFAULT 0,
		blocks_placed INTEGER NOT NULL DEFAULT 0,
		meals_eaten INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id INTEGER,
		peer_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_players_username ON players(username);
	CREATE INDEX IF NOT EXISTS idx_analytics_created ON analytics_events(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreatePlayer creates a new account (returns player ID)
func (db *DB) CreatePlayer(username, passHash string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO players (username, pass_hash) VALUES (?, ?)", username, passHash)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT INTO stats (player_id) VALUES (?)", id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetPlayerByUsername returns an account by username, or nil
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetPlayerByID returns an account by ID, or nil
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM players WHERE id = ?",
		id,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.PassHash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns survival stats, or nil for an unknown account
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(`
		SELECT player_id, deaths, deaths_hunger, deaths_thirst, deaths_rest,
			survived, longest_life, blocks_placed, meals_eaten
		FROM stats WHERE player_id = ?`,
		playerID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.PlayerID, &s.Deaths, &s.DeathsHunger, &s.DeathsThirst, &s.DeathsRest,
		&s.Survived, &s.LongestLife, &s.BlocksPlaced, &s.MealsEaten)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// RecordDeath counts a death by cause and closes the life that ended
func (db *DB) RecordDeath(playerID int64, cause NeedKind, lived float64) error {
	var col string
	switch cause {
	case NeedHunger:
		col = "deaths_hunger"
	case NeedThirst:
		col = "deaths_thirst"
	case NeedRest:
		col = "deaths_rest"
	default:
		return fmt.Errorf("unknown death cause %q", cause)
	}
	_, err := db.conn.Exec(`
		UPDATE stats SET
			deaths = deaths + 1,
			`+col+` = `+col+` + 1,
			survived = survived + ?,
			longest_life = MAX(longest_life, ?)
		WHERE player_id = ?`,
		lived, lived, playerID,
	)
	return err
}

// AddSurvived closes a life that ended without a death (disconnect)
func (db *DB) AddSurvived(playerID int64, lived float64) error {
	_, err := db.conn.Exec(`
		UPDATE stats SET survived = survived + ?, longest_life = MAX(longest_life, ?)
		WHERE player_id = ?`,
		lived, lived, playerID,
	)
	return err
}

// AddBlocksPlaced increments the building counter
func (db *DB) AddBlocksPlaced(playerID int64, n int) error {
	_, err := db.conn.Exec("UPDATE stats SET blocks_placed = blocks_placed + ? WHERE player_id = ?", n, playerID)
	return err
}

// AddMealsEaten increments the meal counter
func (db *DB) AddMealsEaten(playerID int64, n int) error {
	_, err := db.conn.Exec("UPDATE stats SET meals_eaten = meals_eaten + ? WHERE player_id = ?", n, playerID)
	return err
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	Username     string  `json:"username"`
	Deaths       int     `json:"deaths"`
	Survived     float64 `json:"survived"`
	LongestLife  float64 `json:"longestLife"`
	BlocksPlaced int     `json:"blocksPlaced"`
	MealsEaten   int     `json:"mealsEaten"`
}

// GetLeaderboard returns top accounts sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	validCols := map[string]string{
		"longest":  "s.longest_life",
		"survived": "s.survived",
		"deaths":   "s.deaths",
		"blocks":   "s.blocks_placed",
		"meals":    "s.meals_eaten",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.longest_life"
	}

	query := `SELECT p.username, s.deaths, s.survived, s.longest_life, s.blocks_placed, s.meals_eaten
		FROM stats s JOIN players p ON p.id = s.player_id
		WHERE p.is_guest = 0
		ORDER BY ` + col + ` DESC, p.id ASC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Deaths, &e.Survived, &e.LongestLife, &e.BlocksPlaced, &e.MealsEaten); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting returns a stored setting, or "" if unset
func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
