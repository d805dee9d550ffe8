package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// Store — транзакционное хранилище броней поверх SQLite. Единственный
// владелец изменяемого состояния занятости слотов: емкость мутируют
// только Reserve и Cancel, всегда внутри одной транзакции.
type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func New(path string, logger *zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite допускает одного писателя; одно соединение сериализует
	// транзакции Reserve/Cancel вместо гонок за блокировку файла.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &Store{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Брони: логическое удаление только через status = cancelled,
		// строки никогда не удаляются физически.
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            ref TEXT UNIQUE NOT NULL,
            customer_name TEXT NOT NULL,
            phone TEXT NOT NULL,
            mode TEXT NOT NULL,
            amount INTEGER NOT NULL,
            payment_status TEXT NOT NULL DEFAULT 'pending',
            status TEXT NOT NULL DEFAULT 'active',
            created_at DATETIME NOT NULL,
            cancelled_at DATETIME
        )`,
		// Потребление емкости: одна строка на слот в составе брони.
		`CREATE TABLE IF NOT EXISTS booking_slots (
            booking_id TEXT NOT NULL REFERENCES bookings(id),
            slot_id TEXT NOT NULL,
            units INTEGER NOT NULL,
            position INTEGER NOT NULL,
            PRIMARY KEY (booking_id, slot_id)
        )`,
		// Очередь уведомлений оператору.
		`CREATE TABLE IF NOT EXISTS notify_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id TEXT NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_phone ON bookings(phone)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_slots_slot_id ON booking_slots(slot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notify_queue_status ON notify_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// QueryRowContext проксирует сырой запрос к базе.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *Store) Close() error {
	return s.db.Close()
}
