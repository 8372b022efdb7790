package database

import (
	"database/sql"
)

type PgCrmRepository struct {
	conn *sql.DB
}

func NewPgCrmRepository(dsn string) (*PgCrmRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgCrmRepository{conn: db}, nil
}

func (db *PgCrmRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
