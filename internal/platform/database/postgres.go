package database

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
)

var DB *sql.DB

func Connect(connStr string, log *zap.Logger) {
	var err error
	DB, err = sql.Open("pgx", connStr)
	if err != nil {
		log.Fatal("error opening database", zap.Error(err))
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		log.Fatal("error connecting to database", zap.Error(err))
	}

	log.Info("connected to PostgreSQL")
}

func Close(log *zap.Logger) {
	if DB != nil {
		DB.Close()
		log.Info("database connection closed")
	}
}
