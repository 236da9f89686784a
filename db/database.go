package db

import (
	"database/sql"
	"fmt"

	"scorelib/config"
	"scorelib/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// Connect establishes a connection to the database. The caller owns the
// returned handle and closes it at shutdown.
func Connect(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database", logger.String("host", cfg.DBHost), logger.String("name", cfg.DBName))
	return conn, nil
}

// InitDB initializes the database schema, creating the scores table if it
// doesn't exist and adding columns introduced after the first release.
func InitDB(conn *sql.DB) error {
	if err := createScoresTable(conn); err != nil {
		return err
	}
	if err := alterScoresTableAddACappella(conn); err != nil {
		return err
	}
	logger.Info("database schema initialized")
	return nil
}

func createScoresTable(conn *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS scores (
		id INT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		arranger VARCHAR(255) NOT NULL,
		style VARCHAR(255) NOT NULL,
		tempo VARCHAR(255) NOT NULL,
		filename VARCHAR(767) NOT NULL,
		a_cappella TINYINT(1) NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := conn.Exec(query); err != nil {
		return fmt.Errorf("failed to create scores table: %w", err)
	}
	return nil
}

// alterScoresTableAddACappella covers databases created before the
// a_cappella column existed.
func alterScoresTableAddACappella(conn *sql.DB) error {
	var columnCount int
	err := conn.QueryRow("SELECT COUNT(*) FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'scores' AND COLUMN_NAME = 'a_cappella'").Scan(&columnCount)
	if err != nil {
		return fmt.Errorf("failed to check if a_cappella column exists: %w", err)
	}

	if columnCount == 0 {
		if _, err := conn.Exec(`ALTER TABLE scores ADD COLUMN a_cappella TINYINT(1) NOT NULL DEFAULT 0;`); err != nil {
			return fmt.Errorf("failed to add a_cappella column to scores table: %w", err)
		}
		logger.Info("column a_cappella added to scores table")
	}
	return nil
}
