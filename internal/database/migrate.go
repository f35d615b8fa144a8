package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every start; each statement is idempotent.
// bookings.car_id carries no foreign key so history survives a car delete.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(120) NOT NULL DEFAULT '',
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('user','admin') NOT NULL DEFAULT 'user',
		phone         VARCHAR(40) NOT NULL DEFAULT '',
		status        ENUM('active','suspended') NOT NULL DEFAULT 'active',
		join_date     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS cars (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name           VARCHAR(160) NOT NULL,
		model          VARCHAR(160) NOT NULL DEFAULT '',
		image          VARCHAR(512) NOT NULL DEFAULT '',
		price_per_hour DECIMAL(10,2) NOT NULL DEFAULT 0,
		description    TEXT NOT NULL,
		quantity       INT NOT NULL DEFAULT 1,
		available      INT NOT NULL DEFAULT 1,
		category       VARCHAR(40) NOT NULL DEFAULT '',
		type           VARCHAR(40) NOT NULL DEFAULT '',
		transmission   VARCHAR(20) NOT NULL DEFAULT 'automatic',
		seats          INT NOT NULL DEFAULT 5,
		features       TEXT NULL,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CHECK (quantity >= 0),
		CHECK (available >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id        BIGINT UNSIGNED NOT NULL,
		car_id         BIGINT UNSIGNED NOT NULL,
		start_date     CHAR(10) NOT NULL,
		end_date       CHAR(10) NOT NULL,
		start_time     CHAR(5) NOT NULL,
		end_time       CHAR(5) NOT NULL,
		total_amount   DECIMAL(12,2) NOT NULL DEFAULT 0,
		need_driver    BOOLEAN NOT NULL DEFAULT FALSE,
		driver_contact VARCHAR(64) NULL,
		status         ENUM('pending','confirmed','cancelled','completed') NOT NULL DEFAULT 'pending',
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_bookings_car_status (car_id, status),
		INDEX idx_bookings_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the application needs when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
