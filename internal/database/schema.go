package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order at startup.  Every statement is idempotent so
// Migrate can run on each boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		id_number     VARCHAR(32)  NOT NULL,
		name          VARCHAR(120) NOT NULL,
		email         VARCHAR(190) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		role          ENUM('Student','Faculty','Staff','Admin') NOT NULL,
		department    VARCHAR(120) NULL,
		course        VARCHAR(120) NULL,
		year_level    VARCHAR(32)  NULL,
		floor         VARCHAR(32)  NULL,
		verified      BOOLEAN NOT NULL DEFAULT FALSE,
		suspended     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email),
		UNIQUE KEY uq_users_id_number (id_number),
		KEY ix_users_role_floor (role, floor)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY ix_refresh_expires (expires_at),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(64) NOT NULL,
		floor      VARCHAR(32) NOT NULL,
		capacity   INT UNSIGNED NOT NULL DEFAULT 0,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_rooms_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room                VARCHAR(64) NOT NULL,
		floor               VARCHAR(32) NOT NULL,
		date                DATE NOT NULL,
		start_at            DATETIME NOT NULL,
		end_at              DATETIME NOT NULL,
		requester_id        BIGINT UNSIGNED NOT NULL,
		requester_id_number VARCHAR(32) NOT NULL,
		purpose             VARCHAR(255) NOT NULL DEFAULT '',
		status              ENUM('Pending','Approved','Cancelled','Completed') NOT NULL DEFAULT 'Pending',
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY ix_res_date_room (date, room),
		KEY ix_res_requester_date (requester_id, date),
		KEY ix_res_status_end (status, end_at),
		CONSTRAINT fk_res_requester FOREIGN KEY (requester_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservation_participants (
		reservation_id BIGINT UNSIGNED NOT NULL,
		id_number      VARCHAR(32) NOT NULL,
		PRIMARY KEY (reservation_id, id_number),
		KEY ix_participant_id (id_number),
		CONSTRAINT fk_participant_res FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservation_locks (
		week_start DATE NOT NULL PRIMARY KEY
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		target_user_id BIGINT UNSIGNED NULL,
		target_role    ENUM('user','student','faculty','staff','admin','all') NOT NULL,
		message        VARCHAR(500) NOT NULL,
		status         VARCHAR(32) NOT NULL,
		type           ENUM('reservation','report','system','announcement','account') NOT NULL,
		reservation_id BIGINT UNSIGNED NULL,
		report_id      BIGINT UNSIGNED NULL,
		is_read        BOOLEAN NOT NULL DEFAULT FALSE,
		dismissed      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY ix_notif_user (target_user_id, created_at),
		KEY ix_notif_role (target_role, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reports (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reported_by VARCHAR(120) NOT NULL,
		user_id     BIGINT UNSIGNED NOT NULL,
		category    VARCHAR(64) NOT NULL,
		details     TEXT NOT NULL,
		floor       VARCHAR(32) NOT NULL,
		room        VARCHAR(64) NOT NULL DEFAULT '',
		status      ENUM('Pending','InProgress','Resolved','Archived') NOT NULL DEFAULT 'Pending',
		assigned_to BIGINT UNSIGNED NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY ix_reports_assignee_status (assigned_to, status),
		KEY ix_reports_floor (floor)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS announcements (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title           VARCHAR(200) NOT NULL,
		message         TEXT NOT NULL,
		target_audience ENUM('all','student','faculty','staff','admin') NOT NULL DEFAULT 'all',
		start_date      DATETIME NOT NULL,
		end_date        DATETIME NULL,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_by      BIGINT UNSIGNED NOT NULL,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS announcement_dismissals (
		announcement_id BIGINT UNSIGNED NOT NULL,
		user_id         BIGINT UNSIGNED NOT NULL,
		dismissed_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (announcement_id, user_id),
		CONSTRAINT fk_dismiss_ann FOREIGN KEY (announcement_id) REFERENCES announcements(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS pending_signups (
		email      VARCHAR(190) NOT NULL PRIMARY KEY,
		payload    JSON NOT NULL,
		expires_at DATETIME NOT NULL,
		attempts   INT NOT NULL DEFAULT 0,
		KEY ix_pending_expires (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  MySQL commits DDL implicitly, so the
// statements run one by one instead of inside a transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
