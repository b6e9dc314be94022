package repository

import (
	"context"

	"emperror.dev/errors"
)

// schemaStatements 建表语句，可重复执行
// 选项列使用 utf8mb4_bin，大小写或重音不同的选项各自计数
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS polls (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		min_reward INT NOT NULL,
		max_reward INT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_polls_window (start_date, end_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS question_sets (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		poll_id BIGINT NOT NULL,
		question_type VARCHAR(50) NOT NULL,
		question_text TEXT NOT NULL,
		options TEXT NOT NULL,
		INDEX idx_question_sets_poll (poll_id),
		CONSTRAINT fk_question_sets_poll FOREIGN KEY (poll_id) REFERENCES polls(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT NOT NULL PRIMARY KEY,
		completed_question_id BIGINT NULL,
		completed_poll_id BIGINT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS votes (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		poll_id BIGINT NOT NULL,
		question_set_id BIGINT NOT NULL,
		selected_option VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
		reward_amount INT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uk_votes_user_question (user_id, question_set_id),
		INDEX idx_votes_poll_user (poll_id, user_id),
		CONSTRAINT fk_votes_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_votes_poll FOREIGN KEY (poll_id) REFERENCES polls(id),
		CONSTRAINT fk_votes_question_set FOREIGN KEY (question_set_id) REFERENCES question_sets(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS poll_analytics (
		poll_id BIGINT NOT NULL PRIMARY KEY,
		total_votes BIGINT NOT NULL DEFAULT 0,
		CONSTRAINT fk_poll_analytics_poll FOREIGN KEY (poll_id) REFERENCES polls(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS poll_option_counts (
		poll_id BIGINT NOT NULL,
		option_value VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
		vote_count BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (poll_id, option_value),
		CONSTRAINT fk_poll_option_counts_poll FOREIGN KEY (poll_id) REFERENCES polls(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// InitSchema 在主库上创建所有表
func (r *MySQLRepository) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.masterDB.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "创建数据表失败")
		}
	}
	return nil
}
