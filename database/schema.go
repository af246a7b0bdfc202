package database

import "fmt"

// schema returns the CREATE statements for the dialect. Every statement is
// idempotent so Open can run them on each start.
func schema(d Dialect) []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == Postgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	return []string{
		// Boards own lists and tags
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS boards (
			id %s,
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			color TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT ''
		)`, pk),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS lists (
			id %s,
			board_id BIGINT NOT NULL REFERENCES boards(id),
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			color TEXT NOT NULL DEFAULT '',
			idx INTEGER NOT NULL DEFAULT -1
		)`, pk),
		`CREATE INDEX IF NOT EXISTS lists_board_idx ON lists (board_id, idx)`,

		// total_subtasks is -1 until the card's subtask list is created
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS cards (
			id %s,
			list_id BIGINT NOT NULL REFERENCES lists(id),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			idx INTEGER NOT NULL DEFAULT -1,
			done_subtasks INTEGER NOT NULL DEFAULT 0,
			total_subtasks INTEGER NOT NULL DEFAULT -1,
			status TEXT NOT NULL DEFAULT 'ACTIVE'
		)`, pk),
		`CREATE INDEX IF NOT EXISTS cards_list_idx ON cards (list_id, idx)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS subtasks (
			id %s,
			card_id BIGINT NOT NULL REFERENCES cards(id),
			title TEXT NOT NULL,
			idx INTEGER NOT NULL DEFAULT -1,
			status TEXT NOT NULL DEFAULT 'PLANNED'
		)`, pk),
		`CREATE INDEX IF NOT EXISTS subtasks_card_idx ON subtasks (card_id, idx)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tags (
			id %s,
			board_id BIGINT NOT NULL REFERENCES boards(id),
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'ACTIVE'
		)`, pk),

		`CREATE TABLE IF NOT EXISTS card_tags (
			card_id BIGINT NOT NULL REFERENCES cards(id),
			tag_id BIGINT NOT NULL REFERENCES tags(id),
			PRIMARY KEY (card_id, tag_id)
		)`,
	}
}
