package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDatabase adapts the pre-populated poems database that ships with the
// app. All queries go through parameterized SQL; the schema is created
// on startup if the snapshot was not bundled.
type SQLiteDatabase struct {
	conn *sql.DB
}

//go:embed db_sqlite_setup.sql
var setupCommands string

func (db *SQLiteDatabase) Setup(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, setupCommands)
	return err
}

// wordCountExpr approximates the word count of the content column in SQL so
// that list projections never materialize the content itself. Runs of
// whitespace are counted as single separators only for spaces and newlines.
const wordCountExpr = `CASE WHEN TRIM(content) = '' THEN 0 ELSE ` +
	`LENGTH(TRIM(REPLACE(content, char(10), ' '))) - ` +
	`LENGTH(REPLACE(TRIM(REPLACE(content, char(10), ' ')), ' ', '')) + 1 END`

const metaColumns = "id, title, author, firstLine, sourceType, " + wordCountExpr

func (db *SQLiteDatabase) GetPoem(ctx context.Context, id string) (*Poem, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, author, content, firstLine, sourceType FROM poems WHERE id = ?;", id)

	poem := &Poem{}
	err := row.Scan(&poem.ID, &poem.Title, &poem.Author, &poem.Content, &poem.FirstLine, &poem.SourceType)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up poem %q: %w", id, err)
	}

	return poem, nil
}

func (db *SQLiteDatabase) GetPoemPage(ctx context.Context, limit int, offset int) ([]PoemMeta, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+metaColumns+" FROM poems ORDER BY title, id LIMIT ? OFFSET ?;", limit, offset)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeta(rows)
}

func (db *SQLiteDatabase) SearchMeta(ctx context.Context, query string, limit int, offset int) ([]PoemMeta, error) {
	substring := "%" + query + "%"
	prefix := query + "%"

	// A title/author prefix match outranks a plain substring match.
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+metaColumns+` FROM poems
		WHERE title LIKE ? OR author LIKE ? OR firstLine LIKE ? OR content LIKE ?
		ORDER BY
			CASE
				WHEN title LIKE ? THEN 0
				WHEN author LIKE ? THEN 1
				WHEN firstLine LIKE ? THEN 2
				ELSE 3
			END,
			title, id
		LIMIT ? OFFSET ?;`,
		substring, substring, substring, substring,
		prefix, prefix, prefix,
		limit, offset)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeta(rows)
}

func (db *SQLiteDatabase) SearchPoems(ctx context.Context, query string) ([]Poem, error) {
	substring := "%" + query + "%"
	prefix := query + "%"

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, author, content, firstLine, sourceType FROM poems
		WHERE title LIKE ? OR author LIKE ? OR content LIKE ?
		ORDER BY
			CASE
				WHEN title LIKE ? THEN 0
				WHEN author LIKE ? THEN 1
				ELSE 2
			END,
			title, id
		LIMIT ?;`,
		substring, substring, substring,
		prefix, prefix,
		MaxSearchResults)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPoems(rows)
}

func (db *SQLiteDatabase) SearchAuthors(ctx context.Context, query string) ([]AuthorSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT author, COUNT(*) FROM poems
		WHERE author LIKE ?
		GROUP BY author
		ORDER BY COUNT(*) DESC, author;`,
		"%"+query+"%")

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuthors(rows)
}

func (db *SQLiteDatabase) GetPoemsByAuthor(ctx context.Context, author string) ([]Poem, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, title, author, content, firstLine, sourceType FROM poems WHERE author = ? ORDER BY title, id;", author)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPoems(rows)
}

func (db *SQLiteDatabase) GetMetaByAuthor(ctx context.Context, author string) ([]PoemMeta, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+metaColumns+" FROM poems WHERE author = ? ORDER BY title, id;", author)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeta(rows)
}

func (db *SQLiteDatabase) ListAuthors(ctx context.Context, limit int, offset int) ([]AuthorSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT author, COUNT(*) FROM poems GROUP BY author ORDER BY author LIMIT ? OFFSET ?;", limit, offset)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuthors(rows)
}

func (db *SQLiteDatabase) PoemIDAt(ctx context.Context, index int) (string, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id FROM poems ORDER BY id LIMIT 1 OFFSET ?;", index)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no poem at index %d", index)
		}
		return "", err
	}
	return id, nil
}

func (db *SQLiteDatabase) CountPoems(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM poems;").Scan(&count)
	return count, err
}

func (db *SQLiteDatabase) CountByAuthor(ctx context.Context, author string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM poems WHERE author = ?;", author).Scan(&count)
	return count, err
}

func (db *SQLiteDatabase) HasAuthor(ctx context.Context, author string) (bool, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT 1 FROM poems WHERE author = ? LIMIT 1;", author)

	exists := false
	err := row.Scan(&exists)

	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}

	return exists, nil
}

func (db *SQLiteDatabase) SavePoems(ctx context.Context, poems []Poem) error {
	tx, err := db.conn.BeginTx(ctx, nil)

	if err != nil {
		return err
	}

	for _, poem := range poems {
		_, err := tx.ExecContext(ctx,
			"REPLACE INTO poems (id, title, author, content, firstLine, sourceType) VALUES (?, ?, ?, ?, ?, ?);",
			poem.ID, poem.Title, poem.Author, poem.Content, poem.FirstLine, poem.SourceType)
		if err != nil {
			rbErr := tx.Rollback()
			if rbErr != nil {
				return rbErr
			}
			return fmt.Errorf("saving poem %q: %w", poem.ID, err)
		}
	}

	return tx.Commit()
}

func (db *SQLiteDatabase) DeletePoem(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM poems WHERE id = ?;", id)
	return err
}

func (db *SQLiteDatabase) GetCursor(ctx context.Context, author string) (*PageCursor, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT author, prevPage, nextPage FROM author_pages WHERE author = ?;", author)

	cursor := &PageCursor{}
	var prev, next sql.NullInt64
	err := row.Scan(&cursor.Author, &prev, &next)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if prev.Valid {
		p := int(prev.Int64)
		cursor.PrevPage = &p
	}
	if next.Valid {
		n := int(next.Int64)
		cursor.NextPage = &n
	}

	return cursor, nil
}

func (db *SQLiteDatabase) SetCursor(ctx context.Context, cursor PageCursor) error {
	var prev, next any
	if cursor.PrevPage != nil {
		prev = *cursor.PrevPage
	}
	if cursor.NextPage != nil {
		next = *cursor.NextPage
	}

	_, err := db.conn.ExecContext(ctx,
		"REPLACE INTO author_pages (author, prevPage, nextPage) VALUES (?, ?, ?);",
		cursor.Author, prev, next)
	return err
}

func (db *SQLiteDatabase) ClearCursor(ctx context.Context, author string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM author_pages WHERE author = ?;", author)
	return err
}

func (db *SQLiteDatabase) GetSetting(ctx context.Context, key string) (string, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?;", key)

	var value string
	err := row.Scan(&value)

	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}

	return value, nil
}

func (db *SQLiteDatabase) SetSetting(ctx context.Context, key string, value string) error {
	_, err := db.conn.ExecContext(ctx, "REPLACE INTO settings (key, value) VALUES (?, ?);", key, value)
	return err
}

func scanPoems(rows *sql.Rows) ([]Poem, error) {
	var poems []Poem

	for rows.Next() {
		poem := Poem{}
		err := rows.Scan(&poem.ID, &poem.Title, &poem.Author, &poem.Content, &poem.FirstLine, &poem.SourceType)
		if err != nil {
			return nil, err
		}
		poems = append(poems, poem)
	}

	return poems, rows.Err()
}

func scanMeta(rows *sql.Rows) ([]PoemMeta, error) {
	var meta []PoemMeta

	for rows.Next() {
		m := PoemMeta{}
		err := rows.Scan(&m.ID, &m.Title, &m.Author, &m.FirstLine, &m.SourceType, &m.WordCount)
		if err != nil {
			return nil, err
		}
		meta = append(meta, m)
	}

	return meta, rows.Err()
}

func scanAuthors(rows *sql.Rows) ([]AuthorSummary, error) {
	var authors []AuthorSummary

	for rows.Next() {
		a := AuthorSummary{}
		err := rows.Scan(&a.Name, &a.PoemCount)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}

	return authors, rows.Err()
}

func SQLiteFromFile(fileName string) (*SQLiteDatabase, error) {
	conn, err := sql.Open("sqlite3", fileName)

	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{conn}, nil
}

func SQLite(conn *sql.DB) (*SQLiteDatabase, error) {
	return &SQLiteDatabase{conn}, nil
}
