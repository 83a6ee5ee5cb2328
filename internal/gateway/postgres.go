package gateway

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGateway persists the editor state in Postgres.
//
// Expected schema:
//
//	CREATE TABLE course_items (
//	    id        uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	    course_id text NOT NULL,
//	    category  text NOT NULL,
//	    content   text NOT NULL,
//	    position  int  NOT NULL,
//	    visible   boolean NOT NULL DEFAULT true
//	);
//	CREATE TABLE course_sections (
//	    id        uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	    course_id text NOT NULL,
//	    title     text NOT NULL,
//	    position  int  NOT NULL,
//	    visible   boolean NOT NULL DEFAULT true
//	);
//	CREATE TABLE course_lectures (
//	    id                uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	    section_id        uuid NOT NULL REFERENCES course_sections(id) ON DELETE CASCADE,
//	    title             text NOT NULL,
//	    position          int  NOT NULL,
//	    is_free           boolean NOT NULL DEFAULT false,
//	    requires_homework boolean NOT NULL DEFAULT false,
//	    video_url         text NOT NULL DEFAULT ''
//	);
//	CREATE TABLE course_saved_flags (
//	    course_id text NOT NULL,
//	    category  text NOT NULL,
//	    PRIMARY KEY (course_id, category)
//	);
type PostgresGateway struct {
	pool *pgxpool.Pool
}

func NewPostgresGateway(pool *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{pool: pool}
}

func (g *PostgresGateway) ListItems(ctx context.Context, courseID, category string) ([]Item, error) {
	const q = `SELECT id, course_id, category, content, position, visible
	           FROM course_items
	           WHERE course_id = $1 AND category = $2
	           ORDER BY position ASC`
	rows, err := g.pool.Query(ctx, q, courseID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CourseID, &it.Category, &it.Content, &it.Position, &it.Visible); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) CreateItem(ctx context.Context, item Item) (Item, error) {
	const q = `INSERT INTO course_items (course_id, category, content, position, visible)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING id`
	err := g.pool.QueryRow(ctx, q, item.CourseID, item.Category, item.Content, item.Position, item.Visible).Scan(&item.ID)
	return item, err
}

func (g *PostgresGateway) UpdateItem(ctx context.Context, courseID, category, id, content string) error {
	tag, err := g.pool.Exec(ctx,
		`UPDATE course_items SET content = $1 WHERE id = $2 AND course_id = $3 AND category = $4`,
		content, id, courseID, category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *PostgresGateway) DeleteItem(ctx context.Context, courseID, category, id string) error {
	tag, err := g.pool.Exec(ctx,
		`DELETE FROM course_items WHERE id = $1 AND course_id = $2 AND category = $3`,
		id, courseID, category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *PostgresGateway) RepositionItems(ctx context.Context, courseID, category string, moves []Reposition) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `UPDATE course_items SET position = $1
	           WHERE id = $2 AND course_id = $3 AND category = $4`
	for _, m := range moves {
		tag, err := tx.Exec(ctx, q, m.Position, m.ID, courseID, category)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit(ctx)
}

func (g *PostgresGateway) SetItemsVisibility(ctx context.Context, courseID, category string, visible bool) error {
	_, err := g.pool.Exec(ctx,
		`UPDATE course_items SET visible = $1 WHERE course_id = $2 AND category = $3`,
		visible, courseID, category)
	return err
}

func (g *PostgresGateway) GetOutline(ctx context.Context, courseID string) ([]SectionRecord, error) {
	const sq = `SELECT id, course_id, title, position, visible
	            FROM course_sections
	            WHERE course_id = $1
	            ORDER BY position ASC`
	rows, err := g.pool.Query(ctx, sq, courseID)
	if err != nil {
		return nil, err
	}
	sections := []SectionRecord{}
	index := map[string]int{}
	for rows.Next() {
		var s SectionRecord
		if err := rows.Scan(&s.ID, &s.CourseID, &s.Title, &s.Position, &s.Visible); err != nil {
			rows.Close()
			return nil, err
		}
		s.Lectures = []LectureRecord{}
		index[s.ID] = len(sections)
		sections = append(sections, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return sections, nil
	}

	const lq = `SELECT l.id, l.section_id, l.title, l.position, l.is_free, l.requires_homework, l.video_url
	            FROM course_lectures l
	            JOIN course_sections s ON s.id = l.section_id
	            WHERE s.course_id = $1
	            ORDER BY l.position ASC`
	lrows, err := g.pool.Query(ctx, lq, courseID)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var l LectureRecord
		if err := lrows.Scan(&l.ID, &l.SectionID, &l.Title, &l.Position, &l.IsFree, &l.RequiresHomework, &l.VideoURL); err != nil {
			return nil, err
		}
		if i, ok := index[l.SectionID]; ok {
			sections[i].Lectures = append(sections[i].Lectures, l)
		}
	}
	return sections, lrows.Err()
}

// SaveOutline replaces the whole section/lecture tree for a course in one
// transaction. Rows absent from the new tree are deleted; client-created
// entries get durable ids which are returned to the caller.
func (g *PostgresGateway) SaveOutline(ctx context.Context, courseID string, sections []SectionRecord) ([]SectionRecord, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved := cloneSections(sections)

	keepSections := make([]string, 0, len(saved))
	for i := range saved {
		saved[i].CourseID = courseID
		if isClientID(saved[i].ID) {
			err = tx.QueryRow(ctx,
				`INSERT INTO course_sections (course_id, title, position, visible)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				courseID, saved[i].Title, saved[i].Position, saved[i].Visible).Scan(&saved[i].ID)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE course_sections SET title = $1, position = $2, visible = $3
				 WHERE id = $4 AND course_id = $5`,
				saved[i].Title, saved[i].Position, saved[i].Visible, saved[i].ID, courseID)
		}
		if err != nil {
			return nil, err
		}
		keepSections = append(keepSections, saved[i].ID)

		keepLectures := make([]string, 0, len(saved[i].Lectures))
		for j := range saved[i].Lectures {
			l := &saved[i].Lectures[j]
			l.SectionID = saved[i].ID
			if isClientID(l.ID) {
				err = tx.QueryRow(ctx,
					`INSERT INTO course_lectures (section_id, title, position, is_free, requires_homework, video_url)
					 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
					l.SectionID, l.Title, l.Position, l.IsFree, l.RequiresHomework, l.VideoURL).Scan(&l.ID)
			} else {
				_, err = tx.Exec(ctx,
					`UPDATE course_lectures SET title = $1, position = $2, is_free = $3, requires_homework = $4, video_url = $5, section_id = $6
					 WHERE id = $7`,
					l.Title, l.Position, l.IsFree, l.RequiresHomework, l.VideoURL, l.SectionID, l.ID)
			}
			if err != nil {
				return nil, err
			}
			keepLectures = append(keepLectures, l.ID)
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM course_lectures WHERE section_id = $1 AND NOT (id = ANY($2))`,
			saved[i].ID, keepLectures)
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM course_sections WHERE course_id = $1 AND NOT (id = ANY($2))`,
		courseID, keepSections)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

func (g *PostgresGateway) SavedFlag(ctx context.Context, courseID, category string) (bool, error) {
	var one int
	err := g.pool.QueryRow(ctx,
		`SELECT 1 FROM course_saved_flags WHERE course_id = $1 AND category = $2`,
		courseID, category).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *PostgresGateway) MarkSaved(ctx context.Context, courseID, category string) error {
	_, err := g.pool.Exec(ctx,
		`INSERT INTO course_saved_flags (course_id, category) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		courseID, category)
	return err
}
