// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// This is the only package that knows SQL or engine-specific error
// codes. Every write that touches both the students and marks tables
// runs on one *sql.Tx — one dedicated pool connection, exactly one
// commit or rollback per logical operation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/student-records-api/internal/config"
	"github.com/aanand-mishra/student-records-api/internal/storage"
	"github.com/aanand-mishra/student-records-api/internal/types"

	// Importing the driver package registers "sqlite3" with database/sql;
	// it is also used directly to classify constraint-violation codes.
	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// The embedded *sql.DB is a connection pool and is safe for concurrent
// use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// studentSelect aggregates each student's marks into a JSON array in a
// single grouped query, so a student with zero, one, or many marks rows
// always yields exactly one result row. The FILTER clause drops the
// NULLs produced by the LEFT JOIN when a student has no marks at all.
const studentSelect = `
	SELECT s.id, s.name, s.email, s.date_of_birth,
	       json_group_array(json_object('subject', m.subject, 'mark', m.marks))
	           FILTER (WHERE m.student_id IS NOT NULL)
	FROM students s
	LEFT JOIN marks m ON m.student_id = s.id`

// New opens the SQLite database at cfg.StoragePath, creates the tables
// if they do not already exist, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// Idempotent bootstrap — safe to run on every startup.
	// marks rows reference students but carry no cascade: application
	// code deletes marks before the student row, inside the same tx.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			date_of_birth TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS marks (
			student_id INTEGER NOT NULL REFERENCES students(id),
			subject    TEXT    NOT NULL,
			marks      INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// classify maps engine-specific failures to domain error kinds.
// The unique constraint lives on students.email, so a unique violation
// here always means a duplicate email.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return storage.ErrDuplicateEmail
	}
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// CreateStudent inserts the student row and its marks in one transaction.
// If the marks insert fails, the student row does not survive either.
func (s *SQLite) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: begin: %w", err)
	}

	id, err := insertStudent(ctx, tx, student)
	if err != nil {
		tx.Rollback()
		return types.Student{}, fmt.Errorf("CreateStudent: %w", classify(err))
	}

	if len(student.AcademicDetails) > 0 {
		if err := insertMarks(ctx, tx, id, student.AcademicDetails); err != nil {
			tx.Rollback()
			return types.Student{}, fmt.Errorf("CreateStudent: marks: %w", classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: commit: %w", err)
	}

	// Echo the input with the generated id rather than re-reading.
	student.ID = id
	if student.AcademicDetails == nil {
		student.AcademicDetails = []types.AcademicDetail{}
	}
	return student, nil
}

// CreateStudents persists a whole batch in a single transaction.
//
// Each student is inserted individually so its generated id comes from
// that row's own LastInsertId — never from an assumed correspondence
// between multi-row insert order and returned ids.
func (s *SQLite) CreateStudents(ctx context.Context, students []types.Student) ([]types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateStudents: begin: %w", err)
	}

	created := make([]types.Student, 0, len(students))
	for i, student := range students {
		id, err := insertStudent(ctx, tx, student)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("CreateStudents: student %d: %w", i, classify(err))
		}
		if len(student.AcademicDetails) > 0 {
			if err := insertMarks(ctx, tx, id, student.AcademicDetails); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("CreateStudents: student %d marks: %w", i, classify(err))
			}
		}
		student.ID = id
		if student.AcademicDetails == nil {
			student.AcademicDetails = []types.AcademicDetail{}
		}
		created = append(created, student)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateStudents: commit: %w", err)
	}
	return created, nil
}

// UpdateStudent replaces the scalar fields and, when the payload carries
// an academic_details list, replaces the stored marks in full
// (delete-then-insert; an explicit empty list clears them).
func (s *SQLite) UpdateStudent(ctx context.Context, id int64, student types.Student) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: begin: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE students SET name = ?, email = ?, date_of_birth = ? WHERE id = ?`,
		student.Name, student.Email, student.DateOfBirth, id,
	)
	if err != nil {
		tx.Rollback()
		return types.Student{}, fmt.Errorf("UpdateStudent: exec: %w", classify(err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return types.Student{}, fmt.Errorf("UpdateStudent: rows affected: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return types.Student{}, storage.ErrNotFound
	}

	// nil list = key absent from the payload: leave marks untouched.
	if student.AcademicDetails != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM marks WHERE student_id = ?`, id); err != nil {
			tx.Rollback()
			return types.Student{}, fmt.Errorf("UpdateStudent: clear marks: %w", err)
		}
		if len(student.AcademicDetails) > 0 {
			if err := insertMarks(ctx, tx, id, student.AcademicDetails); err != nil {
				tx.Rollback()
				return types.Student{}, fmt.Errorf("UpdateStudent: marks: %w", classify(err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: commit: %w", err)
	}

	// Re-fetch so the caller gets exactly what is stored, including the
	// untouched marks when the payload omitted academic_details.
	return s.GetStudentByID(ctx, id)
}

// DeleteStudent removes the marks first (no cascade on the schema),
// then the student row, in one transaction.
func (s *SQLite) DeleteStudent(ctx context.Context, id int64) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteStudent: begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM marks WHERE student_id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("DeleteStudent: marks: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("DeleteStudent: exec: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("DeleteStudent: rows affected: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteStudent: commit: %w", err)
	}
	return nil
}

// insertStudent adds one student row and returns its generated id.
func insertStudent(ctx context.Context, tx *sql.Tx, student types.Student) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO students (name, email, date_of_birth) VALUES (?, ?, ?)`,
		student.Name, student.Email, student.DateOfBirth,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// insertMarks bulk-inserts the details for one student in a single
// multi-row statement. Callers must pass a non-empty list.
func insertMarks(ctx context.Context, tx *sql.Tx, studentID int64, details []types.AcademicDetail) error {
	var b strings.Builder
	b.WriteString(`INSERT INTO marks (student_id, subject, marks) VALUES `)

	args := make([]any, 0, len(details)*3)
	for i, d := range details {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, studentID, d.Subject, d.Mark)
	}

	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// GetStudents returns one page of the (optionally filtered) listing.
//
// The page query and the count query share the same search predicate so
// totalCount is always consistent with the rows returned. ORDER BY id
// keeps pagination stable while the underlying data is unchanged.
func (s *SQLite) GetStudents(ctx context.Context, page, limit int, search string) (types.StudentPage, error) {
	query := studentSelect
	countQuery := `SELECT COUNT(*) FROM students`

	var args, countArgs []any
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query += ` WHERE lower(s.name) LIKE ? OR lower(s.email) LIKE ?`
		countQuery += ` WHERE lower(name) LIKE ? OR lower(email) LIKE ?`
		args = append(args, pattern, pattern)
		countArgs = append(countArgs, pattern, pattern)
	}

	query += ` GROUP BY s.id ORDER BY s.id LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.StudentPage{}, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	// Pre-allocate an empty (non-nil) slice so an empty page encodes
	// as [] rather than null.
	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return types.StudentPage{}, fmt.Errorf("GetStudents: scan: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return types.StudentPage{}, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	var total int
	if err := s.Db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return types.StudentPage{}, fmt.Errorf("GetStudents: count: %w", err)
	}

	return types.StudentPage{
		Pagination: types.Pagination{
			TotalCount:  total,
			CurrentPage: page,
			TotalPages:  (total + limit - 1) / limit,
			Limit:       limit,
		},
		Students: students,
	}, nil
}

// GetStudentByID fetches one student with its marks aggregated the same
// way as the listing.
func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	row := s.Db.QueryRowContext(ctx, studentSelect+` WHERE s.id = ? GROUP BY s.id`, id)

	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: %w", err)
	}
	return student, nil
}

// Ping issues a trivial liveness query. Used by the health-check
// endpoint; connectivity failures yield false, never an error.
func (s *SQLite) Ping(ctx context.Context) bool {
	var one int
	return s.Db.QueryRowContext(ctx, `SELECT 1`).Scan(&one) == nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanStudent reads one aggregated row: scalar columns plus the JSON
// array built by studentSelect. The aggregate is NULL for a student
// with no marks; that decodes to an empty (non-nil) list.
func scanStudent(row scanner) (types.Student, error) {
	var (
		student types.Student
		raw     sql.NullString
	)
	if err := row.Scan(&student.ID, &student.Name, &student.Email, &student.DateOfBirth, &raw); err != nil {
		return types.Student{}, err
	}

	student.AcademicDetails = make([]types.AcademicDetail, 0)
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &student.AcademicDetails); err != nil {
			return types.Student{}, fmt.Errorf("decode academic details: %w", err)
		}
	}
	return student, nil
}
