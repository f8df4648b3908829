// Package student contains all HTTP handlers for the student resource.
//
// Handlers are factories: each takes the storage.Storage dependency and
// returns a http.HandlerFunc closed over it. The factory runs once at
// route registration; the returned closure runs per request. This keeps
// the handlers database-agnostic and trivially testable with a stub.
//
// Only this layer maps errors to HTTP statuses. The store reports
// domain error kinds (storage.ErrNotFound, storage.ErrDuplicateEmail);
// everything else is logged with its trace id and sanitized to a
// generic message before it reaches the client.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records-api/internal/http/middleware"
	"github.com/aanand-mishra/student-records-api/internal/storage"
	"github.com/aanand-mishra/student-records-api/internal/types"
	"github.com/aanand-mishra/student-records-api/internal/utils/response"
	"github.com/aanand-mishra/student-records-api/internal/utils/validate"
)

// New handles POST /api/students: decode, validate, persist, echo the
// created record (with generated id) as 201.
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student",
			slog.String("trace_id", middleware.GetTraceID(r.Context())))

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		created, err := store.CreateStudent(r.Context(), student)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		slog.Info("student created",
			slog.Int64("id", created.ID),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// CreateBulk handles POST /api/students/bulk-records: a non-empty array
// of student payloads persisted atomically. One bad record (or one
// duplicate email) rejects the whole batch.
func CreateBulk(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating students in bulk",
			slog.String("trace_id", middleware.GetTraceID(r.Context())))

		var students []types.Student
		err := json.NewDecoder(r.Body).Decode(&students)
		if errors.Is(err, io.EOF) {
			response.Error(w, r, http.StatusBadRequest, errors.New("request body is empty"))
			return
		}
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, err)
			return
		}
		if len(students) == 0 {
			response.Error(w, r, http.StatusBadRequest,
				errors.New("request body must be a non-empty array of students"))
			return
		}

		for i, student := range students {
			if err := validate.Struct(student); err != nil {
				var validateErrs validator.ValidationErrors
				if errors.As(err, &validateErrs) {
					response.ValidationError(w, r, validateErrs)
				} else {
					response.Error(w, r, http.StatusBadRequest, err)
				}
				slog.Info("bulk payload rejected",
					slog.Int("index", i),
					slog.String("trace_id", middleware.GetTraceID(r.Context())))
				return
			}
		}

		created, err := store.CreateStudents(r.Context(), students)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		slog.Info("students created",
			slog.Int("count", len(created)),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetList handles GET /api/students with page, limit and search query
// parameters, responding with the pagination envelope.
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := validate.ParseListQuery(r.URL.Query())
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, err)
			return
		}

		slog.Info("listing students",
			slog.Int("page", query.Page),
			slog.Int("limit", query.Limit),
			slog.String("search", query.Search),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))

		page, err := store.GetStudents(r.Context(), query.Page, query.Limit, query.Search)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, page)
	}
}

// GetByID handles GET /api/students/{id}.
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		slog.Info("getting a student",
			slog.Int64("id", id),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// Update handles PUT /api/students/{id}: full replace of the scalar
// fields, and of the academic-details list when the payload carries one.
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		slog.Info("updating a student",
			slog.Int64("id", id),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		updated, err := store.UpdateStudent(r.Context(), id, student)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /api/students/{id}, responding 204 on success.
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		slog.Info("deleting a student",
			slog.Int64("id", id),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))

		if err := store.DeleteStudent(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// TestDB handles GET /api/students/test-db, the liveness probe.
func TestDB(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !store.Ping(r.Context()) {
			response.Error(w, r, http.StatusInternalServerError,
				errors.New("database is unreachable"))
			return
		}
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// decodeStudent reads and validates a student payload, writing the
// error response itself when the payload is unusable.
func decodeStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, errors.New("request body is empty"))
		return types.Student{}, false
	}
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, err)
		return types.Student{}, false
	}

	if err := validate.Struct(student); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.ValidationError(w, r, validateErrs)
		} else {
			response.Error(w, r, http.StatusBadRequest, err)
		}
		return types.Student{}, false
	}

	return student, true
}

// parseID extracts the {id} route parameter as an int64.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest,
			errors.New("invalid id: must be an integer"))
		return 0, false
	}
	return id, true
}

// writeStoreError maps a store failure onto the HTTP surface. Domain
// kinds keep their message; anything else is logged in full and
// sanitized so SQL detail never leaks to the client.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, storage.ErrNotFound)
	case errors.Is(err, storage.ErrDuplicateEmail):
		response.Error(w, r, http.StatusBadRequest, storage.ErrDuplicateEmail)
	default:
		slog.Error("storage failure",
			slog.String("error", err.Error()),
			slog.String("trace_id", middleware.GetTraceID(r.Context())))
		response.Error(w, r, http.StatusInternalServerError,
			errors.New("internal server error"))
	}
}
