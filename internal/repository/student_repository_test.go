package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "tenant_id", "admission_number", "full_name", "class_name", "is_boarding", "active", "created_at", "updated_at"}).
		AddRow("s1", "t1", "ADM-100", "Achieng Mary", "Form 2B", false, true, now, now).
		AddRow("s2", "t1", "ADM-101", "Baraka John", "Form 1A", true, true, now, now)
}

func TestStudentRepositoryListActiveSorted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, admission_number, full_name, class_name, is_boarding, active, created_at, updated_at FROM students WHERE tenant_id = $1 AND active = true ORDER BY full_name ASC, id ASC")).
		WithArgs("t1").
		WillReturnRows(studentRows())

	students, err := repo.ListActiveSorted(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Achieng Mary", students[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByAdmissionNo(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .+ FROM students WHERE tenant_id = \\$1 AND admission_number = \\$2").
		WithArgs("t1", "ADM-100").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "admission_number", "full_name", "class_name", "is_boarding", "active", "created_at", "updated_at"}).
			AddRow("s1", "t1", "ADM-100", "Achieng Mary", "Form 2B", false, true, now, now))

	student, err := repo.FindByAdmissionNo(context.Background(), "t1", "ADM-100")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT .+ FROM students WHERE tenant_id = \\$1 AND id = \\$2").
		WithArgs("t1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
