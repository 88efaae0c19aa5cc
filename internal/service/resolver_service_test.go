package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

type mockRosterRepo struct {
	roster      []models.Student
	byAdmission map[string]models.Student
	byID        map[string]models.Student
	listCalls   int
}

func (m *mockRosterRepo) ListActiveSorted(ctx context.Context, tenantID string) ([]models.Student, error) {
	m.listCalls++
	return m.roster, nil
}

func (m *mockRosterRepo) FindByAdmissionNo(ctx context.Context, tenantID, admissionNo string) (*models.Student, error) {
	if s, ok := m.byAdmission[admissionNo]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRosterRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Student, error) {
	if s, ok := m.byID[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockLatestFeeRepo struct {
	fees map[string]models.FeeRecord
}

func (m *mockLatestFeeRepo) LatestByStudent(ctx context.Context, tenantID, studentID string) (*models.FeeRecord, error) {
	if f, ok := m.fees[studentID]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func sortedRoster() []models.Student {
	return []models.Student{
		{ID: "s1", FullName: "Achieng Mary", AdmissionNo: "ADM-100"},
		{ID: "s2", FullName: "Baraka John", AdmissionNo: "ADM-101"},
		{ID: "s3", FullName: "Chebet Rose", AdmissionNo: "ADM-102"},
	}
}

func TestResolverBarcodeOrdinal(t *testing.T) {
	students := &mockRosterRepo{roster: sortedRoster()}
	fees := &mockLatestFeeRepo{fees: map[string]models.FeeRecord{
		"s3": {ID: "f3", StudentID: "s3", TotalAmount: 50000, AmountPaid: 20000, Balance: 30000, Status: models.FeeStatusPartial},
	}}
	svc := NewResolverService(students, fees, nil, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "t1", "STU-0003")
	require.NoError(t, err)
	assert.Equal(t, "s3", resolved.Student.ID)
	assert.Equal(t, models.ResolveStrategyBarcode, resolved.Strategy)
	require.NotNil(t, resolved.FeeRecord)
	assert.Equal(t, int64(30000), resolved.FeeRecord.Balance)
}

func TestResolverBarcodeIsIdempotent(t *testing.T) {
	students := &mockRosterRepo{roster: sortedRoster()}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	first, err := svc.Resolve(context.Background(), "t1", "STU-0002")
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), "t1", "STU-0002")
	require.NoError(t, err)
	assert.Equal(t, first.Student.ID, second.Student.ID)
}

func TestResolverAdmissionNumberFallback(t *testing.T) {
	students := &mockRosterRepo{
		roster:      sortedRoster(),
		byAdmission: map[string]models.Student{"ADM-101": {ID: "s2", FullName: "Baraka John", AdmissionNo: "ADM-101"}},
	}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "t1", "ADM-101")
	require.NoError(t, err)
	assert.Equal(t, "s2", resolved.Student.ID)
	assert.Equal(t, models.ResolveStrategyAdmissionNo, resolved.Strategy)
}

func TestResolverOrdinalOutOfRangeFallsThrough(t *testing.T) {
	// STU-0099 parses as an ordinal but the roster has three students, so
	// resolution falls through to the exact-match strategies.
	students := &mockRosterRepo{
		roster:      sortedRoster(),
		byAdmission: map[string]models.Student{"STU-0099": {ID: "s9", FullName: "Transfer Student", AdmissionNo: "STU-0099"}},
	}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "t1", "STU-0099")
	require.NoError(t, err)
	assert.Equal(t, "s9", resolved.Student.ID)
	assert.Equal(t, models.ResolveStrategyAdmissionNo, resolved.Strategy)
}

func TestResolverStudentIDFallback(t *testing.T) {
	students := &mockRosterRepo{
		roster: sortedRoster(),
		byID:   map[string]models.Student{"s1": {ID: "s1", FullName: "Achieng Mary"}},
	}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ResolveStrategyStudentID, resolved.Strategy)
}

func TestResolverNotFound(t *testing.T) {
	svc := NewResolverService(&mockRosterRepo{}, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "t1", "nobody")
	require.Error(t, err)
}

func TestResolverNoFeeRecordIsNil(t *testing.T) {
	students := &mockRosterRepo{roster: sortedRoster()}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "t1", "STU-0001")
	require.NoError(t, err)
	assert.Nil(t, resolved.FeeRecord)
}

func TestResolverEmptyCodeRejected(t *testing.T) {
	svc := NewResolverService(&mockRosterRepo{}, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "t1", "")
	require.Error(t, err)
}

func TestResolverTrimsScannerSuffix(t *testing.T) {
	// Hardware scanners append CR/LF to the scanned payload.
	students := &mockRosterRepo{roster: sortedRoster()}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "t1", "STU-0002\r\n")
	require.NoError(t, err)
	assert.Equal(t, "s2", resolved.Student.ID)
	assert.Equal(t, models.ResolveStrategyBarcode, resolved.Strategy)
}

func TestResolverWhitespaceOnlyCodeRejected(t *testing.T) {
	students := &mockRosterRepo{}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "t1", "   ")
	require.Error(t, err)
	assert.ErrorContains(t, err, "scan code is required")
	assert.Equal(t, 0, students.listCalls)
}

func TestResolverLowercasePrefixIsNotOrdinal(t *testing.T) {
	// Only uppercase prefixes are barcode codes; lowercase input goes
	// straight to the exact-match strategies.
	students := &mockRosterRepo{roster: sortedRoster()}
	svc := NewResolverService(students, &mockLatestFeeRepo{}, nil, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "t1", "stu-0003")
	require.Error(t, err)
	assert.Equal(t, 0, students.listCalls)
}
