package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type rosterRepository interface {
	ListActiveSorted(ctx context.Context, tenantID string) ([]models.Student, error)
	FindByAdmissionNo(ctx context.Context, tenantID, admissionNo string) (*models.Student, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Student, error)
}

type latestFeeRepository interface {
	LatestByStudent(ctx context.Context, tenantID, studentID string) (*models.FeeRecord, error)
}

// barcodePattern matches printed card codes such as STU-0003: an uppercase
// prefix, a dash, then the ordinal digits.
var barcodePattern = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)

// ResolverService turns a scanned code into a student plus their latest fee
// record. Resolution tries, in order: barcode ordinal against the name-sorted
// active roster, exact admission-number match, exact student-id match.
type ResolverService struct {
	students rosterRepository
	fees     latestFeeRepository
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewResolverService constructs the resolver.
func NewResolverService(students rosterRepository, fees latestFeeRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{students: students, fees: fees, cache: cache, metrics: metrics, logger: logger}
}

func rosterCacheKey(tenantID string) string {
	return fmt.Sprintf("roster:%s", tenantID)
}

// Resolve maps a scanned code to a student. The returned ResolvedStudent
// carries the strategy that matched and the student's latest fee record, which
// is nil when the student has no fees assigned yet.
func (s *ResolverService) Resolve(ctx context.Context, tenantID, code string) (*models.ResolvedStudent, error) {
	// Hardware scanners often append CR/LF to the payload.
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scan code is required")
	}

	student, strategy, err := s.lookup(ctx, tenantID, code)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordScanResolution(strategy, false)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordScanResolution(strategy, true)
	}

	fee, err := s.fees.LatestByStudent(ctx, tenantID, student.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee record")
		}
		fee = nil
	}

	return &models.ResolvedStudent{Student: *student, FeeRecord: fee, Strategy: strategy}, nil
}

func (s *ResolverService) lookup(ctx context.Context, tenantID, code string) (*models.Student, string, error) {
	if m := barcodePattern.FindStringSubmatch(code); m != nil {
		ordinal, err := strconv.Atoi(m[2])
		if err == nil && ordinal >= 1 {
			student, err := s.byOrdinal(ctx, tenantID, ordinal)
			if err != nil {
				return nil, models.ResolveStrategyBarcode, err
			}
			if student != nil {
				return student, models.ResolveStrategyBarcode, nil
			}
		}
	}

	student, err := s.students.FindByAdmissionNo(ctx, tenantID, code)
	if err == nil {
		return student, models.ResolveStrategyAdmissionNo, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, models.ResolveStrategyAdmissionNo, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up admission number")
	}

	student, err = s.students.FindByID(ctx, tenantID, code)
	if err == nil {
		return student, models.ResolveStrategyStudentID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, models.ResolveStrategyStudentID, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student id")
	}

	return nil, models.ResolveStrategyStudentID, appErrors.Clone(appErrors.ErrNotFound, "no student matches scanned code")
}

// byOrdinal resolves a 1-based position in the name-sorted active roster.
// Returns nil without error when the ordinal is out of range so the caller can
// fall through to the next strategy.
func (s *ResolverService) byOrdinal(ctx context.Context, tenantID string, ordinal int) (*models.Student, error) {
	roster, err := s.roster(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if ordinal > len(roster) {
		return nil, nil
	}
	student := roster[ordinal-1]
	return &student, nil
}

func (s *ResolverService) roster(ctx context.Context, tenantID string) ([]models.Student, error) {
	key := rosterCacheKey(tenantID)
	if s.cache.Enabled() {
		var cached []models.Student
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}

	roster, err := s.students.ListActiveSorted(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, roster, 0); err != nil {
			s.logger.Warn("roster cache set failed", zap.String("tenant", tenantID), zap.Error(err))
		}
	}

	return roster, nil
}

// InvalidateRoster drops the cached roster for a tenant. Callers that change
// roster membership must invalidate so printed barcode ordinals stay aligned
// with the database ordering.
func (s *ResolverService) InvalidateRoster(ctx context.Context, tenantID string) error {
	if !s.cache.Enabled() {
		return nil
	}
	return s.cache.Invalidate(ctx, rosterCacheKey(tenantID))
}
