package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

type exportService struct {
	logger    *slog.Logger
	analytics AnalyticsService
	repo      repositories.Repository
}

func NewExportService(repo repositories.Repository, logger *slog.Logger, analytics AnalyticsService) ExportService {
	return &exportService{
		logger:    logger,
		analytics: analytics,
		repo:      repo,
	}
}

// ExportCampusAnalytics renders the campus rollup as an xlsx workbook: a
// summary sheet plus one row per member. Percentages are rounded here, at
// the presentation boundary; the underlying aggregates stay exact.
func (s *exportService) ExportCampusAnalytics(ctx context.Context, campusID string, callerID string) (string, []byte, error) {
	campus, err := s.analytics.CampusAnalytics(ctx, campusID, callerID)
	if err != nil {
		return "", nil, err
	}

	members, err := s.repo.User().GetByCampus(ctx, campusID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load campus members: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	const membersSheet = "Members"

	f.SetSheetName("Sheet1", summarySheet)
	if err := s.writeSummarySheet(f, summarySheet, campus); err != nil {
		return "", nil, err
	}

	if _, err := f.NewSheet(membersSheet); err != nil {
		return "", nil, fmt.Errorf("failed to create members sheet: %w", err)
	}
	if err := s.writeMembersSheet(ctx, f, membersSheet, members, callerID); err != nil {
		return "", nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("campus-%s-analytics-%s.xlsx", campusID, time.Now().Format("2006-01-02"))
	s.logger.Info("campus analytics exported", "campus_id", campusID, "members", len(members))

	return filename, buf.Bytes(), nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, sheet string, campus *repositories.CampusAnalytics) error {
	rows := [][]interface{}{
		{"Campus", campus.CampusID},
		{"Members", campus.UserCount},
		{"Required assessments", campus.RequiredTotal},
		{"Submitted", campus.SubmittedTotal},
		{"Completion %", roundFloat(campus.CompletionPercent, 2)},
		{"Average score", formatScore(campus.AverageScore)},
		{},
		{"Type", "Required", "Submitted", "Completion %", "Average score"},
	}
	for _, bucket := range campus.ByType {
		rows = append(rows, []interface{}{
			string(bucket.Type),
			bucket.RequiredCount,
			bucket.SubmittedCount,
			roundFloat(bucket.CompletionPercent, 2),
			formatScore(bucket.AverageScore),
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func (s *exportService) writeMembersSheet(ctx context.Context, f *excelize.File, sheet string, members []*models.User, callerID string) error {
	header := []interface{}{"Name", "Email", "Role", "Required", "Submitted", "Completion %", "Average score"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, member := range members {
		ua, err := s.analytics.UserAnalytics(ctx, member.ID, callerID)
		if err != nil {
			return err
		}

		row := []interface{}{
			member.FullName,
			member.Email,
			string(member.Role),
			ua.RequiredCount,
			ua.SubmittedCount,
			roundFloat(ua.CompletionPercent, 2),
			formatScore(ua.AverageScore),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write member row: %w", err)
		}
	}
	return nil
}

func roundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// formatScore renders a nilable score as N/A rather than zero.
func formatScore(score *float64) interface{} {
	if score == nil {
		return "N/A"
	}
	return roundFloat(*score, 2)
}
