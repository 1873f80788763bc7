package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"tourguard/api/internal/model"
	"tourguard/api/internal/policy"
)

// ReportService builds exports and dashboard summaries for staff.
type ReportService struct {
	db       *gorm.DB
	profiles *ProfileService
}

func NewReportService(db *gorm.DB, profiles *ProfileService) *ReportService {
	return &ReportService{db: db, profiles: profiles}
}

// ExportAlerts writes the filtered alert list into an xlsx workbook.
// Elevated roles only; filters mirror AlertService.List but without
// pagination, capped at 10000 rows.
func (s *ReportService) ExportAlerts(ctx context.Context, caller policy.Caller, query *model.AlertListQuery) (*bytes.Buffer, string, error) {
	if !caller.Elevated() {
		return nil, "", policy.ErrDenied
	}

	q := s.db.WithContext(ctx).Model(&model.EmergencyAlert{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Type != "" {
		q = q.Where("alert_type = ?", query.Type)
	}
	if query.StartTime != nil {
		q = q.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		q = q.Where("created_at <= ?", query.EndTime)
	}

	var alerts []model.EmergencyAlert
	if err := q.Order("created_at DESC").Limit(10000).Find(&alerts).Error; err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Emergency Alerts"
	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"ID", "Tourist", "User ID", "Type", "Message", "Latitude", "Longitude", "Status", "Created At", "Resolved At", "Resolved By"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, alert := range alerts {
		row := i + 2
		name := ""
		if p, err := s.profiles.GetByUserID(ctx, alert.UserID); err == nil {
			name = p.FullName
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), alert.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), name)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), alert.UserID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), string(alert.AlertType))
		if alert.Message != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), *alert.Message)
		}
		if alert.LocationLat != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), *alert.LocationLat)
		}
		if alert.LocationLng != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), *alert.LocationLng)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), string(alert.Status))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), alert.CreatedAt.Format(time.RFC3339))
		if alert.ResolvedAt != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), alert.ResolvedAt.Format(time.RFC3339))
		}
		if alert.ResolvedBy != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), *alert.ResolvedBy)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 40)
	f.SetColWidth(sheetName, "F", "H", 14)
	f.SetColWidth(sheetName, "I", "J", 22)
	f.SetColWidth(sheetName, "K", "K", 12)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("alerts_%s.xlsx", time.Now().Format("20060102_150405"))
	return &buf, filename, nil
}

// DashboardOverview returns the headline numbers for the staff dashboard.
func (s *ReportService) DashboardOverview(ctx context.Context, caller policy.Caller) (map[string]interface{}, error) {
	if !caller.Elevated() {
		return nil, policy.ErrDenied
	}

	db := s.db.WithContext(ctx)
	today := time.Now().Format("2006-01-02")

	var activeSessions, emergencySessions int64
	db.Model(&model.TouristSession{}).Where("is_active = ?", true).Count(&activeSessions)
	db.Model(&model.TouristSession{}).
		Where("is_active = ? AND safety_status = ?", true, model.SafetyEmergency).
		Count(&emergencySessions)

	var activeAlerts, todayAlerts int64
	db.Model(&model.EmergencyAlert{}).Where("status = ?", model.AlertStatusActive).Count(&activeAlerts)
	db.Model(&model.EmergencyAlert{}).Where("DATE(created_at) = ?", today).Count(&todayAlerts)

	var tourists int64
	db.Model(&model.Profile{}).Where("role = ?", model.RoleTourist).Count(&tourists)

	return map[string]interface{}{
		"active_sessions":    activeSessions,
		"emergency_sessions": emergencySessions,
		"active_alerts":      activeAlerts,
		"today_alerts":       todayAlerts,
		"total_tourists":     tourists,
	}, nil
}
