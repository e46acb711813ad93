package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
)

const (
	registerSheet = "Register"
	dateLayout    = "2006-01-02"
	timeLayout    = "2006-01-02 15:04"
)

var registerHeaders = []string{
	"ID", "Status", "Applicant", "IC Number", "Email", "Phone",
	"Referral 1", "Referral 2", "Referrals Verified",
	"Entry Fee", "Fee Paid", "Submitted", "Interview",
	"Member ID", "Rejection Reason", "Refund", "Refund Processed", "Last Updated",
}

// RegisterExporter writes the application register as an Excel workbook.
// Implements port.RegisterExporter.
type RegisterExporter struct {
	location *time.Location
	logger   *zap.Logger
}

// NewRegisterExporter creates an exporter rendering timestamps in loc
func NewRegisterExporter(loc *time.Location, logger *zap.Logger) *RegisterExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &RegisterExporter{
		location: loc,
		logger:   logger,
	}
}

// WriteRegister renders one row per application
func (e *RegisterExporter) WriteRegister(w io.Writer, apps []*entity.MemberApplication) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := e.writeHeader(f); err != nil {
		return err
	}

	for i, app := range apps {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		row := e.row(app)
		if err := f.SetSheetRow(registerSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for application %d: %w", app.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		e.logger.Error("Failed to write register workbook", zap.Error(err))
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Register workbook written", zap.Int("rows", len(apps)))
	return nil
}

func (e *RegisterExporter) writeHeader(f *excelize.File) error {
	header := make([]interface{}, len(registerHeaders))
	for i, h := range registerHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(registerSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(registerHeaders), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := f.SetCellStyle(registerSheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(registerHeaders))
	if err := f.SetColWidth(registerSheet, "B", lastCol, 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	return f.SetPanes(registerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (e *RegisterExporter) row(app *entity.MemberApplication) []interface{} {
	interview := ""
	if app.Interview.DateTime != nil {
		interview = app.Interview.DateTime.In(e.location).Format(timeLayout)
		if app.Interview.IsCompleted() {
			interview += " (completed)"
		}
	}

	refund := ""
	if app.Refund.Eligible {
		refund = entity.FormatCents(app.Refund.AmountCents)
	}

	return []interface{}{
		app.ID,
		app.Status,
		app.Applicant.FullName,
		app.Applicant.ICNumber,
		app.Applicant.Email,
		app.Applicant.Phone,
		referralLabel(app.Referrals[0]),
		referralLabel(app.Referrals[1]),
		fmt.Sprintf("%d/%d", app.VerifiedReferralCount(), len(app.Referrals)),
		entity.FormatCents(app.EntryFee.AmountCents),
		yesNo(app.EntryFee.Paid),
		e.formatDate(app.SubmittedAt),
		interview,
		app.Approval.PermanentMemberID,
		app.Rejection.Reason,
		refund,
		yesNo(app.Refund.Processed),
		app.UpdatedAt.In(e.location).Format(timeLayout),
	}
}

func (e *RegisterExporter) formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(e.location).Format(dateLayout)
}

func referralLabel(r entity.Referral) string {
	if r.Name == "" && r.MemberID == "" {
		return ""
	}
	label := fmt.Sprintf("%s (%s)", r.Name, r.MemberID)
	if r.Verified {
		label += " ✓"
	}
	return label
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Verify interface compliance
var _ port.RegisterExporter = (*RegisterExporter)(nil)
