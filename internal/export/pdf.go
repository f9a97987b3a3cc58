package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"hackhub/internal/model"
)

const dateLayout = "02 Jan 2006"

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Filename turns an event title into something safe for Content-Disposition.
func Filename(title, suffix string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(title), "-"), "-.")
	if base == "" {
		base = "event"
	}
	return base + suffix
}

// TeamsPDF renders the event summary followed by one block per team.
func TeamsPDF(w io.Writer, e *model.Event, teams []model.Team, now time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(e.Title+" - registered teams", true)
	pdf.SetCreator("hackhub", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(e.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s", e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout)), "", 1, "C", false, 0, "")
	if e.Venue.Name != "" {
		pdf.CellFormat(0, 6, tr(venueLine(e.Venue)), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	members := 0
	for _, t := range teams {
		members += len(t.Members)
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Teams: %d / %d   Participants: %d   Status: %s",
		len(teams), e.MaxTeams, members, e.Status(now)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Generated: "+now.Format("02 Jan 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for i, t := range teams {
		pdf.SetFillColor(230, 236, 245)
		pdf.SetFont("Helvetica", "B", 11)
		header := fmt.Sprintf("%d. %s", i+1, t.Name)
		pdf.CellFormat(120, 8, tr(header), "1", 0, "L", true, 0, "")
		pdf.CellFormat(0, 8, paymentLabel(t), "1", 1, "R", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		for _, m := range t.Members {
			name := m.Name
			if m.IsLeader {
				name += " (leader)"
			}
			pdf.CellFormat(60, 6, tr(name), "LB", 0, "L", false, 0, "")
			pdf.CellFormat(65, 6, tr(m.Email), "B", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, tr(m.RegisterNumber), "B", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, tr(m.Phone), "RB", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	if len(teams) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 8, "No teams registered yet.", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render teams pdf: %w", err)
	}
	return nil
}

// Certificates renders one landscape participation certificate per team member.
func Certificates(w io.Writer, e *model.Event, t *model.Team, issuer string) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(e.Title+" - certificates", true)
	pdf.SetCreator("hackhub", true)
	pdf.SetAutoPageBreak(false, 0)
	width, height := pdf.GetPageSize()

	for _, m := range t.Members {
		pdf.AddPage()
		pdf.SetDrawColor(40, 70, 120)
		pdf.SetLineWidth(2)
		pdf.Rect(10, 10, width-20, height-20, "D")
		pdf.SetLineWidth(0.5)
		pdf.Rect(15, 15, width-30, height-30, "D")

		pdf.SetY(40)
		pdf.SetFont("Helvetica", "B", 30)
		pdf.SetTextColor(40, 70, 120)
		pdf.CellFormat(0, 14, "Certificate of Participation", "", 1, "C", false, 0, "")

		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 14)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")

		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 24)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 12, tr(m.Name), "", 1, "C", false, 0, "")

		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 14)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("as a member of team \"%s\" participated in %s, held from %s to %s.",
			t.Name, e.Title, e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout))), "", "C", false)
		if e.Venue.Name != "" {
			pdf.CellFormat(0, 8, tr(venueLine(e.Venue)), "", 1, "C", false, 0, "")
		}

		pdf.SetY(height - 45)
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 6, tr(issuer), "", 1, "R", false, 0, "")
		pdf.CellFormat(0, 6, "Organiser", "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render certificates: %w", err)
	}
	return nil
}

func venueLine(v model.Venue) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Name, v.Address, v.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func paymentLabel(t model.Team) string {
	if t.TransactionReference == "" {
		return string(t.PaymentStatus)
	}
	return fmt.Sprintf("%s (%s)", t.PaymentStatus, t.TransactionReference)
}
