package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"hackhub/internal/model"
)

var csvHeader = []string{
	"team_id", "team_name", "member_name", "email", "register_number", "phone",
	"leader", "payment_status", "transaction_reference", "registered_at",
}

// TeamsCSV writes one row per team member.
func TeamsCSV(w io.Writer, teams []model.Team) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range teams {
		for _, m := range t.Members {
			row := []string{
				strconv.FormatInt(t.ID, 10),
				t.Name,
				m.Name,
				m.Email,
				m.RegisterNumber,
				m.Phone,
				strconv.FormatBool(m.IsLeader),
				string(t.PaymentStatus),
				t.TransactionReference,
				t.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row for team %d: %w", t.ID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
