package worker

import (
	"context"

	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/log"
)

// AuditTaskID identifies the inventory audit in the scheduler
const AuditTaskID = "inventory-audit"

// NewAuditTask validates the stored inventory, logs the summary and logs a
// warning for every range at warning level or above.
func NewAuditTask(svc *inventory.Service) TaskHandler {
	return func(ctx context.Context, taskID string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := svc.Audit()
		if err != nil {
			return err
		}

		sum := report.Summary
		log.Info("Inventory audit finished",
			"task_id", taskID,
			"ranges", sum.TotalRanges,
			"addresses", sum.TotalIPAddresses,
			"valid", sum.ValidRanges,
			"info", sum.RangesWithInfo,
			"warnings", sum.RangesWithWarnings,
			"errors", sum.RangesWithErrors,
			"issues", sum.TotalIssues)

		for _, e := range report.Notable() {
			types := make([]string, len(e.Issues))
			for i, issue := range e.Issues {
				types[i] = string(issue.Type)
			}
			log.Warn("IP range needs attention",
				"id", e.ID,
				"name", e.Range.Name,
				"start", e.Range.Start,
				"end", e.Range.End,
				"status", e.Status.String(),
				"issues", types)
		}

		return nil
	}
}
