package formatter

import (
	"call-replay/models"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Header is the column layout of the training dataset.
var Header = []string{
	"T", "qT", "l1", "l2", "l3", "l4",
	"t_hour", "t_day_of_week", "s", "P_LES", "P_Avg_LES", "W",
}

// SnapshotRecord is the exported form of a snapshot
type SnapshotRecord struct {
	CallID           int     `json:"call_id"`
	Service          string  `json:"service"`
	ServiceIndex     int     `json:"T"`
	QueueLength      int     `json:"qT"`
	OtherQueues      []int   `json:"other_queues"`
	Arrival          string  `json:"arrival"`
	Hour             int     `json:"t_hour"`
	DayOfWeek        int     `json:"t_day_of_week"`
	AvailableWorkers int     `json:"s"`
	LES              float64 `json:"P_LES"`
	AvgLES           float64 `json:"P_Avg_LES"`
	Wait             float64 `json:"W"`
}

// RunReport is the data shown by FormatText
type RunReport struct {
	RunID     string
	Snapshots int
	Training  int
	Test      int
	AvgWait   float64
	AvgQueue  float64
	Discarded map[string]int
	Abandoned int
	Services  []models.ServiceSummary
}

// FormatCSV returns the dataset in CSV form, one row per snapshot
func FormatCSV(snapshots []models.Snapshot) string {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	// Write header
	writer.Write(Header)

	for i := range snapshots {
		writer.Write(csvRow(&snapshots[i]))
	}

	writer.Flush()
	return sb.String()
}

// csvRow renders one snapshot with two decimals for the continuous columns
func csvRow(s *models.Snapshot) []string {
	row := make([]string, 0, len(Header))
	row = append(row,
		fmt.Sprintf("%d", s.ServiceIndex),
		fmt.Sprintf("%d", s.QueueLength),
	)
	for _, l := range s.OtherQueues {
		row = append(row, fmt.Sprintf("%d", l))
	}
	row = append(row,
		fmt.Sprintf("%d", s.Hour),
		fmt.Sprintf("%d", s.DayOfWeek),
		fmt.Sprintf("%d", s.AvailableWorkers),
		fmt.Sprintf("%.2f", s.LES),
		fmt.Sprintf("%.2f", s.AvgLES),
		fmt.Sprintf("%.2f", s.RealizedWait),
	)
	return row
}

// FormatJSON returns the JSON representation of the dataset
func FormatJSON(snapshots []models.Snapshot) string {
	records := make([]SnapshotRecord, len(snapshots))
	for i := range snapshots {
		records[i] = toRecord(&snapshots[i])
	}
	jsonBytes, _ := json.MarshalIndent(records, "", "  ")
	return string(jsonBytes)
}

func toRecord(s *models.Snapshot) SnapshotRecord {
	return SnapshotRecord{
		CallID:           int(s.CallID),
		Service:          s.Service,
		ServiceIndex:     s.ServiceIndex,
		QueueLength:      s.QueueLength,
		OtherQueues:      append([]int(nil), s.OtherQueues[:]...),
		Arrival:          s.Arrival.Format("2006-01-02 15:04:05"),
		Hour:             s.Hour,
		DayOfWeek:        s.DayOfWeek,
		AvailableWorkers: s.AvailableWorkers,
		LES:              s.LES,
		AvgLES:           s.AvgLES,
		Wait:             s.RealizedWait,
	}
}

// FormatText returns a human readable summary of a replay run
func FormatText(report RunReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("run %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("snapshots: %d (training=%d, test=%d)\n",
		report.Snapshots, report.Training, report.Test))
	sb.WriteString(fmt.Sprintf("mean wait: %.2f sec (%.2f min)\n", report.AvgWait, report.AvgWait/60))
	sb.WriteString(fmt.Sprintf("mean queue length: %.2f\n", report.AvgQueue))
	sb.WriteString(fmt.Sprintf("abandoned: %d\n", report.Abandoned))

	if len(report.Discarded) > 0 {
		sb.WriteString(formatDiscarded(report.Discarded))
		sb.WriteString("\n")
	}

	for _, s := range report.Services {
		sb.WriteString(fmt.Sprintf("service %s: samples=%d, mean wait=%.2f sec, mean queue=%.2f, abandoned=%d\n",
			s.Service, s.Samples, s.AvgWait, s.AvgQueueLength, s.Abandoned))
	}

	return sb.String()
}

// formatDiscarded lists discard reasons in a stable order
func formatDiscarded(discarded map[string]int) string {
	reasons := make([]string, 0, len(discarded))
	for r := range discarded {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", r, discarded[r])
	}
	return "discarded: " + strings.Join(parts, ", ")
}

// Report builds the text report from a run's totals
func Report(runID string, snapshots []models.Snapshot, training, test int, discarded map[string]int, abandoned int, services []models.ServiceSummary) RunReport {
	r := RunReport{
		RunID:     runID,
		Snapshots: len(snapshots),
		Training:  training,
		Test:      test,
		Discarded: discarded,
		Abandoned: abandoned,
		Services:  services,
	}
	for i := range snapshots {
		r.AvgWait += snapshots[i].RealizedWait
		r.AvgQueue += float64(snapshots[i].QueueLength)
	}
	if len(snapshots) > 0 {
		r.AvgWait /= float64(len(snapshots))
		r.AvgQueue /= float64(len(snapshots))
	}
	return r
}
