// Package reporting renders a converged (or failed) Schedule to the external
// formats consumers actually read: CSV for spreadsheets, JSON for programs,
// and a stable SHA-256 report_id that lets two reports be compared for
// equality without diffing either payload byte-for-byte.
package reporting

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// Report bundles a Schedule's CSV and JSON renderings with a content hash
// identifying the exact payload.
type Report struct {
	ReportID string
	CSV      []byte
	JSON     []byte
}

var csvHeader = []string{"task_id", "task_name", "state", "start", "end", "has_window", "resource_id", "booking_start", "booking_end"}

// Render produces a Report from s. CSV rows are one per (task, booking)
// pair, sorted by task name then resource ID then booking start, so the
// output is deterministic across runs of the same Schedule. A task with no
// bookings still gets one row with empty booking columns.
func Render(s *domain.Schedule) (*Report, error) {
	csvBytes, err := renderCSV(s)
	if err != nil {
		return nil, fmt.Errorf("reporting: render csv: %w", err)
	}

	jsonBytes, err := renderJSON(s)
	if err != nil {
		return nil, fmt.Errorf("reporting: render json: %w", err)
	}

	return &Report{
		ReportID: reportID(jsonBytes),
		CSV:      csvBytes,
		JSON:     jsonBytes,
	}, nil
}

type csvRow struct {
	taskID, taskName, state      string
	start, end                   int64
	hasWindow                    bool
	resourceID                   string
	bookingStart, bookingEnd     int64
	hasBooking                   bool
}

func renderCSV(s *domain.Schedule) ([]byte, error) {
	tasks := make([]domain.TaskSchedule, len(s.Tasks))
	copy(tasks, s.Tasks)
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Name != tasks[j].Name {
			return tasks[i].Name < tasks[j].Name
		}
		return tasks[i].TaskID.String() < tasks[j].TaskID.String()
	})

	var rows []csvRow
	for _, t := range tasks {
		if len(t.Bookings) == 0 {
			rows = append(rows, csvRow{
				taskID: t.TaskID.String(), taskName: t.Name, state: string(t.State),
				start: t.Start, end: t.End, hasWindow: t.HasWindow,
			})
			continue
		}

		resourceIDs := make([]uuid.UUID, 0, len(t.Bookings))
		for resourceID := range t.Bookings {
			resourceIDs = append(resourceIDs, resourceID)
		}
		sort.Slice(resourceIDs, func(i, j int) bool {
			return resourceIDs[i].String() < resourceIDs[j].String()
		})

		for _, resourceID := range resourceIDs {
			intervals := t.Bookings[resourceID]
			sorted := make([]domain.Interval, len(intervals))
			copy(sorted, intervals)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

			for _, iv := range sorted {
				rows = append(rows, csvRow{
					taskID: t.TaskID.String(), taskName: t.Name, state: string(t.State),
					start: t.Start, end: t.End, hasWindow: t.HasWindow,
					resourceID: resourceID.String(), bookingStart: iv.Start, bookingEnd: iv.End, hasBooking: true,
				})
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.taskID, r.taskName, r.state,
			fmt.Sprintf("%d", r.start), fmt.Sprintf("%d", r.end), fmt.Sprintf("%t", r.hasWindow),
			r.resourceID, "", "",
		}
		if r.hasBooking {
			record[7] = fmt.Sprintf("%d", r.bookingStart)
			record[8] = fmt.Sprintf("%d", r.bookingEnd)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderJSON(s *domain.Schedule) ([]byte, error) {
	return json.Marshal(s)
}

func reportID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
