package parser

import (
	"call-replay/errors"
	"call-replay/metrics"
	"call-replay/models"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the timestamp format of the historical exports.
const TimeLayout = "2006-01-02 15:04:05"

// Column layout of the call export:
// date_received,queue_name,agent_number,answered,consult,transfer,hangup,...
const (
	colReceived = 0
	colQueue    = 1
	colAgent    = 2
	colAnswered = 3
	colHangup   = 6
	callColumns = 7
)

// Column layout of the activity export:
// id,user_id,dnd_id,campaign_id,extension,last_call_id,startdatetime,enddatetime,agent_id,...
const (
	colActivityID   = 0
	colCampaign     = 3
	colStart        = 6
	colEnd          = 7
	colActivityAgnt = 8
	activityColumns = 9
)

// ParseCalls reads the call export from r. The first row is a header and
// lines starting with '#' are comments. Timestamps are read in loc.
// Malformed rows are skipped and reported as *errors.ParseError in the second
// return value; only a failure of the underlying reader is returned as error.
// Each call gets the data row number as its id.
func ParseCalls(r io.Reader, loc *time.Location) ([]models.Call, []error, error) {
	start := time.Now()
	defer func() { metrics.ParserDurationSeconds.WithLabelValues("call").Observe(time.Since(start).Seconds()) }()

	var calls []models.Call
	rowErrs, err := readRows(r, func(line int, record []string) error {
		c, err := parseCall(record, loc)
		if err != nil {
			return err
		}
		c.ID = models.CallID(line)
		calls = append(calls, c)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	metrics.ParserRecordsTotal.WithLabelValues("call").Add(float64(len(calls)))
	return calls, rowErrs, nil
}

// ParseActivities reads the worker activity export from r with the same
// conventions as ParseCalls.
func ParseActivities(r io.Reader, loc *time.Location) ([]models.Activity, []error, error) {
	start := time.Now()
	defer func() {
		metrics.ParserDurationSeconds.WithLabelValues("activity").Observe(time.Since(start).Seconds())
	}()

	var activities []models.Activity
	rowErrs, err := readRows(r, func(_ int, record []string) error {
		a, err := parseActivity(record, loc)
		if err != nil {
			return err
		}
		activities = append(activities, a)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	metrics.ParserRecordsTotal.WithLabelValues("activity").Add(float64(len(activities)))
	return activities, rowErrs, nil
}

// readRows walks the CSV records, skipping the header and comment lines, and
// collects row-level errors instead of stopping at the first one.
func readRows(r io.Reader, handle func(line int, record []string) error) ([]error, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rowErrs []error
	lineNum := 0
	header := true

	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if stderrors.As(err, &csvErr) {
				rowErrs = append(rowErrs, reject(lineNum, record, err))
				continue
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		// Handle headers/comments
		if len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}
		if header {
			header = false
			continue
		}
		if isBlank(record) {
			rowErrs = append(rowErrs, reject(lineNum, record, errors.ErrEmptyRecord))
			continue
		}
		if err := handle(lineNum, record); err != nil {
			rowErrs = append(rowErrs, reject(lineNum, record, err))
		}
	}
	return rowErrs, nil
}

func parseCall(record []string, loc *time.Location) (models.Call, error) {
	if len(record) < callColumns {
		return models.Call{}, errors.ErrInvalidFieldCount
	}
	c := models.Call{Worker: models.NoWorker}

	if field(record, colReceived) == "" {
		return models.Call{}, errors.ErrMissingArrival
	}
	var err error
	if c.Arrival, err = parseTime(field(record, colReceived), loc); err != nil {
		return models.Call{}, fmt.Errorf("%w: date_received: %v", errors.ErrInvalidTimestamp, err)
	}

	c.Service = field(record, colQueue)
	if c.Service == "" {
		return models.Call{}, errors.ErrMissingService
	}

	if v := field(record, colAgent); v != "" {
		id, err := parseWorker(v)
		if err != nil {
			return models.Call{}, fmt.Errorf("%w: %v", errors.ErrInvalidWorker, err)
		}
		c.Worker = id
	}

	// Optional timestamps: an unreadable value is treated as absent.
	c.Answered = optionalTime(field(record, colAnswered), loc)
	c.Hangup = optionalTime(field(record, colHangup), loc)
	return c, nil
}

func parseActivity(record []string, loc *time.Location) (models.Activity, error) {
	if len(record) < activityColumns {
		return models.Activity{}, errors.ErrInvalidFieldCount
	}
	a := models.Activity{Worker: models.NoWorker}

	id, err := strconv.ParseInt(field(record, colActivityID), 10, 64)
	if err != nil {
		return models.Activity{}, fmt.Errorf("%w: %v", errors.ErrInvalidActivity, err)
	}
	a.ID = id

	if a.Start, err = parseTime(field(record, colStart), loc); err != nil {
		return models.Activity{}, fmt.Errorf("%w: startdatetime: %v", errors.ErrInvalidTimestamp, err)
	}
	a.End = optionalTime(field(record, colEnd), loc)

	if v := field(record, colActivityAgnt); v != "" {
		if a.Worker, err = parseWorker(v); err != nil {
			return models.Activity{}, fmt.Errorf("%w: %v", errors.ErrInvalidWorker, err)
		}
	}
	if v := field(record, colCampaign); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			a.Campaign = n
		}
	}
	return a, nil
}

// parseWorker accepts integer ids written either as "123" or "123.0".
func parseWorker(v string) (models.WorkerID, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return models.NoWorker, err
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return models.NoWorker, fmt.Errorf("not a worker number: %q", v)
	}
	return models.WorkerID(f), nil
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, value, loc)
}

func optionalTime(value string, loc *time.Location) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := parseTime(value, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func reject(line int, record []string, err error) *errors.ParseError {
	metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
	return &errors.ParseError{Line: line, Record: record, Err: err}
}

func errorType(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrInvalidFieldCount):
		return "field_count"
	case stderrors.Is(err, errors.ErrEmptyRecord):
		return "empty_record"
	case stderrors.Is(err, errors.ErrMissingArrival):
		return "missing_arrival"
	case stderrors.Is(err, errors.ErrInvalidTimestamp):
		return "timestamp"
	case stderrors.Is(err, errors.ErrMissingService):
		return "missing_service"
	case stderrors.Is(err, errors.ErrInvalidWorker):
		return "worker"
	case stderrors.Is(err, errors.ErrInvalidActivity):
		return "activity_id"
	default:
		return "csv"
	}
}

// LoadLocation resolves a timezone code. Common abbreviations (PT, ET, CT,
// MT, UTC, CET) are accepted as well as full IANA names such as
// "Europe/Amsterdam". An empty code means UTC.
func LoadLocation(code string) (*time.Location, error) {
	code = strings.TrimSpace(code)

	switch code {
	case "", "UTC":
		return time.UTC, nil
	case "PT":
		return time.LoadLocation("America/Los_Angeles")
	case "ET":
		return time.LoadLocation("America/New_York")
	case "CT":
		return time.LoadLocation("America/Chicago")
	case "MT":
		return time.LoadLocation("America/Denver")
	case "CET":
		return time.LoadLocation("Europe/Amsterdam")
	default:
		loc, err := time.LoadLocation(code)
		if err != nil {
			return nil, fmt.Errorf("error loading location %q: %w", code, err)
		}
		return loc, nil
	}
}
