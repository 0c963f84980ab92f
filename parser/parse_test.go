package parser_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	customerrors "call-replay/errors"
	"call-replay/models"
	"call-replay/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callHeader = "date_received,queue_name,agent_number,answered,consult,transfer,hangup,year,month,day,day_of_week,hour,minute,time_of_day\n"

func ts(s string) time.Time {
	t, err := time.ParseInLocation(parser.TimeLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseCalls(t *testing.T) {
	tests := map[string]struct {
		input         string
		expectedData  []models.Call
		expectedError error
	}{
		"ValidInput_AnsweredCall": {
			input: callHeader + `
2014-01-06 08:00:00,30175,1021.0,2014-01-06 08:00:20,,,2014-01-06 08:04:00,2014,1,6,1,8,0,8.0
`,
			expectedData: []models.Call{
				{
					ID:       2,
					Arrival:  ts("2014-01-06 08:00:00"),
					Service:  "30175",
					Worker:   1021,
					Answered: ts("2014-01-06 08:00:20"),
					Hangup:   ts("2014-01-06 08:04:00"),
				},
			},
		},
		"ValidInput_AbandonedCall_WithComments": {
			input: `# exported from the ACD
` + callHeader + `
# morning shift
2014-01-06 08:01:00,30560,,,,,2014-01-06 08:02:30
`,
			expectedData: []models.Call{
				{
					ID:      4,
					Arrival: ts("2014-01-06 08:01:00"),
					Service: "30560",
					Worker:  models.NoWorker,
					Hangup:  ts("2014-01-06 08:02:30"),
				},
			},
		},
		"UnreadableOptionalTimestamp_TreatedAsAbsent": {
			input: callHeader + `
2014-01-06 08:00:00,30175,7,not-a-time,,,2014-01-06 08:03:00
`,
			expectedData: []models.Call{
				{
					ID:      2,
					Arrival: ts("2014-01-06 08:00:00"),
					Service: "30175",
					Worker:  7,
					Hangup:  ts("2014-01-06 08:03:00"),
				},
			},
		},
		"Error_InvalidFieldCount": {
			input:         callHeader + "2014-01-06 08:00:00,30175,7\n",
			expectedError: customerrors.ErrInvalidFieldCount,
		},
		"Error_MissingArrival": {
			input:         callHeader + ",30175,7,,,,\n",
			expectedError: customerrors.ErrMissingArrival,
		},
		"Error_InvalidArrival": {
			input:         callHeader + "06/01/2014 08:00,30175,7,,,,\n",
			expectedError: customerrors.ErrInvalidTimestamp,
		},
		"Error_MissingService": {
			input:         callHeader + "2014-01-06 08:00:00,,7,,,,\n",
			expectedError: customerrors.ErrMissingService,
		},
		"Error_InvalidWorker": {
			input:         callHeader + "2014-01-06 08:00:00,30175,7.5,,,,\n",
			expectedError: customerrors.ErrInvalidWorker,
		},
		"Error_EmptyRecord": {
			input:         callHeader + ",,,,,,\n",
			expectedError: customerrors.ErrEmptyRecord,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := strings.NewReader(strings.TrimSpace(tt.input))
			got, rowErrs, err := parser.ParseCalls(r, time.UTC)
			require.NoError(t, err)

			if tt.expectedError != nil {
				require.Len(t, rowErrs, 1)
				assert.True(t, errors.Is(rowErrs[0], tt.expectedError), "got %v", rowErrs[0])
				var pe *customerrors.ParseError
				assert.True(t, errors.As(rowErrs[0], &pe))
				assert.Empty(t, got)
				return
			}

			assert.Empty(t, rowErrs)
			assert.Equal(t, tt.expectedData, got)
		})
	}
}

func TestParseCalls_SkipsBadRowsAndContinues(t *testing.T) {
	input := callHeader +
		"2014-01-06 08:00:00,30175,7,,,,2014-01-06 08:01:00\n" +
		"garbage\n" +
		"2014-01-06 08:00:05,30175,8,,,,2014-01-06 08:01:00\n"

	got, rowErrs, err := parser.ParseCalls(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, rowErrs, 1)
	assert.Equal(t, models.CallID(2), got[0].ID)
	assert.Equal(t, models.CallID(4), got[1].ID)

	var pe *customerrors.ParseError
	require.True(t, errors.As(rowErrs[0], &pe))
	assert.Equal(t, 3, pe.Line)
}

func TestParseCalls_Location(t *testing.T) {
	loc, err := parser.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	got, _, err := parser.ParseCalls(strings.NewReader(callHeader+"2014-07-01 09:30:00,A,1,,,,\n"), loc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0].Arrival.Hour())
	assert.Equal(t, loc, got[0].Arrival.Location())
}

func TestParseActivities(t *testing.T) {
	input := "id,user_id,dnd_id,campaign_id,extension,last_call_id,startdatetime,enddatetime,agent_id,year\n" +
		"11,3,0,4,201,900,2014-01-06 07:55:00,2014-01-06 12:00:00,1021.0,2014\n" +
		"x,3,0,4,201,900,2014-01-06 07:55:00,,1021,2014\n" +
		"12,3,0,,201,900,2014-01-06 08:10:00,,,2014\n"

	got, rowErrs, err := parser.ParseActivities(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.Len(t, rowErrs, 1)
	assert.True(t, errors.Is(rowErrs[0], customerrors.ErrInvalidActivity))

	assert.Equal(t, []models.Activity{
		{ID: 11, Worker: 1021, Campaign: 4, Start: ts("2014-01-06 07:55:00"), End: ts("2014-01-06 12:00:00")},
		{ID: 12, Worker: models.NoWorker, Start: ts("2014-01-06 08:10:00")},
	}, got)
}

func TestLoadLocation(t *testing.T) {
	tests := map[string]struct {
		code     string
		expected string
		wantErr  bool
	}{
		"Empty":      {code: "", expected: "UTC"},
		"Pacific":    {code: "PT", expected: "America/Los_Angeles"},
		"CentralEU":  {code: "CET", expected: "Europe/Amsterdam"},
		"IANA":       {code: "Asia/Tokyo", expected: "Asia/Tokyo"},
		"Error_Bogus": {code: "Mars/Olympus", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			loc, err := parser.LoadLocation(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, loc.String())
		})
	}
}
