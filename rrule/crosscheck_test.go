package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	teambition "github.com/teambition/rrule-go"
)

// These tests pin our expansion against an independent implementation for a
// spread of common rules.
func TestExpansionMatchesReferenceImplementation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		dtstart time.Time
		ref     teambition.ROption
	}{
		{
			name:    "daily",
			body:    "FREQ=DAILY;COUNT=30",
			dtstart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:    teambition.DAILY,
				Count:   30,
				Dtstart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "weekly byday",
			body:    "FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=30",
			dtstart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:      teambition.WEEKLY,
				Count:     30,
				Byweekday: []teambition.Weekday{teambition.MO, teambition.WE, teambition.FR},
				Dtstart:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "monthly bymonthday",
			body:    "FREQ=MONTHLY;BYMONTHDAY=15;COUNT=24",
			dtstart: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:       teambition.MONTHLY,
				Count:      24,
				Bymonthday: []int{15},
				Dtstart:    time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "monthly second tuesday",
			body:    "FREQ=MONTHLY;BYDAY=2TU;COUNT=12",
			dtstart: time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:      teambition.MONTHLY,
				Count:     12,
				Byweekday: []teambition.Weekday{teambition.TU.Nth(2)},
				Dtstart:   time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "minutely interval",
			body:    "FREQ=MINUTELY;INTERVAL=17;COUNT=40",
			dtstart: time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:     teambition.MINUTELY,
				Interval: 17,
				Count:    40,
				Dtstart:  time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
			},
		},
		{
			name:    "secondly interval",
			body:    "FREQ=SECONDLY;INTERVAL=90;COUNT=40",
			dtstart: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:     teambition.SECONDLY,
				Interval: 90,
				Count:    40,
				Dtstart:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "yearly bymonth",
			body:    "FREQ=YEARLY;BYMONTH=3,9;COUNT=10",
			dtstart: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC),
			ref: teambition.ROption{
				Freq:    teambition.YEARLY,
				Count:   10,
				Bymonth: []int{3, 9},
				Dtstart: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := ParseRule(tc.body, tc.dtstart)
			require.NoError(t, err)
			ours, err := rule.All()
			require.NoError(t, err)

			ref, err := teambition.NewRRule(tc.ref)
			require.NoError(t, err)
			want := ref.All()

			require.Len(t, ours, len(want))
			for i := range want {
				require.True(t, ours[i].Equal(want[i]),
					"occurrence %d: want %v, got %v", i, want[i], ours[i])
			}
		})
	}
}
