package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		clock   string
		want    int
		wantErr bool
	}{
		{clock: "00:00", want: 0},
		{clock: "09:30", want: 570},
		{clock: "23:59", want: 1439},
		{clock: "24:00", wantErr: true},
		{clock: "9:30", wantErr: true},
		{clock: "10:60", wantErr: true},
		{clock: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.clock, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.clock)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clock, Format(got))
		})
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{name: "one hour interval", start: "10:00", end: "11:00", want: []string{"10:00", "10:30"}},
		{name: "unaligned end drops the partial slot", start: "10:00", end: "11:15", want: []string{"10:00", "10:30", "11:00"}},
		{name: "unaligned start is not rounded", start: "10:10", end: "11:00", want: []string{"10:10", "10:40"}},
		{name: "interval shorter than a slot still emits its start", start: "10:00", end: "10:15", want: []string{"10:00"}},
		{name: "empty interval", start: "10:00", end: "10:00", want: []string{}},
		{name: "inverted interval", start: "12:00", end: "10:00", want: []string{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Generate(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Generate("10:00", "25:00")
	assert.Error(t, err)
}

func TestSortAndSubtract(t *testing.T) {
	slots := []string{"14:00", "09:00", "09:30", "14:00", "10:30"}
	Sort(slots)
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "14:00", "14:00"}, slots)

	free := Subtract(slots, map[string]struct{}{"09:30": {}})
	assert.Equal(t, []string{"09:00", "10:30", "14:00"}, free)
}

func TestMatchesWeekday(t *testing.T) {
	tests := []struct {
		day     string
		weekday time.Weekday
		want    bool
	}{
		{day: "monday", weekday: time.Monday, want: true},
		{day: "Monday", weekday: time.Monday, want: true},
		{day: " MON ", weekday: time.Monday, want: true},
		{day: "tue", weekday: time.Monday, want: false},
		{day: "mo", weekday: time.Monday, want: false},
		{day: "lundi", weekday: time.Monday, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.day, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MatchesWeekday(tt.day, tt.weekday))
		})
	}

	weekday, ok := ParseWeekday("Sat")
	assert.True(t, ok)
	assert.Equal(t, time.Saturday, weekday)
	_, ok = ParseWeekday("someday")
	assert.False(t, ok)
}

func TestDates(t *testing.T) {
	location := time.FixedZone("UTC+3", 3*60*60)
	lateEvening := time.Date(2024, 3, 10, 23, 30, 0, 0, location)

	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), DateOf(lateEvening))
	assert.Equal(t, "23:30", Clock(lateEvening))

	start, end := DayBounds(lateEvening)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC), end)

	parsed, err := ParseDate("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, start, parsed)

	_, err = ParseDate("10/03/2024")
	assert.Error(t, err)
}
