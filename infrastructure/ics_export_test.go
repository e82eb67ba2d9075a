package infrastructure

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vaflel/schedule-calendar/domain"
)

func TestICSExport(t *testing.T) {
	exporter := NewICSExporter("-//schedule-calendar//RU")
	exporter.now = func() time.Time { return time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC) }

	lesson := validLesson(1)
	lesson.LessonType = &domain.LessonType{Name: "лек"}
	lesson.Room = &domain.Room{Name: "А-101"}
	lesson.Group = domain.Group{Name: "ИКБО-01-23, ИКБО-02-23"}

	broken := validLesson(2)
	broken.Calls = &domain.Call{Num: 2, TimeStart: "??"}

	day := time.Date(2023, time.September, 4, 0, 0, 0, 0, time.UTC)
	out := exporter.Export("ИКБО-01-23", []domain.Occurrence{
		{Date: day, Lesson: lesson},
		{Date: day, Lesson: broken},
	})

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Математика (лек)", ev.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "А-101", ev.GetProperty(ics.ComponentPropertyLocation).Value)

	start, err := ev.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2023, time.September, 4, 9, 0, 0, 0, time.UTC)))

	end, err := ev.GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2023, time.September, 4, 10, 30, 0, 0, time.UTC)))
}

func TestICSExportEmpty(t *testing.T) {
	out := NewICSExporter("-//schedule-calendar//RU").Export("пусто", nil)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
