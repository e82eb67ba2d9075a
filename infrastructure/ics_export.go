package infrastructure

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Vaflel/schedule-calendar/domain"
)

// ICSExporter формирует календарь iCalendar из занятий
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter создаёт экспортёр с идентификатором продукта
func NewICSExporter(productID string) *ICSExporter {
	return &ICSExporter{productID: productID, now: time.Now}
}

// Export возвращает календарь с событием на каждое занятие.
// Занятия с некорректным временем пропускаются.
func (e *ICSExporter) Export(title string, occurrences []domain.Occurrence) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	cal.SetXWRCalName(title)

	stamp := e.now()
	for _, o := range occurrences {
		if o.Lesson.Calls == nil {
			continue
		}
		start, end, err := o.Lesson.Calls.At(o.Date)
		if err != nil {
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("%d-%s-%d@schedule-calendar", o.Lesson.ID, domain.DateKey(o.Date), o.Lesson.Calls.Num))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(summary(o.Lesson))
		if room := o.Lesson.RoomName(); room != "" {
			event.SetLocation(room)
		}
		event.SetDescription(description(o.Lesson))
	}

	return cal.Serialize()
}

func summary(l domain.Lesson) string {
	if t := l.TypeName(); t != "" {
		return fmt.Sprintf("%s (%s)", l.Discipline.Name, t)
	}
	return l.Discipline.Name
}

func description(l domain.Lesson) string {
	parts := []string{fmt.Sprintf("%d пара", l.Calls.Num)}
	if teachers := l.TeacherNames(); teachers != "" {
		parts = append(parts, teachers)
	}
	if l.Group.Name != "" {
		parts = append(parts, l.Group.Name)
	}
	return strings.Join(parts, "; ")
}
