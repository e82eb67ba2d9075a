package infrastructure

// XLS-источник читает выгрузку расписания, где каждая строка листа - одно
// занятие. Первая строка - заголовок. Столбцы:
//
//	день недели | недели | № пары | начало | конец | дисциплина | тип |
//	преподаватели | группа | аудитория | кампус
//
// День недели нумеруется так же, как в API (weekdayBase), недели задаются
// списком и диапазонами ("1,3,5-9"), преподаватели разделяются ";".

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"

	"github.com/Vaflel/schedule-calendar/domain"
)

const (
	colWeekday = iota
	colWeeks
	colNum
	colTimeStart
	colTimeEnd
	colDiscipline
	colType
	colTeachers
	colGroup
	colRoom
	colCampus
	colCount
)

// XLSSource отдаёт занятия из XLS-файла вместо API расписания
type XLSSource struct {
	filePath    string
	charset     string
	weekdayBase int
}

// NewXLSSource создаёт источник. Пустая кодировка означает utf-8.
func NewXLSSource(filePath, charset string, weekdayBase int) *XLSSource {
	if charset == "" {
		charset = "utf-8"
	}
	return &XLSSource{
		filePath:    filePath,
		charset:     charset,
		weekdayBase: weekdayBase,
	}
}

// GroupLessons возвращает занятия, у которых группа совпадает с name
func (s *XLSSource) GroupLessons(ctx context.Context, name string) ([]domain.Lesson, error) {
	return s.filter(ctx, func(l domain.Lesson) bool {
		return strings.EqualFold(l.Group.Name, strings.TrimSpace(name))
	})
}

// TeacherLessons возвращает занятия, у которых среди преподавателей есть name
func (s *XLSSource) TeacherLessons(ctx context.Context, name string) ([]domain.Lesson, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if len([]rune(needle)) < minTeacherNameLen {
		return nil, fmt.Errorf("имя преподавателя должно быть не менее %d символов: %w", minTeacherNameLen, domain.ErrBadName)
	}
	return s.filter(ctx, func(l domain.Lesson) bool {
		for _, t := range l.Teachers {
			if strings.Contains(strings.ToLower(t.Name), needle) {
				return true
			}
		}
		return false
	})
}

func (s *XLSSource) filter(ctx context.Context, match func(domain.Lesson) bool) ([]domain.Lesson, error) {
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lessons := ParseLessonRows(rows, s.weekdayBase)
	result := make([]domain.Lesson, 0)
	for _, l := range lessons {
		if match(l) {
			result = append(result, l)
		}
	}
	if len(result) == 0 {
		return nil, domain.ErrNotFound
	}
	return result, nil
}

// readRows читает первый лист файла в виде строк ячеек
func (s *XLSSource) readRows() ([][]string, error) {
	file, err := xls.Open(s.filePath, s.charset)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть %s: %w", s.filePath, err)
	}

	sheet := file.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("в файле %s нет листов", s.filePath)
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, colCount)
		for c := 0; c < colCount; c++ {
			cells[c] = strings.TrimSpace(row.Col(c))
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// ParseLessonRows разбирает строки листа (первая - заголовок).
// Строки с ошибками пропускаются, номер строки становится идентификатором занятия.
func ParseLessonRows(rows [][]string, weekdayBase int) []domain.Lesson {
	lessons := make([]domain.Lesson, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		lesson, err := parseLessonRow(row, weekdayBase)
		if err != nil {
			continue
		}
		lesson.ID = i
		lessons = append(lessons, lesson)
	}
	return lessons
}

func parseLessonRow(row []string, weekdayBase int) (domain.Lesson, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	weekday, err := strconv.Atoi(cell(colWeekday))
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("день недели: %w", err)
	}

	weeks, err := ParseWeeks(cell(colWeeks))
	if err != nil {
		return domain.Lesson{}, err
	}

	num, err := strconv.Atoi(cell(colNum))
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("номер пары: %w", err)
	}

	lesson := domain.Lesson{
		Weekday:    weekday - weekdayBase,
		Weeks:      weeks,
		Calls:      &domain.Call{Num: num, TimeStart: cell(colTimeStart), TimeEnd: cell(colTimeEnd)},
		Discipline: domain.Discipline{Name: cell(colDiscipline)},
		Group:      domain.Group{Name: cell(colGroup)},
	}

	if t := cell(colType); t != "" {
		lesson.LessonType = &domain.LessonType{Name: t}
	}

	for _, name := range strings.Split(cell(colTeachers), ";") {
		if name = strings.TrimSpace(name); name != "" {
			lesson.Teachers = append(lesson.Teachers, domain.Teacher{Name: name})
		}
	}

	if room := cell(colRoom); room != "" {
		lesson.Room = &domain.Room{Name: room}
		if campus := cell(colCampus); campus != "" {
			lesson.Room.Campus = &domain.Campus{Name: campus, ShortName: campus}
		}
	}

	return lesson, nil
}

// maxWeek - больше недель в году не бывает
const maxWeek = 53

// ParseWeeks разбирает список недель вида "1,3,5-9"
func ParseWeeks(s string) ([]int, error) {
	var weeks []int
	seen := make(map[int]bool)

	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		from, to := part, part
		if i := strings.Index(part, "-"); i > 0 {
			from, to = part[:i], part[i+1:]
		}

		a, err := strconv.Atoi(from)
		if err != nil {
			return nil, fmt.Errorf("некорректные недели %q: %w", s, err)
		}
		b, err := strconv.Atoi(to)
		if err != nil {
			return nil, fmt.Errorf("некорректные недели %q: %w", s, err)
		}
		if a < 1 || b < a || b > maxWeek {
			return nil, fmt.Errorf("некорректный диапазон недель %q", part)
		}

		for w := a; w <= b; w++ {
			if !seen[w] {
				seen[w] = true
				weeks = append(weeks, w)
			}
		}
	}

	if len(weeks) == 0 {
		return nil, fmt.Errorf("не указаны недели")
	}
	return weeks, nil
}
