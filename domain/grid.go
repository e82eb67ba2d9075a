package domain

import "time"

// MonthGrid строит сетку месяца для календаря: хвост предыдущего месяца,
// все дни месяца и начало следующего, так чтобы длина была кратна 7.
// Клетка, совпадающая с today, отмечается и как сегодняшняя, и как выбранная.
func MonthGrid(today time.Time, month time.Month, year int) []DayCell {
	loc := today.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	prevMonth, prevYear := PrevMonth(month, year)
	daysInMonth := DaysInMonth(month, year)
	daysInPrevMonth := DaysInMonth(prevMonth, prevYear)

	daysBefore := NormalizedWeekday(first)
	total := daysBefore + daysInMonth
	daysAfter := (7 - total%7) % 7

	days := make([]DayCell, 0, total+daysAfter)

	// Хвост предыдущего месяца
	for i := daysBefore; i > 0; i-- {
		days = append(days, DayCell{
			Date: time.Date(prevYear, prevMonth, daysInPrevMonth-i+1, 0, 0, 0, 0, loc),
		})
	}

	for i := 1; i <= daysInMonth; i++ {
		date := time.Date(year, month, i, 0, 0, 0, 0, loc)
		isToday := SameDay(date, today)
		days = append(days, DayCell{
			Date:           date,
			IsCurrentMonth: true,
			IsToday:        isToday,
			IsSelected:     isToday,
		})
	}

	nextMonth, nextYear := NextMonth(month, year)
	for i := 1; i <= daysAfter; i++ {
		days = append(days, DayCell{
			Date: time.Date(nextYear, nextMonth, i, 0, 0, 0, 0, loc),
		})
	}

	return days
}

// SelectDay пересчитывает только признак выбранного дня. Исходная сетка не меняется.
func SelectDay(days []DayCell, selected time.Time) []DayCell {
	result := make([]DayCell, len(days))
	for i, d := range days {
		d.IsSelected = SameDay(d.Date, selected)
		result[i] = d
	}
	return result
}

// GridDates возвращает даты всех клеток сетки
func GridDates(days []DayCell) []time.Time {
	dates := make([]time.Time, len(days))
	for i, d := range days {
		dates[i] = d.Date
	}
	return dates
}

// Weeks разбивает сетку на строки по 7 дней
func Weeks(days []DayCell) [][]DayCell {
	weeks := make([][]DayCell, 0, len(days)/7)
	for i := 0; i+7 <= len(days); i += 7 {
		weeks = append(weeks, days[i:i+7])
	}
	return weeks
}
