package domain

import "strings"

// Category - категория типа занятия, по ней выбирается цвет в календаре
type Category string

const (
	CategoryPractice Category = "practice"
	CategoryLecture  Category = "lecture"
	CategoryLab      Category = "lab"
	CategoryTest     Category = "test"
	CategoryOther    Category = "other"
)

var categories = map[string]Category{
	"пр":        CategoryPractice,
	"practice":  CategoryPractice,
	"лек":       CategoryLecture,
	"lecture":   CategoryLecture,
	"лаб":       CategoryLab,
	"lab":       CategoryLab,
	"зач":       CategoryTest,
	"test-pass": CategoryTest,
}

// CategoryOf сопоставляет название типа занятия категории.
// Неизвестные названия относятся к CategoryOther.
func CategoryOf(name string) Category {
	if c, ok := categories[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return CategoryOther
}
