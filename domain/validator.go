package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator проверяет записи расписания, пришедшие из внешнего источника
type Validator struct {
	validate *validator.Validate
}

// NewValidator создаёт новый Validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateLesson возвращает ошибку, если в записи не хватает обязательных полей
func (v *Validator) ValidateLesson(lesson Lesson) error {
	err := v.validate.Struct(lesson)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("занятие %d: %w", lesson.ID, err)
	}

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("занятие %d: некорректные поля %s", lesson.ID, strings.Join(fields, ", "))
}

// Sanitize отбрасывает некорректные записи, для каждой отброшенной возвращает ошибку
func (v *Validator) Sanitize(lessons []Lesson) ([]Lesson, []error) {
	valid := make([]Lesson, 0, len(lessons))
	var skipped []error

	for _, lesson := range lessons {
		if err := v.ValidateLesson(lesson); err != nil {
			skipped = append(skipped, err)
			continue
		}
		valid = append(valid, lesson)
	}

	return valid, skipped
}
