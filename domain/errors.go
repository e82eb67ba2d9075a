package domain

import "errors"

var (
	ErrNotFound = errors.New("не найдено")
	ErrBadName  = errors.New("некорректное имя")
	ErrNoData   = errors.New("нет данных")
)
