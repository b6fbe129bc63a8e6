package domain

import "errors"

// Сигнальные ошибки доменного слоя. Сервисы оборачивают их через
// fmt.Errorf с %w, HTTP-слой сопоставляет им коды ответов.
var (
	// ErrNotFound возвращается, когда запись не найдена
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput возвращается при невалидных входных данных
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden возвращается при обращении к чужому ресурсу
	// или при недостатке прав
	ErrForbidden = errors.New("forbidden")

	// ErrConflict возвращается, когда операция несовместима
	// с текущим состоянием записи
	ErrConflict = errors.New("conflict")
)
