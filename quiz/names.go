package quiz

import "fmt"

// DefaultModuleNames — названия модулей курса, id 0 — калибровочный тест.
var DefaultModuleNames = map[int]string{
	0:  "КАЛИБРОВОЧНЫЙ ТЕСТ",
	1:  "История и миссия",
	2:  "Структура и активы",
	3:  "Технологии и модернизация",
	4:  "Безопасность и экология",
	5:  "Персонал и корпоративная культура",
	6:  "Социальная ответственность",
	7:  "Инновации и цифровизация",
	8:  "Экономика и эффективность",
	9:  "Перспективы и стратегия",
	10: "Регламенты и нормативная документация",
}

// ModuleName resolves a display name: stored names first, then the default
// table, then "Модуль N".
func ModuleName(names map[int]string, id int) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	if name, ok := DefaultModuleNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Модуль %d", id)
}
