// Package student содержит доменную модель студента языковой школы.
//
// Это ядро бизнес-логики: пакет определяет сущность Student, её инварианты
// и интерфейс репозитория. Внешних зависимостей нет - только стандартная
// библиотека Go.
//
// # Основные инварианты
//
//   - Email уникален в рамках школы.
//   - Неактивный студент не может создавать новые записи на курсы
//     (проверяется в application-слое через CanEnroll).
//
// # Пример использования
//
//	student, err := NewStudent(NewStudentParams{
//	    ID:           uuid.New().String(),
//	    Email:        "student@lingua.school",
//	    DisplayName:  "Имя Студента",
//	    PasswordHash: hash,
//	})
//	if err != nil {
//	    return err
//	}
//	if !student.CanEnroll() {
//	    return shared.ErrStudentInactive
//	}
package student
