// Package fuzztests houses Go fuzz harnesses for the verification pipeline
// (directive scanning -> pattern compilation -> matching). They guard against
// panics and hangs on arbitrary annotations and outputs.
//
// Назначение: прогонять произвольные байты через directive.Parse и
// verify.VerifyContext.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/directive, internal/verify.

package fuzztests
