// Package fuzztests houses Go fuzz harnesses for the front half of the
// translator: line map, lexer, expression and directive parsers, unit
// splitting and indexing. They only look for panics and runaway loops on
// arbitrary input.
//
// Назначение: прогонять произвольные байты через linemap, lexer, parser,
// directive и indexer.
//
// Не делает: генерацию кода, запись файлов, выполнение CLI.
package fuzztests
