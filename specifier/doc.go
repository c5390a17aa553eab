// Package specifier converts between module specifiers, file paths and the
// esbuild namespace/path pair, and classifies specifiers by media type.
//
// Paths are slash-separated. Windows drive paths ("C:/proj/mod.ts") map to
// "file:///C:/proj/mod.ts".
package specifier
