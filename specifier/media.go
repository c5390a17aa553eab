package specifier

import (
	"net/url"
	"path"
	"strings"
)

// MediaType classifies a module by its source language.
type MediaType string

const (
	JavaScript  MediaType = "JavaScript"
	Mjs         MediaType = "Mjs"
	Cjs         MediaType = "Cjs"
	JSX         MediaType = "JSX"
	TypeScript  MediaType = "TypeScript"
	Mts         MediaType = "Mts"
	Cts         MediaType = "Cts"
	Dts         MediaType = "Dts"
	Dmts        MediaType = "Dmts"
	Dcts        MediaType = "Dcts"
	TSX         MediaType = "TSX"
	JSON        MediaType = "Json"
	Wasm        MediaType = "Wasm"
	TsBuildInfo MediaType = "TsBuildInfo"
	SourceMap   MediaType = "SourceMap"
	Unknown     MediaType = "Unknown"
)

// MediaTypeFromSpecifier derives the media type from the URL path extension.
func MediaTypeFromSpecifier(u *url.URL) MediaType {
	p := urlPath(u)
	switch path.Ext(p) {
	case "":
		if strings.HasSuffix(p, "/.tsbuildinfo") {
			return TsBuildInfo
		}
		return Unknown
	case ".ts":
		if strings.HasSuffix(p, ".d.ts") {
			return Dts
		}
		return TypeScript
	case ".mts":
		if strings.HasSuffix(p, ".d.mts") {
			return Dmts
		}
		return Mts
	case ".cts":
		if strings.HasSuffix(p, ".d.cts") {
			return Dcts
		}
		return Cts
	case ".tsx":
		return TSX
	case ".js":
		return JavaScript
	case ".jsx":
		return JSX
	case ".mjs":
		return Mjs
	case ".cjs":
		return Cjs
	case ".json":
		return JSON
	case ".wasm":
		return Wasm
	case ".tsbuildinfo":
		return TsBuildInfo
	case ".map":
		return SourceMap
	}
	return Unknown
}

// MapContentType derives the media type from an HTTP content type, falling
// back to the extension for generic types. An empty contentType means the
// header was absent.
func MapContentType(u *url.URL, contentType string) MediaType {
	if contentType == "" {
		return MediaTypeFromSpecifier(u)
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/typescript", "text/typescript", "video/vnd.dlna.mpeg-tts",
		"video/mp2t", "application/x-typescript":
		return mapJSLikeExtension(u, TypeScript)
	case "application/javascript", "text/javascript", "application/ecmascript",
		"text/ecmascript", "application/x-javascript", "application/node":
		return mapJSLikeExtension(u, JavaScript)
	case "text/jsx":
		return JSX
	case "text/tsx":
		return TSX
	case "application/json", "text/json":
		return JSON
	case "application/wasm":
		return Wasm
	case "text/plain", "application/octet-stream":
		return MediaTypeFromSpecifier(u)
	}
	return Unknown
}

func mapJSLikeExtension(u *url.URL, def MediaType) MediaType {
	p := urlPath(u)
	switch path.Ext(p) {
	case ".jsx":
		return JSX
	case ".mjs":
		return Mjs
	case ".cjs":
		return Cjs
	case ".tsx":
		return TSX
	case ".ts":
		if strings.HasSuffix(p, ".d.ts") {
			return Dts
		}
	case ".mts":
		if strings.HasSuffix(p, ".d.mts") {
			return Dmts
		}
		if def == JavaScript {
			return Mjs
		}
		return Mts
	case ".cts":
		if strings.HasSuffix(p, ".d.cts") {
			return Dcts
		}
		if def == JavaScript {
			return Cjs
		}
		return Cts
	}
	return def
}

// Loader returns the esbuild loader for a media type, or "" when esbuild
// cannot load it directly.
func Loader(mt MediaType) string {
	switch mt {
	case JavaScript, Mjs:
		return "js"
	case JSX:
		return "jsx"
	case TypeScript, Mts:
		return "ts"
	case TSX:
		return "tsx"
	case JSON:
		return "json"
	}
	return ""
}

// urlPath returns the path component, including for opaque URLs such as
// "npm:preact@10/hooks.js".
func urlPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}
