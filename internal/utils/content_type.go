package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

const DefaultContentType = "application/octet-stream"

// contentTypes is the fixed lookup used when serving stored files.
// Unknown extensions fall back to DefaultContentType.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
	".heic": "image/heic",
	".pdf":  "application/pdf",
	".txt":  "text/plain; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".json": "application/json",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".zip":  "application/zip",
	".mp4":  "video/mp4",
}

var regexSafeExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// ContentTypeByExt returns the content type registered for the extension of name.
func ContentTypeByExt(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// SafeExt extracts a lowercase extension from an untrusted file name.
// Anything that is not a short alphanumeric extension yields "".
func SafeExt(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == name || !regexSafeExt.MatchString(ext) {
		return ""
	}
	return ext
}
