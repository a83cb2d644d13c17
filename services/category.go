package services

import (
	"path/filepath"
	"strings"
)

// CategoryOther catches unknown and missing extensions.
const CategoryOther = "Other"

var categoryExtensions = map[string][]string{
	"Images":        {"jpg", "jpeg", "png", "gif", "bmp", "webp", "svg"},
	"Documents":     {"pdf", "doc", "docx", "txt", "rtf", "odt"},
	"Audio":         {"mp3", "wav", "flac", "aac", "ogg", "m4a"},
	"Video":         {"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm"},
	"Archives":      {"zip", "rar", "7z", "tar", "gz", "bz2"},
	"Spreadsheets":  {"xls", "xlsx", "csv", "ods"},
	"Presentations": {"ppt", "pptx", "odp"},
	"Code":          {"py", "js", "html", "css", "java", "cpp", "c", "php", "rb"},
	"Ebooks":        {"epub", "mobi", "azw", "azw3", "fb2"},
}

var extensionCategory = func() map[string]string {
	m := make(map[string]string)
	for cat, exts := range categoryExtensions {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

// CategoryFor derives a browse category from a file name's extension.
func CategoryFor(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))), ".")
	if cat, ok := extensionCategory[ext]; ok {
		return cat
	}
	return CategoryOther
}
