package internal

import (
	"fmt"
	"knowledge/types"
	"os"
	"path/filepath"
	"strings"
)

// ExtractText pulls plain text out of a source file by extension. PDF goes
// through the pdfcpu preprocessing step and the converter sidecar; text and
// markdown are read as-is.
func ExtractText(filePath string) (string, types.ContentType, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".txt":
		text, err := readPlain(filePath)
		return text, types.ContentNote, err
	case ".md", ".markdown":
		text, err := readPlain(filePath)
		return text, types.ContentNote, err
	case ".pdf":
		text, err := extractPDF(filePath)
		return text, types.ContentFile, err
	default:
		return "", "", fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

func readPlain(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filePath, err)
	}
	return string(data), nil
}

// GenerateTitle derives a display title from the file name: extension
// stripped, separators turned into spaces.
func GenerateTitle(filePath string) string {
	fileName := filepath.Base(filePath)
	fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	fileName = strings.ReplaceAll(fileName, "_", " ")
	fileName = strings.ReplaceAll(fileName, "-", " ")
	return fileName
}
