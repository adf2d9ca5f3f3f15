package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// cropHeaderFooter trims the top and bottom margins of every page so the
// running headers and page numbers do not pollute the extracted text.
// top and bottom are in points (1 pt = 1/72 inch).
func cropHeaderFooter(inputPath, outputPath string, top, bottom float64) error {
	conf := api.LoadConfiguration()

	cropStr := fmt.Sprintf("%.2f 0 %.2f 0", top, bottom)
	box, err := model.ParseBox(cropStr, pdftypes.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse crop box: %w", err)
	}

	if err := api.CropFile(inputPath, outputPath, []string{"1-"}, box, conf); err != nil {
		return fmt.Errorf("failed to crop PDF: %w", err)
	}
	return nil
}

type converterResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
}

// extractPDF validates the file, crops boilerplate margins, and hands the
// result to the converter sidecar for text extraction.
func extractPDF(filePath string) (string, error) {
	if err := api.ValidateFile(filePath, api.LoadConfiguration()); err != nil {
		return "", fmt.Errorf("invalid PDF %s: %w", filePath, err)
	}

	top, _ := strconv.ParseFloat(os.Getenv("PDF_CROP_TOP"), 64)
	bottom, _ := strconv.ParseFloat(os.Getenv("PDF_CROP_BOTTOM"), 64)
	if top > 0 || bottom > 0 {
		if err := cropHeaderFooter(filePath, filePath, top, bottom); err != nil {
			return "", err
		}
	}
	return convertPDF(filePath)
}

func convertPDF(filePath string) (string, error) {
	converterURL := os.Getenv("CONVERTER_URL")
	if converterURL == "" {
		converterURL = "http://localhost:5001/v1/convert/file"
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filePath)
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(part, file); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequest("POST", converterURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("converter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("converter returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var d converterResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return "", fmt.Errorf("decode converter response: %w", err)
	}
	return d.Document.MdContent, nil
}
