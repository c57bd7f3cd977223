package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ledongthuc/pdf"
)

// documentBodyLimit caps downloaded document size (20 MiB).
const documentBodyLimit = 20 << 20

var (
	apiDocumentPattern = regexp.MustCompile(`/api/documents/([a-f0-9-]+)`)
	fileIDParamPattern = regexp.MustCompile(`file_id=([a-f0-9-]+)`)
	uuidPattern        = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// ExtractFileID pulls a document file id out of the supported reference
// forms: an /api/documents/<id> URL, a file_id query parameter, a bare UUID,
// or a presigned object-storage URL (hashed into a synthetic id).
func ExtractFileID(ref string) string {
	if m := apiDocumentPattern.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	if m := fileIDParamPattern.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	if uuidPattern.MatchString(ref) {
		return ref
	}
	if parsed, err := url.Parse(ref); err == nil && parsed.Scheme != "" && parsed.Path != "" {
		return fmt.Sprintf("object-%x", md5.Sum([]byte(ref)))[:19]
	}
	return ""
}

// DocumentFetcher downloads documents referenced by URL, with a resolver for
// internal file ids.
type DocumentFetcher struct {
	httpClient *http.Client

	// ResolveFileID maps an internal file id to a fetchable URL. Nil means
	// ids cannot be resolved and only direct URLs work.
	ResolveFileID func(fileID string) (string, error)
}

// NewDocumentFetcher creates a fetcher with a bounded HTTP client.
func NewDocumentFetcher() *DocumentFetcher {
	return &DocumentFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// DocumentServiceResolver maps file ids onto the document service's download
// endpoint under base.
func DocumentServiceResolver(base string) func(fileID string) (string, error) {
	base = strings.TrimRight(base, "/")
	return func(fileID string) (string, error) {
		if fileID == "" {
			return "", fmt.Errorf("empty file id")
		}
		return base + "/api/documents/" + fileID, nil
	}
}

// documentAnalysis is the tool's JSON output shape.
type documentAnalysis struct {
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	DocumentInfo    map[string]any `json:"document_info,omitempty"`
	ContentStats    map[string]any `json:"content_statistics,omitempty"`
	AnalysisRequest string         `json:"analysis_request,omitempty"`
	DocumentContent string         `json:"document_content,omitempty"`
	ContentPreview  string         `json:"content_preview,omitempty"`
}

// Analyze downloads and parses the referenced document, returning a JSON
// report with the extracted content and basic statistics.
func (f *DocumentFetcher) Analyze(ctx context.Context, ref, request string) (string, error) {
	target := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		fileID := ExtractFileID(ref)
		if fileID == "" {
			fileID = ref
		}
		if f.ResolveFileID == nil {
			return marshalAnalysis(documentAnalysis{
				Success: false,
				Error:   fmt.Sprintf("无法解析文档引用: %s", ref),
			})
		}
		resolved, err := f.ResolveFileID(fileID)
		if err != nil {
			return marshalAnalysis(documentAnalysis{
				Success: false,
				Error:   fmt.Sprintf("未找到文件ID为 %s 的文档", fileID),
			})
		}
		target = resolved
	}

	data, filename, err := f.download(ctx, target)
	if err != nil {
		return marshalAnalysis(documentAnalysis{
			Success: false,
			Error:   fmt.Sprintf("文档下载失败: %s", err),
		})
	}

	content, err := ParseDocument(filename, data)
	if err != nil {
		return marshalAnalysis(documentAnalysis{
			Success: false,
			Error:   fmt.Sprintf("文件解析失败: %s", err),
		})
	}

	preview := content
	if runes := []rune(content); len(runes) > 1000 {
		preview = string(runes[:1000]) + "..."
	}
	return marshalAnalysis(documentAnalysis{
		Success: true,
		DocumentInfo: map[string]any{
			"filename":  filename,
			"file_type": strings.ToLower(path.Ext(filename)),
			"file_size": len(data),
		},
		ContentStats: map[string]any{
			"content_length": len([]rune(content)),
			"word_count":     len(strings.Fields(content)),
			"line_count":     strings.Count(content, "\n") + 1,
		},
		AnalysisRequest: request,
		DocumentContent: content,
		ContentPreview:  preview,
	})
}

// download fetches the document with bounded retries.
func (f *DocumentFetcher) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	var data []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("HTTP %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, documentBodyLimit))
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, "", err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return data, "document", nil
	}
	filename := path.Base(parsed.Path)
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}
	return data, filename, nil
}

// ParseDocument extracts text by file extension. PDF and Word (docx) are
// parsed structurally; anything else is treated as UTF-8 text.
func ParseDocument(filename string, data []byte) (string, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return parsePDF(data)
	case ".docx", ".doc":
		return parseDocx(data)
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

func parsePDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

// parseDocx streams word/document.xml and collects paragraph text.
func parseDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("missing word/document.xml")
	}
	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("read document.xml: %w", err)
	}
	defer rc.Close()

	var text strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func marshalAnalysis(a documentAnalysis) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}
	return string(data), nil
}

// NewDocumentTool wraps the fetcher as the document_analyze tool.
func NewDocumentTool(fetcher *DocumentFetcher) *Tool {
	return &Tool{
		Name:        "document_analyze",
		Description: "Download and parse a document (PDF or Word) referenced by URL or file id, returning its content and statistics as JSON.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"document_url_or_id": map[string]any{
					"type":        "string",
					"description": "A document URL, an /api/documents/<id> URL, or a bare file id.",
				},
				"analysis_request": map[string]any{
					"type":        "string",
					"description": "What to analyze in the document.",
				},
			},
			"required": []any{"document_url_or_id"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			ref, _ := args["document_url_or_id"].(string)
			request, _ := args["analysis_request"].(string)
			return fetcher.Analyze(ctx, ref, request)
		},
	}
}
