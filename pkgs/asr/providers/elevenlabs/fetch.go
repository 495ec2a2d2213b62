package elevenlabs

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/xifan2333/gapcapture/pkgs/asr"
)

// fetch executes the ElevenLabs speech-to-text request
func fetch(ctx context.Context, req *asr.Request, opts *Options) (map[string]interface{}, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	fileWriter, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "create_form", Message: "failed to create form file", Err: err}
	}
	if _, err := fileWriter.Write(req.Audio); err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "copy_file", Message: "failed to write audio data", Err: err}
	}

	fields := [][2]string{
		{"model_id", opts.ModelID},
		{"diarize", strconv.FormatBool(opts.Diarize)},
		{"tag_audio_events", strconv.FormatBool(opts.TagAudioEvents)},
	}
	if opts.LanguageCode != "auto" {
		fields = append(fields, [2]string{"language_code", opts.LanguageCode})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, &asr.FetchError{Provider: providerName, Step: "add_field", Message: fmt.Sprintf("failed to add %s field", f[0]), Err: err}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "close_writer", Message: "failed to close multipart writer", Err: err}
	}

	url := strings.TrimRight(opts.BaseURL, "/") + "/v1/speech-to-text"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &requestBody)
	if err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "create_request", Message: "failed to create HTTP request", Err: err}
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("accept", "application/json")
	httpReq.Header.Set("accept-encoding", "gzip")
	if opts.APIKey != "" {
		httpReq.Header.Set("xi-api-key", opts.APIKey)
	} else {
		setBrowserHeaders(httpReq)
	}

	resp, err := opts.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "http_request", Message: "HTTP request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &asr.APIError{Provider: providerName, StatusCode: resp.StatusCode, Response: fmt.Sprintf("failed to read body: %v", err)}
		}
		return nil, &asr.APIError{Provider: providerName, StatusCode: resp.StatusCode, Response: string(body)}
	}

	// Handle possible gzip compression
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &asr.FetchError{Provider: providerName, Step: "decompress", Message: "failed to decompress gzip response", Err: err}
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	var result map[string]interface{}
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "parse_response", Message: "failed to parse JSON response", Err: err}
	}

	return result, nil
}

// setBrowserHeaders makes unauthenticated requests look like they come from
// the ElevenLabs web app.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("origin", "https://elevenlabs.io")
	req.Header.Set("referer", "https://elevenlabs.io/")
	req.Header.Set("sec-fetch-dest", "empty")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-site", "same-site")
	req.Header.Set("user-agent", gofakeit.UserAgent())
	req.Header.Set("accept-language", generateAcceptLanguage())

	q := req.URL.Query()
	q.Set("allow_unauthenticated", "1")
	req.URL.RawQuery = q.Encode()
}

// generateAcceptLanguage generates a random Accept-Language header
func generateAcceptLanguage() string {
	return fmt.Sprintf("%s,%s;q=0.9,en;q=0.8",
		gofakeit.LanguageAbbreviation(),
		gofakeit.LanguageAbbreviation(),
	)
}
