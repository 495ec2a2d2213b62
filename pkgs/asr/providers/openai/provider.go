// Package openai provides an ASR provider for OpenAI's audio transcription
// endpoint and compatible APIs.
//
// Features:
//   - Language hints per request
//   - Optional prompt and temperature
//   - Works with any OpenAI-compatible base URL
//
// Example usage:
//
//	import (
//	    "context"
//	    "github.com/xifan2333/gapcapture/pkgs/asr"
//	    "github.com/xifan2333/gapcapture/pkgs/asr/providers/openai"
//	)
//
//	opts := &openai.Options{APIKey: "sk-...", Model: "whisper-1"}
//	result, err := asr.Transcribe(ctx, "openai", req, opts)
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/xifan2333/gapcapture/pkgs/asr"
)

const providerName = "openai"

// Provider implements the ASR provider interface for OpenAI.
type Provider struct{}

// Ensure Provider implements asr.Provider interface at compile time.
var _ asr.Provider = (*Provider)(nil)

func init() {
	asr.Register(&Provider{})
}

// Name returns "openai".
func (p *Provider) Name() string {
	return providerName
}

// Fetch uploads the audio to /audio/transcriptions as multipart form data.
//
// Returns the decoded JSON response as map[string]interface{}.
func (p *Provider) Fetch(ctx context.Context, req *asr.Request, opts asr.FetchOptions) (asr.RawResult, error) {
	var o Options
	if given, ok := opts.(*Options); ok && given != nil {
		o = *given
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := buildForm(&o, req)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(o.BaseURL, "/") + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "create_request", Message: "failed to create HTTP request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := o.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "http_request", Message: "HTTP request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &asr.APIError{Provider: providerName, StatusCode: resp.StatusCode, Response: fmt.Sprintf("failed to read body: %v", err)}
		}
		return nil, &asr.APIError{Provider: providerName, StatusCode: resp.StatusCode, Response: apiErrorMessage(b)}
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &asr.FetchError{Provider: providerName, Step: "parse_response", Message: "failed to parse JSON response", Err: err}
	}
	return result, nil
}

func buildForm(o *Options, req *asr.Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{{"model", o.Model}, {"response_format", "json"}}
	if req.Language != "" {
		fields = append(fields, [2]string{"language", req.Language})
	}
	if o.Prompt != "" {
		fields = append(fields, [2]string{"prompt", o.Prompt})
	}
	if o.Temperature > 0 {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(o.Temperature, 'g', -1, 64)})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", &asr.FetchError{Provider: providerName, Step: "add_field", Message: fmt.Sprintf("failed to add %s field", f[0]), Err: err}
		}
	}

	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, "", &asr.FetchError{Provider: providerName, Step: "create_form", Message: "failed to create form file", Err: err}
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", &asr.FetchError{Provider: providerName, Step: "copy_file", Message: "failed to write audio data", Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, "", &asr.FetchError{Provider: providerName, Step: "close_writer", Message: "failed to close multipart writer", Err: err}
	}

	return &buf, writer.FormDataContentType(), nil
}

// apiErrorMessage extracts error.message from an OpenAI error body, falling
// back to the raw body.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// Parse converts the OpenAI response to standardized format.
func (p *Provider) Parse(raw asr.RawResult) (*asr.StandardResult, error) {
	response, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &asr.ParseError{Provider: providerName, Message: "invalid raw result type, expected map[string]interface{}"}
	}

	text, ok := response["text"].(string)
	if !ok {
		return nil, &asr.ParseError{Provider: providerName, Message: "missing text field in response"}
	}

	result := &asr.StandardResult{Text: strings.TrimSpace(text)}
	if lang, ok := response["language"].(string); ok {
		result.Language = lang
	}
	if duration, ok := response["duration"].(float64); ok {
		result.Duration = int64(duration * 1000)
	}

	if words, ok := response["words"].([]interface{}); ok {
		result.Words = make([]asr.Word, 0, len(words))
		for _, w := range words {
			word, ok := w.(map[string]interface{})
			if !ok {
				continue
			}
			wordText, _ := word["word"].(string)
			start, _ := word["start"].(float64)
			end, _ := word["end"].(float64)
			result.Words = append(result.Words, asr.Word{
				Text:  wordText,
				Start: int64(start * 1000),
				End:   int64(end * 1000),
			})
		}
	}

	return result, nil
}
