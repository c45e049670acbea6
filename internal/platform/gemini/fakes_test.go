package gemini

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
				FinishReason: genai.FinishReasonStop,
			},
		},
	}
}

type fakeGenerator struct {
	mu       sync.Mutex
	resp     *genai.GenerateContentResponse
	err      error
	models   []string
	contents [][]*genai.Content
	configs  []*genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	f.contents = append(f.contents, contents)
	f.configs = append(f.configs, config)
	return f.resp, f.err
}

type fakeFiles struct {
	mu        sync.Mutex
	uploaded  *genai.File
	uploadErr error
	states    []genai.FileState
	getCalls  int
	deleted   []string
	mimeTypes []string
}

func (f *fakeFiles) UploadFromPath(
	ctx context.Context,
	path string,
	config *genai.UploadFileConfig,
) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if config != nil {
		f.mimeTypes = append(f.mimeTypes, config.MIMEType)
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	file := *f.uploaded
	return &file, nil
}

func (f *fakeFiles) Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file := *f.uploaded
	if f.getCalls < len(f.states) {
		file.State = f.states[f.getCalls]
	} else {
		file.State = genai.FileStateActive
	}
	f.getCalls++
	return &file, nil
}

func (f *fakeFiles) Delete(
	ctx context.Context,
	name string,
	config *genai.DeleteFileConfig,
) (*genai.DeleteFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return &genai.DeleteFileResponse{}, nil
}
