package testutil

import (
	"context"
	"sync"

	"github.com/medflow/report-explainer/internal/reports/domain"
	"github.com/medflow/report-explainer/internal/reports/storage"
)

// TextCall records one Complete invocation
type TextCall struct {
	System    string
	User      string
	MaxTokens int
}

// FakeTextClient is a counting generative text client. Handler decides
// the answer; without one every call returns "fake completion".
type FakeTextClient struct {
	Handler func(ctx context.Context, system, user string, maxTokens int) (string, error)

	mu    sync.Mutex
	calls []TextCall
}

// Complete records the call and delegates to Handler
func (f *FakeTextClient) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, TextCall{System: system, User: user, MaxTokens: maxTokens})
	f.mu.Unlock()

	if f.Handler == nil {
		return "fake completion", nil
	}
	return f.Handler(ctx, system, user, maxTokens)
}

// Calls returns the number of Complete invocations
func (f *FakeTextClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Recorded returns a copy of all recorded calls
func (f *FakeTextClient) Recorded() []TextCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TextCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// FakeImageClient is a counting image client
type FakeImageClient struct {
	Handler func(ctx context.Context, prompt, size string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// Synthesize records the prompt and delegates to Handler
func (f *FakeImageClient) Synthesize(ctx context.Context, prompt, size string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.Handler == nil {
		return "https://images.example.test/fake.png", nil
	}
	return f.Handler(ctx, prompt, size)
}

// Calls returns the number of Synthesize invocations
func (f *FakeImageClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Prompts returns a copy of the received prompts
func (f *FakeImageClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

// FakeExtractor returns a fixed document or error
type FakeExtractor struct {
	Doc *domain.ExtractedDocument
	Err error

	mu    sync.Mutex
	calls int
}

// Extract returns Doc or Err
func (f *FakeExtractor) Extract(ctx context.Context, data []byte, format domain.DocumentFormat) (*domain.ExtractedDocument, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if f.Doc != nil {
		doc := *f.Doc
		return &doc, nil
	}
	return &domain.ExtractedDocument{
		Text:       string(data),
		ByteLength: len(data),
		PageCount:  1,
		Extractor:  "fake",
	}, nil
}

// Calls returns the number of Extract invocations
func (f *FakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeFetcher serves a fixed document for any URL
type FakeFetcher struct {
	Data   []byte
	Format domain.DocumentFormat
	Err    error

	mu   sync.Mutex
	urls []string
}

// Fetch returns a copy of Data in a fresh buffer
func (f *FakeFetcher) Fetch(ctx context.Context, rawURL string) (*storage.Buffer, domain.DocumentFormat, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, domain.FormatUnknown, f.Err
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return storage.NewBuffer(data), f.Format, nil
}

// URLs returns the fetched URLs
func (f *FakeFetcher) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}

// Calls returns the number of Fetch invocations
func (f *FakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}
