package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/rs/zerolog"
)

func sourceFor(tr llm.TextTransformer) *MockSource {
	return &MockSource{
		NewFunc: func(context.Context, string, llm.Tier) (llm.TextTransformer, error) {
			return tr, nil
		},
	}
}

func TestPipelineRun_EndToEndDebitStatement(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
	}{
		{name: "default chunk size", chunkSize: 0},
		{name: "small chunks", chunkSize: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &MockTransformer{InvokeFunc: echoByPrompt(domain.AccountTypeDebitChecking)}
			p := New(sourceFor(tr), nil, config.PipelineConfig{StructureChunkSize: tt.chunkSize}, zerolog.Nop())

			got := p.Run(context.Background(), statementText(30), "")

			if len(got) != 30 {
				t.Fatalf("Run() returned %d transactions, want 30", len(got))
			}
			for i, c := range got {
				if c[domain.FieldSource] != string(domain.SourceDebit) {
					t.Errorf("transaction %d source = %v, want debit", i, c[domain.FieldSource])
				}
				tx, err := domain.ValidateCandidate(c)
				if err != nil {
					t.Errorf("transaction %d fails business rules: %v", i, err)
					continue
				}
				wantType := domain.TransactionTypeExpense
				if (i+1)%3 == 0 {
					wantType = domain.TransactionTypeIncome
				}
				if tx.TransactionType != wantType {
					t.Errorf("transaction %d type = %s, want %s", i, tx.TransactionType, wantType)
				}
			}
			if !strings.HasPrefix(got[0][domain.FieldDescription].(string), "Merchant 01") {
				t.Errorf("first transaction = %v, want Merchant 01", got[0])
			}
		})
	}
}

func TestPipelineRun_ExtractGroupFailureIsIsolated(t *testing.T) {
	echo := echoByPrompt(domain.AccountTypeDebitChecking)
	var mu sync.Mutex
	extractCalls := 0
	tr := &MockTransformer{
		InvokeFunc: func(ctx context.Context, p llm.Prompt, inputs map[string]string) (llm.Response, error) {
			if p.Name == ExtractPrompt.Name {
				mu.Lock()
				extractCalls++
				n := extractCalls
				mu.Unlock()
				if n == 2 {
					return llm.Response{}, errors.New("upstream 503")
				}
			}
			return echo(ctx, p, inputs)
		},
	}
	p := New(sourceFor(tr), nil, config.PipelineConfig{ExtractGroupSize: 10}, zerolog.Nop())

	state, err := p.RunDetailed(context.Background(), statementText(30), "gemini")
	if err != nil {
		t.Fatalf("RunDetailed() error = %v", err)
	}
	if len(state.Groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(state.Groups))
	}
	if state.Groups[1].Err == nil {
		t.Error("group 1 should report its transform error")
	}
	if len(state.Transactions) != 20 {
		t.Errorf("got %d transactions, want 20", len(state.Transactions))
	}
	if state.Transactions[10].Description != "Merchant 21" {
		t.Errorf("transaction 10 = %q, want Merchant 21 (group 3 follows group 1)", state.Transactions[10].Description)
	}
}

func TestPipelineRun_ProviderAndTiers(t *testing.T) {
	type request struct {
		provider string
		tier     llm.Tier
	}
	var requests []request
	tr := &MockTransformer{InvokeFunc: echoByPrompt(domain.AccountTypeSavings)}
	src := &MockSource{
		NewFunc: func(_ context.Context, provider string, tier llm.Tier) (llm.TextTransformer, error) {
			requests = append(requests, request{provider, tier})
			return tr, nil
		},
	}
	p := New(src, nil, config.PipelineConfig{}, zerolog.Nop())

	got := p.Run(context.Background(), statementText(3), "openai")

	want := []request{{"openai", llm.TierFast}, {"openai", llm.TierDefault}}
	if len(requests) != len(want) || requests[0] != want[0] || requests[1] != want[1] {
		t.Errorf("transformer requests = %v, want %v", requests, want)
	}
	if len(got) != 3 || got[0][domain.FieldSource] != string(domain.SourceSavings) {
		t.Errorf("Run() = %v, want 3 savings transactions", got)
	}
}

func TestPipelineRun_ConfigErrorYieldsEmptyList(t *testing.T) {
	src := &MockSource{
		NewFunc: func(_ context.Context, provider string, _ llm.Tier) (llm.TextTransformer, error) {
			return nil, &llm.ConfigError{Provider: provider, Reason: "OPENAI_API_KEY is not set"}
		},
	}
	p := New(src, nil, config.PipelineConfig{}, zerolog.Nop())

	got := p.Run(context.Background(), statementText(5), "openai")
	if got == nil || len(got) != 0 {
		t.Errorf("Run() = %v, want empty non-nil list", got)
	}

	_, err := p.RunDetailed(context.Background(), statementText(5), "openai")
	var cfgErr *llm.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("RunDetailed() error = %v, want *llm.ConfigError", err)
	}
}

func TestPipelineRun_PanicYieldsEmptyList(t *testing.T) {
	tr := &MockTransformer{
		InvokeFunc: func(context.Context, llm.Prompt, map[string]string) (llm.Response, error) {
			panic("unexpected nil pointer")
		},
	}
	p := New(sourceFor(tr), nil, config.PipelineConfig{}, zerolog.Nop())

	got := p.Run(context.Background(), statementText(5), "")
	if got == nil || len(got) != 0 {
		t.Errorf("Run() = %v, want empty non-nil list", got)
	}
	if _, err := p.RunDetailed(context.Background(), statementText(5), ""); err == nil {
		t.Error("RunDetailed() error = nil, want panic converted to error")
	}
}

func TestPipelineRun_ParseFailureArtifactIsDocumentUnique(t *testing.T) {
	echo := echoByPrompt(domain.AccountTypeDebitChecking)
	tr := &MockTransformer{
		InvokeFunc: func(ctx context.Context, p llm.Prompt, inputs map[string]string) (llm.Response, error) {
			if p.Name == ExtractPrompt.Name {
				return llm.Response{Content: "no json here"}, nil
			}
			return echo(ctx, p, inputs)
		},
	}
	sink := &recordingSink{}
	p := New(sourceFor(tr), sink, config.PipelineConfig{}, zerolog.Nop())

	state, err := p.RunDetailed(context.Background(), statementText(4), "")
	if err != nil {
		t.Fatalf("RunDetailed() error = %v", err)
	}
	if len(state.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(state.Transactions))
	}
	name := DebugArtifactNameFor(state.DocumentID)
	if sink.written[name] != "no json here" {
		t.Errorf("artifact %q = %q, want raw response", name, sink.written[name])
	}
}

func TestPipelineRun_ConcurrentDocuments(t *testing.T) {
	tr := &MockTransformer{InvokeFunc: echoByPrompt(domain.AccountTypeDebitChecking)}
	p := New(sourceFor(tr), nil, config.PipelineConfig{}, zerolog.Nop())

	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i] = len(p.Run(context.Background(), statementText(10+i), ""))
		}(i)
	}
	wg.Wait()

	for i, n := range counts {
		if n != 10+i {
			t.Errorf("document %d produced %d transactions, want %d", i, n, 10+i)
		}
	}
}
