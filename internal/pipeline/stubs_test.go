package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dvloznov/statement-extractor/internal/chunker"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/shopspring/decimal"
)

// MockTransformer is a mock implementation of llm.TextTransformer for testing.
type MockTransformer struct {
	InvokeFunc func(ctx context.Context, prompt llm.Prompt, inputs map[string]string) (llm.Response, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockTransformer) Invoke(ctx context.Context, prompt llm.Prompt, inputs map[string]string) (llm.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, inputs[inputText])
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, prompt, inputs)
	}
	return llm.Response{}, nil
}

// Inputs returns the text input of every call in order.
func (m *MockTransformer) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockSource is a mock implementation of llm.Source for testing.
type MockSource struct {
	NewFunc func(ctx context.Context, provider string, tier llm.Tier) (llm.TextTransformer, error)
}

func (m *MockSource) New(ctx context.Context, provider string, tier llm.Tier) (llm.TextTransformer, error) {
	if m.NewFunc != nil {
		return m.NewFunc(ctx, provider, tier)
	}
	return &MockTransformer{}, nil
}

// recordingSink keeps every artifact written to it.
type recordingSink struct {
	mu      sync.Mutex
	written map[string]string
}

func (s *recordingSink) Write(ctx context.Context, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == nil {
		s.written = make(map[string]string)
	}
	s.written[name] = content
	return nil
}

// statementLineRe matches the synthetic statement lines used in tests:
// "2024-07-01 | Merchant 01 | -3.25".
var statementLineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) \| (.+?) \| (-?\d+\.\d{2})$`)

// echoClean keeps the account type line, page markers and transaction lines.
func echoClean(accountType domain.AccountType) func(context.Context, llm.Prompt, map[string]string) (llm.Response, error) {
	return func(_ context.Context, _ llm.Prompt, inputs map[string]string) (llm.Response, error) {
		out := []string{accountType.Line()}
		for _, line := range strings.Split(inputs[inputText], "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, chunker.PageMarker) || statementLineRe.MatchString(line) {
				out = append(out, line)
			}
		}
		return llm.Response{Content: strings.Join(out, "\n")}, nil
	}
}

// echoStructure writes one block per statement line, taking SOURCE from the
// account type line in the input.
func echoStructure(_ context.Context, _ llm.Prompt, inputs map[string]string) (llm.Response, error) {
	text := inputs[inputText]
	var source domain.Source
	if at, _, ok := domain.DetectAccountType(text); ok {
		source, _ = at.Source()
	}

	var blocks []string
	for _, line := range strings.Split(text, "\n") {
		m := statementLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		amount := decimal.RequireFromString(m[3])
		txType := domain.ExpectedType(source, amount.IsPositive())
		blocks = append(blocks, strings.Join([]string{
			domain.BlockStart,
			"DATE: " + m[1],
			"AMOUNT: " + m[3],
			"SOURCE: " + string(source),
			"TRANSACTION_TYPE: " + string(txType),
			"DESCRIPTION: " + m[2],
			domain.BlockEnd,
		}, "\n"))
	}
	return llm.Response{Content: strings.Join(blocks, "\n\n")}, nil
}

// echoExtract converts every block of the input into a JSON record.
func echoExtract(_ context.Context, _ llm.Prompt, inputs map[string]string) (llm.Response, error) {
	var records []map[string]any
	for _, block := range chunker.Records(inputs[inputText], domain.BlockStart) {
		if !strings.HasPrefix(block, domain.BlockStart) {
			continue
		}
		fields := map[string]string{}
		for _, line := range strings.Split(block, "\n") {
			if k, v, ok := strings.Cut(line, ":"); ok {
				fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
		records = append(records, map[string]any{
			"amount":           json.Number(fields["AMOUNT"]),
			"description":      fields["DESCRIPTION"],
			"category":         nil,
			"transaction_type": fields["TRANSACTION_TYPE"],
			"source":           fields["SOURCE"],
			"timestamp":        fields["DATE"] + "T00:00:00",
		})
	}
	b, err := json.Marshal(records)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Content: string(b)}, nil
}

// echoByPrompt dispatches to the echo helpers by prompt name.
func echoByPrompt(accountType domain.AccountType) func(context.Context, llm.Prompt, map[string]string) (llm.Response, error) {
	clean := echoClean(accountType)
	return func(ctx context.Context, prompt llm.Prompt, inputs map[string]string) (llm.Response, error) {
		switch prompt.Name {
		case CleanPrompt.Name:
			return clean(ctx, prompt, inputs)
		case StructurePrompt.Name:
			return echoStructure(ctx, prompt, inputs)
		case ExtractPrompt.Name:
			return echoExtract(ctx, prompt, inputs)
		}
		return llm.Response{}, fmt.Errorf("unexpected prompt %q", prompt.Name)
	}
}

// blockText renders n well-formed debit blocks.
func blockText(n int) string {
	blocks := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		blocks = append(blocks, fmt.Sprintf("%s\nDATE: 2024-07-%02d\nAMOUNT: -%d.00\nSOURCE: debit\nTRANSACTION_TYPE: expense\nDESCRIPTION: Shop %d\n%s",
			domain.BlockStart, (i-1)%28+1, i, i, domain.BlockEnd))
	}
	return strings.Join(blocks, "\n\n")
}

// statementText renders a raw statement with one page marker, some
// boilerplate and n transaction lines. Every third line is money in.
func statementText(n int) string {
	var b strings.Builder
	b.WriteString("--- PAGE 1 ---\n")
	b.WriteString("Example Bank plc. Registered in England. Call 0800 000 000.\n")
	b.WriteString("Current account statement for J. Doe, 1 High Street\n\n")
	for i := 1; i <= n; i++ {
		amount := fmt.Sprintf("-%d.25", i)
		if i%3 == 0 {
			amount = fmt.Sprintf("%d.00", 100*i)
		}
		fmt.Fprintf(&b, "2024-07-%02d | Merchant %02d | %s\n", (i-1)%28+1, i, amount)
	}
	b.WriteString("\nInterest rates may change. See terms and conditions.\n")
	return b.String()
}
