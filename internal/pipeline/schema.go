package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaJSON = `{
  "type": "object",
  "required": ["amount", "description", "category", "transaction_type", "source", "timestamp"],
  "properties": {
    "amount": {"type": "number"},
    "description": {"type": "string"},
    "category": {"type": ["string", "null"]},
    "transaction_type": {"enum": ["income", "expense"]},
    "source": {"enum": ["credit", "debit", "savings"]},
    "timestamp": {"type": "string"}
  }
}`

var recordSchema = mustCompileSchema("record.json", recordSchemaJSON)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	s, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return s
}

// validateRecord checks one decoded JSON element against the record schema
// and converts it. v must come from a json.Decoder, so objects are
// map[string]any and numbers are json.Number.
func validateRecord(v any) (domain.Transaction, error) {
	if err := recordSchema.Validate(v); err != nil {
		return domain.Transaction{}, fmt.Errorf("record does not match schema: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("record is %T, not an object", v)
	}
	return domain.FromCandidate(domain.CandidateTransaction(obj))
}
