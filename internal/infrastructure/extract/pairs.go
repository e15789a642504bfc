package extract

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

// PairParser implements the FileParser port for JSON and CSV uploads.
type PairParser struct{}

var _ ports.FileParser = (*PairParser)(nil)

// NewPairParser returns a stateless parser.
func NewPairParser() *PairParser {
	return &PairParser{}
}

// Parse dispatches on the declared file format.
func (p *PairParser) Parse(format string, raw []byte) ([]domain.TranslationPair, error) {
	switch format {
	case "json":
		return ParseJSONTranslations(raw)
	case "csv":
		return ParseCSVTranslations(raw)
	default:
		return nil, fmt.Errorf("unsupported translation file format %q", format)
	}
}

// ParseJSONTranslations flattens a nested JSON object into dot-path keys,
// keeping string leaves only. Keys are sorted at each level so output is
// deterministic. Invalid JSON is an error.
func ParseJSONTranslations(raw []byte) ([]domain.TranslationPair, error) {
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse translation json: %w", err)
	}
	return flattenPairs(parsed, ""), nil
}

func flattenPairs(obj map[string]any, prefix string) []domain.TranslationPair {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var pairs []domain.TranslationPair
	for _, key := range keys {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		switch value := obj[key].(type) {
		case map[string]any:
			pairs = append(pairs, flattenPairs(value, fullKey)...)
		case string:
			pairs = append(pairs, domain.TranslationPair{Key: fullKey, Value: value})
		}
	}
	return pairs
}

// ParseCSVTranslations reads a headered CSV. A "value" column is required;
// the key column is "key" when present, otherwise the first column.
func ParseCSVTranslations(raw []byte) ([]domain.TranslationPair, error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse translation csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("translation csv is empty")
	}

	header := records[0]
	valueIdx := -1
	keyIdx := 0
	for i, field := range header {
		switch strings.TrimSpace(field) {
		case "value":
			valueIdx = i
		case "key":
			keyIdx = i
		}
	}
	if valueIdx == -1 {
		return nil, fmt.Errorf("csv must have a value column, found: %s", strings.Join(header, ", "))
	}

	pairs := make([]domain.TranslationPair, 0, len(records)-1)
	for _, record := range records[1:] {
		pair := domain.TranslationPair{}
		if keyIdx < len(record) {
			pair.Key = record[keyIdx]
		}
		if valueIdx < len(record) {
			pair.Value = record[valueIdx]
		}
		if pair.Key == "" && pair.Value == "" {
			continue
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}
