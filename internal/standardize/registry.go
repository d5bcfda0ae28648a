package standardize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultThreshold: порог уверенности; совпадение засчитывается только при score > порога.
const DefaultThreshold = 80

// Field: каноническое поле и его синонимы (порядок синонимов не важен,
// порядок полей в реестре: вторичный критерий при равных score).
type Field struct {
	Name     string   `yaml:"name" json:"name"`
	Synonyms []string `yaml:"synonyms" json:"synonyms"`
}

// Registry: неизменяемая конфигурация стандартизатора.
type Registry struct {
	Fields    []Field
	Threshold int
	Scorer    Scorer
}

// DefaultRegistry возвращает свежую копию встроенного словаря.
func DefaultRegistry() Registry {
	return Registry{
		Fields: []Field{
			{Name: "sales", Synonyms: []string{"sales", "revenue", "amount", "amt", "total"}},
			{Name: "date", Synonyms: []string{"date", "order_date", "purchase_date", "dt"}},
			{Name: "region", Synonyms: []string{"region", "area", "zone", "territory"}},
			{Name: "product", Synonyms: []string{"product", "item", "sku", "prod"}},
			{Name: "quantity", Synonyms: []string{"quantity", "qty", "count", "quant"}},
			{Name: "customer", Synonyms: []string{"customer", "client", "buyer", "cust"}},
		},
		Threshold: DefaultThreshold,
		Scorer:    Ratio,
	}
}

// registryFile: формат YAML-файла реестра.
type registryFile struct {
	Threshold *int    `yaml:"threshold"`
	Scorer    string  `yaml:"scorer"`
	Fields    []Field `yaml:"fields"`
}

// LoadRegistry читает реестр из YAML:
//
//	threshold: 80
//	scorer: ratio
//	fields:
//	  - name: sales
//	    synonyms: [sales, revenue]
func LoadRegistry(path string) (Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(b)
}

func ParseRegistry(b []byte) (Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Registry{}, fmt.Errorf("parse registry: %w", err)
	}

	reg := Registry{Fields: f.Fields, Threshold: DefaultThreshold}
	if f.Threshold != nil {
		reg.Threshold = *f.Threshold
	}
	scorer, ok := ScorerByName(f.Scorer)
	if !ok {
		return Registry{}, fmt.Errorf("registry: unknown scorer %q", f.Scorer)
	}
	reg.Scorer = scorer

	if err := reg.Validate(); err != nil {
		return Registry{}, err
	}
	return reg, nil
}

// Validate проверяет имена полей и порог. Пустой список синонимов допустим:
// такое поле просто никогда не совпадёт.
func (r Registry) Validate() error {
	if r.Threshold < 0 || r.Threshold > 100 {
		return fmt.Errorf("registry: threshold %d out of [0,100]", r.Threshold)
	}
	seen := make(map[string]struct{}, len(r.Fields))
	for i, f := range r.Fields {
		if f.Name == "" {
			return fmt.Errorf("registry: field #%d has empty name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("registry: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
