package standardize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRegistryIsFreshCopy(t *testing.T) {
	a := DefaultRegistry()
	a.Fields[0].Synonyms[0] = "changed"
	a.Fields[0].Name = "changed"

	b := DefaultRegistry()
	if b.Fields[0].Name != "sales" || b.Fields[0].Synonyms[0] != "sales" {
		t.Fatalf("default registry shared state: %+v", b.Fields[0])
	}
	if b.Threshold != DefaultThreshold {
		t.Fatalf("threshold = %d", b.Threshold)
	}
}

func TestParseRegistry(t *testing.T) {
	src := `
threshold: 70
scorer: damerau
fields:
  - name: price
    synonyms: [price, cost, unit_price]
  - name: sku
    synonyms: []
`
	reg, err := ParseRegistry([]byte(src))
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	if reg.Threshold != 70 {
		t.Errorf("threshold = %d", reg.Threshold)
	}
	if len(reg.Fields) != 2 || reg.Fields[0].Name != "price" || len(reg.Fields[0].Synonyms) != 3 {
		t.Errorf("fields = %+v", reg.Fields)
	}
	if reg.Scorer == nil || reg.Scorer("abcd", "abdc") != 75 {
		t.Errorf("scorer is not damerau")
	}
}

func TestParseRegistryDefaults(t *testing.T) {
	reg, err := ParseRegistry([]byte("fields:\n  - name: sales\n    synonyms: [revenue]\n"))
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	if reg.Threshold != DefaultThreshold {
		t.Errorf("threshold = %d", reg.Threshold)
	}
	if reg.Scorer("kitten", "sitting") != 62 {
		t.Errorf("default scorer is not ratio")
	}
}

func TestParseRegistryErrors(t *testing.T) {
	tests := map[string]struct {
		src  string
		want string
	}{
		"bad yaml":        {"fields: [", "parse registry"},
		"unknown scorer":  {"scorer: jaro\n", "unknown scorer"},
		"threshold range": {"threshold: 101\n", "out of [0,100]"},
		"empty name":      {"fields:\n  - synonyms: [a]\n", "empty name"},
		"duplicate":       {"fields:\n  - name: a\n  - name: a\n", "duplicate field"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	if err := os.WriteFile(path, []byte("fields:\n  - name: region\n    synonyms: [zone]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	out, _ := New(reg).Standardize(tableOf("Zone"))
	if out.Columns[0] != "region" {
		t.Fatalf("columns = %v", out.Columns)
	}

	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
