package standardize

import (
	"math"

	lev "github.com/texttheater/golang-levenshtein/levenshtein"
)

// Scorer: схожесть двух строк в шкале 0..100 (100 = точное совпадение).
type Scorer func(a, b string) int

// Ratio: indel-отношение (вставка/удаление = 1, замена = 2):
// round(100 * (len(a)+len(b)-dist) / (len(a)+len(b))), как fuzz.ratio.
// Пустая строка с любой стороны даёт 0.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	r := lev.RatioForStrings(ra, rb, lev.DefaultOptions)
	// банковское округление: 80.5 -> 80
	return int(math.RoundToEven(100 * r))
}

// DamerauRatio: нормализованное расстояние Дамерау-Левенштейна (OSA):
// 100 * (1 - d/max(len)).
func DamerauRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	m := len(ra)
	if len(rb) > m {
		m = len(rb)
	}
	d := damerauLevenshtein(ra, rb)
	return int(math.RoundToEven(100 * (1 - float64(d)/float64(m))))
}

func damerauLevenshtein(ra, rb []rune) int {
	al, bl := len(ra), len(rb)

	dp := make([][]int, al+1)
	for i := range dp {
		dp[i] = make([]int, bl+1)
		dp[i][0] = i
	}
	for j := 0; j <= bl; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= al; i++ {
		for j := 1; j <= bl; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			dp[i][j] = min(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)

			// транспозиция соседних символов
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				dp[i][j] = min(dp[i][j], dp[i-2][j-2]+1)
			}
		}
	}
	return dp[al][bl]
}

// ScorerByName: "ratio" (по умолчанию) | "damerau".
func ScorerByName(name string) (Scorer, bool) {
	switch name {
	case "", "ratio":
		return Ratio, true
	case "damerau":
		return DamerauRatio, true
	default:
		return nil, false
	}
}
