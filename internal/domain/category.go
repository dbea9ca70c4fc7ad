package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is one of the closed set of quiz categories.
type Category int

const (
	CategoryFourCharIdiom Category = iota
	CategoryClassicalIdiom
	CategoryGrammar
	CategoryReading
	CategoryVocabulary

	numCategories
)

var categoryLabels = [numCategories]string{
	CategoryFourCharIdiom:  "사자성어",
	CategoryClassicalIdiom: "고사성어",
	CategoryGrammar:        "문법",
	CategoryReading:        "독해",
	CategoryVocabulary:     "어휘",
}

var categorySlugs = [numCategories]string{
	CategoryFourCharIdiom:  "four_char_idiom",
	CategoryClassicalIdiom: "classical_idiom",
	CategoryGrammar:        "grammar",
	CategoryReading:        "reading",
	CategoryVocabulary:     "vocabulary",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory accepts either the Korean label or the ASCII slug.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	for c := Category(0); c < numCategories; c++ {
		if raw == categoryLabels[c] || strings.EqualFold(raw, categorySlugs[c]) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidCategory, raw)
}

// Valid reports whether c is a member of the category set.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

// String returns the Korean label.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryLabels[c]
}

// Slug returns the ASCII identifier used in cache keys and URLs.
func (c Category) Slug() string {
	if !c.Valid() {
		return ""
	}
	return categorySlugs[c]
}

func (c Category) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(c))
	}
	return json.Marshal(categoryLabels[c])
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseCategory(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CategoryStat accumulates answers for one category.
type CategoryStat struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Score   float64 `json:"score"`
}

// CategoryAnalysis holds one stat per category. A category with Total == 0 is
// treated as absent, both by Get and by the JSON encoding.
type CategoryAnalysis struct {
	stats [numCategories]CategoryStat
}

// Record folds one answer into the analysis and refreshes that category's score.
func (a *CategoryAnalysis) Record(c Category, correct bool) {
	if !c.Valid() {
		return
	}
	st := &a.stats[c]
	st.Total++
	if correct {
		st.Correct++
	}
	st.Score = percent(st.Correct, st.Total)
}

// Set overwrites the stat for a category. Used when decoding stored results.
func (a *CategoryAnalysis) Set(c Category, st CategoryStat) {
	if c.Valid() {
		a.stats[c] = st
	}
}

// Get returns the stat for c and whether the category was answered at all.
func (a CategoryAnalysis) Get(c Category) (CategoryStat, bool) {
	if !c.Valid() || a.stats[c].Total == 0 {
		return CategoryStat{}, false
	}
	return a.stats[c], true
}

// Present lists answered categories in declaration order.
func (a CategoryAnalysis) Present() []Category {
	var out []Category
	for c := Category(0); c < numCategories; c++ {
		if a.stats[c].Total > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (a CategoryAnalysis) MarshalJSON() ([]byte, error) {
	m := make(map[string]CategoryStat, numCategories)
	for _, c := range a.Present() {
		m[c.String()] = a.stats[c]
	}
	return json.Marshal(m)
}

func (a *CategoryAnalysis) UnmarshalJSON(data []byte) error {
	var m map[string]CategoryStat
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*a = CategoryAnalysis{}
	for label, st := range m {
		c, err := ParseCategory(label)
		if err != nil {
			return err
		}
		a.stats[c] = st
	}
	return nil
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// MarshalText lets categories key JSON objects by their label.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(c))
	}
	return []byte(categoryLabels[c]), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
