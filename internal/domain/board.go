package domain

// Board identifies a leaderboard: the overall board or a single category board.
type Board struct {
	category Category
	overall  bool
}

// OverallBoard ranks users by overall quiz score.
func OverallBoard() Board {
	return Board{overall: true}
}

// CategoryBoard ranks users by their score in one category.
func CategoryBoard(c Category) Board {
	return Board{category: c}
}

// Boards lists the overall board followed by every category board.
func Boards() []Board {
	out := []Board{OverallBoard()}
	for _, c := range Categories() {
		out = append(out, CategoryBoard(c))
	}
	return out
}

// Key is a stable identifier, safe for cache keys.
func (b Board) Key() string {
	if b.overall {
		return "overall"
	}
	return "category:" + b.category.Slug()
}

// Score extracts the score a result contributes to this board. Category boards
// skip results that never answered the category or scored zero in it.
func (b Board) Score(analysis CategoryAnalysis, overall float64) (float64, bool) {
	if b.overall {
		return overall, true
	}
	st, ok := analysis.Get(b.category)
	if !ok || st.Score <= 0 {
		return 0, false
	}
	return st.Score, true
}
