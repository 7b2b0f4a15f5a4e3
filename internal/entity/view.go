package entity

// Move is one entry of the history list offered to the player.
type Move struct {
	Step    int    `json:"step"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
}

// View is everything a presentation layer needs to render a game.
type View struct {
	ID          string  `json:"id"`
	Board       Board   `json:"board"`
	Outcome     Outcome `json:"outcome"`
	Status      string  `json:"status"`
	NextPlayer  Cell    `json:"next_player,omitempty"`
	CurrentStep int     `json:"current_step"`
	Moves       []Move  `json:"moves"`
}

// IsWinningCell reports whether cell belongs to the winning line.
func (that View) IsWinningCell(cell int) bool {
	if that.Outcome.Line == nil {
		return false
	}

	for _, idx := range that.Outcome.Line {
		if idx == cell {
			return true
		}
	}

	return false
}
