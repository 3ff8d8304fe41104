package validate

import "sort"

// Submission is one player's answer for a round, as recorded by the flow
// coordinator when it arrived.
type Submission struct {
	PlayerID    string `json:"playerId"`
	Answer      any    `json:"answer"`
	TimeSpentMs int64  `json:"timeSpent"`
	Order       int    `json:"order"` // 1-based arrival order, breaks exact-time ties
}

// Result is the graded outcome for one submission. Placement is 1-based among
// correct answers only; 0 means unranked (incorrect or absent).
type Result struct {
	PlayerID    string `json:"playerId"`
	Correct     bool   `json:"isCorrect"`
	Placement   int    `json:"placement,omitempty"`
	Points      int    `json:"points"`
	TimeSpentMs int64  `json:"timeSpent"`
	Answer      any    `json:"answer,omitempty"`
}

// Key is the expected answer for one player (answers differ per player when
// questions are tiered by age).
type Key struct {
	Answer  any
	Type    AnswerType
	Options Options
}

// RoundConfig carries the answer key for a round. PerPlayer entries override
// Default for that player.
type RoundConfig struct {
	Default   Key
	PerPlayer map[string]Key
}

func (rc RoundConfig) keyFor(playerID string) Key {
	if k, ok := rc.PerPlayer[playerID]; ok {
		return k
	}
	return rc.Default
}

// Placements assigns 1-based ranks to correct submissions, fastest first.
// Incorrect submissions get rank 0. Ties in elapsed time keep arrival order
// (the sort is stable over the input order).
func Placements(subs []Submission, correct func(Submission) bool) map[string]int {
	ranked := make([]Submission, 0, len(subs))
	for _, s := range subs {
		if correct(s) {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TimeSpentMs < ranked[j].TimeSpentMs
	})
	placements := make(map[string]int, len(ranked))
	for i, s := range ranked {
		placements[s.PlayerID] = i + 1
	}
	return placements
}

// Points awards podium-style scores: 30/20/10 for first/second/everyone else,
// independent of room size. Incorrect or unranked answers score zero.
func Points(correct bool, placement int) int {
	if !correct || placement < 1 {
		return 0
	}
	switch placement {
	case 1:
		return 30
	case 2:
		return 20
	default:
		return 10
	}
}

// Grade runs validation, placement, and point calculation over a round's
// submissions in one pass. Deterministic given input order and timestamps.
func Grade(subs []Submission, cfg RoundConfig) []Result {
	graded := make(map[string]bool, len(subs))
	for _, s := range subs {
		k := cfg.keyFor(s.PlayerID)
		graded[s.PlayerID] = Answer(s.Answer, k.Answer, k.Type, k.Options)
	}
	placements := Placements(subs, func(s Submission) bool { return graded[s.PlayerID] })

	results := make([]Result, 0, len(subs))
	for _, s := range subs {
		correct := graded[s.PlayerID]
		placement := placements[s.PlayerID]
		results = append(results, Result{
			PlayerID:    s.PlayerID,
			Correct:     correct,
			Placement:   placement,
			Points:      Points(correct, placement),
			TimeSpentMs: s.TimeSpentMs,
			Answer:      s.Answer,
		})
	}
	return results
}

// SectionStars awards one star per question group in which any player answered
// correctly. Groups are keyed explicitly by round-in-section index rather than
// inferred from slice length. Passing requires every group to earn its star.
func SectionStars(groups [][]Result) (stars int, passed bool) {
	for _, group := range groups {
		for _, r := range group {
			if r.Correct {
				stars++
				break
			}
		}
	}
	return stars, stars == len(groups) && len(groups) > 0
}
