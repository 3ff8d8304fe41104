package flow

import (
	"sort"

	"github.com/Seednode/questparty/internal/questions"
	"github.com/Seednode/questparty/internal/validate"
)

// enterChallenge clears the round's submissions, attaches the scheduled
// challenge, and either starts a mini-game or deals tiered questions with
// the challenge timer armed.
func (c *Coordinator) enterChallenge() {
	c.submissions = make(map[string]validate.Submission, len(c.players))
	c.submitOrder = 0
	c.pendingResults = nil
	c.challengeKind = questions.KindForRound(c.round)

	if c.challengeKind.IsMiniGame() {
		c.startMiniGame(c.challengeKind)
		return
	}

	difficulty := questions.DifficultyForSection(c.section)
	c.questionByTier = make(map[questions.Tier]questions.Question)
	views := make(map[string]QuestionView, len(c.players))
	for _, p := range c.players {
		tier := c.playerTiers[p.ID]
		q, ok := c.questionByTier[tier]
		if !ok {
			q = questions.Generate(c.rng, c.challengeKind, tier, difficulty)
			c.questionByTier[tier] = q
		}
		views[p.ID] = QuestionView{
			Kind:    q.Kind,
			Tier:    q.Tier,
			Prompt:  q.Prompt,
			Choices: q.Choices,
		}
	}

	c.sink.Broadcast(ChallengeStarted{
		Type:       MsgChallengeStarted,
		Kind:       c.challengeKind,
		Round:      c.round,
		Section:    c.section,
		DurationMs: c.cfg.Durations.Challenge.Milliseconds(),
		Questions:  views,
	})
	c.armTimer(c.cfg.Durations.Challenge, StateChallengeActive)
}

// RecordSubmission stores a player's answer for the active quiz round and
// reports whether every expected player has now submitted. A second
// submission in the same round is rejected with no state change.
func (c *Coordinator) RecordSubmission(playerID string, answer any, timeSpentMs int64) (bool, error) {
	if c.state != StateChallengeActive || c.challengeKind.IsMiniGame() {
		return false, ErrNotInChallenge
	}
	if _, ok := c.playerTiers[playerID]; !ok {
		return false, ErrUnknownPlayer
	}
	if _, ok := c.submissions[playerID]; ok {
		return false, ErrAlreadySubmitted
	}

	c.submitOrder++
	c.submissions[playerID] = validate.Submission{
		PlayerID:    playerID,
		Answer:      answer,
		TimeSpentMs: timeSpentMs,
		Order:       c.submitOrder,
	}
	c.sink.Broadcast(AnswerSubmitted{Type: MsgAnswerSubmitted, PlayerID: playerID})

	if c.allSubmitted() {
		c.TriggerEarlyAdvance()
		return true, nil
	}
	return false, nil
}

func (c *Coordinator) allSubmitted() bool {
	return len(c.submissions) >= len(c.players)
}

// TriggerEarlyAdvance replaces the challenge timer with a short grace delay
// so the final submission is visible before results, rather than advancing
// instantly.
func (c *Coordinator) TriggerEarlyAdvance() {
	if c.state != StateChallengeActive {
		return
	}
	c.armTimer(c.cfg.Durations.EarlyAdvanceGrace, StateChallengeActive)
}

// enterResults grades the round (or adopts a mini-game's precomputed
// results), applies points to the score table, files the results under the
// round's group index for star computation, and broadcasts.
func (c *Coordinator) enterResults() {
	// A round force-graded by the cap timer may still have engines running.
	c.stopEngines()

	results := c.pendingResults
	c.pendingResults = nil
	if results == nil {
		results = c.gradeQuiz()
	}

	for _, r := range results {
		c.scores[r.PlayerID] += r.Points
	}
	c.sectionResults[questions.RoundInSection(c.round)] = results

	c.sink.Broadcast(ChallengeResults{
		Type:    MsgChallengeResults,
		Round:   c.round,
		Results: results,
		Scores:  c.Scores(),
	})
	c.sink.Broadcast(Scoreboard{
		Type:       MsgScoreboard,
		Scores:     c.Scores(),
		Placements: scorePlacements(c.scores),
	})
	c.armTimer(c.cfg.Durations.Results, StateChallengeResults)
}

// gradeQuiz grades whatever arrived, in arrival order, then fills in absent
// players as incorrect so every roster member has a result.
func (c *Coordinator) gradeQuiz() []validate.Result {
	subs := make([]validate.Submission, 0, len(c.submissions))
	for _, s := range c.submissions {
		subs = append(subs, s)
	}
	// Arrival order, the documented tiebreak for equal elapsed times.
	sort.Slice(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })

	cfg := validate.RoundConfig{PerPlayer: make(map[string]validate.Key, len(c.players))}
	for _, p := range c.players {
		cfg.PerPlayer[p.ID] = c.questionByTier[c.playerTiers[p.ID]].Key()
	}

	results := c.gradeAbsent(validate.Grade(subs, cfg))
	return results
}

// gradeAbsent appends zero-point results for roster members who never
// submitted.
func (c *Coordinator) gradeAbsent(results []validate.Result) []validate.Result {
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.PlayerID] = true
	}
	for _, p := range c.players {
		if !seen[p.ID] {
			results = append(results, validate.Result{PlayerID: p.ID})
		}
	}
	return results
}

// enterSectionComplete counts the finished section, computes its stars from
// the explicitly-grouped round results, and resets the groups for the next
// section.
func (c *Coordinator) enterSectionComplete() {
	c.completedSections++

	stars, passed := validate.SectionStars(c.sectionResults)
	c.sink.Broadcast(SectionStarsMsg{
		Type:    MsgSectionStars,
		Section: c.section,
		Stars:   stars,
		Passed:  passed,
		Scores:  c.Scores(),
	})
	c.sectionResults = make([][]validate.Result, questions.RoundsPerSect)

	c.armTimer(c.cfg.Durations.Celebration, StateSectionComplete)
}
