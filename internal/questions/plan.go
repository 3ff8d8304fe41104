package questions

// Round planning: 15 rounds in 5 sections of 3. The first two rounds of each
// section are quiz rounds, the third is a mini-game.

const (
	TotalRounds   = 15
	RoundsPerSect = 3
	TotalSections = TotalRounds / RoundsPerSect
)

// SectionFor derives the 1-based section number from a 1-based round number.
func SectionFor(round int) int {
	return (round-1)/RoundsPerSect + 1
}

// FirstInSection reports whether the round opens its section.
func FirstInSection(round int) bool {
	return (round-1)%RoundsPerSect == 0
}

// LastInSection reports whether the round closes its section.
func LastInSection(round int) bool {
	return round%RoundsPerSect == 0
}

// RoundInSection returns the 0-based position of a round inside its section.
func RoundInSection(round int) int {
	return (round - 1) % RoundsPerSect
}

var quizRotation = []Kind{KindMath, KindTrivia, KindTrueFalse, KindSpelling}

var miniGameRotation = []Kind{KindSnake, KindConnect4, KindMemory, KindSnake, KindConnect4}

// KindForRound returns the challenge kind scheduled for a 1-based round.
// Quiz kinds rotate across the ten quiz rounds; mini-games rotate across the
// five section-closing rounds.
func KindForRound(round int) Kind {
	if LastInSection(round) {
		return miniGameRotation[(SectionFor(round)-1)%len(miniGameRotation)]
	}
	quizIndex := (SectionFor(round)-1)*2 + RoundInSection(round)
	return quizRotation[quizIndex%len(quizRotation)]
}

// DifficultyForSection ramps question difficulty as sections progress.
func DifficultyForSection(section int) Difficulty {
	switch {
	case section <= 2:
		return Easy
	case section <= 4:
		return Medium
	default:
		return Hard
	}
}
