// Age-tiered question generation for quiz rounds.
//
// Generators are deterministic given the provided *rand.Rand; the flow
// coordinator seeds one PRNG per room so rounds are reproducible in tests.
package questions

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Seednode/questparty/internal/validate"
)

// Tier is the age bracket used to scale difficulty fairly across a room.
type Tier string

const (
	TierYoung  Tier = "young"  // 7 and under
	TierMiddle Tier = "middle" // 8-12
	TierTeen   Tier = "teen"   // 13 and up
)

// TierForAge maps a player's age onto a difficulty tier.
func TierForAge(age int) Tier {
	switch {
	case age <= 7:
		return TierYoung
	case age <= 12:
		return TierMiddle
	default:
		return TierTeen
	}
}

// Difficulty scales operand ranges within a tier as the game progresses.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Kind identifies what kind of challenge a round runs.
type Kind string

const (
	KindMath      Kind = "speed-math"
	KindTrivia    Kind = "trivia"
	KindTrueFalse Kind = "true-false"
	KindSpelling  Kind = "spelling"
	KindSnake     Kind = "snake"
	KindConnect4  Kind = "connect4"
	KindMemory    Kind = "memory"
)

// IsMiniGame reports whether the kind is a real-time mini-game rather than a
// graded quiz round.
func (k Kind) IsMiniGame() bool {
	return k == KindSnake || k == KindConnect4 || k == KindMemory
}

// Question is one generated challenge for one tier. The answer key never
// leaves the server: only Prompt/Choices are serialized to clients.
type Question struct {
	Kind    Kind     `json:"kind"`
	Tier    Tier     `json:"tier"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`

	Answer  any                 `json:"-"`
	Type    validate.AnswerType `json:"-"`
	Options validate.Options    `json:"-"`
}

// Key returns the validator key for grading answers to this question.
func (q Question) Key() validate.Key {
	return validate.Key{Answer: q.Answer, Type: q.Type, Options: q.Options}
}

// Generate produces a question of the given kind for one tier. Mini-game
// kinds have no per-player question and panic if requested here.
func Generate(rng *rand.Rand, kind Kind, tier Tier, difficulty Difficulty) Question {
	switch kind {
	case KindMath:
		return Math(rng, tier, difficulty)
	case KindTrivia:
		return Trivia(rng, tier)
	case KindTrueFalse:
		return TrueFalse(rng, tier)
	case KindSpelling:
		return Spelling(rng, tier)
	default:
		panic(fmt.Sprintf("questions: no generator for kind %q", kind))
	}
}

// Math produces an arithmetic question. Young/easy stays in single-digit
// addition (sums below 10); ranges widen with tier and difficulty.
func Math(rng *rand.Rand, tier Tier, difficulty Difficulty) Question {
	var prompt string
	var answer int

	switch tier {
	case TierYoung:
		switch difficulty {
		case Easy:
			// Sum strictly below 10.
			a := 1 + rng.Intn(8)
			b := 1 + rng.Intn(9-a)
			prompt, answer = fmt.Sprintf("%d + %d", a, b), a+b
		case Medium:
			a := 1 + rng.Intn(19)
			b := 1 + rng.Intn(19)
			prompt, answer = fmt.Sprintf("%d + %d", a, b), a+b
		default:
			a := 5 + rng.Intn(15)
			b := 1 + rng.Intn(a)
			prompt, answer = fmt.Sprintf("%d - %d", a, b), a-b
		}
	case TierMiddle:
		switch difficulty {
		case Easy:
			a := 5 + rng.Intn(45)
			b := 5 + rng.Intn(45)
			prompt, answer = fmt.Sprintf("%d + %d", a, b), a+b
		case Medium:
			a := 2 + rng.Intn(10)
			b := 2 + rng.Intn(10)
			prompt, answer = fmt.Sprintf("%d × %d", a, b), a*b
		default:
			a := 20 + rng.Intn(80)
			b := 1 + rng.Intn(19)
			prompt, answer = fmt.Sprintf("%d - %d", a, b), a-b
		}
	default: // TierTeen
		switch difficulty {
		case Easy:
			a := 3 + rng.Intn(10)
			b := 3 + rng.Intn(10)
			prompt, answer = fmt.Sprintf("%d × %d", a, b), a*b
		case Medium:
			b := 2 + rng.Intn(11)
			q := 2 + rng.Intn(11)
			prompt, answer = fmt.Sprintf("%d ÷ %d", b*q, b), q
		default:
			a := 11 + rng.Intn(14)
			b := 11 + rng.Intn(14)
			prompt, answer = fmt.Sprintf("%d × %d", a, b), a*b
		}
	}

	return Question{
		Kind:   KindMath,
		Tier:   tier,
		Prompt: prompt,
		Answer: float64(answer),
		Type:   validate.TypeNumber,
	}
}

// Trivia picks a multiple-choice question from the tier's bank and shuffles
// the choice order.
func Trivia(rng *rand.Rand, tier Tier) Question {
	bank := triviaBank[tier]
	item := bank[rng.Intn(len(bank))]

	choices := make([]string, len(item.choices))
	copy(choices, item.choices)
	rng.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	return Question{
		Kind:    KindTrivia,
		Tier:    tier,
		Prompt:  item.prompt,
		Choices: choices,
		Answer:  item.answer,
		Type:    validate.TypeMultipleChoice,
	}
}

// TrueFalse alternates between bank statements and generated arithmetic
// claims (correct half the time, off by a small delta otherwise).
func TrueFalse(rng *rand.Rand, tier Tier) Question {
	if rng.Intn(2) == 0 {
		bank := trueFalseBank[tier]
		item := bank[rng.Intn(len(bank))]
		return Question{
			Kind:    KindTrueFalse,
			Tier:    tier,
			Prompt:  item.prompt,
			Choices: []string{"true", "false"},
			Answer:  item.answer,
			Type:    validate.TypeBoolean,
		}
	}

	a := 2 + rng.Intn(8)
	b := 2 + rng.Intn(8)
	if tier != TierYoung {
		a += rng.Intn(20)
		b += rng.Intn(20)
	}
	sum := a + b
	truth := rng.Intn(2) == 0
	if !truth {
		delta := 1 + rng.Intn(3)
		if rng.Intn(2) == 0 {
			delta = -delta
		}
		sum += delta
	}

	return Question{
		Kind:    KindTrueFalse,
		Tier:    tier,
		Prompt:  fmt.Sprintf("%d + %d = %d", a, b, sum),
		Choices: []string{"true", "false"},
		Answer:  truth,
		Type:    validate.TypeBoolean,
	}
}

// Spelling presents a scrambled word; the answer is the unscrambled word,
// graded with fuzzy matching off so spelling actually counts.
func Spelling(rng *rand.Rand, tier Tier) Question {
	bank := spellingBank[tier]
	word := bank[rng.Intn(len(bank))]

	return Question{
		Kind:   KindSpelling,
		Tier:   tier,
		Prompt: scramble(rng, word),
		Answer: word,
		Type:   validate.TypeText,
	}
}

// scramble shuffles the word's letters, retrying a few times so the prompt
// is not the word itself.
func scramble(rng *rand.Rand, word string) string {
	letters := strings.Split(word, "")
	for attempt := 0; attempt < 10; attempt++ {
		rng.Shuffle(len(letters), func(i, j int) {
			letters[i], letters[j] = letters[j], letters[i]
		})
		if s := strings.Join(letters, ""); s != word {
			return s
		}
	}
	return strings.Join(letters, "")
}
