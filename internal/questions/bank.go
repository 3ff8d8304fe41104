package questions

// Built-in question banks, one slice per tier. The narrative content pack can
// replace these wholesale; the generators only care about the shapes.

type triviaItem struct {
	prompt  string
	choices []string
	answer  string
}

type trueFalseItem struct {
	prompt string
	answer bool
}

var triviaBank = map[Tier][]triviaItem{
	TierYoung: {
		{"What color is the sky on a clear day?", []string{"blue", "green", "red", "purple"}, "blue"},
		{"How many legs does a spider have?", []string{"8", "6", "4", "10"}, "8"},
		{"Which animal says moo?", []string{"cow", "dog", "cat", "duck"}, "cow"},
		{"What shape has three sides?", []string{"triangle", "square", "circle", "star"}, "triangle"},
		{"Which of these is a fruit?", []string{"apple", "carrot", "potato", "onion"}, "apple"},
	},
	TierMiddle: {
		{"Which planet is known as the Red Planet?", []string{"mars", "venus", "jupiter", "mercury"}, "mars"},
		{"How many continents are there?", []string{"7", "5", "6", "8"}, "7"},
		{"What gas do plants breathe in?", []string{"carbon dioxide", "oxygen", "nitrogen", "helium"}, "carbon dioxide"},
		{"Which ocean is the largest?", []string{"pacific", "atlantic", "indian", "arctic"}, "pacific"},
		{"How many sides does a hexagon have?", []string{"6", "5", "7", "8"}, "6"},
	},
	TierTeen: {
		{"What is the chemical symbol for gold?", []string{"au", "ag", "go", "gd"}, "au"},
		{"Which country has the largest population?", []string{"india", "china", "usa", "indonesia"}, "india"},
		{"In what year did the first moon landing happen?", []string{"1969", "1959", "1972", "1965"}, "1969"},
		{"What is the square root of 144?", []string{"12", "14", "11", "13"}, "12"},
		{"Which artist painted the Mona Lisa?", []string{"da vinci", "van gogh", "picasso", "monet"}, "da vinci"},
	},
}

var trueFalseBank = map[Tier][]trueFalseItem{
	TierYoung: {
		{"Fish can breathe underwater.", true},
		{"The sun comes out at night.", false},
		{"Dogs can fly.", false},
		{"Ice is frozen water.", true},
	},
	TierMiddle: {
		{"Lightning is hotter than the surface of the sun.", true},
		{"A spider is an insect.", false},
		{"Sound travels faster than light.", false},
		{"The Great Wall of China is longer than 10,000 km.", true},
	},
	TierTeen: {
		{"The human body has more than 200 bones.", true},
		{"Mount Everest is the tallest mountain measured from base to peak.", false},
		{"Octopuses have three hearts.", true},
		{"Gold is magnetic.", false},
	},
}

var spellingBank = map[Tier][]string{
	TierYoung:  {"cat", "frog", "star", "milk", "jump"},
	TierMiddle: {"planet", "castle", "bridge", "winter", "rocket"},
	TierTeen:   {"mystery", "triangle", "adventure", "chemistry", "dinosaur"},
}
