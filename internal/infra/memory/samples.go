package memory

import "chase-duel-service/internal/domain"

// SampleQuizID is the built-in quiz served when no question store is configured.
const SampleQuizID = "general-knowledge"

// SampleQuizzes provides a built-in question bank; swap this loader with the
// Postgres-backed one in production.
func SampleQuizzes() map[string]domain.Quiz {
	q := func(id, prompt string, correct int, options ...string) domain.Question {
		var opts [domain.OptionCount]string
		copy(opts[:], options)
		return domain.Question{ID: id, Prompt: prompt, Options: opts, Correct: correct}
	}
	return map[string]domain.Quiz{
		SampleQuizID: {
			ID:    SampleQuizID,
			Title: "General knowledge",
			Questions: []domain.Question{
				q("gk-01", "What is the capital of Australia?", 2, "Sydney", "Melbourne", "Canberra", "Perth"),
				q("gk-02", "How many sides does a hexagon have?", 1, "Five", "Six", "Seven", "Eight"),
				q("gk-03", "Which planet is known as the Red Planet?", 0, "Mars", "Venus", "Jupiter", "Mercury"),
				q("gk-04", "What is the chemical symbol for gold?", 3, "Go", "Gd", "Ag", "Au"),
				q("gk-05", "Who painted the Mona Lisa?", 1, "Michelangelo", "Leonardo da Vinci", "Raphael", "Donatello"),
				q("gk-06", "What is the largest ocean on Earth?", 2, "Atlantic", "Indian", "Pacific", "Arctic"),
				q("gk-07", "How many minutes are in a day?", 0, "1440", "1200", "1680", "960"),
				q("gk-08", "Which gas do plants absorb from the air?", 3, "Oxygen", "Nitrogen", "Helium", "Carbon dioxide"),
				q("gk-09", "In which year did the Berlin Wall fall?", 1, "1987", "1989", "1991", "1993"),
				q("gk-10", "What is the smallest prime number?", 0, "2", "1", "3", "5"),
				q("gk-11", "Which instrument has 88 keys?", 2, "Organ", "Harpsichord", "Piano", "Accordion"),
				q("gk-12", "What is the longest river in South America?", 1, "Paraná", "Amazon", "Orinoco", "Magdalena"),
				q("gk-13", "How many players are on a football (soccer) team on the pitch?", 3, "Nine", "Ten", "Twelve", "Eleven"),
				q("gk-14", "Which element has atomic number 1?", 0, "Hydrogen", "Helium", "Lithium", "Carbon"),
				q("gk-15", "What is the boiling point of water at sea level in Celsius?", 2, "90", "95", "100", "110"),
				q("gk-16", "Which country gifted the Statue of Liberty to the USA?", 1, "Spain", "France", "United Kingdom", "Italy"),
			},
		},
	}
}
