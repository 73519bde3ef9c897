package services

import "strik-trivia/models"

// DefaultQuestions is the built-in bank used when no QUESTIONS_FILE is configured.
func DefaultQuestions() []models.Question {
	return []models.Question{
		{
			ID:   "1",
			Text: "Name a player who has played with Cristiano Ronaldo at Real Madrid",
			AcceptedAnswers: []string{
				"sergio ramos", "ramos", "luka modric", "modric", "gareth bale", "bale",
				"karim benzema", "benzema", "toni kroos", "kroos", "marcelo", "casemiro",
				"isco", "james rodriguez", "james", "pepe", "xabi alonso", "alonso",
			},
			Difficulty: models.DifficultyEasy,
			Category:   "Real Madrid",
			TimeLimit:  30,
			Hint:       "Think of famous Real Madrid players from 2009-2018",
		},
		{
			ID:   "2",
			Text: "Name a player who has won the World Cup with Brazil",
			AcceptedAnswers: []string{
				"ronaldinho", "kaka", "roberto carlos", "cafu", "ronaldo nazario", "ronaldo",
				"rivaldo", "romario", "bebeto", "dunga", "taffarel", "jorginho", "zico",
				"socrates", "falcao", "cerezo", "junior", "oscar", "lucio", "gilberto silva",
			},
			Difficulty: models.DifficultyMedium,
			Category:   "World Cup",
			TimeLimit:  25,
			Hint:       "Brazil won the World Cup in 1958, 1962, 1970, 1994, and 2002",
		},
		{
			ID:   "3",
			Text: "Name a defender who has played in both the Premier League and Serie A",
			AcceptedAnswers: []string{
				"giorgio chiellini", "chiellini", "andrea barzagli", "barzagli", "patrice evra", "evra",
				"ashley cole", "cole", "gael clichy", "clichy", "bacary sagna", "sagna",
				"mario balotelli", "balotelli", "carlos tevez", "tevez", "paul pogba", "pogba",
			},
			Difficulty: models.DifficultyHard,
			Category:   "Transfers",
			TimeLimit:  20,
			Hint:       "Think of players who moved between English and Italian football",
		},
		{
			ID:   "4",
			Text: "Name a player who scored in a Champions League final",
			AcceptedAnswers: []string{
				"lionel messi", "messi", "cristiano ronaldo", "ronaldo", "gareth bale", "bale",
				"sergio ramos", "ramos", "mario mandzukic", "mandzukic", "mo salah", "salah",
				"sadio mane", "mane", "divock origi", "origi", "samuel etoo", "etoo",
				"thierry henry", "henry", "david villa", "villa", "pedro", "xavi", "iniesta",
			},
			Difficulty: models.DifficultyMedium,
			Category:   "Champions League",
			TimeLimit:  25,
			Hint:       "Many different players have scored in Champions League finals",
		},
		{
			ID:   "5",
			Text: "Name a goalkeeper who has played for Manchester United",
			AcceptedAnswers: []string{
				"david de gea", "de gea", "andre onana", "onana", "dean henderson", "henderson",
				"edwin van der sar", "van der sar", "peter schmeichel", "schmeichel",
				"alex stepney", "stepney", "harry gregg", "gregg", "sergio romero", "romero",
			},
			Difficulty: models.DifficultyEasy,
			Category:   "Manchester United",
			TimeLimit:  30,
			Hint:       "Think of current and former Manchester United goalkeepers",
		},
		{
			ID:   "6",
			Text: "Name a player who has played for both Barcelona and PSG",
			AcceptedAnswers: []string{
				"neymar", "neymar jr", "lionel messi", "messi", "dani alves", "alves",
				"maxwell", "javier pastore", "pastore", "lucas digne", "digne",
				"rafinha", "sergi roberto", "roberto",
			},
			Difficulty: models.DifficultyMedium,
			Category:   "Transfers",
			TimeLimit:  25,
			Hint:       "Several high-profile transfers have happened between these clubs",
		},
		{
			ID:   "7",
			Text: "Name a striker who has scored over 100 goals in their career",
			AcceptedAnswers: []string{
				"lionel messi", "messi", "cristiano ronaldo", "ronaldo", "robert lewandowski", "lewandowski",
				"karim benzema", "benzema", "harry kane", "kane", "sergio aguero", "aguero",
				"zlatan ibrahimovic", "ibrahimovic", "thierry henry", "henry", "david villa", "villa",
				"francesco totti", "totti", "gerd muller", "muller", "pele", "diego maradona", "maradona",
			},
			Difficulty: models.DifficultyEasy,
			Category:   "Goal Scorers",
			TimeLimit:  30,
			Hint:       "Many world-class strikers have achieved this milestone",
		},
		{
			ID:   "8",
			Text: "Name a player who has won the Ballon d'Or",
			AcceptedAnswers: []string{
				"lionel messi", "messi", "cristiano ronaldo", "ronaldo", "luka modric", "modric",
				"kaka", "ronaldinho", "zinedine zidane", "zidane", "rivaldo", "ronaldo nazario",
				"michael owen", "owen", "luis figo", "figo", "roberto baggio", "baggio",
				"jean-pierre papin", "papin", "karim benzema", "benzema",
			},
			Difficulty: models.DifficultyMedium,
			Category:   "Awards",
			TimeLimit:  25,
			Hint:       "The most prestigious individual award in football",
		},
		{
			ID:   "9",
			Text: "Name a player who has captained their national team",
			AcceptedAnswers: []string{
				"lionel messi", "messi", "cristiano ronaldo", "ronaldo", "sergio ramos", "ramos",
				"virgil van dijk", "van dijk", "harry kane", "kane", "kylian mbappe", "mbappe",
				"manuel neuer", "neuer", "giorgio chiellini", "chiellini", "thiago silva", "silva",
				"luka modric", "modric", "eden hazard", "hazard", "kevin de bruyne", "de bruyne",
			},
			Difficulty: models.DifficultyEasy,
			Category:   "National Teams",
			TimeLimit:  30,
			Hint:       "Many star players captain their countries",
		},
		{
			ID:   "10",
			Text: "Name a player who has played in the Premier League, La Liga, and Serie A",
			AcceptedAnswers: []string{
				"angel di maria", "di maria", "carlos tevez", "tevez", "alvaro morata", "morata",
				"pedro", "cesc fabregas", "fabregas", "andrea pirlo", "pirlo", "frank lampard", "lampard",
				"fernando torres", "torres", "diego costa", "costa",
			},
			Difficulty: models.DifficultyHard,
			Category:   "Transfers",
			TimeLimit:  20,
			Hint:       "Very few players have played in all three of these top leagues",
		},
	}
}
