package catalog

var defaultCategories = []Category{
	{Key: "general", Name: "General", Description: "Everyday questions and lookups"},
	{Key: "development", Name: "Development", Description: "Programming and technical support"},
	{Key: "creative", Name: "Creative", Description: "Content creation and design"},
	{Key: "analysis", Name: "Data Analysis", Description: "Data processing and analysis"},
	{Key: "education", Name: "Education", Description: "Tutoring and learning"},
	{Key: "business", Name: "Business", Description: "Business analysis and decision support"},
	{Key: "science", Name: "Science", Description: "Scientific research and experiment support"},
}

var defaultAgents = []Agent{
	{ID: 1, Name: "Q&A Assistant", Description: "Answers common questions in depth", Category: "general", Tags: []string{"q&a", "general"}},
	{ID: 2, Name: "Polyglot", Description: "Translation and multilingual conversation", Category: "general", Tags: []string{"translation", "language"}},
	{ID: 3, Name: "Search Expert", Description: "Finds and organizes information", Category: "general", Tags: []string{"search", "information"}},

	{ID: 4, Name: "Code Expert", Description: "Programming answers and code optimization", Category: "development", Tags: []string{"programming", "code"}},
	{ID: 5, Name: "Architecture Advisor", Description: "System design and technology selection", Category: "development", Tags: []string{"architecture", "design"}},
	{ID: 6, Name: "Debugging Assistant", Description: "Debugging and troubleshooting", Category: "development", Tags: []string{"debugging", "fixes"}},
	{ID: 7, Name: "DevOps Expert", Description: "Deployment, operations and workflow tuning", Category: "development", Tags: []string{"operations", "deployment"}},

	{ID: 8, Name: "Creative Writer", Description: "Copywriting and content generation", Category: "creative", Tags: []string{"writing", "creation"}},
	{ID: 9, Name: "Design Advisor", Description: "UI/UX and visual ideas", Category: "creative", Tags: []string{"design", "visual"}},
	{ID: 10, Name: "Music Composer", Description: "Composition and arrangement suggestions", Category: "creative", Tags: []string{"music", "creation"}},
	{ID: 11, Name: "Visual Creative", Description: "Image editing and visual design", Category: "creative", Tags: []string{"visual", "design"}},

	{ID: 12, Name: "Data Analyst", Description: "Data analysis and visualization", Category: "analysis", Tags: []string{"analysis", "statistics"}},
	{ID: 13, Name: "Business Intelligence", Description: "Business data analysis and decision support", Category: "analysis", Tags: []string{"business", "decisions"}},
	{ID: 14, Name: "Forecasting Model", Description: "Prediction and trend analysis", Category: "analysis", Tags: []string{"forecasting", "trends"}},

	{ID: 15, Name: "Study Mentor", Description: "Personal study plans and tutoring", Category: "education", Tags: []string{"education", "learning"}},
	{ID: 16, Name: "Exam Assistant", Description: "Exam preparation and worked solutions", Category: "education", Tags: []string{"exams", "solutions"}},
	{ID: 17, Name: "Language Teacher", Description: "Language learning and speaking practice", Category: "education", Tags: []string{"language", "learning"}},

	{ID: 18, Name: "Market Analyst", Description: "Market research and competitive analysis", Category: "business", Tags: []string{"market", "analysis"}},
	{ID: 19, Name: "Financial Advisor", Description: "Financial analysis and investment advice", Category: "business", Tags: []string{"finance", "investment"}},
	{ID: 20, Name: "Strategy Planner", Description: "Corporate strategy and growth planning", Category: "business", Tags: []string{"strategy", "planning"}},

	{ID: 21, Name: "Research Assistant", Description: "Research methods and experiment design", Category: "science", Tags: []string{"research", "experiments"}},
	{ID: 22, Name: "Math Expert", Description: "Math problems and derivations", Category: "science", Tags: []string{"math", "derivation"}},
	{ID: 23, Name: "Experiment Designer", Description: "Experiment plans and data analysis", Category: "science", Tags: []string{"experiments", "design"}},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCategories, defaultAgents)
	if err != nil {
		panic("catalog: invalid built-in table: " + err.Error())
	}
	return c
}
