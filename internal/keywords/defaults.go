package keywords

// defaultStopwords covers English function words plus the filler that job
// postings are full of. Domain nouns such as "experience" or "developer" are
// left in on purpose: they are legitimate requirements.
var defaultStopwords = []string{
	// articles, determiners
	"a", "an", "the", "this", "that", "these", "those", "each", "every", "any", "all", "some",
	"such", "other", "another", "both", "either", "neither", "no", "not", "nor", "only", "own", "same",
	// pronouns
	"i", "me", "my", "mine", "we", "us", "our", "ours", "you", "your", "yours", "he", "him", "his",
	"she", "her", "hers", "it", "its", "they", "them", "their", "theirs", "who", "whom", "whose",
	"which", "what", "whatever", "whoever", "someone", "anyone", "everyone",
	// prepositions
	"about", "above", "across", "after", "against", "along", "among", "around", "at", "before",
	"behind", "below", "beneath", "beside", "between", "beyond", "by", "down", "during", "except",
	"for", "from", "in", "inside", "into", "like", "near", "of", "off", "on", "onto", "out", "outside",
	"over", "per", "since", "through", "throughout", "to", "toward", "towards", "under", "until",
	"up", "upon", "via", "with", "within", "without",
	// conjunctions
	"and", "or", "but", "so", "yet", "if", "then", "than", "because", "while", "whereas", "although",
	"though", "unless", "whether", "as", "also", "well", "plus",
	// auxiliaries and common verbs
	"am", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "having", "do",
	"does", "did", "doing", "will", "would", "shall", "should", "can", "could", "may", "might",
	"must", "need", "needs", "get", "gets", "make", "makes", "use", "using", "used",
	// adverbs
	"very", "more", "most", "much", "many", "less", "least", "just", "too", "here", "there", "when",
	"where", "why", "how", "again", "further", "once", "now", "always", "often", "etc", "e.g", "i.e",
	// job posting filler
	"looking", "seeking", "hiring", "join", "joining", "ideal", "candidate", "candidates", "role",
	"position", "opportunity", "responsibilities", "requirements", "required", "requirement",
	"preferred", "including", "include", "includes", "ability", "able", "strong", "excellent",
	"good", "great", "proven", "solid", "minimum", "year", "years", "work", "working",
	"environment", "company", "team", "new", "help",
}

// defaultPhrases are technical multi-word terms detected as single keywords.
var defaultPhrases = []string{
	"machine learning", "deep learning", "reinforcement learning", "artificial intelligence",
	"natural language processing", "computer vision", "neural networks", "large language models",
	"data science", "data analysis", "data analytics", "data engineering", "data visualization",
	"data warehousing", "data modeling", "big data", "business intelligence", "power bi",
	"project management", "product management", "program management", "stakeholder management",
	"software engineering", "software development", "web development", "mobile development",
	"front end", "back end", "full stack", "site reliability engineering",
	"unit testing", "integration testing", "test automation", "test driven development",
	"continuous integration", "continuous delivery", "continuous deployment", "version control",
	"object oriented programming", "functional programming", "design patterns",
	"distributed systems", "system design", "microservices architecture", "event driven architecture",
	"cloud computing", "amazon web services", "google cloud platform", "google cloud",
	"infrastructure as code", "rest api", "restful api", "message queue",
	"sql server", "spring boot", "react native", "ruby on rails", "visual studio",
	"information security", "network security", "penetration testing", "incident response",
	"database design", "database administration", "technical writing", "customer service",
	"user experience", "user interface", "problem solving", "critical thinking",
	"communication skills", "team leadership", "agile methodology", "scrum master",
	"computer science", "software engineer", "bachelor of science", "master of science",
}

// defaultAliases fold common variants onto one canonical spelling.
var defaultAliases = map[string]string{
	"golang":              "go",
	"k8s":                 "kubernetes",
	"js":                  "javascript",
	"ts":                  "typescript",
	"nodejs":              "node.js",
	"node":                "node.js",
	"reactjs":             "react",
	"react.js":            "react",
	"vuejs":               "vue",
	"vue.js":              "vue",
	"postgres":            "postgresql",
	"mongo":               "mongodb",
	"ml":                  "machine learning",
	"ai":                  "artificial intelligence",
	"nlp":                 "natural language processing",
	"llms":                "large language models",
	"frontend":            "front end",
	"front-end":           "front end",
	"backend":             "back end",
	"back-end":            "back end",
	"fullstack":           "full stack",
	"full-stack":          "full stack",
	"problem-solving":     "problem solving",
	"amazon web services": "aws",
	"gcp":                 "google cloud platform",
	"ci":                  "continuous integration",
	"cd":                  "continuous delivery",
	"tdd":                 "test driven development",
	"oop":                 "object oriented programming",
	"ux":                  "user experience",
	"ui":                  "user interface",
	"iac":                 "infrastructure as code",
	"sre":                 "site reliability engineering",
}
