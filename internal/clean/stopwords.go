package clean

// defaultStopwords is a compact English stopword list for review text.
// Domain-specific additions come in through Options.ExtraStopwords or
// the config file's cleaning section.
var defaultStopwords = []string{
	"a", "about", "above", "after", "again", "all", "also", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could",
	"did", "do", "does", "doing", "down", "during", "each", "few", "for",
	"from", "further", "had", "has", "have", "having", "he", "her",
	"here", "hers", "him", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "just", "me", "more", "most", "my", "no", "nor", "not",
	"now", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "out", "over", "own", "re", "same", "she", "should", "so",
	"some", "such", "than", "that", "the", "their", "theirs", "them",
	"then", "there", "these", "they", "this", "those", "through", "to",
	"too", "under", "until", "up", "very", "was", "we", "were", "what",
	"when", "where", "which", "while", "who", "whom", "why", "will",
	"with", "would", "you", "your", "yours",
}
