package categorizer

import "strings"

// Other is returned when no keyword matches.
const Other = "Other"

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Categorizer assigns a category label to a transaction by ordered keyword matching.
// Rule order is the tie-break: the first category with a matching keyword wins.
type Categorizer struct {
	rules []Rule
}

// New creates a categorizer from an ordered rule table.
// Keywords are lower-cased once up front.
func New(rules []Rule) *Categorizer {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw == "" {
				continue
			}
			kws = append(kws, strings.ToLower(kw))
		}
		normalized = append(normalized, Rule{Category: r.Category, Keywords: kws})
	}
	return &Categorizer{rules: normalized}
}

// Default returns a categorizer over the built-in table.
func Default() *Categorizer {
	return defaultCategorizer
}

// Categorize returns the first category whose keywords occur in the
// lower-cased description and merchant, or Other.
func (c *Categorizer) Categorize(description, merchant string) string {
	text := strings.ToLower(description) + " " + strings.ToLower(merchant)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Category
			}
		}
	}
	return Other
}

// Categories returns every label the categorizer can produce, in table order, ending with Other.
func (c *Categorizer) Categories() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return append(out, Other)
}

// Categorize classifies using the built-in table.
func Categorize(description, merchant string) string {
	return defaultCategorizer.Categorize(description, merchant)
}

var defaultCategorizer = New(DefaultRules())

// DefaultRules returns a copy of the built-in keyword table.
func DefaultRules() []Rule {
	return []Rule{
		{"Groceries", []string{"woolworths", "checkers", "pick n pay", "spar", "shoprite", "makro"}},
		{"Restaurants", []string{"restaurant", "nando", "steers", "kfc", "mcdonald", "burger king", "ocean basket"}},
		{"Fast Food", []string{"uber eats", "mr delivery", "pizza", "debonairs"}},
		{"Transport", []string{"uber", "bolt", "shell", "engen", "bp", "caltex", "fuel"}},
		{"Entertainment", []string{"netflix", "showmax", "dstv", "spotify", "apple music", "cinema"}},
		{"Shopping", []string{"takealot", "game", "incredible connection", "edgars", "truworths"}},
		{"Utilities", []string{"electricity", "water", "municipal", "city of"}},
		{"Telecommunications", []string{"vodacom", "mtn", "cell c", "telkom", "rain"}},
		{"Health", []string{"pharmacy", "clicks", "dis-chem", "doctor", "hospital"}},
		{"Travel", []string{"airbnb", "booking.com", "flight", "airline"}},
		{"Salary", []string{"salary", "wages", "payroll"}},
		{"Transfer", []string{"transfer", "payment received", "ft "}},
		{"Income", []string{"refund", "deposit", "credit"}},
	}
}
