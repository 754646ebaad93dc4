package knowledge

import "strings"

// Intent is what a free-text message asks for.
type Intent int

const (
	IntentFallback Intent = iota
	IntentGreeting
	IntentThanks
	IntentTopic
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentThanks:
		return "thanks"
	case IntentTopic:
		return "topic"
	default:
		return "fallback"
	}
}

// Match is the classifier verdict. Topic is set only for IntentTopic.
type Match struct {
	Intent Intent
	Topic  Topic
}

type rule struct {
	match Match
	stems []string
}

// Rules are checked top to bottom and the first hit wins.
var rules = []rule{
	{Match{Intent: IntentGreeting}, []string{"привет", "здравств", "добрый день", "добрый вечер", "доброе утро", "салем", "hello"}},
	{Match{Intent: IntentThanks}, []string{"спасибо", "благодар", "рахмет", "thanks"}},
	{Match{IntentTopic, TopicArea}, []string{"площад"}},
	{Match{IntentTopic, TopicPrice}, []string{"стоимост", "цен"}},
	{Match{IntentTopic, TopicLocation}, []string{"расположен", "адрес"}},
	{Match{IntentTopic, TopicSpecs}, []string{"характеристик", "склад"}},
	{Match{IntentTopic, TopicContact}, []string{"брокер", "контакт"}},
	{Match{IntentTopic, TopicTimeline}, []string{"срок"}},
	{Match{IntentTopic, TopicArea}, []string{"проект"}},
}

// Classify matches text by case-insensitive substring.
func Classify(text string) Match {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Match{}
	}
	for _, r := range rules {
		for _, stem := range r.stems {
			if strings.Contains(lower, stem) {
				return r.match
			}
		}
	}
	return Match{}
}
