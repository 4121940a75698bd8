package model

// Topic is a coaching subject. Each topic maps to at most one BusinessData
// field and one prompt template.
type Topic string

const (
	TopicCoreValues Topic = "core_values"
	TopicPurpose    Topic = "purpose"
	TopicVision     Topic = "vision"
	TopicGoals      Topic = "goals"
)

// TopicSpec is the static configuration of a coaching topic: its prompt
// template, opening question and session ceiling.
type TopicSpec struct {
	Topic         Topic
	BusinessField BusinessField
	SystemPrompt  string
	// OpeningMessage seeds the conversation as the first assistant turn.
	OpeningMessage string
	// MaxSessionsPerUser is the session quota for this topic; 0 means unlimited.
	MaxSessionsPerUser int
}

var topics = map[Topic]TopicSpec{
	TopicCoreValues: {
		Topic:         TopicCoreValues,
		BusinessField: FieldCoreValues,
		SystemPrompt: "You are a business coach helping an entrepreneur articulate the core values " +
			"of their company. Ask one question at a time, dig into concrete examples from how " +
			"they actually run the business, and reflect candidate values back for confirmation.",
		OpeningMessage: "Let's uncover the core values that already drive your business. " +
			"Think of a recent decision you were proud of — what made it feel right?",
		MaxSessionsPerUser: 3,
	},
	TopicPurpose: {
		Topic:         TopicPurpose,
		BusinessField: FieldPurpose,
		SystemPrompt: "You are a business coach helping an entrepreneur articulate why their " +
			"company exists beyond making money. Guide them from what they do, to how, to why. " +
			"Keep the conversation grounded in their customers and their story.",
		OpeningMessage: "I'd like to help you put your company's purpose into words. " +
			"To start: what problem were you trying to solve when you founded the business?",
		MaxSessionsPerUser: 3,
	},
	TopicVision: {
		Topic:         TopicVision,
		BusinessField: FieldVision,
		SystemPrompt: "You are a business coach helping an entrepreneur describe a vivid picture " +
			"of their company three to five years out. Push for specifics: customers served, " +
			"team size, the change created in their market.",
		OpeningMessage: "Imagine it's five years from today and your business has become exactly " +
			"what you hoped. What does a normal Tuesday look like?",
		MaxSessionsPerUser: 3,
	},
	TopicGoals: {
		Topic:         TopicGoals,
		BusinessField: FieldGoals,
		SystemPrompt: "You are a business coach helping an entrepreneur translate their vision " +
			"into a small set of concrete, measurable goals for the next twelve months. " +
			"Challenge vague goals until they carry a number and a date.",
		OpeningMessage: "Let's set the goals that matter most for the next twelve months. " +
			"If you could only move one number in your business this year, which would it be?",
		MaxSessionsPerUser: 5,
	},
}

// LookupTopic returns the spec for a topic.
func LookupTopic(t Topic) (TopicSpec, bool) {
	spec, ok := topics[t]
	return spec, ok
}

// Topics returns all configured topics.
func Topics() []Topic {
	out := make([]Topic, 0, len(topics))
	for t := range topics {
		out = append(out, t)
	}
	return out
}
