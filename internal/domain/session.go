package domain

// Status is the lifecycle status of a chat session.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Feedback is the user's rating of a single turn. The zero value means no feedback.
type Feedback string

const (
	FeedbackNone Feedback = ""
	FeedbackGood Feedback = "good"
	FeedbackBad  Feedback = "bad"
)

// Valid reports whether f is one of the values the backend accepts.
func (f Feedback) Valid() bool {
	return f == FeedbackGood || f == FeedbackBad
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the backend's view of the conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FaqResult holds positionally aligned FAQ matches: index i of every slice
// describes the same FAQ item.
type FaqResult struct {
	Answer       []string `json:"answer"`
	SourceFiles  []string `json:"source_files"`
	ChunkIDs     []string `json:"chunk_ids"`
	SourceTexts  []string `json:"source_texts"`
	MetadataList []string `json:"metadata_list"`
}

// Len returns the number of FAQ items, bounded by the shortest slice.
func (f *FaqResult) Len() int {
	n := len(f.Answer)
	for _, l := range []int{len(f.SourceFiles), len(f.ChunkIDs), len(f.SourceTexts), len(f.MetadataList)} {
		if l < n {
			n = l
		}
	}
	return n
}

// Aligned reports whether all slices have the same length.
func (f *FaqResult) Aligned() bool {
	n := len(f.Answer)
	return len(f.SourceFiles) == n && len(f.ChunkIDs) == n &&
		len(f.SourceTexts) == n && len(f.MetadataList) == n
}

// RagResult is a generated answer. Answer embeds 1-indexed citation markers
// like [1] that refer to SourceFiles/SourceTexts.
type RagResult struct {
	Answer       string   `json:"answer"`
	SourceFiles  []string `json:"source_files"`
	ChunkIDs     []string `json:"chunk_ids"`
	SourceTexts  []string `json:"source_texts"`
	MetadataList []string `json:"metadata_list"`
}

// Shape discriminates the four mutually exclusive backend response patterns.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeNoIndex
	ShapeFAQ
	ShapeRAG
	ShapeFAQAndRAG
)

func (s Shape) String() string {
	switch s {
	case ShapeNoIndex:
		return "no_index"
	case ShapeFAQ:
		return "faq"
	case ShapeRAG:
		return "rag"
	case ShapeFAQAndRAG:
		return "faq_and_rag"
	default:
		return "unknown"
	}
}

// Turn is one request/response exchange: the backend's response plus the
// fields the client adds on receipt (UserQuery, Timestamp, ConversationTime,
// Feedback).
type Turn struct {
	SessionID                  string        `json:"session_id"`
	ChatHistory                []ChatMessage `json:"chat_history"`
	BusinessSubCategories      []string      `json:"business_sub_categories"`
	PriorityMannedCounterNames []string      `json:"priority_manned_counter_names"`

	NoIndexAvailable bool       `json:"no_index_available,omitempty"`
	Message          string     `json:"message,omitempty"`
	FAQ              *FaqResult `json:"faq,omitempty"`
	RAG              *RagResult `json:"rag,omitempty"`

	UserQuery        string   `json:"userQuery,omitempty"`
	Timestamp        string   `json:"timestamp,omitempty"`
	ConversationTime string   `json:"conversation_time,omitempty"`
	Feedback         Feedback `json:"feedback,omitempty"`
}

// Shape classifies the turn. A no-index flag wins over any payload.
func (t *Turn) Shape() Shape {
	switch {
	case t.NoIndexAvailable:
		return ShapeNoIndex
	case t.FAQ != nil && t.RAG != nil:
		return ShapeFAQAndRAG
	case t.FAQ != nil:
		return ShapeFAQ
	case t.RAG != nil:
		return ShapeRAG
	default:
		return ShapeUnknown
	}
}

// Key is the feedback correlation key: conversation_time, or the receipt
// timestamp for turns persisted before conversation_time existed.
func (t *Turn) Key() string {
	if t.ConversationTime != "" {
		return t.ConversationTime
	}
	return t.Timestamp
}

// Transcript is the persisted form of a session.
type Transcript struct {
	Messages []Turn `json:"messages"`
	Status   Status `json:"status"`
}
