package domain

// LlmParams are optional generation parameters forwarded to the backend.
type LlmParams struct {
	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	TopP             *float64 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxTokens        *int     `json:"max_tokens,omitempty" validate:"omitempty,gte=1,lte=128000"`
	ReasoningEffort  string   `json:"reasoning_effort,omitempty" validate:"omitempty,oneof=minimal low medium high"`
	Verbosity        string   `json:"verbosity,omitempty" validate:"omitempty,oneof=low medium high"`
}

// RagRequest is the body of an automated-answer request. Query, Company,
// Office and MiamID are required; everything else is optional.
type RagRequest struct {
	Query   string `json:"query" validate:"required,notblank"`
	Company string `json:"company" validate:"required"`
	Office  string `json:"office" validate:"required"`
	MiamID  string `json:"miam_id" validate:"required"`

	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`

	BusinessSubCategoryTopN                *int    `json:"business_sub_category_top_n,omitempty" validate:"omitempty,gte=1,lte=100"`
	BusinessSubCategoryQueryExpansionModel string  `json:"business_sub_category_query_expansion_model,omitempty"`
	BusinessSubCategoryRetrievalMode       string  `json:"business_sub_category_retrieval_mode,omitempty" validate:"omitempty,oneof=hybrid bm25 cos_sim"`
	BusinessSubCategoryRetrievalModel      *string `json:"business_sub_category_retrieval_model,omitempty"`
	BusinessSubCategoryRerankModel         string  `json:"business_sub_category_rerank_model,omitempty"`
	AnswerTopN                             *int    `json:"answer_top_n,omitempty" validate:"omitempty,gte=1,lte=100"`
	AnswerQueryExpansionModel              string  `json:"answer_query_expansion_model,omitempty"`
	AnswerModel                            string  `json:"answer_model,omitempty"`
	AnswerRetrievalMode                    string  `json:"answer_retrieval_mode,omitempty" validate:"omitempty,oneof=hybrid bm25 cos_sim"`
	AnswerRetrievalModel                   *string `json:"answer_retrieval_model,omitempty"`
	AnswerRerankModel                      string  `json:"answer_rerank_model,omitempty"`
	IsQueryExpansion                       *bool   `json:"is_query_expansion,omitempty"`
	IsRerank                               *bool   `json:"is_rerank,omitempty"`
	SystemMessage                          *string `json:"system_message,omitempty"`
	RrfK                                   *int    `json:"rrf_k,omitempty" validate:"omitempty,gte=1"`

	LlmParams *LlmParams `json:"llm_params,omitempty" validate:"omitempty"`
}

// GetMannedCounterRequest asks the backend for the contact details of the
// candidate support desks.
type GetMannedCounterRequest struct {
	PriorityMannedCounterNames []string `json:"priority_manned_counter_names" validate:"required"`
	Company                    string   `json:"company" validate:"required"`
	Office                     string   `json:"office" validate:"required"`
}

// MannedCounter is a human support desk a conversation can be escalated to.
type MannedCounter struct {
	Name               string `json:"manned_counter_name"`
	Email              string `json:"manned_counter_email"`
	Description        string `json:"manned_counter_description"`
	IsOfficeAccessOnly bool   `json:"is_office_access_only,omitempty"`
}

type GetMannedCounterResponse struct {
	MannedCounterInfo []MannedCounter `json:"manned_counter_info"`
}

// MailFile is an attachment; FileData is base64 encoded.
type MailFile struct {
	FileName string `json:"file_name" validate:"required"`
	FileData string `json:"file_data" validate:"required,base64"`
}

type SendMailRequest struct {
	QuestionerEmail    string     `json:"questioner_email" validate:"required"`
	MannedCounterName  string     `json:"manned_counter_name" validate:"required"`
	Company            string     `json:"company" validate:"required"`
	Office             string     `json:"office" validate:"required"`
	MailContent        string     `json:"mail_content" validate:"required"`
	MannedCounterEmail string     `json:"manned_counter_email" validate:"required"`
	IsOfficeAccessOnly bool       `json:"is_office_access_only"`
	MailFile           []MailFile `json:"mail_file,omitempty" validate:"omitempty,dive"`
}

type SendMailResponse struct {
	SentText string `json:"sent_text"`
}

type SubmitFeedbackRequest struct {
	SessionID        string   `json:"session_id" validate:"required"`
	ConversationTime string   `json:"conversation_time" validate:"required"`
	Feedback         Feedback `json:"feedback" validate:"required,oneof=good bad"`
	FeedbackReason   *string  `json:"feedback_reason,omitempty"`
}

type DeleteFeedbackRequest struct {
	SessionID        string `json:"session_id" validate:"required"`
	ConversationTime string `json:"conversation_time" validate:"required"`
}

// ChunkHighlighterRequest pairs each source file with the chunk to highlight
// in it; both slices must have the same length.
type ChunkHighlighterRequest struct {
	SourceFileList []string `json:"source_file_list" validate:"required"`
	ChunkList      []string `json:"chunk_list" validate:"required"`
}

type ChunkHighlighterResponse struct {
	S3Path []string `json:"s3_path"`
	HTML   []string `json:"html"`
}
