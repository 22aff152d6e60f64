package dto

// AssistantChatRequest is one help-widget question.
type AssistantChatRequest struct {
	Message string `json:"message"`
}

// AssistantChatResponse carries the model's answer.
type AssistantChatResponse struct {
	Response string `json:"response"`
}
