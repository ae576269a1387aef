package model

import "encoding/json"

// AnswerSubmission 提交给内容存储的单条作答
type AnswerSubmission struct {
	UserID     string          `json:"user_id"`
	TemplateID string          `json:"template_id"`
	Tipo       ActivityType    `json:"tipo"`
	Resposta   json.RawMessage `json:"resposta"`
	Correta    *bool           `json:"correta"`
	Realizado  bool            `json:"realizado"`
	Nota       *float64        `json:"nota"`
}

// GradeSubmission 人工批改结果
type GradeSubmission struct {
	UserID string      `json:"user_id" binding:"required"`
	Nota   *float64    `json:"nota"`
	Status GradeStatus `json:"status" binding:"required"`
}
