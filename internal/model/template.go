package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityVideo    ActivityType = "video"
	ActivityText     ActivityType = "texto_livre"
	ActivityQuiz     ActivityType = "multipla_escolha"
	ActivityUpload   ActivityType = "upload"
	ActivityDocument ActivityType = "documento"
	ActivityArticle  ActivityType = "artigo"
)

var ActivityTypes = []ActivityType{
	ActivityQuiz, ActivityVideo, ActivityText, ActivityUpload, ActivityDocument, ActivityArticle,
}

func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NeedsManualGrading 文本和上传类答案需要人工批改
func (t ActivityType) NeedsManualGrading() bool {
	return t == ActivityText || t == ActivityUpload
}

// LocksAfterSubmit 提交后不可再修改的活动类型
func (t ActivityType) LocksAfterSubmit() bool {
	return t == ActivityQuiz || t.NeedsManualGrading()
}

// CompositeActivity 旧版组合模板中的单个活动
type CompositeActivity struct {
	ID   string          `json:"id,omitempty"`
	Tipo ActivityType    `json:"tipo"`
	Data json.RawMessage `json:"data,omitempty"`
}

// swagger:model Template
type Template struct {
	UUIDBase
	Nome       string              `gorm:"size:200;not null" json:"nome"`
	Tipo       ActivityType        `gorm:"size:32;index" json:"tipo"`
	Descricao  string              `gorm:"type:text" json:"descricao"`
	Data       datatypes.JSON      `json:"data"`
	Atividades []CompositeActivity `gorm:"serializer:json" json:"atividades,omitempty"`
}

func (Template) TableName() string {
	return "activity_templates"
}

// NormalizePayload 两条模板编辑路径产生的结构不一致，dados 存在时取 dados
func NormalizePayload(candidates ...json.RawMessage) json.RawMessage {
	var payload json.RawMessage
	for _, c := range candidates {
		if isPresent(c) {
			payload = c
			break
		}
	}
	if payload == nil {
		return json.RawMessage(`{}`)
	}

	var wrapper struct {
		Dados json.RawMessage `json:"dados"`
	}
	if err := json.Unmarshal(payload, &wrapper); err == nil && isPresent(wrapper.Dados) {
		return wrapper.Dados
	}
	return payload
}

func isPresent(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) > 0 && s != "null" && s != `""`
}

// Thumbnail 模板封面
func (t *Template) Thumbnail() string {
	var p struct {
		Thumbnail string `json:"thumbnail"`
	}
	_ = json.Unmarshal(t.Data, &p)
	return p.Thumbnail
}
