package model

import (
	"encoding/json"
	"time"
)

type CorrectionMode string

const (
	CorrectionManual    CorrectionMode = "manual"
	CorrectionAutomatic CorrectionMode = "automatica"
)

type GradeStatus string

const (
	StatusApproved GradeStatus = "aprovado"
	StatusRejected GradeStatus = "reprovado"
)

// Answer 单个活动的作答记录
type Answer struct {
	TemplateID   string          `json:"template_id"`
	Tipo         ActivityType    `json:"tipo"`
	Resposta     json.RawMessage `json:"resposta"`
	Correta      *bool           `json:"correta"`
	DataResposta time.Time       `json:"data_resposta"`
	Nota         *float64        `json:"nota"`
	Realizado    bool            `json:"realizado"`
}

// ProgressRecord 用户在某个内容下的进度
type ProgressRecord struct {
	Realizado     bool         `json:"realizado"`
	Nota          *float64     `json:"nota"`
	Status        *GradeStatus `json:"status"`
	Conteudo      []Answer     `json:"conteudo"`
	DataConclusao *time.Time   `json:"data_conclusao"`
}

// AnswerFor 按模板ID查找作答
func (p *ProgressRecord) AnswerFor(templateID string) *Answer {
	if p == nil {
		return nil
	}
	for i := range p.Conteudo {
		if p.Conteudo[i].TemplateID == templateID {
			return &p.Conteudo[i]
		}
	}
	return nil
}

// UpsertAnswer 同一模板只保留一条作答，新提交覆盖旧记录
func (p *ProgressRecord) UpsertAnswer(a Answer) {
	for i := range p.Conteudo {
		if p.Conteudo[i].TemplateID == a.TemplateID {
			p.Conteudo[i] = a
			return
		}
	}
	p.Conteudo = append(p.Conteudo, a)
}

// Reset 管理员重置进度
func (p *ProgressRecord) Reset() {
	p.Realizado = false
	p.Nota = nil
	p.Status = nil
	p.Conteudo = []Answer{}
	p.DataConclusao = nil
}

// swagger:model Content
type Content struct {
	UUIDBase
	Nome          string                     `gorm:"size:200;not null" json:"nome"`
	Descricao     string                     `gorm:"type:text" json:"descricao"`
	Nivel         int                        `gorm:"default:1" json:"nivel"`
	Setores       []string                   `gorm:"serializer:json" json:"setores"`
	Conteudos     []string                   `gorm:"serializer:json" json:"conteudos"`
	Correcao      CorrectionMode             `gorm:"size:20;default:'manual'" json:"correcao"`
	CertificadoID *string                    `gorm:"size:36" json:"certificado_id"`
	Usuarios      map[string]*ProgressRecord `gorm:"serializer:json" json:"usuarios"`
}

func (Content) TableName() string {
	return "contents"
}

// Record 返回用户进度，未分配时为 nil
func (c *Content) Record(userID string) *ProgressRecord {
	if c == nil || c.Usuarios == nil {
		return nil
	}
	return c.Usuarios[userID]
}

// IsAssigned 用户是否已被分配
func (c *Content) IsAssigned(userID string) bool {
	_, ok := c.Usuarios[userID]
	return ok
}

// GrantsSector 部门是否在授权范围内
func (c *Content) GrantsSector(setor string) bool {
	if setor == "" {
		return false
	}
	for _, s := range c.Setores {
		if s == setor {
			return true
		}
	}
	return false
}

// Assign 首次分配时创建空进度
func (c *Content) Assign(userID string) bool {
	if c.Usuarios == nil {
		c.Usuarios = make(map[string]*ProgressRecord)
	}
	if _, ok := c.Usuarios[userID]; ok {
		return false
	}
	c.Usuarios[userID] = &ProgressRecord{Conteudo: []Answer{}}
	return true
}
