package model

import "time"

// swagger:model Certificate
type Certificate struct {
	UUIDBase
	Nome         string    `gorm:"size:200;not null" json:"nome"`
	Descricao    string    `gorm:"type:text" json:"descricao"`
	Insignia     string    `gorm:"size:255" json:"insignia"`
	CargaHoraria int       `json:"carga_horaria"`
	Nivel        *int      `json:"nivel"`
	Relacionados []string  `gorm:"serializer:json" json:"relacionados"`
	DataCriacao  time.Time `json:"data_criacao"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// LevelOrZero 未设置级别时按 0 处理
func (c *Certificate) LevelOrZero() int {
	if c == nil || c.Nivel == nil {
		return 0
	}
	return *c.Nivel
}

// EnrichedCertificate 用户持有的证书与证书详情
type EnrichedCertificate struct {
	Certificate
	DataConclusao time.Time `json:"data_conclusao"`
}
