package service

import (
	"context"
	"encoding/json"
	"strings"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// TemplateDraft 模板编辑器提交的数据，负载可能放在 template 或 data 下
type TemplateDraft struct {
	Nome       string                    `json:"nome" validate:"required,max=200"`
	Tipo       model.ActivityType        `json:"tipo" validate:"required"`
	Descricao  string                    `json:"descricao"`
	Template   json.RawMessage           `json:"template,omitempty"`
	Data       json.RawMessage           `json:"data,omitempty"`
	Atividades []model.CompositeActivity `json:"atividades,omitempty"`
}

// DefaultPayload 各类型的默认字段
func DefaultPayload(tipo model.ActivityType) map[string]interface{} {
	switch tipo {
	case model.ActivityQuiz:
		return map[string]interface{}{
			"pergunta": "",
			"opcoes": []interface{}{
				map[string]interface{}{"texto": "", "correta": false},
				map[string]interface{}{"texto": "", "correta": false},
			},
		}
	case model.ActivityVideo:
		return map[string]interface{}{"titulo": "", "url": "", "descricao": "", "obrigatorio": false}
	case model.ActivityText:
		return map[string]interface{}{"enunciado": "", "minCaracteres": "", "maxCaracteres": "", "orientacoes": "", "obrigatorio": false}
	case model.ActivityUpload:
		return map[string]interface{}{"titulo": "", "instrucoes": "", "tiposAceitos": []interface{}{"pdf"}, "tamanhoMaximo": 10, "obrigatorio": false}
	case model.ActivityDocument:
		return map[string]interface{}{"titulo": "", "descricao": "", "url": "", "permitirDownload": true, "obrigatorio": false}
	case model.ActivityArticle:
		return map[string]interface{}{"titulo": "", "resumo": "", "conteudo": "", "tempoLeitura": "", "autor": "", "obrigatorio": false}
	}
	return map[string]interface{}{}
}

type TemplateService struct {
	templates TemplateWriter
	cache     TemplateInvalidator
}

func NewTemplateService(templates TemplateWriter, cache TemplateInvalidator) *TemplateService {
	return &TemplateService{templates: templates, cache: cache}
}

func (s *TemplateService) build(d TemplateDraft) (*model.Template, error) {
	d.Nome = strings.TrimSpace(d.Nome)
	if err := util.ValidateStruct(d); err != nil {
		return nil, err
	}
	if !d.Tipo.Valid() {
		return nil, util.NewValidationError("tipo", "unknown activity type %q", d.Tipo)
	}
	for i, a := range d.Atividades {
		if !a.Tipo.Valid() {
			return nil, util.NewValidationError("atividades", "item %d has unknown type %q", i, a.Tipo)
		}
	}

	payload := DefaultPayload(d.Tipo)
	var given map[string]interface{}
	if err := json.Unmarshal(model.NormalizePayload(d.Template, d.Data), &given); err != nil {
		return nil, util.NewValidationError("data", "payload must be an object")
	}
	for k, v := range given {
		payload[k] = v
	}
	if d.Tipo == model.ActivityQuiz && len(d.Atividades) == 0 {
		if err := validateQuizPayload(payload); err != nil {
			return nil, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &model.Template{
		Nome:       d.Nome,
		Tipo:       d.Tipo,
		Descricao:  d.Descricao,
		Data:       datatypes.JSON(raw),
		Atividades: d.Atividades,
	}, nil
}

func validateQuizPayload(payload map[string]interface{}) error {
	opcoes, _ := payload["opcoes"].([]interface{})
	if len(opcoes) < 2 {
		return util.NewValidationError("opcoes", "a quiz needs at least two options")
	}
	return nil
}

func (s *TemplateService) Create(ctx context.Context, d TemplateDraft) (*model.Template, error) {
	t, err := s.build(d)
	if err != nil {
		return nil, err
	}
	created, err := s.templates.CreateTemplate(ctx, t)
	if err != nil {
		return nil, util.WrapNetwork("createTemplate", err)
	}
	return created, nil
}

func (s *TemplateService) Update(ctx context.Context, id string, d TemplateDraft) (*model.Template, error) {
	t, err := s.build(d)
	if err != nil {
		return nil, err
	}
	existing, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, util.WrapNetwork("getTemplate", err)
	}
	t.UUIDBase = existing.UUIDBase

	updated, err := s.templates.UpdateTemplate(ctx, t)
	if err != nil {
		return nil, util.WrapNetwork("updateTemplate", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			logger.Log.Warn("template cache invalidation failed", zap.String("template_id", id), zap.Error(err))
		}
	}
	return updated, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, util.WrapNetwork("getTemplate", err)
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context) ([]model.Template, error) {
	list, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, util.WrapNetwork("listTemplates", err)
	}
	return list, nil
}
