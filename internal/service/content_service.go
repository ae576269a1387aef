package service

import (
	"context"
	"strings"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
)

// 该级别及以下创建时自动分配部门内所有用户
const AutoAssignMaxLevel = 2

// ContentDraft 内容向导提交的数据
type ContentDraft struct {
	Nome          string               `json:"nome" validate:"required,max=200"`
	Descricao     string               `json:"descricao"`
	Nivel         int                  `json:"nivel" validate:"min=1"`
	Setores       []string             `json:"setores"`
	Conteudos     []string             `json:"conteudos" validate:"required,min=1,dive,required"`
	Correcao      model.CorrectionMode `json:"correcao" validate:"omitempty,oneof=manual automatica"`
	CertificadoID *string              `json:"certificado_id"`
	Usuarios      []string             `json:"usuarios"`
}

// ContentSummary 学员可见的内容列表项
type ContentSummary struct {
	ID         string       `json:"id"`
	Nome       string       `json:"nome"`
	Descricao  string       `json:"descricao"`
	Nivel      int          `json:"nivel"`
	Atividades int          `json:"atividades"`
	Realizado  bool         `json:"realizado"`
	State      TrackerState `json:"state"`
}

type ContentService struct {
	contents  ContentCatalog
	templates TemplateStore
	users     UserStore
}

func NewContentService(contents ContentCatalog, templates TemplateStore, users UserStore) *ContentService {
	return &ContentService{contents: contents, templates: templates, users: users}
}

func (s *ContentService) validate(ctx context.Context, d *ContentDraft) error {
	d.Nome = strings.TrimSpace(d.Nome)
	if d.Correcao == "" {
		d.Correcao = model.CorrectionManual
	}
	if err := util.ValidateStruct(d); err != nil {
		return err
	}
	seen := make(map[string]bool, len(d.Conteudos))
	for _, id := range d.Conteudos {
		if seen[id] {
			return util.NewValidationError("conteudos", "template %s listed twice", id)
		}
		seen[id] = true
	}

	// 含人工批改类活动时强制 manual
	for _, id := range d.Conteudos {
		t, err := s.templates.GetTemplate(ctx, id)
		if err != nil {
			if util.IsNotFound(err) {
				return util.NewValidationError("conteudos", "template %s does not exist", id)
			}
			return util.WrapNetwork("getTemplate", err)
		}
		if needsManual(t) {
			d.Correcao = model.CorrectionManual
		}
	}
	return nil
}

func needsManual(t *model.Template) bool {
	if t.Tipo.NeedsManualGrading() {
		return true
	}
	for _, a := range t.Atividades {
		if a.Tipo.NeedsManualGrading() {
			return true
		}
	}
	return false
}

func (s *ContentService) Create(ctx context.Context, d ContentDraft) (*model.Content, error) {
	if err := s.validate(ctx, &d); err != nil {
		return nil, err
	}

	content := &model.Content{
		Nome:          d.Nome,
		Descricao:     d.Descricao,
		Nivel:         d.Nivel,
		Setores:       d.Setores,
		Conteudos:     d.Conteudos,
		Correcao:      d.Correcao,
		CertificadoID: d.CertificadoID,
		Usuarios:      make(map[string]*model.ProgressRecord),
	}
	if err := s.assign(ctx, content, d, true); err != nil {
		return nil, err
	}

	created, err := s.contents.CreateContent(ctx, content)
	if err != nil {
		return nil, util.WrapNetwork("createContent", err)
	}
	logger.Log.Info("content created",
		zap.String("content_id", created.ID),
		zap.Int("users", len(created.Usuarios)))
	return created, nil
}

// Update 保留已有进度，只追加新选中的用户
func (s *ContentService) Update(ctx context.Context, id string, d ContentDraft) (*model.Content, error) {
	if err := s.validate(ctx, &d); err != nil {
		return nil, err
	}
	content, err := s.contents.GetContent(ctx, id)
	if err != nil {
		return nil, util.WrapNetwork("getContent", err)
	}

	content.Nome = d.Nome
	content.Descricao = d.Descricao
	content.Nivel = d.Nivel
	content.Setores = d.Setores
	content.Conteudos = d.Conteudos
	content.Correcao = d.Correcao
	content.CertificadoID = d.CertificadoID
	if err := s.assign(ctx, content, d, false); err != nil {
		return nil, err
	}

	if err := s.contents.UpdateContent(ctx, content); err != nil {
		return nil, util.WrapNetwork("updateContent", err)
	}
	return content, nil
}

func (s *ContentService) assign(ctx context.Context, content *model.Content, d ContentDraft, creating bool) error {
	for _, uid := range d.Usuarios {
		if uid != "" {
			content.Assign(uid)
		}
	}
	if !creating || content.Nivel > AutoAssignMaxLevel || len(content.Setores) == 0 {
		return nil
	}
	users, err := s.users.ListUsersBySectors(ctx, content.Setores)
	if err != nil {
		return util.WrapNetwork("listUsers", err)
	}
	for _, u := range users {
		content.Assign(u.ID)
	}
	return nil
}

func (s *ContentService) Get(ctx context.Context, id string) (*model.Content, error) {
	content, err := s.contents.GetContent(ctx, id)
	if err != nil {
		return nil, util.WrapNetwork("getContent", err)
	}
	return content, nil
}

// ListForUser 已分配给用户或对其部门开放的内容
func (s *ContentService) ListForUser(ctx context.Context, identity model.Identity) ([]ContentSummary, error) {
	all, err := s.contents.ListContents(ctx)
	if err != nil {
		return nil, util.WrapNetwork("listContents", err)
	}
	var user *model.User
	if u, err := s.users.GetUser(ctx, identity.ID); err == nil {
		user = u
	}

	out := make([]ContentSummary, 0, len(all))
	for i := range all {
		c := &all[i]
		if !c.IsAssigned(identity.ID) && !c.GrantsSector(identity.Setor) {
			continue
		}
		rec := c.Record(identity.ID)
		holds := user != nil && c.CertificadoID != nil && user.HasCertificate(*c.CertificadoID)
		out = append(out, ContentSummary{
			ID:         c.ID,
			Nome:       c.Nome,
			Descricao:  c.Descricao,
			Nivel:      c.Nivel,
			Atividades: len(c.Conteudos),
			Realizado:  rec != nil && rec.Realizado,
			State:      DeriveState(c, rec, holds),
		})
	}
	return out, nil
}
