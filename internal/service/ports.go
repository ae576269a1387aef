package service

import (
	"context"
	"time"

	"lms_backend/internal/model"
)

// TemplateStore 活动模板存储
type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
}

// ContentStore 内容及其用户进度的存储
type ContentStore interface {
	GetContent(ctx context.Context, id string) (*model.Content, error)
	SubmitAnswer(ctx context.Context, contentID string, sub model.AnswerSubmission) (*model.Content, error)
	ConcludeContent(ctx context.Context, contentID, userID string) (bool, error)
	GradeContent(ctx context.Context, contentID string, grade model.GradeSubmission) error
	UpdateContent(ctx context.Context, content *model.Content) error
}

// ContentCatalog 内容组装时需要的额外操作
type ContentCatalog interface {
	ContentStore
	ListContents(ctx context.Context) ([]model.Content, error)
	CreateContent(ctx context.Context, content *model.Content) (*model.Content, error)
}

// CertificateStore 证书存储
type CertificateStore interface {
	GetCertificates(ctx context.Context) ([]model.Certificate, error)
	UpdateCertificate(ctx context.Context, cert *model.Certificate) (*model.Certificate, error)
	CreateCertificate(ctx context.Context, cert *model.Certificate) (*model.Certificate, error)
}

// UserStore 用户存储
type UserStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsersBySectors(ctx context.Context, setores []string) ([]model.User, error)
	AwardCertificate(ctx context.Context, userID, certificateID string, at time.Time) error
}

// TemplateWriter 模板编辑
type TemplateWriter interface {
	TemplateStore
	ListTemplates(ctx context.Context) ([]model.Template, error)
	CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error)
	UpdateTemplate(ctx context.Context, t *model.Template) (*model.Template, error)
}

// CursorStore 播放器当前位置，HTTP 无状态时保存
type CursorStore interface {
	LoadCursor(ctx context.Context, contentID, userID string) (int, bool, error)
	SaveCursor(ctx context.Context, contentID, userID string, index int) error
}

// TemplateInvalidator 模板更新后清理缓存
type TemplateInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// Clock 便于测试替换
type Clock func() time.Time
