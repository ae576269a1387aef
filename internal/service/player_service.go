package service

import (
	"context"
	"fmt"
	"io"
	"path"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	LabelNext   = "Próximo"
	LabelFinish = "Concluir"
	LabelClose  = "Fechar (Concluído)"
)

// PlayerView 播放器当前画面
type PlayerView struct {
	ContentID       string                 `json:"content_id"`
	ContentName     string                 `json:"content_name"`
	Index           int                    `json:"index"`
	Total           int                    `json:"total"`
	Activity        *Activity              `json:"activity,omitempty"`
	Answer          *model.Answer          `json:"answer,omitempty"`
	Details         map[string]interface{} `json:"details,omitempty"`
	ProgressPercent float64                `json:"progress_percent"`
	IsBlocked       bool                   `json:"is_blocked"`
	IsLast          bool                   `json:"is_last"`
	Finished        bool                   `json:"finished"`
	State           TrackerState           `json:"state"`
	NextLabel       string                 `json:"next_label"`
}

// PlayerService 每次请求重建跟踪器，游标保存在 CursorStore
type PlayerService struct {
	contents  ContentStore
	users     UserStore
	sequencer *Sequencer
	cursors   CursorStore
	storage   *StorageService
	deps      TrackerDeps
}

func NewPlayerService(contents ContentStore, users UserStore, sequencer *Sequencer, cursors CursorStore, storage *StorageService, registry *ActivityRegistry, issuer *CertificateIssuer) *PlayerService {
	if registry == nil {
		registry = DefaultActivityRegistry()
	}
	return &PlayerService{
		contents:  contents,
		users:     users,
		sequencer: sequencer,
		cursors:   cursors,
		storage:   storage,
		deps: TrackerDeps{
			Contents: contents,
			Registry: registry,
			Issuer:   issuer,
		},
	}
}

// CanAccess 已分配或所在部门被授权；管理人员可预览
func CanAccess(content *model.Content, identity model.Identity) bool {
	return content.IsAssigned(identity.ID) || content.GrantsSector(identity.Setor) || identity.IsStaff()
}

// Open 构建跟踪器并恢复游标
func (s *PlayerService) Open(ctx context.Context, contentID string, identity model.Identity) (*ProgressTracker, error) {
	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return nil, util.WrapNetwork("getContent", err)
	}
	if !CanAccess(content, identity) {
		return nil, util.ErrContentNotAccessible
	}

	seq, err := s.sequencer.Build(ctx, content.Conteudos)
	if err != nil {
		return nil, err
	}
	tracker := NewProgressTracker(s.deps, identity, content, seq)

	if s.cursors != nil {
		idx, ok, err := s.cursors.LoadCursor(ctx, contentID, identity.ID)
		if err != nil {
			logger.Log.Warn("load player cursor failed", zap.String("content_id", contentID), zap.Error(err))
		} else if ok {
			seq.Seek(idx)
		}
	}

	if content.CertificadoID != nil && s.users != nil {
		user, err := s.users.GetUser(ctx, identity.ID)
		if err != nil {
			logger.Log.Warn("load user for certificate state failed", zap.String("user_id", identity.ID), zap.Error(err))
		} else {
			tracker.SetHoldsCertificate(user.HasCertificate(*content.CertificadoID))
		}
	}
	return tracker, nil
}

func (s *PlayerService) saveCursor(ctx context.Context, t *ProgressTracker) {
	if s.cursors == nil {
		return
	}
	if err := s.cursors.SaveCursor(ctx, t.Content().ID, t.Identity().ID, t.Sequence().Index()); err != nil {
		logger.Log.Warn("save player cursor failed", zap.Error(err))
	}
}

// BuildView 根据跟踪器生成视图
func (s *PlayerService) BuildView(t *ProgressTracker) PlayerView {
	content := t.Content()
	seq := t.Sequence()
	v := PlayerView{
		ContentID:       content.ID,
		ContentName:     content.Nome,
		Index:           seq.Index(),
		Total:           seq.Len(),
		ProgressPercent: seq.ProgressPercent(),
		IsBlocked:       t.IsBlocked(),
		IsLast:          seq.IsLast(),
		Finished:        t.Finished(),
		State:           t.State(),
		Answer:          t.CurrentAnswer(),
	}
	if act, ok := seq.Current(); ok {
		v.Activity = &act
		if h, err := s.deps.Registry.Handler(act.Tipo); err == nil {
			if d, ok := h.(ActivityDetailer); ok {
				v.Details = d.Details(act, v.Answer)
			}
		}
	}
	switch {
	case !v.IsLast:
		v.NextLabel = LabelNext
	case v.Finished:
		v.NextLabel = LabelClose
	default:
		v.NextLabel = LabelFinish
	}
	return v
}

func (s *PlayerService) View(ctx context.Context, contentID string, identity model.Identity) (PlayerView, error) {
	t, err := s.Open(ctx, contentID, identity)
	if err != nil {
		return PlayerView{}, err
	}
	return s.BuildView(t), nil
}

func (s *PlayerService) Answer(ctx context.Context, contentID string, identity model.Identity, in ActivityInput) (PlayerView, SubmitResult, error) {
	t, err := s.Open(ctx, contentID, identity)
	if err != nil {
		return PlayerView{}, SubmitResult{}, err
	}
	res, err := t.Submit(ctx, in)
	if err != nil {
		return PlayerView{}, SubmitResult{}, err
	}
	return s.BuildView(t), res, nil
}

func (s *PlayerService) Next(ctx context.Context, contentID string, identity model.Identity) (PlayerView, NextResult, error) {
	t, err := s.Open(ctx, contentID, identity)
	if err != nil {
		return PlayerView{}, NextResult{}, err
	}
	res, err := t.Next(ctx)
	if err != nil && !res.Concluded {
		return PlayerView{}, NextResult{}, err
	}
	s.saveCursor(ctx, t)
	return s.BuildView(t), res, err
}

func (s *PlayerService) Previous(ctx context.Context, contentID string, identity model.Identity) (PlayerView, error) {
	t, err := s.Open(ctx, contentID, identity)
	if err != nil {
		return PlayerView{}, err
	}
	if _, err := t.Previous(); err != nil {
		return PlayerView{}, err
	}
	s.saveCursor(ctx, t)
	return s.BuildView(t), nil
}

func (s *PlayerService) Exit(ctx context.Context, contentID string, identity model.Identity) (ExitPrompt, error) {
	t, err := s.Open(ctx, contentID, identity)
	if err != nil {
		return ExitPrompt{}, err
	}
	return t.ExitCheck(), nil
}

// UploadAnswerFile 当前活动必须是上传类，校验类型和大小后存储
func (s *PlayerService) UploadAnswerFile(ctx context.Context, contentID string, identity model.Identity, filename string, size int64, reader io.Reader, contentType string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("storage not configured")
	}
	t, err := s.Open(ctx, contentID, identity)
	if err != nil {
		return "", err
	}
	act, ok := t.Sequence().Current()
	if !ok || act.Tipo != model.ActivityUpload {
		return "", util.NewValidationError("activity", "current activity does not accept uploads")
	}
	accepted, maxMB := UploadHandler{}.Limits(act)
	if !util.ExtensionAllowed(filename, accepted) {
		return "", util.NewValidationError("file", "file type not accepted")
	}
	if size > int64(maxMB)*util.MB {
		return "", util.NewValidationError("file", "file exceeds %d MB", maxMB)
	}

	key := path.Join("answers", contentID, identity.ID, model.GenerateUUID()+"."+util.FileExtension(filename))
	url, err := s.storage.Upload(ctx, key, reader, size, contentType)
	if err != nil {
		return "", util.WrapNetwork("storage.upload", err)
	}
	return url, nil
}
