package service

import (
	"context"
	"sort"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"go.uber.org/zap"
)

const MaxManualGrade = 10

// TrackingRow 管理端进度列表中的一行
type TrackingRow struct {
	UserID        string             `json:"user_id"`
	Nome          string             `json:"nome"`
	Setor         string             `json:"setor"`
	Realizado     bool               `json:"realizado"`
	Nota          *float64           `json:"nota"`
	Status        *model.GradeStatus `json:"status"`
	DataConclusao *time.Time         `json:"data_conclusao"`
	Respostas     []model.Answer     `json:"respostas"`
	State         TrackerState       `json:"state"`
	CanGrade      bool               `json:"can_grade"`
	CanReset      bool               `json:"can_reset"`
}

type GradeResult struct {
	Status            model.GradeStatus `json:"status"`
	CertificateIssued bool              `json:"certificate_issued"`
}

// GradingService 人工批改、重置和进度跟踪
type GradingService struct {
	contents ContentStore
	users    UserStore
	issuer   *CertificateIssuer
}

func NewGradingService(contents ContentStore, users UserStore, issuer *CertificateIssuer) *GradingService {
	return &GradingService{contents: contents, users: users, issuer: issuer}
}

// Tracking 已完成的用户排在前面
func (s *GradingService) Tracking(ctx context.Context, contentID string) ([]TrackingRow, error) {
	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return nil, util.WrapNetwork("getContent", err)
	}

	ids := make([]string, 0, len(content.Usuarios))
	for id := range content.Usuarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]TrackingRow, 0, len(ids))
	for _, id := range ids {
		rec := content.Usuarios[id]
		if rec == nil {
			rec = &model.ProgressRecord{}
		}
		row := TrackingRow{
			UserID:        id,
			Realizado:     rec.Realizado,
			Nota:          rec.Nota,
			Status:        rec.Status,
			DataConclusao: rec.DataConclusao,
			Respostas:     rec.Conteudo,
			CanGrade:      content.Correcao != model.CorrectionAutomatic && (rec.Status == nil || *rec.Status != model.StatusApproved),
			CanReset:      rec.Status != nil && *rec.Status == model.StatusRejected,
		}
		holds := false
		if s.users != nil {
			if user, err := s.users.GetUser(ctx, id); err == nil {
				row.Nome, row.Setor = user.Nome, user.Setor
				holds = content.CertificadoID != nil && user.HasCertificate(*content.CertificadoID)
			} else {
				logger.Log.Warn("tracking user lookup failed", zap.String("user_id", id), zap.Error(err))
			}
		}
		row.State = DeriveState(content, rec, holds)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Realizado && !rows[j].Realizado
	})
	return rows, nil
}

func validateGrade(g model.GradeSubmission) error {
	if g.UserID == "" {
		return util.NewValidationError("user_id", "is required")
	}
	switch g.Status {
	case model.StatusApproved:
		if g.Nota == nil {
			return util.NewValidationError("nota", "a grade is required to approve")
		}
	case model.StatusRejected:
	default:
		return util.NewValidationError("status", "must be %q or %q", model.StatusApproved, model.StatusRejected)
	}
	if g.Nota != nil && (*g.Nota < 0 || *g.Nota > MaxManualGrade) {
		return util.NewValidationError("nota", "must be between 0 and %d", MaxManualGrade)
	}
	return nil
}

// Grade 仅人工批改内容，未通过前可批改
func (s *GradingService) Grade(ctx context.Context, contentID string, g model.GradeSubmission) (GradeResult, error) {
	if err := validateGrade(g); err != nil {
		return GradeResult{}, err
	}

	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return GradeResult{}, util.WrapNetwork("getContent", err)
	}
	if content.Correcao == model.CorrectionAutomatic {
		return GradeResult{}, util.ErrAutomaticCorrection
	}
	rec := content.Record(g.UserID)
	if rec == nil {
		return GradeResult{}, util.ErrNotAssigned
	}
	if rec.Status != nil && *rec.Status == model.StatusApproved {
		return GradeResult{}, util.ErrAlreadyApproved
	}

	if err := s.contents.GradeContent(ctx, contentID, g); err != nil {
		return GradeResult{}, util.WrapNetwork("gradeContent", err)
	}
	logger.Log.Info("content graded",
		zap.String("content_id", contentID),
		zap.String("user_id", g.UserID),
		zap.String("status", string(g.Status)))

	res := GradeResult{Status: g.Status}
	if g.Status == model.StatusApproved && s.issuer != nil {
		issued, err := s.issuer.Issue(ctx, content, g.UserID)
		if err != nil {
			monitoring.PartialCommits.WithLabelValues("grading", "2").Inc()
			return res, &util.PartialCommitError{
				Step:     2,
				StepName: "issue_certificate",
				Applied:  []string{"grade_content"},
				Err:      err,
			}
		}
		res.CertificateIssued = issued
	}
	return res, nil
}

// Reset 仅在未通过后由管理员触发，清空整条进度
func (s *GradingService) Reset(ctx context.Context, contentID, userID string) (*model.Content, error) {
	if userID == "" {
		return nil, util.NewValidationError("user_id", "is required")
	}
	content, err := s.contents.GetContent(ctx, contentID)
	if err != nil {
		return nil, util.WrapNetwork("getContent", err)
	}
	rec := content.Record(userID)
	if rec == nil {
		return nil, util.ErrNotAssigned
	}
	if rec.Status == nil || *rec.Status != model.StatusRejected {
		return nil, util.ErrNotRejected
	}

	rec.Reset()
	if err := s.contents.UpdateContent(ctx, content); err != nil {
		return nil, util.WrapNetwork("updateContent", err)
	}
	logger.Log.Info("progress reset", zap.String("content_id", contentID), zap.String("user_id", userID))
	return content, nil
}
