package service

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
)

type Profile struct {
	User         *model.User                 `json:"user"`
	Certificates []model.EnrichedCertificate `json:"certificates"`
	Families     []CertificateFamily         `json:"families"`
}

type ProfileService struct {
	users UserStore
	certs CertificateStore
}

func NewProfileService(users UserStore, certs CertificateStore) *ProfileService {
	return &ProfileService{users: users, certs: certs}
}

// Enrich 用户持有记录与证书详情配对，目录中不存在的证书跳过
func Enrich(user *model.User, catalog []model.Certificate) []model.EnrichedCertificate {
	idx := indexCertificates(catalog)
	seen := make(map[string]bool, len(user.Certificados))
	out := make([]model.EnrichedCertificate, 0, len(user.Certificados))
	for _, held := range user.Certificados {
		if seen[held.ID] {
			continue
		}
		seen[held.ID] = true
		c, ok := idx[held.ID]
		if !ok {
			logger.Log.Debug("held certificate missing from catalog",
				zap.String("user_id", user.ID),
				zap.String("certificate_id", held.ID))
			continue
		}
		out = append(out, model.EnrichedCertificate{Certificate: *c, DataConclusao: held.DataConclusao})
	}
	return out
}

// Profile 本人或管理人员可查看
func (s *ProfileService) Profile(ctx context.Context, viewer model.Identity, userID string) (*Profile, error) {
	if viewer.ID != userID && !viewer.IsStaff() {
		return nil, util.ErrPermissionDenied
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, util.WrapNetwork("getUser", err)
	}
	catalog, err := s.certs.GetCertificates(ctx)
	if err != nil {
		return nil, util.WrapNetwork("getCertificates", err)
	}
	enriched := Enrich(user, catalog)
	return &Profile{
		User:         user,
		Certificates: enriched,
		Families:     GroupCertificates(enriched),
	}, nil
}
