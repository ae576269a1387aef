package service

import (
	"context"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichSkipsUnknownCertificates(t *testing.T) {
	u := user("u1", "TI", model.Learner)
	u.Certificados = []model.UserCertificate{
		{ID: "A", DataConclusao: fixedClock()},
		{ID: "gone", DataConclusao: fixedClock()},
		{ID: "A", DataConclusao: fixedClock().Add(1)},
	}

	out := Enrich(u, []model.Certificate{cert("A", lvl(1)), cert("B", lvl(2))})
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].ID)
	assert.Equal(t, fixedClock(), out[0].DataConclusao)
}

func TestProfilePermissions(t *testing.T) {
	u := user("u1", "TI", model.Learner)
	u.Certificados = []model.UserCertificate{{ID: "A", DataConclusao: fixedClock()}, {ID: "B", DataConclusao: fixedClock()}}
	users := newFakeUsers(u)
	certs := newFakeCertificates(cert("A", lvl(1), "B"), cert("B", lvl(2), "A"))
	svc := NewProfileService(users, certs)
	ctx := context.Background()

	p, err := svc.Profile(ctx, model.Identity{ID: "u1", Role: model.Learner}, "u1")
	require.NoError(t, err)
	assert.Len(t, p.Certificates, 2)
	require.Len(t, p.Families, 1)
	assert.Equal(t, "B", p.Families[0].Representative.ID)

	_, err = svc.Profile(ctx, model.Identity{ID: "u2", Role: model.Learner}, "u1")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.Profile(ctx, model.Identity{ID: "boss", Role: model.Admin}, "u1")
	assert.NoError(t, err)

	_, err = svc.Profile(ctx, model.Identity{ID: "boss", Role: model.Admin}, "ghost")
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	certs.getErr = errBackend
	_, err = svc.Profile(ctx, model.Identity{ID: "u1"}, "u1")
	assert.ErrorIs(t, err, util.ErrNetwork)
}
