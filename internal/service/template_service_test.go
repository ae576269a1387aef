package service

import (
	"context"
	"encoding/json"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadOf(t *testing.T, tmpl *model.Template) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(tmpl.Data, &out))
	return out
}

func TestCreateTemplateMergesDefaults(t *testing.T) {
	store := newFakeTemplates()
	svc := NewTemplateService(store, store)

	created, err := svc.Create(context.Background(), TemplateDraft{
		Nome: "Boas-vindas",
		Tipo: model.ActivityVideo,
		Data: json.RawMessage(`{"url":"https://cdn.example.com/v.mp4","obrigatorio":true}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	p := payloadOf(t, created)
	assert.Equal(t, "https://cdn.example.com/v.mp4", p["url"])
	assert.Equal(t, true, p["obrigatorio"])
	assert.Equal(t, "", p["titulo"])
	assert.Contains(t, p, "descricao")
}

func TestCreateTemplateUnwrapsDados(t *testing.T) {
	store := newFakeTemplates()
	svc := NewTemplateService(store, nil)

	created, err := svc.Create(context.Background(), TemplateDraft{
		Nome:     "Quiz",
		Tipo:     model.ActivityQuiz,
		Template: json.RawMessage(`{"dados":{"pergunta":"2+2?","opcoes":["3",{"texto":"4","correta":true}]}}`),
		Data:     json.RawMessage(`{"pergunta":"ignored"}`),
	})
	require.NoError(t, err)

	p := payloadOf(t, created)
	assert.Equal(t, "2+2?", p["pergunta"])
	assert.Len(t, p["opcoes"], 2)
	assert.NotContains(t, p, "dados")

	act := Activity{ID: created.ID, Tipo: model.ActivityQuiz, Data: json.RawMessage(created.Data)}
	assert.Equal(t, 1, QuizHandler{}.CorrectIndex(act))
}

func TestCreateTemplateValidation(t *testing.T) {
	store := newFakeTemplates()
	svc := NewTemplateService(store, store)
	ctx := context.Background()

	cases := map[string]TemplateDraft{
		"missing name":  {Tipo: model.ActivityVideo},
		"unknown type":  {Nome: "x", Tipo: "podcast"},
		"one option":    {Nome: "x", Tipo: model.ActivityQuiz, Data: json.RawMessage(`{"opcoes":["a"]}`)},
		"not an object": {Nome: "x", Tipo: model.ActivityVideo, Data: json.RawMessage(`[1,2]`)},
		"bad composite": {Nome: "x", Tipo: model.ActivityVideo, Atividades: []model.CompositeActivity{{Tipo: "jogo"}}},
		"empty options": {Nome: "x", Tipo: model.ActivityQuiz, Data: json.RawMessage(`{"opcoes":[]}`)},
	}
	for name, d := range cases {
		_, err := svc.Create(ctx, d)
		assert.ErrorIs(t, err, util.ErrValidation, name)
	}
	assert.Empty(t, store.items)

	// 未提供 opcoes 时使用默认的两个空选项
	_, err := svc.Create(ctx, TemplateDraft{Nome: "Quiz", Tipo: model.ActivityQuiz})
	assert.NoError(t, err)
}

func TestUpdateTemplateInvalidatesCache(t *testing.T) {
	store := newFakeTemplates(tpl("t1", model.ActivityArticle, `{"titulo":"Antigo"}`))
	svc := NewTemplateService(store, store)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "t1", TemplateDraft{
		Nome: "Artigo",
		Tipo: model.ActivityArticle,
		Data: json.RawMessage(`{"titulo":"Novo","tempoLeitura":"5 mins"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", updated.ID)
	assert.Equal(t, []string{"t1"}, store.invalidated)

	got, err := svc.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Artigo", got.Nome)
	assert.Equal(t, "Novo", payloadOf(t, got)["titulo"])

	_, err = svc.Update(ctx, "ghost", TemplateDraft{Nome: "x", Tipo: model.ActivityVideo})
	assert.ErrorIs(t, err, util.ErrTemplateNotFound)
	assert.Len(t, store.invalidated, 1)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
