package service

import (
	"context"
	"encoding/json"
	"testing"

	"lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKeepsOrderAndDropsFailures(t *testing.T) {
	store := newFakeTemplates(
		tpl("t1", model.ActivityVideo, `{"url":"v1"}`),
		tpl("t2", model.ActivityDocument, `{"url":"d1"}`),
		tpl("t3", model.ActivityArticle, `{"titulo":"a"}`),
	)
	store.fail["t2"] = errBackend

	seq, err := NewSequencer(store, 2).Build(context.Background(), []string{"t3", "t2", "missing", "t1"})
	require.NoError(t, err)

	var ids []string
	for _, a := range seq.Activities() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"t3", "t1"}, ids)
	assert.Equal(t, 4, store.calls)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSequencer(newFakeTemplates(), 1).Build(ctx, []string{"t1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlattenComposite(t *testing.T) {
	composite := &model.Template{
		UUIDBase: model.UUIDBase{ID: "c1"},
		Nome:     "Módulo 1",
		Atividades: []model.CompositeActivity{
			{ID: "intro", Tipo: model.ActivityVideo, Data: json.RawMessage(`{"url":"v"}`)},
			{Tipo: model.ActivityQuiz, Data: json.RawMessage(`{"dados":{"opcoes":["a","b"]}}`)},
		},
	}
	single := &model.Template{
		UUIDBase:   model.UUIDBase{ID: "c2"},
		Nome:       "Leitura",
		Atividades: []model.CompositeActivity{{Tipo: model.ActivityArticle}},
	}
	wrapped := tpl("t9", model.ActivityDocument, `{"dados":{"url":"inner"},"thumbnail":"cover.png"}`)

	acts := FlattenTemplates([]*model.Template{composite, single, wrapped})
	require.Len(t, acts, 4)

	assert.Equal(t, "intro", acts[0].ID)
	assert.Equal(t, "c1:1", acts[1].ID)
	assert.Equal(t, "Módulo 1", acts[1].TemplateName)
	assert.Equal(t, "c1", acts[1].TemplateID)
	assert.JSONEq(t, `{"opcoes":["a","b"]}`, string(acts[1].Data))
	assert.Equal(t, "c2", acts[2].ID)
	assert.JSONEq(t, `{}`, string(acts[2].Data))

	assert.JSONEq(t, `{"url":"inner"}`, string(acts[3].Data))
	assert.Equal(t, "cover.png", acts[3].Thumbnail)
}

func TestNormalizePayloadCandidates(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(model.NormalizePayload(nil, json.RawMessage(`{"a":1}`))))
	assert.JSONEq(t, `{"b":2}`, string(model.NormalizePayload(json.RawMessage(`null`), json.RawMessage(`{"dados":{"b":2}}`))))
	assert.JSONEq(t, `{}`, string(model.NormalizePayload(json.RawMessage(`""`))))
}

func TestSequenceNavigation(t *testing.T) {
	seq := NewSequence([]Activity{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})

	assert.Equal(t, 25.0, seq.ProgressPercent())
	assert.False(t, seq.Previous())
	assert.True(t, seq.Advance())
	assert.Equal(t, 50.0, seq.ProgressPercent())

	seq.Seek(10)
	assert.Equal(t, 3, seq.Index())
	assert.True(t, seq.IsLast())
	assert.Equal(t, 100.0, seq.ProgressPercent())
	assert.False(t, seq.Advance())

	seq.Seek(-4)
	assert.Equal(t, 0, seq.Index())

	empty := NewSequence(nil)
	assert.Equal(t, 0.0, empty.ProgressPercent())
	assert.False(t, empty.IsLast())
	_, ok := empty.Current()
	assert.False(t, ok)
}
