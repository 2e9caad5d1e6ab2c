package flow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/careerprep-backend/internal/flow/schema"
)

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(MustNew(echoDef())))
	err := r.Register(MustNew(echoDef()))
	assert.True(t, errors.Is(err, ErrDuplicateFlow))
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	b := echoDef()
	b.Name = "b-flow"
	a := echoDef()
	a.Name = "a-flow"
	r.MustRegister(MustNew(b), MustNew(a))
	assert.Equal(t, []string{"a-flow", "b-flow"}, r.Names())

	ds := r.Describe()
	require.Len(t, ds, 2)
	assert.Equal(t, "a-flow", ds[0].Name)
	assert.Equal(t, "object", ds[0].Output["type"])
}

func TestRegistryRunJSON(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(MustNew(echoDef()))
	m := &fakeModel{text: `{"items":["a","b","c"]}`}

	out, rec, err := r.RunJSON(context.Background(), m, "echo", json.RawMessage(`{"topic":"Go","count":3}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":["a","b","c"]}`, string(out))
	assert.Equal(t, StateComplete, rec.State)
	assert.Equal(t, "v2", rec.Version)

	_, _, err = r.RunJSON(context.Background(), m, "nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownFlow))
}

func TestRegistryRunJSONRejectsBadInput(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(MustNew(echoDef()))
	m := &fakeModel{}

	for name, raw := range map[string]string{
		"not json":      `{topic:`,
		"unknown field": `{"topic":"Go","colour":"red"}`,
		"out of range":  `{"topic":"Go","count":50}`,
		"empty body":    ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, rec, err := r.RunJSON(context.Background(), m, "echo", json.RawMessage(raw))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, StateFailed, rec.State)
			assert.Equal(t, KindValidation, rec.Kind)
		})
	}
	assert.Equal(t, 0, m.calls)
}

func TestRegistryConcurrentRuns(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(MustNew(echoDef()))
	m := &fakeModel{text: `{"items":["a","b"]}`}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := r.RunJSON(context.Background(), m, "echo", json.RawMessage(`{"topic":"Go"}`))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 16, m.calls)
}

func TestUndeclaredFields(t *testing.T) {
	def := echoDef()
	assert.Empty(t, UndeclaredFields(MustNew(def)))

	def.Template = "{{topic}} {{topc}} {{#each tags}}{{this}} {{label}}{{/each}}"
	assert.Equal(t, []string{"topc", "tags[].label"}, UndeclaredFields(MustNew(def)))

	type hist struct {
		History []map[string]string `json:"history"`
	}
	nested := MustNew(Definition[hist, echoOut]{
		Name: "nested",
		Input: schema.Object(schema.Field("history", schema.Array(schema.Object(
			schema.Field("role", schema.String()),
		)))),
		Output:   echoDef().Output,
		Template: "{{#each history}}{{role}}{{/each}}",
	})
	assert.Empty(t, UndeclaredFields(nested))
}
