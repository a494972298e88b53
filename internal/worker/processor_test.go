package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/testutil"
)

type fakeRecognizer struct {
	mu     sync.Mutex
	inputs []engine.Input
	second []engine.SecondInput
	err    error
}

func (f *fakeRecognizer) Recognize(_ context.Context, in engine.Input) (*engine.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Output{TaskID: in.TaskID}, nil
}

func (f *fakeRecognizer) RecognizeSecond(_ context.Context, in engine.SecondInput) (*engine.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.second = append(f.second, in)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Output{TaskID: in.TaskID}, nil
}

func TestHandleRecognize(t *testing.T) {
	fake := &fakeRecognizer{}
	p := NewProcessor(fake, nil, time.Second)

	task, err := NewRecognizeTask(RecognizePayload{TaskID: "job-1", Images: []Image{{Name: "a.png", Data: []byte("x")}}})
	require.NoError(t, err)
	require.NoError(t, p.HandleRecognize(context.Background(), task))

	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "job-1", fake.inputs[0].TaskID)
	assert.Equal(t, "a.png", fake.inputs[0].Sources[0].Name)
	assert.Equal(t, []byte("x"), fake.inputs[0].Sources[0].Data)
}

func TestHandleRecognizeWithTemplate(t *testing.T) {
	override := &fakeRecognizer{}
	var formats []template.Format
	layouts := func(_ []byte, f template.Format) (Recognizer, error) {
		formats = append(formats, f)
		return override, nil
	}
	p := NewProcessor(nil, layouts, 0)

	task, err := NewRecognizeTask(RecognizePayload{
		Template: []byte("{}"),
		Images:   []Image{{Data: []byte("x")}},
	})
	require.NoError(t, err)
	require.NoError(t, p.HandleRecognize(context.Background(), task))
	assert.Equal(t, []template.Format{template.FormatJSON}, formats)
	assert.Len(t, override.inputs, 1)
}

func TestHandleRecognizeSkipsRetry(t *testing.T) {
	images := []Image{{Data: []byte("x")}}
	badLayouts := func([]byte, template.Format) (Recognizer, error) { return nil, errors.New("no pages") }

	tests := []struct {
		name string
		proc *Processor
		task func(t *testing.T) *asynq.Task
	}{
		{
			name: "bad payload",
			proc: NewProcessor(&fakeRecognizer{}, nil, 0),
			task: func(*testing.T) *asynq.Task { return asynq.NewTask(TypeRecognize, []byte("{")) },
		},
		{
			name: "no layout",
			proc: NewProcessor(nil, nil, 0),
			task: func(t *testing.T) *asynq.Task {
				task, err := NewRecognizeTask(RecognizePayload{Images: images})
				require.NoError(t, err)
				return task
			},
		},
		{
			name: "templates disabled",
			proc: NewProcessor(&fakeRecognizer{}, nil, 0),
			task: func(t *testing.T) *asynq.Task {
				task, err := NewRecognizeTask(RecognizePayload{Template: []byte("{}"), Images: images})
				require.NoError(t, err)
				return task
			},
		},
		{
			name: "invalid template",
			proc: NewProcessor(nil, badLayouts, 0),
			task: func(t *testing.T) *asynq.Task {
				task, err := NewRecognizeTask(RecognizePayload{Template: []byte("{}"), Images: images})
				require.NoError(t, err)
				return task
			},
		},
		{
			name: "empty batch",
			proc: NewProcessor(&fakeRecognizer{err: engine.ErrEmptyBatch}, nil, 0),
			task: func(t *testing.T) *asynq.Task {
				task, err := NewRecognizeTask(RecognizePayload{Images: images})
				require.NoError(t, err)
				return task
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.proc.HandleRecognize(context.Background(), tt.task(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
}

func TestHandleRecognizeRetriesEngineFailures(t *testing.T) {
	p := NewProcessor(&fakeRecognizer{err: errors.New("disk full")}, nil, 0)
	task, err := NewRecognizeTask(RecognizePayload{Images: []Image{{Data: []byte("x")}}})
	require.NoError(t, err)

	err = p.HandleRecognize(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHandleRecognizeSecond(t *testing.T) {
	fake := &fakeRecognizer{}
	p := NewProcessor(fake, nil, 0)

	task, err := NewRecognizeSecondTask(SecondPayload{Second: engine.SecondInput{
		TaskID: "second-1",
		Pages:  []engine.SecondPage{{}},
		Images: []string{"aGk="},
	}})
	require.NoError(t, err)
	assert.Equal(t, TypeRecognizeSecond, task.Type())
	require.NoError(t, p.HandleRecognizeSecond(context.Background(), task))

	require.Len(t, fake.second, 1)
	assert.Equal(t, "second-1", fake.second[0].TaskID)
	assert.Len(t, fake.second[0].Pages, 1)

	assert.ErrorIs(t, p.HandleRecognizeSecond(context.Background(), asynq.NewTask(TypeRecognizeSecond, []byte("nope"))), asynq.SkipRetry)
}

func TestNewRecognizeTask(t *testing.T) {
	_, err := NewRecognizeTask(RecognizePayload{TaskID: "x"})
	assert.Error(t, err)

	task, err := NewRecognizeTask(RecognizePayload{
		TaskID:         "x",
		Template:       []byte("pages: []"),
		TemplateFormat: template.FormatYAML,
		Images:         []Image{{Name: "p.jpg", Data: []byte{0xff, 0xd8}}},
	})
	require.NoError(t, err)
	assert.Equal(t, TypeRecognize, task.Type())

	var p RecognizePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, template.FormatYAML, p.TemplateFormat)
	assert.Equal(t, []byte{0xff, 0xd8}, p.Images[0].Data)
}

func TestHandleRecognizeWithEngineCache(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Workers = 1
	cache, err := engine.NewCache(cfg, engine.Options{}, 2)
	require.NoError(t, err)
	layout, err := json.Marshal(testutil.SampleScan(1))
	require.NoError(t, err)

	p := NewProcessor(nil, CacheLayouts(cache), 0)
	task, err := NewRecognizeTask(RecognizePayload{Template: layout, Images: []Image{{Name: "junk", Data: []byte("not an image")}}})
	require.NoError(t, err)

	require.NoError(t, p.HandleRecognize(context.Background(), task))
	require.NoError(t, p.HandleRecognize(context.Background(), task))
	assert.Equal(t, 1, cache.Len())
}
