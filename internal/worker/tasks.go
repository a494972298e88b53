// Package worker runs recognitions taken from a Redis-backed asynq queue and
// builds the tasks that feed it.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/template"
)

// Task types.
const (
	TypeRecognize       = "omr:recognize"
	TypeRecognizeSecond = "omr:recognize_second"
)

// Image is one photograph carried in a task payload.
type Image struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// RecognizePayload is the payload of a TypeRecognize task. Template may be
// empty, in which case the worker's configured layout is used.
type RecognizePayload struct {
	TaskID         string          `json:"task_id"`
	Template       []byte          `json:"template,omitempty"`
	TemplateFormat template.Format `json:"template_format,omitempty"`
	Images         []Image         `json:"images"`
}

// SecondPayload is the payload of a TypeRecognizeSecond task.
type SecondPayload struct {
	Template       []byte             `json:"template,omitempty"`
	TemplateFormat template.Format    `json:"template_format,omitempty"`
	Second         engine.SecondInput `json:"second"`
}

// NewRecognizeTask builds a recognition task.
func NewRecognizeTask(p RecognizePayload, opts ...asynq.Option) (*asynq.Task, error) {
	if len(p.Images) == 0 {
		return nil, errors.New("recognize task needs at least one image")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRecognize, payload, opts...), nil
}

// NewRecognizeSecondTask builds a second-pass task.
func NewRecognizeSecondTask(p SecondPayload, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRecognizeSecond, payload, opts...), nil
}

func (p RecognizePayload) input() engine.Input {
	in := engine.Input{TaskID: p.TaskID, Sources: make([]engine.Source, len(p.Images))}
	for i, im := range p.Images {
		in.Sources[i] = engine.Source{Name: im.Name, Data: im.Data}
	}
	return in
}

func format(f template.Format) template.Format {
	if f == "" {
		return template.FormatJSON
	}
	return f
}
