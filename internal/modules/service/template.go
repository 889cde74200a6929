package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type TemplateService interface {
	Create(ctx context.Context, actor *model.Profile, in TemplateInput) (*model.ResponseTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ResponseTemplate, error)
	List(ctx context.Context, category, query string) ([]model.ResponseTemplate, error)
	Update(ctx context.Context, id uuid.UUID, in TemplateInput) (*model.ResponseTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Render(ctx context.Context, id uuid.UUID, vars map[string]string) (*RenderedTemplate, error)
	Import(ctx context.Context, createdBy uuid.UUID, r io.Reader) (int, error)
}

type templateService struct {
	r   repo.TemplateRepo
	log *zap.Logger
}

func NewTemplateService(r repo.TemplateRepo, log *zap.Logger) TemplateService {
	return &templateService{r: r, log: log}
}

const defaultTemplateCategory = "general"

type TemplateInput struct {
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content" yaml:"content"`
	Category string `json:"category" yaml:"category"`
}

func (in TemplateInput) normalize() (TemplateInput, error) {
	out := TemplateInput{
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Category: strings.TrimSpace(in.Category),
	}
	if out.Title == "" || out.Content == "" {
		return out, fmt.Errorf("%w: template title and content are required", ErrInvalidInput)
	}
	if out.Category == "" {
		out.Category = defaultTemplateCategory
	}
	return out, nil
}

type RenderedTemplate struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	// Missing lists placeholders that had no value and were left as is.
	Missing []string `json:"missing"`
}

func (s *templateService) Create(ctx context.Context, actor *model.Profile, in TemplateInput) (*model.ResponseTemplate, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	t := &model.ResponseTemplate{Title: in.Title, Content: in.Content, Category: in.Category, CreatedBy: actor.ID}
	if err := s.r.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *templateService) Get(ctx context.Context, id uuid.UUID) (*model.ResponseTemplate, error) {
	t, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *templateService) List(ctx context.Context, category, query string) ([]model.ResponseTemplate, error) {
	return s.r.List(ctx, strings.TrimSpace(category), strings.TrimSpace(query))
}

func (s *templateService) Update(ctx context.Context, id uuid.UUID, in TemplateInput) (*model.ResponseTemplate, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	t, err := s.r.Update(ctx, id, map[string]any{
		"title":    in.Title,
		"content":  in.Content,
		"category": in.Category,
	})
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *templateService) Delete(ctx context.Context, id uuid.UUID) error {
	return notFound(s.r.Delete(ctx, id))
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// RenderContent replaces {{name}} placeholders with vars. Unknown
// placeholders are kept verbatim and reported in missing.
func RenderContent(content string, vars map[string]string) (out string, missing []string) {
	seen := map[string]bool{}
	out = placeholderRe.ReplaceAllStringFunc(content, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return m
	})
	return out, missing
}

func (s *templateService) Render(ctx context.Context, id uuid.UUID, vars map[string]string) (*RenderedTemplate, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, missing := RenderContent(t.Content, vars)
	title, _ := RenderContent(t.Title, vars)
	if missing == nil {
		missing = []string{}
	}
	return &RenderedTemplate{ID: t.ID, Title: title, Content: content, Missing: missing}, nil
}

type templateFile struct {
	Templates []TemplateInput `yaml:"templates"`
}

// Import seeds templates from a YAML document of the form
//
//	templates:
//	  - title: Greeting
//	    category: general
//	    content: Hello {{name}}
//
// All entries are validated before anything is written.
func (s *templateService) Import(ctx context.Context, createdBy uuid.UUID, r io.Reader) (int, error) {
	var f templateFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return 0, fmt.Errorf("%w: empty template file", ErrInvalidInput)
		}
		return 0, fmt.Errorf("%w: parse templates: %v", ErrInvalidInput, err)
	}
	if len(f.Templates) == 0 {
		return 0, nil
	}
	ts := make([]model.ResponseTemplate, 0, len(f.Templates))
	for i, in := range f.Templates {
		in, err := in.normalize()
		if err != nil {
			return 0, fmt.Errorf("template %d: %w", i+1, err)
		}
		ts = append(ts, model.ResponseTemplate{Title: in.Title, Content: in.Content, Category: in.Category, CreatedBy: createdBy})
	}
	if err := s.r.CreateBatch(ctx, ts); err != nil {
		return 0, err
	}
	s.log.Info("templates imported", zap.Int("count", len(ts)))
	return len(ts), nil
}
