package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRenderContent(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		vars        map[string]string
		want        string
		wantMissing []string
	}{
		{
			name:    "all substituted",
			content: "Hi {{name}}, ticket {{ ticket.id }} is {{status}}.",
			vars:    map[string]string{"name": "Ana", "ticket.id": "42", "status": "resolved"},
			want:    "Hi Ana, ticket 42 is resolved.",
		},
		{
			name:        "missing kept verbatim",
			content:     "Hi {{name}}, see {{link}} and {{link}}",
			vars:        map[string]string{"name": "Ana"},
			want:        "Hi Ana, see {{link}} and {{link}}",
			wantMissing: []string{"link"},
		},
		{
			name:    "no placeholders",
			content: "Plain text {not one}",
			want:    "Plain text {not one}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := RenderContent(tt.content, tt.vars)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestTemplateService_CreateDefaultsCategory(t *testing.T) {
	r := &MockTemplateRepo{}
	r.On("Create", mock.Anything, mock.MatchedBy(func(tp *model.ResponseTemplate) bool {
		return tp.Category == "general" && tp.Title == "Greeting"
	})).Return(nil).Once()

	s := NewTemplateService(r, zap.NewNop())
	_, err := s.Create(context.Background(), admin(), TemplateInput{Title: " Greeting ", Content: "Hello"})
	require.NoError(t, err)
	r.AssertExpectations(t)

	_, err = s.Create(context.Background(), admin(), TemplateInput{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	r.AssertNumberOfCalls(t, "Create", 1)
}

func TestTemplateService_Render(t *testing.T) {
	id := uuid.New()
	r := &MockTemplateRepo{}
	r.On("Get", mock.Anything, id).Return(&model.ResponseTemplate{ID: id, Title: "Re: {{subject}}", Content: "Dear {{name}}"}, nil)
	r.On("Get", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	s := NewTemplateService(r, zap.NewNop())
	got, err := s.Render(context.Background(), id, map[string]string{"subject": "VPN"})
	require.NoError(t, err)
	assert.Equal(t, "Re: VPN", got.Title)
	assert.Equal(t, "Dear {{name}}", got.Content)
	assert.Equal(t, []string{"name"}, got.Missing)

	_, err = s.Render(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateService_Import(t *testing.T) {
	creator := uuid.New()

	t.Run("batch insert", func(t *testing.T) {
		r := &MockTemplateRepo{}
		r.On("CreateBatch", mock.Anything, mock.MatchedBy(func(ts []model.ResponseTemplate) bool {
			return len(ts) == 2 && ts[0].Category == "billing" && ts[1].Category == "general" && ts[1].CreatedBy == creator
		})).Return(nil).Once()

		doc := `
templates:
  - title: Refund
    category: billing
    content: Your refund of {{amount}} is on its way.
  - title: Greeting
    content: Hello {{name}}
`
		n, err := NewTemplateService(r, zap.NewNop()).Import(context.Background(), creator, strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		r.AssertExpectations(t)
	})

	t.Run("one invalid entry writes nothing", func(t *testing.T) {
		r := &MockTemplateRepo{}
		doc := "templates:\n  - title: ok\n    content: fine\n  - title: broken\n"
		_, err := NewTemplateService(r, zap.NewNop()).Import(context.Background(), creator, strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrInvalidInput)
		r.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})

	t.Run("not yaml", func(t *testing.T) {
		r := &MockTemplateRepo{}
		_, err := NewTemplateService(r, zap.NewNop()).Import(context.Background(), creator, strings.NewReader("templates: [unterminated"))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
