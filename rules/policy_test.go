package rules

import (
	"testing"

	"github.com/formflow/formflow/model"
	"github.com/stretchr/testify/assert"
)

var (
	author    = model.Actor{ID: "author", Name: "Author", Role: model.RoleUser}
	admin     = model.Actor{ID: "admin", Name: "Admin", Role: model.RoleAdmin}
	stranger  = model.Actor{ID: "stranger", Name: "Stranger", Role: model.RoleUser}
	anonymous = model.Actor{}
)

func TestCanModify(t *testing.T) {
	tmpl := model.Template{ID: "t1", AuthorID: "author"}

	assert.True(t, CanModify(author, tmpl))
	assert.True(t, CanModify(admin, tmpl))
	assert.False(t, CanModify(stranger, tmpl))
	assert.False(t, CanModify(anonymous, tmpl))
}

func TestCanView(t *testing.T) {
	tests := []struct {
		name   string
		access model.Access
		actor  model.Actor
		want   bool
	}{
		{"public/anonymous", model.AccessPublic, anonymous, true},
		{"public/stranger", model.AccessPublic, stranger, true},
		{"public/author", model.AccessPublic, author, true},
		{"public/admin", model.AccessPublic, admin, true},
		{"restricted/anonymous", model.AccessRestricted, anonymous, false},
		{"restricted/stranger", model.AccessRestricted, stranger, false},
		{"restricted/author", model.AccessRestricted, author, true},
		{"restricted/admin", model.AccessRestricted, admin, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := model.Template{ID: "t1", AuthorID: "author", Access: tt.access}
			assert.Equal(t, tt.want, CanView(tt.actor, tmpl))
		})
	}
}

func TestCanViewForm(t *testing.T) {
	form := model.Form{
		ID:          "f1",
		SubmitterID: "submitter",
		Template:    &model.TemplateRef{ID: "t1", AuthorID: "author"},
	}
	submitter := model.Actor{ID: "submitter", Role: model.RoleUser}

	assert.True(t, CanViewForm(submitter, form))
	assert.True(t, CanViewForm(author, form))
	assert.True(t, CanViewForm(admin, form))
	assert.False(t, CanViewForm(stranger, form))
	assert.False(t, CanViewForm(anonymous, form))
}

func TestCanViewForm_TemplateNotLoaded(t *testing.T) {
	form := model.Form{ID: "f1", SubmitterID: "submitter"}
	assert.False(t, CanViewForm(stranger, form))
	assert.True(t, CanViewForm(model.Actor{ID: "submitter"}, form))
}
