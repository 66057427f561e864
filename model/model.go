package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type Access string

const (
	AccessPublic     Access = "PUBLIC"
	AccessRestricted Access = "RESTRICTED"
)

func (a Access) Valid() bool {
	return a == AccessPublic || a == AccessRestricted
}

type QuestionType string

const (
	SingleLine QuestionType = "SINGLE_LINE"
	MultiLine  QuestionType = "MULTI_LINE"
	Integer    QuestionType = "INTEGER"
	Checkbox   QuestionType = "CHECKBOX"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleLine, MultiLine, Integer, Checkbox:
		return true
	}
	return false
}

// Actor is the caller identity extracted from the access token.
// The zero value is an anonymous caller.
type Actor struct {
	ID   string
	Name string
	Role Role
}

func (a Actor) Anonymous() bool {
	return a.ID == ""
}

func (a Actor) Admin() bool {
	return a.Role == RoleAdmin
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// UserRef is the embedded author/submitter shape in API responses.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Template struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Topic       string     `json:"topic"`
	Access      Access     `json:"access"`
	AuthorID    string     `json:"authorId,omitempty"`
	Author      *UserRef   `json:"author,omitempty"`
	Tags        []string   `json:"tags"`
	Questions   []Question `json:"questions,omitempty"`
	FormCount   int        `json:"formCount"`
	LikeCount   int        `json:"likeCount"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

type Question struct {
	ID            string       `json:"id,omitempty"`
	TemplateID    string       `json:"templateId,omitempty"`
	Title         string       `json:"title"`
	Description   *string      `json:"description"`
	Type          QuestionType `json:"type"`
	Required      bool         `json:"required"`
	ShowInSummary bool         `json:"showInSummary"`
	Visible       bool         `json:"visible"`
	Order         int          `json:"order"`
}

// TemplateRef is the embedded template shape in form responses.
type TemplateRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	AuthorID string `json:"authorId"`
}

type Form struct {
	ID          string       `json:"id,omitempty"`
	TemplateID  string       `json:"templateId"`
	Template    *TemplateRef `json:"template,omitempty"`
	SubmitterID string       `json:"submitterId,omitempty"`
	Submitter   *UserRef     `json:"submitter,omitempty"`
	Answers     []Answer     `json:"answers"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

type Answer struct {
	ID         string    `json:"id,omitempty"`
	QuestionID string    `json:"questionId"`
	Value      string    `json:"value"`
	Question   *Question `json:"question,omitempty"`
}

type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
