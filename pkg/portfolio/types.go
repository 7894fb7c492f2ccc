package portfolio

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record is implemented by every resource type stored through a Repository.
type Record[T any] interface {
	// Identifier returns the store-assigned identifier, or the zero ObjectID
	// when the record has not been stored yet.
	Identifier() primitive.ObjectID

	// WithID returns a copy of the record carrying the given identifier.
	WithID(id primitive.ObjectID) T
}

// Redactor is implemented by records that hold secrets which must never be
// returned to a client.
type Redactor[T any] interface {
	Redacted() T
}

// Detail represents the portfolio owner's details
type Detail struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" binding:"required"`
	Description string             `json:"description" bson:"description" binding:"required"`
	Image       string             `json:"image" bson:"image"`
}

// DetailUpdate represents a partial update of a Detail
type DetailUpdate struct {
	Name        *string `json:"name,omitempty" bson:"name,omitempty"`
	Description *string `json:"description,omitempty" bson:"description,omitempty"`
	Image       *string `json:"image,omitempty" bson:"image,omitempty"`
}

// Identifier returns the detail identifier
func (d Detail) Identifier() primitive.ObjectID { return d.ID }

// WithID returns a copy of the detail with the given identifier
func (d Detail) WithID(id primitive.ObjectID) Detail {
	d.ID = id
	return d
}

// TechStack represents a technology used across projects and experiences
type TechStack struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name" binding:"required"`
	Category string             `json:"category" bson:"category" binding:"required"`
}

// TechStackUpdate represents a partial update of a TechStack
type TechStackUpdate struct {
	Name     *string `json:"name,omitempty" bson:"name,omitempty"`
	Category *string `json:"category,omitempty" bson:"category,omitempty"`
}

// Identifier returns the tech stack identifier
func (t TechStack) Identifier() primitive.ObjectID { return t.ID }

// WithID returns a copy of the tech stack with the given identifier
func (t TechStack) WithID(id primitive.ObjectID) TechStack {
	t.ID = id
	return t
}

// Project represents a portfolio project
type Project struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name" binding:"required"`
	Company   string             `json:"company" bson:"company"`
	Repo      string             `json:"repo" bson:"repo"`
	URL       string             `json:"url" bson:"url"`
	TechStack []string           `json:"tech_stack" bson:"tech_stack" binding:"required"`
}

// ProjectUpdate represents a partial update of a Project
type ProjectUpdate struct {
	Name      *string   `json:"name,omitempty" bson:"name,omitempty"`
	Company   *string   `json:"company,omitempty" bson:"company,omitempty"`
	Repo      *string   `json:"repo,omitempty" bson:"repo,omitempty"`
	URL       *string   `json:"url,omitempty" bson:"url,omitempty"`
	TechStack *[]string `json:"tech_stack,omitempty" bson:"tech_stack,omitempty"`
}

// Identifier returns the project identifier
func (p Project) Identifier() primitive.ObjectID { return p.ID }

// WithID returns a copy of the project with the given identifier
func (p Project) WithID(id primitive.ObjectID) Project {
	p.ID = id
	return p
}

// Experience represents a role held at a company. Start and End are
// pointers so that a zero year is accepted while a missing one is not.
type Experience struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Role        string             `json:"role" bson:"role" binding:"required"`
	Company     string             `json:"company" bson:"company" binding:"required"`
	Description string             `json:"description" bson:"description"`
	Start       *uint32            `json:"start" bson:"start" binding:"required"`
	End         *uint32            `json:"end" bson:"end" binding:"required"`
	TechStack   []string           `json:"tech_stack" bson:"tech_stack" binding:"required"`
}

// ExperienceUpdate represents a partial update of an Experience
type ExperienceUpdate struct {
	Role        *string   `json:"role,omitempty" bson:"role,omitempty"`
	Company     *string   `json:"company,omitempty" bson:"company,omitempty"`
	Description *string   `json:"description,omitempty" bson:"description,omitempty"`
	Start       *uint32   `json:"start,omitempty" bson:"start,omitempty"`
	End         *uint32   `json:"end,omitempty" bson:"end,omitempty"`
	TechStack   *[]string `json:"tech_stack,omitempty" bson:"tech_stack,omitempty"`
}

// Identifier returns the experience identifier
func (e Experience) Identifier() primitive.ObjectID { return e.ID }

// WithID returns a copy of the experience with the given identifier
func (e Experience) WithID(id primitive.ObjectID) Experience {
	e.ID = id
	return e
}

// User represents an account allowed to authenticate against the service.
// Password holds the hash once stored; it is omitted from JSON when empty.
type User struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email    string             `json:"email" bson:"email" binding:"required"`
	Password string             `json:"password,omitempty" bson:"password"`
}

// UserUpdate represents a partial update of a User. The password can only be
// changed through PasswordUpdate.
type UserUpdate struct {
	Email *string `json:"email,omitempty" bson:"email,omitempty" binding:"omitnil,min=1"`
}

// PasswordUpdate represents a password change request
type PasswordUpdate struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Credentials represents an authentication request
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identifier returns the user identifier
func (u User) Identifier() primitive.ObjectID { return u.ID }

// WithID returns a copy of the user with the given identifier
func (u User) WithID(id primitive.ObjectID) User {
	u.ID = id
	return u
}

// Redacted returns a copy of the user without its password hash
func (u User) Redacted() User {
	u.Password = ""
	return u
}
