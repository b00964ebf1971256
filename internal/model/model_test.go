package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModel = `
entities:
  - name: users
    schema: public
    attributes:
      - name: id
        type: bigint
        identifier: true
      - name: email
        type: text
        unique: true
      - name: status
        type: text
        mandatory: true
    indexes:
      - name: uq_email
        columns: [email]
        unique: true
  - name: orders
    schema: public
    attributes:
      - name: id
        type: bigint
        identifier: true
      - name: user_id
        type: bigint
        references:
          entity: users
          attribute: id
`

func TestLoad(t *testing.T) {
	m, err := Load([]byte(sampleModel))
	require.NoError(t, err)
	require.Len(t, m.Entities, 2)

	users := m.Entity("users")
	require.NotNil(t, users)
	assert.Equal(t, "public", users.Schema)
	require.Len(t, users.Attributes, 3)
	assert.True(t, users.Attributes[1].Unique)
	require.Len(t, users.Indexes, 1)
	assert.Equal(t, []string{"email"}, users.Indexes[0].Columns)

	orders := m.Entity("orders")
	require.NotNil(t, orders)
	ref := orders.Attribute("user_id").Reference
	require.NotNil(t, ref)
	assert.Equal(t, "users", ref.Entity)
	assert.Equal(t, "id", ref.Attribute)
}

func TestLoadMarksIdentifiersMandatory(t *testing.T) {
	m, err := Load([]byte(sampleModel))
	require.NoError(t, err)

	id := m.Entity("users").IdentifierAttribute()
	require.NotNil(t, id)
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.Mandatory, "identifier attributes are implicitly mandatory")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load([]byte("entities: [not: closed"))
	require.Error(t, err)
}

func TestValidateAcceptsSampleModel(t *testing.T) {
	m, err := Load([]byte(sampleModel))
	require.NoError(t, err)
	require.NoError(t, Validate(m))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		model   *Model
		problem string
	}{
		{
			name: "no identifier",
			model: &Model{Entities: []Entity{{
				Name:       "users",
				Attributes: []Attribute{{Name: "email", Type: "text"}},
			}}},
			problem: `entity "users" has 0 identifier attributes`,
		},
		{
			name: "two identifiers",
			model: &Model{Entities: []Entity{{
				Name: "users",
				Attributes: []Attribute{
					{Name: "id", Type: "bigint", Identifier: true},
					{Name: "uuid", Type: "text", Identifier: true},
				},
			}}},
			problem: `entity "users" has 2 identifier attributes`,
		},
		{
			name: "duplicate attribute",
			model: &Model{Entities: []Entity{{
				Name: "users",
				Attributes: []Attribute{
					{Name: "id", Type: "bigint", Identifier: true},
					{Name: "email", Type: "text"},
					{Name: "email", Type: "text"},
				},
			}}},
			problem: `duplicate attribute "email"`,
		},
		{
			name: "duplicate entity",
			model: &Model{Entities: []Entity{
				{Name: "users", Attributes: []Attribute{{Name: "id", Type: "bigint", Identifier: true}}},
				{Name: "users", Attributes: []Attribute{{Name: "id", Type: "bigint", Identifier: true}}},
			}},
			problem: `duplicate entity name "users"`,
		},
		{
			name: "unresolvable reference entity",
			model: &Model{Entities: []Entity{{
				Name: "orders",
				Attributes: []Attribute{
					{Name: "id", Type: "bigint", Identifier: true},
					{Name: "user_id", Type: "bigint", Reference: &Reference{Entity: "users", Attribute: "id"}},
				},
			}}},
			problem: `targets unknown entity "users"`,
		},
		{
			name: "unresolvable reference attribute",
			model: &Model{Entities: []Entity{
				{
					Name: "orders",
					Attributes: []Attribute{
						{Name: "id", Type: "bigint", Identifier: true},
						{Name: "user_id", Type: "bigint", Reference: &Reference{Entity: "users", Attribute: "uuid"}},
					},
				},
				{Name: "users", Attributes: []Attribute{{Name: "id", Type: "bigint", Identifier: true}}},
			}},
			problem: "targets unknown attribute users.uuid",
		},
		{
			name: "index over unknown column",
			model: &Model{Entities: []Entity{{
				Name:       "users",
				Attributes: []Attribute{{Name: "id", Type: "bigint", Identifier: true}},
				Indexes:    []Index{{Name: "uq_email", Columns: []string{"email"}, Unique: true}},
			}}},
			problem: `names unknown attribute "email"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.model)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Error(), tt.problem)
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	m := &Model{Entities: []Entity{
		{Name: "users", Attributes: []Attribute{{Name: "email", Type: "text"}}},
		{Name: "orders", Attributes: []Attribute{
			{Name: "id", Type: "bigint", Identifier: true},
			{Name: "user_id", Type: "bigint", Reference: &Reference{Entity: "nope", Attribute: "id"}},
		}},
	}}

	err := Validate(m)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Problems, 2)
}
