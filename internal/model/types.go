package model

// Model is the validated logical data model: the declarative description of
// entities, attributes, identifiers, references and indexes that tightening
// decisions are made against.
type Model struct {
	Entities []Entity `yaml:"entities"`
}

// Entity represents one logical entity (a table, once physical).
type Entity struct {
	Name       string      `yaml:"name"`
	Schema     string      `yaml:"schema,omitempty"`
	Catalog    string      `yaml:"catalog,omitempty"`
	Attributes []Attribute `yaml:"attributes"`
	Indexes    []Index     `yaml:"indexes,omitempty"`
}

// Attribute represents one logical column.
type Attribute struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// Mandatory is the declared nullability intent: true means the model
	// wants this column NOT NULL. Identifier attributes are implicitly
	// mandatory.
	Mandatory bool `yaml:"mandatory,omitempty"`

	// Identifier marks the entity's identifier attribute. Exactly one per
	// entity after validation.
	Identifier bool `yaml:"identifier,omitempty"`

	// Unique declares single-column uniqueness intent.
	Unique bool `yaml:"unique,omitempty"`

	// Reference makes the attribute a candidate foreign key.
	Reference *Reference `yaml:"references,omitempty"`
}

// Reference names the target of a candidate foreign key.
type Reference struct {
	Entity    string `yaml:"entity"`
	Attribute string `yaml:"attribute"`
}

// Index represents a declared index over one or more attributes.
type Index struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`

	// Platform marks a platform-generated index artifact. Whether such
	// indexes are carried into emitted scripts is a configuration toggle.
	Platform bool `yaml:"platform,omitempty"`
}

// Entity returns the entity with the given name, or nil.
func (m *Model) Entity(name string) *Entity {
	for i := range m.Entities {
		if m.Entities[i].Name == name {
			return &m.Entities[i]
		}
	}
	return nil
}

// Attribute returns the attribute with the given name, or nil.
func (e *Entity) Attribute(name string) *Attribute {
	for i := range e.Attributes {
		if e.Attributes[i].Name == name {
			return &e.Attributes[i]
		}
	}
	return nil
}

// IdentifierAttribute returns the entity's identifier attribute, or nil if
// the entity has none (which Validate rejects).
func (e *Entity) IdentifierAttribute() *Attribute {
	for i := range e.Attributes {
		if e.Attributes[i].Identifier {
			return &e.Attributes[i]
		}
	}
	return nil
}
