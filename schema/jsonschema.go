package schema

// JSONSchema 表示 JSON Schema 定义的子集, 仅覆盖抽取所需的关键字.
type JSONSchema struct {
	Schema      string `json:"$schema,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type string `json:"type,omitempty"`

	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	// PropertyOrder 指定属性遍历顺序; 为空时按键名排序.
	PropertyOrder []string `json:"-"`
	Required      []string `json:"required,omitempty"`

	Items *JSONSchema `json:"items,omitempty"`
	Enum  []any       `json:"enum,omitempty"`

	AllOf []*JSONSchema `json:"allOf,omitempty"`
	AnyOf []*JSONSchema `json:"anyOf,omitempty"`
	OneOf []*JSONSchema `json:"oneOf,omitempty"`

	Defs        map[string]*JSONSchema `json:"$defs,omitempty"`
	Definitions map[string]*JSONSchema `json:"definitions,omitempty"`
}

// NewObjectSchema 创建对象类型 schema.
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       "object",
		Properties: make(map[string]*JSONSchema),
	}
}

// NewStringSchema 创建字符串类型 schema.
func NewStringSchema() *JSONSchema {
	return &JSONSchema{Type: "string"}
}

// NewTypedSchema 创建指定类型的叶子 schema.
func NewTypedSchema(typ string) *JSONSchema {
	return &JSONSchema{Type: typ}
}

// AddProperty 追加属性并记录顺序.
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	if _, exists := s.Properties[name]; !exists {
		s.PropertyOrder = append(s.PropertyOrder, name)
	}
	s.Properties[name] = prop
	return s
}

// WithDescription 设置描述.
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}
