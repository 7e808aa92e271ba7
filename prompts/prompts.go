package prompts

// DefaultPrompt 逐字段抽取模板.
const DefaultPrompt = `{prompt}

Extract the value of the field "{key}" from the text above.
The value must be of type {type}. Respond with the value only, without any explanation.

{key}:`

// SinglePassPrompt 单次整体抽取模板, 一次性填充整个 schema.
const SinglePassPrompt = `{prompt}

Fill in the following schema with values extracted from the text above.
Respond with a single JSON object that matches the schema and nothing else.

Schema:
{schema}

JSON:`

// 占位符名称
const (
	KeyPrompt = "prompt"
	KeyKey    = "key"
	KeyType   = "type"
	KeySchema = "schema"
)
