// Package fixtures 提供测试用的样例 schema.
package fixtures

// PersonSchema 嵌套对象 schema, 字段顺序: name, age, address.city, address.zip
const PersonSchema = `{
  "title": "Person",
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "full name"},
    "age": {"type": "integer"},
    "address": {
      "type": "object",
      "properties": {
        "city": {"type": "string"},
        "zip": {"type": "string"}
      }
    }
  }
}`

// PersonPaths 是 PersonSchema 的叶子路径
var PersonPaths = [][]string{
	{"name"},
	{"age"},
	{"address", "city"},
	{"address", "zip"},
}

// FlatSchema 三个顶层字段 a, b, c
const FlatSchema = `{
  "type": "object",
  "properties": {
    "a": {"type": "string"},
    "b": {"type": "string"},
    "c": {"type": "string"}
  }
}`

// RefSchema 通过 $defs 引用共享定义
const RefSchema = `{
  "type": "object",
  "properties": {
    "home": {"$ref": "#/$defs/Place"},
    "work": {"$ref": "#/$defs/Place"}
  },
  "$defs": {
    "Place": {
      "type": "object",
      "properties": {
        "city": {"type": "string"},
        "country": {"type": "string"}
      }
    }
  }
}`

// Address 与 PersonSchema 中 address 对应的结构体
type Address struct {
	City string `json:"city"`
	Zip  string `json:"zip"`
}

// Person 与 PersonSchema 对应的结构体
type Person struct {
	Name    string  `json:"name"`
	Age     int     `json:"age"`
	Address Address `json:"address"`
}
