// Package exmodel is a schema definition and validation engine for
// structured data. A declarative descriptor tree (type names, constraint
// directives, shorthand strings like "int?[2:4]") is normalized into an
// immutable schema; a compiler then emits one specialized validation
// routine per (schema, options, access) triple, cached process-wide. The
// routine traverses an input once, builds a fresh filtered output, and
// reports typed diagnostics through SchemaError.
//
// The type catalog covers booleans, fixed-width integers, floats, decimal
// and big-integer strings, domain strings (color, ip, mac, uuid, isbn,
// creditcard, date/time with format grammars), and containers (object,
// map, array) composed via $extend, $include, and shorthands.
package exmodel
