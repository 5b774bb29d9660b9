package lang

// TagQueries holds the tree-sitter query pattern used to locate symbol
// definitions for each language. Capture names follow the tags.scm
// convention: `@name` identifies the symbol's name node, and
// `@definition.<kind>` identifies the node spanning the whole declaration.
var TagQueries = map[string]string{
	Go: `
		(function_declaration name: (identifier) @name) @definition.function
		(method_declaration name: (field_identifier) @name) @definition.method
		(type_declaration (type_spec name: (type_identifier) @name type: (struct_type))) @definition.struct
		(type_declaration (type_spec name: (type_identifier) @name type: (interface_type))) @definition.interface
		(type_declaration (type_spec name: (type_identifier) @name)) @definition.type_alias
		(const_spec name: (identifier) @name) @definition.constant
		(var_spec name: (identifier) @name) @definition.variable
	`,
	Python: `
		(function_definition name: (identifier) @name) @definition.function
		(class_definition name: (identifier) @name) @definition.class
	`,
	TypeScript: `
		(function_declaration name: (identifier) @name) @definition.function
		(method_definition name: (property_identifier) @name) @definition.method
		(class_declaration name: (type_identifier) @name) @definition.class
		(interface_declaration name: (type_identifier) @name) @definition.interface
		(type_alias_declaration name: (type_identifier) @name) @definition.type_alias
		(enum_declaration name: (identifier) @name) @definition.enum
	`,
	JavaScript: `
		(function_declaration name: (identifier) @name) @definition.function
		(method_definition name: (property_identifier) @name) @definition.method
		(class_declaration name: (identifier) @name) @definition.class
	`,
	Rust: `
		(function_item name: (identifier) @name) @definition.function
		(struct_item name: (type_identifier) @name) @definition.struct
		(enum_item name: (type_identifier) @name) @definition.enum
		(trait_item name: (type_identifier) @name) @definition.trait
		(type_item name: (type_identifier) @name) @definition.type_alias
		(mod_item name: (identifier) @name) @definition.module
	`,
	Java: `
		(method_declaration name: (identifier) @name) @definition.method
		(constructor_declaration name: (identifier) @name) @definition.method
		(class_declaration name: (identifier) @name) @definition.class
		(interface_declaration name: (identifier) @name) @definition.interface
		(enum_declaration name: (identifier) @name) @definition.enum
	`,
	C: `
		(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition.function
		(struct_specifier name: (type_identifier) @name) @definition.struct
		(enum_specifier name: (type_identifier) @name) @definition.enum
		(type_definition declarator: (type_identifier) @name) @definition.type_alias
	`,
	CPP: `
		(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition.function
		(function_definition declarator: (function_declarator declarator: (qualified_identifier name: (identifier) @name))) @definition.method
		(class_specifier name: (type_identifier) @name) @definition.class
		(struct_specifier name: (type_identifier) @name) @definition.struct
		(enum_specifier name: (type_identifier) @name) @definition.enum
	`,
	Zig: `
		(function_declaration name: (identifier) @name) @definition.function
	`,
	PHP: `
		(function_definition name: (name) @name) @definition.function
		(method_declaration name: (name) @name) @definition.method
		(class_declaration name: (name) @name) @definition.class
		(interface_declaration name: (name) @name) @definition.interface
		(trait_declaration name: (name) @name) @definition.trait
		(enum_declaration name: (name) @name) @definition.enum
		(const_declaration (const_element (name) @name)) @definition.constant
	`,
	CSharp: `
		(method_declaration name: (identifier) @name) @definition.method
		(class_declaration name: (identifier) @name) @definition.class
		(interface_declaration name: (identifier) @name) @definition.interface
		(struct_declaration name: (identifier) @name) @definition.struct
		(enum_declaration name: (identifier) @name) @definition.enum
		(delegate_declaration name: (identifier) @name) @definition.type_alias
	`,
}

func init() {
	// .tsx files are parsed with a distinct grammar but share the plain
	// TypeScript tag/reference queries verbatim.
	TagQueries[Tsx] = TagQueries[TypeScript]
	RefQueries[Tsx] = RefQueries[TypeScript]
	ImportQueries[Tsx] = ImportQueries[TypeScript]
	InheritQueries[Tsx] = InheritQueries[TypeScript]
}

// InheritQueries holds the tree-sitter query pattern used to locate
// extends/implements/uses relationships between a type and its parents.
// `@name` captures the declaring type's own name node (the child); exactly
// one of `@relationship.extends`, `@relationship.implements`, or
// `@relationship.uses` captures a parent's name node, mirroring the
// `@definition.<kind>`/`@reference.<kind>` capture-name convention the tag
// and reference queries already use. Languages with no distinct
// inheritance syntax (Go's structural interfaces, C, Zig, GDScript) have no
// entry here.
var InheritQueries = map[string]string{
	Python: `
		(class_definition name: (identifier) @name
			superclasses: (argument_list (identifier) @relationship.extends))
	`,
	TypeScript: `
		(class_declaration name: (type_identifier) @name
			(class_heritage (extends_clause value: (identifier) @relationship.extends)))
		(class_declaration name: (type_identifier) @name
			(class_heritage (implements_clause (type_identifier) @relationship.implements)))
		(interface_declaration name: (type_identifier) @name
			(extends_type_clause (type_identifier) @relationship.extends))
	`,
	JavaScript: `
		(class_declaration name: (identifier) @name
			(class_heritage (identifier) @relationship.extends))
	`,
	Rust: `
		(impl_item trait: (type_identifier) @relationship.uses
			type: (type_identifier) @name)
	`,
	Java: `
		(class_declaration name: (identifier) @name
			superclass: (superclass (type_identifier) @relationship.extends))
		(class_declaration name: (identifier) @name
			interfaces: (super_interfaces (type_list (type_identifier) @relationship.implements)))
		(interface_declaration name: (identifier) @name
			(extends_interfaces (type_list (type_identifier) @relationship.extends)))
	`,
	CPP: `
		(class_specifier name: (type_identifier) @name
			(base_class_clause (type_identifier) @relationship.extends))
		(struct_specifier name: (type_identifier) @name
			(base_class_clause (type_identifier) @relationship.extends))
	`,
	PHP: `
		(class_declaration name: (name) @name
			(base_clause (name) @relationship.extends))
		(class_declaration name: (name) @name
			(class_interface_clause (name) @relationship.implements))
		(interface_declaration name: (name) @name
			(base_clause (name) @relationship.extends))
	`,
	CSharp: `
		(class_declaration name: (identifier) @name
			(base_list (identifier) @relationship.extends))
		(interface_declaration name: (identifier) @name
			(base_list (identifier) @relationship.extends))
	`,
}

// VariableTypeQueries holds the tree-sitter query pattern used to locate a
// variable declaration's explicit type annotation. `@name` captures the
// variable's own name node (already emitted as a Symbol by TagQueries for
// the languages listed here); `@type` captures the annotation's type name
// node. Most languages either infer types structurally (Go's `:=`, most
// JS) or were not retrieved with a tags query that emits a Symbol for
// local variables at all, so this stays narrow rather than guessing at
// ungrounded grammar shapes.
var VariableTypeQueries = map[string]string{
	Go: `
		(var_spec name: (identifier) @name type: (type_identifier) @type)
	`,
}

// ImportQueries holds the tree-sitter query pattern used to locate
// import/use/include statements for each language. `@path` captures the
// node whose text is the imported module's path (string literal or dotted
// name, quotes stripped by the caller); `@import` captures the node
// spanning the whole statement, used for its range.
var ImportQueries = map[string]string{
	Go: `
		(import_spec path: (interpreted_string_literal) @path) @import
	`,
	Python: `
		(import_statement name: (dotted_name) @path) @import
		(import_from_statement module_name: (dotted_name) @path) @import
	`,
	TypeScript: `
		(import_statement source: (string) @path) @import
	`,
	JavaScript: `
		(import_statement source: (string) @path) @import
	`,
	Rust: `
		(use_declaration argument: (_) @path) @import
	`,
	Java: `
		(import_declaration (scoped_identifier) @path) @import
	`,
	C: `
		(preproc_include path: (_) @path) @import
	`,
	CPP: `
		(preproc_include path: (_) @path) @import
	`,
	PHP: `
		(namespace_use_declaration (namespace_use_clause (qualified_name) @path)) @import
	`,
	CSharp: `
		(using_directive (qualified_name) @path) @import
		(using_directive (identifier) @path) @import
	`,
}

// RefQueries holds the tree-sitter query pattern used to locate reference
// sites (calls and type uses) for each language.
var RefQueries = map[string]string{
	Go: `
		(call_expression function: (identifier) @name) @reference.call
		(call_expression function: (selector_expression field: (field_identifier) @name)) @reference.method_call
		(type_identifier) @name @reference.type
	`,
	Python: `
		(call function: (identifier) @name) @reference.call
		(call function: (attribute attribute: (identifier) @name)) @reference.method_call
	`,
	TypeScript: `
		(call_expression function: (identifier) @name) @reference.call
		(call_expression function: (member_expression property: (property_identifier) @name)) @reference.method_call
		(new_expression constructor: (identifier) @name) @reference.call
		(type_identifier) @name @reference.type
	`,
	JavaScript: `
		(call_expression function: (identifier) @name) @reference.call
		(call_expression function: (member_expression property: (property_identifier) @name)) @reference.method_call
		(new_expression constructor: (identifier) @name) @reference.call
	`,
	Rust: `
		(call_expression function: (identifier) @name) @reference.call
		(call_expression function: (field_expression field: (field_identifier) @name)) @reference.method_call
		(type_identifier) @name @reference.type
	`,
	Java: `
		(method_invocation name: (identifier) @name) @reference.method_call
		(object_creation_expression type: (type_identifier) @name) @reference.call
		(type_identifier) @name @reference.type
	`,
	C: `
		(call_expression function: (identifier) @name) @reference.call
		(type_identifier) @name @reference.type
	`,
	CPP: `
		(call_expression function: (identifier) @name) @reference.call
		(call_expression function: (field_expression field: (field_identifier) @name)) @reference.method_call
		(type_identifier) @name @reference.type
	`,
	PHP: `
		(function_call_expression function: (name) @name) @reference.call
		(member_call_expression name: (name) @name) @reference.method_call
		(object_creation_expression (name) @name) @reference.call
	`,
	CSharp: `
		(invocation_expression function: (identifier) @name) @reference.call
		(invocation_expression function: (member_access_expression name: (identifier) @name)) @reference.method_call
		(object_creation_expression type: (identifier) @name) @reference.call
	`,
}
