package grammar

// builtinPacks is the in-process replacement for the pack.json files a
// prior revision expected to find under an embedded packs/ directory. Each
// entry carries the file-detection metadata and dynamic-loading symbol name
// for one language; tree-sitter query strings live with the parser in
// pkg/lang, not here — this table only drives acquisition and detection.
var builtinPacks = []*Pack{
	{
		SchemaVersion: 1,
		Name:          "go",
		CSymbol:       "tree_sitter_go",
		Meta: PackMeta{
			Extensions: []string{".go"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "typescript",
		CSymbol:       "tree_sitter_typescript",
		Meta: PackMeta{
			Extensions: []string{".ts", ".tsx"},
			Aliases:    []string{"ts"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "javascript",
		CSymbol:       "tree_sitter_javascript",
		Meta: PackMeta{
			Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			Aliases:    []string{"js"},
			Shebangs:   []string{"node"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "python",
		CSymbol:       "tree_sitter_python",
		Meta: PackMeta{
			Extensions: []string{".py", ".pyw", ".pyi"},
			Aliases:    []string{"py"},
			Shebangs:   []string{"python", "python2", "python3"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "rust",
		CSymbol:       "tree_sitter_rust",
		Meta: PackMeta{
			Extensions: []string{".rs"},
			Aliases:    []string{"rs"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "java",
		CSymbol:       "tree_sitter_java",
		Meta: PackMeta{
			Extensions: []string{".java"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "c",
		CSymbol:       "tree_sitter_c",
		Meta: PackMeta{
			Extensions: []string{".c", ".h"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "cpp",
		CSymbol:       "tree_sitter_cpp",
		Meta: PackMeta{
			Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"},
			Aliases:    []string{"c++"},
		},
	},
	{
		SchemaVersion: 1,
		Name:          "zig",
		CSymbol:       "tree_sitter_zig",
		Meta: PackMeta{
			Extensions: []string{".zig"},
		},
	},
}
