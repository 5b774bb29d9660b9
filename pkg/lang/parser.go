package lang

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/codelens-dev/codelens/pkg/grammar"
	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/symbol"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser extracts symbols, references, imports, and structural containment
// edges from source files using tree-sitter queries. Grammars and compiled
// queries are cached lazily per language.
type Parser struct {
	mu              sync.Mutex
	loader          grammar.Loader
	languages       map[string]*tree_sitter.Language
	queries         map[string]*tree_sitter.Query
	refQueries      map[string]*tree_sitter.Query
	importQueries   map[string]*tree_sitter.Query
	inheritQueries  map[string]*tree_sitter.Query
	varTypeQueries  map[string]*tree_sitter.Query

	symbolIDs *ids.SymbolCounter
}

// NewParser creates a Parser backed by the given grammar loader and symbol
// id counter. The counter is shared with the rest of the indexer so ids stay
// unique across every file parsed in a process.
func NewParser(loader grammar.Loader, symbolIDs *ids.SymbolCounter) *Parser {
	return &Parser{
		loader:         loader,
		languages:      make(map[string]*tree_sitter.Language),
		queries:        make(map[string]*tree_sitter.Query),
		refQueries:     make(map[string]*tree_sitter.Query),
		importQueries:  make(map[string]*tree_sitter.Query),
		inheritQueries: make(map[string]*tree_sitter.Query),
		varTypeQueries: make(map[string]*tree_sitter.Query),
		symbolIDs:      symbolIDs,
	}
}

// Result is everything extracted from a single file.
type Result struct {
	File          *symbol.File
	Symbols       []*symbol.Symbol
	References    []*symbol.Reference
	Imports       []*symbol.Import
	Defines       []*symbol.Defines
	Calls         []*symbol.Calls
	MethodCalls   []*symbol.MethodCall
	VariableTypes []*symbol.VariableType

	// PendingImplements are extends/implements/uses edges whose child type
	// resolved to a same-file SymbolId at parse time but whose parent name
	// may live in another file; the indexer resolves BaseName against the
	// document index after commit and feeds resolve.InheritanceResolver.
	PendingImplements []PendingImplements

	// PendingCalls are bare (receiver-less) call sites whose callee did
	// not match any function/method declared in this same file; the
	// indexer resolves Name against the document index after commit and
	// promotes unambiguous matches to a Calls edge.
	PendingCalls []PendingCall
}

// PendingImplements is a not-yet-cross-file-resolved extends/implements/uses
// edge: TypeID is already known (the declaring type lives in this file),
// BaseName still needs a document-index lookup.
type PendingImplements struct {
	TypeID   ids.SymbolId
	BaseName string
	Kind     string
	Range    ids.Range
}

// PendingCall is a bare call site with no local candidate, needing a
// document-index lookup to resolve cross-file.
type PendingCall struct {
	CallerID ids.SymbolId
	Name     string
	Range    ids.Range
}

func (p *Parser) getLanguage(language string) *tree_sitter.Language {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.languages[language]; ok {
		return l
	}
	l, err := p.loader.Load(context.Background(), language)
	if err != nil {
		return nil
	}
	p.languages[language] = l
	return l
}

func (p *Parser) getTagQuery(language string) *tree_sitter.Query {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.queries[language]; ok {
		return q
	}
	pattern, ok := TagQueries[language]
	if !ok {
		return nil
	}
	sitterLang, ok := p.languages[language]
	if !ok {
		l, err := p.loader.Load(context.Background(), language)
		if err != nil {
			return nil
		}
		sitterLang = l
		p.languages[language] = sitterLang
	}
	q, err := tree_sitter.NewQuery(sitterLang, pattern)
	if err != nil {
		return nil
	}
	p.queries[language] = q
	return q
}

func (p *Parser) getRefQuery(language string) *tree_sitter.Query {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.refQueries[language]; ok {
		return q
	}
	pattern, ok := RefQueries[language]
	if !ok {
		return nil
	}
	sitterLang, ok := p.languages[language]
	if !ok {
		l, err := p.loader.Load(context.Background(), language)
		if err != nil {
			return nil
		}
		sitterLang = l
		p.languages[language] = sitterLang
	}
	q, err := tree_sitter.NewQuery(sitterLang, pattern)
	if err != nil {
		return nil
	}
	p.refQueries[language] = q
	return q
}

func (p *Parser) getImportQuery(language string) *tree_sitter.Query {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.importQueries[language]; ok {
		return q
	}
	pattern, ok := ImportQueries[language]
	if !ok {
		return nil
	}
	sitterLang, ok := p.languages[language]
	if !ok {
		l, err := p.loader.Load(context.Background(), language)
		if err != nil {
			return nil
		}
		sitterLang = l
		p.languages[language] = sitterLang
	}
	q, err := tree_sitter.NewQuery(sitterLang, pattern)
	if err != nil {
		return nil
	}
	p.importQueries[language] = q
	return q
}

func (p *Parser) getInheritQuery(language string) *tree_sitter.Query {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.inheritQueries[language]; ok {
		return q
	}
	pattern, ok := InheritQueries[language]
	if !ok {
		return nil
	}
	sitterLang, ok := p.languages[language]
	if !ok {
		l, err := p.loader.Load(context.Background(), language)
		if err != nil {
			return nil
		}
		sitterLang = l
		p.languages[language] = sitterLang
	}
	q, err := tree_sitter.NewQuery(sitterLang, pattern)
	if err != nil {
		return nil
	}
	p.inheritQueries[language] = q
	return q
}

func (p *Parser) getVarTypeQuery(language string) *tree_sitter.Query {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.varTypeQueries[language]; ok {
		return q
	}
	pattern, ok := VariableTypeQueries[language]
	if !ok {
		return nil
	}
	sitterLang, ok := p.languages[language]
	if !ok {
		l, err := p.loader.Load(context.Background(), language)
		if err != nil {
			return nil
		}
		sitterLang = l
		p.languages[language] = sitterLang
	}
	q, err := tree_sitter.NewQuery(sitterLang, pattern)
	if err != nil {
		return nil
	}
	p.varTypeQueries[language] = q
	return q
}

// ParseFile reads filePath and extracts its symbols, references, and imports.
// fileID is the caller-assigned FileId for this file; projectRoot is used to
// derive each language's module path.
func (p *Parser) ParseFile(filePath string, fileID ids.FileId, projectRoot string) (*Result, error) {
	language := Detect(filePath, nil)
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = Detect(filePath, content)
	}
	if language == "" {
		return nil, nil
	}
	if language == GDScript {
		return p.parseGDScript(content, filePath, fileID, projectRoot)
	}
	return p.parseContent(content, language, filePath, fileID, projectRoot)
}

func (p *Parser) parseContent(content []byte, language, filePath string, fileID ids.FileId, projectRoot string) (*Result, error) {
	sitterLang := p.getLanguage(language)
	if sitterLang == nil {
		return nil, nil
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(sitterLang); err != nil {
		return nil, nil
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	res := &Result{
		File: &symbol.File{
			ID:         fileID,
			Path:       filePath,
			Language:   language,
			ModulePath: For(language).ModulePath(filePath, projectRoot),
			ModTime:    time.Now(),
		},
	}

	var ranges []defRange
	if query := p.getTagQuery(language); query != nil {
		syms, defines, symRanges := p.extractSymbols(query, tree.RootNode(), content, fileID, language)
		res.Symbols = syms
		res.Defines = defines
		ranges = symRanges
		for _, s := range syms {
			res.File.SymbolIDs = append(res.File.SymbolIDs, s.ID)
		}
	}

	if query := p.getRefQuery(language); query != nil {
		res.References = p.extractReferences(query, tree.RootNode(), content, fileID, language)
		calls, methodCalls, pendingCalls := p.extractCallEdges(query, tree.RootNode(), content, ranges)
		res.Calls = calls
		res.MethodCalls = methodCalls
		res.PendingCalls = pendingCalls
	}

	if query := p.getImportQuery(language); query != nil {
		res.Imports = p.extractImports(query, tree.RootNode(), content, fileID)
	}

	if query := p.getInheritQuery(language); query != nil {
		res.PendingImplements = p.extractImplements(query, tree.RootNode(), content, ranges)
	}

	if query := p.getVarTypeQuery(language); query != nil {
		res.VariableTypes = p.extractVariableTypes(query, tree.RootNode(), content, ranges)
	}

	return res, nil
}

// extractImplements matches InheritQueries against the tree, resolving the
// declaring type's name to the same-file SymbolId already assigned by
// extractSymbols (ranges) and leaving the parent name unresolved for the
// indexer's cross-file lookup.
func (p *Parser) extractImplements(query *tree_sitter.Query, root *tree_sitter.Node, content []byte, ranges []defRange) []PendingImplements {
	byName := make(map[string]ids.SymbolId)
	for _, r := range ranges {
		if _, exists := byName[r.sym.Name]; !exists {
			byName[r.sym.Name] = r.sym.ID
		}
	}

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	nameIndex := -1
	relIndexes := make(map[uint32]string)
	for i, cn := range captureNames {
		if cn == "name" {
			nameIndex = i
		} else if strings.HasPrefix(cn, "relationship.") {
			relIndexes[uint32(i)] = strings.TrimPrefix(cn, "relationship.")
		}
	}

	var out []PendingImplements
	matches := cursor.Matches(query, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var typeName, baseName, kind string
		var baseNode *tree_sitter.Node
		for _, capture := range match.Captures {
			if int(capture.Index) == nameIndex {
				typeName = capture.Node.Utf8Text(content)
			}
			if k, ok := relIndexes[capture.Index]; ok {
				node := capture.Node
				baseNode = &node
				baseName = node.Utf8Text(content)
				kind = k
			}
		}
		if typeName == "" || baseName == "" || baseNode == nil {
			continue
		}
		typeID, ok := byName[typeName]
		if !ok {
			continue
		}
		out = append(out, PendingImplements{
			TypeID:   typeID,
			BaseName: baseName,
			Kind:     kind,
			Range:    nodeRange(baseNode),
		})
	}
	return out
}

// extractVariableTypes matches VariableTypeQueries against the tree,
// resolving the variable's name to the same-file SymbolId already assigned
// by extractSymbols.
func (p *Parser) extractVariableTypes(query *tree_sitter.Query, root *tree_sitter.Node, content []byte, ranges []defRange) []*symbol.VariableType {
	byName := make(map[string]ids.SymbolId)
	for _, r := range ranges {
		if r.sym.Kind == symbol.KindVariable || r.sym.Kind == symbol.KindConstant || r.sym.Kind == symbol.KindField {
			byName[r.sym.Name] = r.sym.ID
		}
	}

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	nameIndex, typeIndex := -1, -1
	for i, cn := range captureNames {
		switch cn {
		case "name":
			nameIndex = i
		case "type":
			typeIndex = i
		}
	}

	var out []*symbol.VariableType
	matches := cursor.Matches(query, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var varName, typeName string
		var typeNode *tree_sitter.Node
		for _, capture := range match.Captures {
			if int(capture.Index) == nameIndex {
				varName = capture.Node.Utf8Text(content)
			}
			if int(capture.Index) == typeIndex {
				node := capture.Node
				typeNode = &node
				typeName = node.Utf8Text(content)
			}
		}
		if varName == "" || typeName == "" || typeNode == nil {
			continue
		}
		varID, ok := byName[varName]
		if !ok {
			continue
		}
		out = append(out, &symbol.VariableType{
			Variable: varID,
			TypeName: typeName,
			Range:    nodeRange(typeNode),
		})
	}
	return out
}

// defRange tracks the byte span of a definition so nesting (Defines edges)
// can be computed after every symbol has been assigned an id.
type defRange struct {
	sym        *symbol.Symbol
	startByte  uint
	endByte    uint
}

func (p *Parser) extractSymbols(query *tree_sitter.Query, root *tree_sitter.Node, content []byte, fileID ids.FileId, language string) ([]*symbol.Symbol, []*symbol.Defines, []defRange) {
	behavior := For(language)
	seen := make(map[string]bool)
	var ranges []defRange

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	nameIndex := -1
	defIndexes := make(map[uint32]string)
	for i, cn := range captureNames {
		if cn == "name" {
			nameIndex = i
		} else if strings.HasPrefix(cn, "definition.") {
			defIndexes[uint32(i)] = strings.TrimPrefix(cn, "definition.")
		}
	}

	matches := cursor.Matches(query, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var name string
		var defNode *tree_sitter.Node
		var kindTag string

		for _, capture := range match.Captures {
			if int(capture.Index) == nameIndex {
				name = capture.Node.Utf8Text(content)
			}
			if k, ok := defIndexes[capture.Index]; ok {
				node := capture.Node
				defNode = &node
				kindTag = k
			}
		}
		if name == "" || defNode == nil {
			continue
		}

		key := fmt.Sprintf("%d:%s:%d", defNode.StartByte(), name, defNode.EndByte())
		if seen[key] {
			continue
		}
		seen[key] = true

		id, err := p.symbolIDs.Next()
		if err != nil {
			continue
		}

		signature := extractSignature(defNode, content)
		sym := &symbol.Symbol{
			ID:         id,
			Name:       name,
			Kind:       mapKind(kindTag),
			FileId:     fileID,
			Range:      nodeRange(defNode),
			Signature:  signature,
			DocComment: extractDocComment(defNode, content, language),
			Visibility: behavior.Visibility(name, signature),
			Language:   language,
			CreatedAt:  time.Now(),
		}
		ranges = append(ranges, defRange{sym: sym, startByte: defNode.StartByte(), endByte: defNode.EndByte()})
	}

	symbols := make([]*symbol.Symbol, len(ranges))
	for i, r := range ranges {
		symbols[i] = r.sym
	}

	var defines []*symbol.Defines
	for i, member := range ranges {
		var container *defRange
		for j := range ranges {
			if i == j {
				continue
			}
			cand := ranges[j]
			if cand.startByte <= member.startByte && cand.endByte >= member.endByte && cand.endByte-cand.startByte > member.endByte-member.startByte {
				if container == nil || (cand.endByte-cand.startByte) < (container.endByte-container.startByte) {
					c := cand
					container = &c
				}
			}
		}
		if container != nil {
			switch container.sym.Kind {
			case symbol.KindClass, symbol.KindStruct, symbol.KindInterface, symbol.KindTrait:
				if member.sym.Kind == symbol.KindFunction {
					member.sym.Kind = symbol.KindMethod
				}
			}
			defines = append(defines, &symbol.Defines{
				Container: container.sym.ID,
				Member:    member.sym.ID,
				Range:     member.sym.Range,
			})
			if member.sym.ScopeContext == nil {
				member.sym.ScopeContext = &symbol.ScopeContext{
					Kind:       symbol.ScopeClassMember,
					ParentName: container.sym.Name,
					ParentKind: container.sym.Kind,
				}
			}
		}
	}

	return symbols, defines, ranges
}

// enclosingSymbol returns the innermost symbol whose definition spans pos,
// the same containment rule extractSymbols uses to compute Defines edges.
func enclosingSymbol(ranges []defRange, pos uint) *symbol.Symbol {
	var best *defRange
	for i := range ranges {
		r := &ranges[i]
		if r.startByte <= pos && r.endByte >= pos {
			if best == nil || (r.endByte-r.startByte) < (best.endByte-best.startByte) {
				best = r
			}
		}
	}
	if best == nil {
		return nil
	}
	return best.sym
}

// extractCallEdges groups the same reference-query matches extractReferences
// consumes into typed call edges. Every call site starts out as a
// MethodCall (the receiver's type isn't known without cross-file
// resolution); one that names a function or method declared in this same
// file, unambiguously, and has no receiver syntax is promoted to a
// resolved Calls edge.
func (p *Parser) extractCallEdges(query *tree_sitter.Query, root *tree_sitter.Node, content []byte, ranges []defRange) ([]*symbol.Calls, []*symbol.MethodCall, []PendingCall) {
	localFuncs := make(map[string][]ids.SymbolId)
	for _, r := range ranges {
		if r.sym.Kind == symbol.KindFunction || r.sym.Kind == symbol.KindMethod {
			localFuncs[r.sym.Name] = append(localFuncs[r.sym.Name], r.sym.ID)
		}
	}

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	nameIndex := -1
	refIndexes := make(map[uint32]string)
	for i, cn := range captureNames {
		if cn == "name" {
			nameIndex = i
		} else if strings.HasPrefix(cn, "reference.") {
			refIndexes[uint32(i)] = strings.TrimPrefix(cn, "reference.")
		}
	}

	var calls []*symbol.Calls
	var methodCalls []*symbol.MethodCall
	var pendingCalls []PendingCall
	matches := cursor.Matches(query, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var name string
		var refNode *tree_sitter.Node
		var kindTag string
		for _, capture := range match.Captures {
			if int(capture.Index) == nameIndex {
				name = capture.Node.Utf8Text(content)
				if refNode == nil {
					node := capture.Node
					refNode = &node
				}
			}
			if k, ok := refIndexes[capture.Index]; ok {
				node := capture.Node
				refNode = &node
				kindTag = k
			}
		}
		if name == "" || refNode == nil || (kindTag != "call" && kindTag != "method_call") {
			continue
		}

		caller := enclosingSymbol(ranges, refNode.StartByte())
		var callerID ids.SymbolId
		if caller != nil {
			callerID = caller.ID
		}
		r := nodeRange(refNode)

		if kindTag == "call" {
			candidates := localFuncs[name]
			if len(candidates) == 1 {
				calls = append(calls, &symbol.Calls{Caller: callerID, Callee: candidates[0], Range: r})
				continue
			}
			if len(candidates) == 0 {
				pendingCalls = append(pendingCalls, PendingCall{CallerID: callerID, Name: name, Range: r})
			}
		}
		methodCalls = append(methodCalls, &symbol.MethodCall{Caller: callerID, MethodName: name, Range: r})
	}
	return calls, methodCalls, pendingCalls
}

// extractImports collects every import/use/include statement, stripping
// surrounding quotes from string-literal paths so Path holds a bare module
// or file path regardless of the source language's literal syntax.
func (p *Parser) extractImports(query *tree_sitter.Query, root *tree_sitter.Node, content []byte, fileID ids.FileId) []*symbol.Import {
	var imports []*symbol.Import

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	pathIndex, importIndex := -1, -1
	for i, cn := range captureNames {
		switch cn {
		case "path":
			pathIndex = i
		case "import":
			importIndex = i
		}
	}

	matches := cursor.Matches(query, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var pathNode, importNode *tree_sitter.Node
		for _, capture := range match.Captures {
			if int(capture.Index) == pathIndex {
				node := capture.Node
				pathNode = &node
			}
			if int(capture.Index) == importIndex {
				node := capture.Node
				importNode = &node
			}
		}
		if pathNode == nil {
			continue
		}
		if importNode == nil {
			importNode = pathNode
		}
		path := strings.Trim(pathNode.Utf8Text(content), `"'<>`)
		if path == "" {
			continue
		}
		imports = append(imports, &symbol.Import{
			FileId: fileID,
			Path:   path,
			Range:  nodeRange(importNode),
		})
	}
	return imports
}

func (p *Parser) extractReferences(query *tree_sitter.Query, root *tree_sitter.Node, content []byte, fileID ids.FileId, language string) []*symbol.Reference {
	var refs []*symbol.Reference
	seen := make(map[string]bool)
	lines := strings.Split(string(content), "\n")

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	nameIndex := -1
	refIndexes := make(map[uint32]string)
	for i, cn := range captureNames {
		if cn == "name" {
			nameIndex = i
		} else if strings.HasPrefix(cn, "reference.") {
			refIndexes[uint32(i)] = strings.TrimPrefix(cn, "reference.")
		}
	}

	matches := cursor.Matches(query, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var name string
		var refNode *tree_sitter.Node
		var kindTag string

		for _, capture := range match.Captures {
			if int(capture.Index) == nameIndex {
				name = capture.Node.Utf8Text(content)
				if refNode == nil {
					node := capture.Node
					refNode = &node
				}
			}
			if k, ok := refIndexes[capture.Index]; ok {
				node := capture.Node
				refNode = &node
				kindTag = k
			}
		}
		if name == "" || refNode == nil {
			continue
		}

		start := refNode.StartPosition()
		key := fmt.Sprintf("%d:%d:%s", start.Row, start.Column, name)
		if seen[key] {
			continue
		}
		seen[key] = true

		id, err := p.symbolIDs.Next()
		if err != nil {
			continue
		}

		refs = append(refs, &symbol.Reference{
			ID:         id,
			SymbolName: name,
			Kind:       mapRefKind(kindTag),
			FileId:     fileID,
			Range:      nodeRange(refNode),
			Context:    lineContext(lines, int(start.Row)),
			Language:   language,
			CreatedAt:  time.Now(),
		})
	}

	return refs
}

func nodeRange(n *tree_sitter.Node) ids.Range {
	start := n.StartPosition()
	end := n.EndPosition()
	return ids.Range{
		Start: ids.Position{Line: int(start.Row) + 1, Column: int(start.Column)},
		End:   ids.Position{Line: int(end.Row) + 1, Column: int(end.Column)},
	}
}

func extractSignature(node *tree_sitter.Node, content []byte) string {
	bodyNode := node.ChildByFieldName("body")
	if bodyNode != nil {
		start := node.StartByte()
		end := bodyNode.StartByte()
		sig := strings.TrimSpace(string(content[start:end]))
		sig = strings.TrimSuffix(sig, "{")
		sig = strings.TrimSuffix(sig, ":")
		return strings.TrimSpace(sig)
	}
	start := node.StartByte()
	end := node.EndByte()
	if end > uint(len(content)) {
		end = uint(len(content))
	}
	return string(content[start:end])
}

func extractDocComment(node *tree_sitter.Node, content []byte, language string) string {
	if language == Python {
		if doc := pythonDocstring(node, content); doc != "" {
			return doc
		}
	}
	prev := node.PrevSibling()
	if prev == nil {
		return ""
	}
	switch prev.Kind() {
	case "comment", "line_comment", "block_comment":
		text := prev.Utf8Text(content)
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		text = strings.TrimPrefix(text, "#")
		return strings.TrimSpace(text)
	}
	return ""
}

func pythonDocstring(node *tree_sitter.Node, content []byte) string {
	bodyNode := node.ChildByFieldName("body")
	if bodyNode == nil || bodyNode.ChildCount() == 0 {
		return ""
	}
	child := bodyNode.Child(0)
	if child == nil || child.Kind() != "expression_statement" {
		return ""
	}
	for j := uint(0); j < child.ChildCount(); j++ {
		expr := child.Child(j)
		if expr != nil && expr.Kind() == "string" {
			text := expr.Utf8Text(content)
			text = strings.Trim(text, `"'`)
			return strings.TrimSpace(text)
		}
	}
	return ""
}

func lineContext(lines []string, row int) string {
	if row < 0 || row >= len(lines) {
		return ""
	}
	line := strings.TrimSpace(lines[row])
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	return line
}

func mapKind(tag string) symbol.Kind {
	switch tag {
	case "function":
		return symbol.KindFunction
	case "method":
		return symbol.KindMethod
	case "struct":
		return symbol.KindStruct
	case "class":
		return symbol.KindClass
	case "interface":
		return symbol.KindInterface
	case "enum":
		return symbol.KindEnum
	case "trait":
		return symbol.KindTrait
	case "type_alias":
		return symbol.KindTypeAlias
	case "module":
		return symbol.KindModule
	case "constant":
		return symbol.KindConstant
	case "variable":
		return symbol.KindVariable
	case "macro":
		return symbol.KindMacro
	case "field":
		return symbol.KindField
	default:
		return symbol.KindFunction
	}
}

func mapRefKind(tag string) symbol.ReferenceKind {
	switch tag {
	case "call", "method_call":
		return symbol.RefKindCall
	case "type":
		return symbol.RefKindTypeRef
	case "import":
		return symbol.RefKindImport
	default:
		return symbol.RefKindCall
	}
}

// SupportedLanguage reports whether the backing loader can supply a grammar
// for language.
func (p *Parser) SupportedLanguage(language string) bool {
	for _, name := range p.loader.Available() {
		if name == language {
			return true
		}
	}
	return language == GDScript
}
