package lang

import (
	"regexp"
	"strings"
	"time"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/symbol"
)

// GDScript has no tree-sitter grammar available anywhere in this index's
// loader chain, so it gets a line-oriented regex extractor instead of a
// query-based one. Each line is matched after trimming its indentation, so a
// declaration is recognized at any depth, but nesting is not tracked and
// references are not extracted.
var (
	gdFuncRe      = regexp.MustCompile(`^(static\s+)?func\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	gdClassNameRe = regexp.MustCompile(`^class_name\s+([A-Za-z_][A-Za-z0-9_]*)`)
	gdVarRe       = regexp.MustCompile(`^(@export\s+)?var\s+([A-Za-z_][A-Za-z0-9_]*)`)
	gdConstRe     = regexp.MustCompile(`^const\s+([A-Za-z_][A-Za-z0-9_]*)`)
	gdSignalRe    = regexp.MustCompile(`^signal\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

func (p *Parser) parseGDScript(content []byte, filePath string, fileID ids.FileId, projectRoot string) (*Result, error) {
	behavior := For(GDScript)
	lines := strings.Split(string(content), "\n")

	res := &Result{
		File: &symbol.File{
			ID:         fileID,
			Path:       filePath,
			Language:   GDScript,
			ModulePath: behavior.ModulePath(filePath, projectRoot),
			ModTime:    time.Now(),
		},
	}

	var pendingDoc []string
	flushDoc := func() string {
		doc := strings.TrimSpace(strings.Join(pendingDoc, " "))
		pendingDoc = nil
		return doc
	}

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)

		if strings.HasPrefix(trimmed, "##") || strings.HasPrefix(trimmed, "#") {
			pendingDoc = append(pendingDoc, strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
			continue
		}
		if trimmed == "" {
			continue
		}

		lineNo := i + 1
		newSymbol := func(name string, kind symbol.Kind, signature string) *symbol.Symbol {
			id, err := p.symbolIDs.Next()
			if err != nil {
				return nil
			}
			return &symbol.Symbol{
				ID:         id,
				Name:       name,
				Kind:       kind,
				FileId:     fileID,
				Range:      ids.Range{Start: ids.Position{Line: lineNo, Column: 0}, End: ids.Position{Line: lineNo, Column: len(raw)}},
				Signature:  signature,
				DocComment: flushDoc(),
				Visibility: behavior.Visibility(name, signature),
				Language:   GDScript,
				CreatedAt:  time.Now(),
			}
		}

		switch {
		case gdFuncRe.MatchString(trimmed):
			m := gdFuncRe.FindStringSubmatch(trimmed)
			if sym := newSymbol(m[2], symbol.KindFunction, trimmed); sym != nil {
				res.Symbols = append(res.Symbols, sym)
				res.File.SymbolIDs = append(res.File.SymbolIDs, sym.ID)
			}
		case gdClassNameRe.MatchString(trimmed):
			m := gdClassNameRe.FindStringSubmatch(trimmed)
			if sym := newSymbol(m[1], symbol.KindClass, trimmed); sym != nil {
				res.Symbols = append(res.Symbols, sym)
				res.File.SymbolIDs = append(res.File.SymbolIDs, sym.ID)
			}
		case gdSignalRe.MatchString(trimmed):
			m := gdSignalRe.FindStringSubmatch(trimmed)
			if sym := newSymbol(m[1], symbol.KindFunction, trimmed); sym != nil {
				res.Symbols = append(res.Symbols, sym)
				res.File.SymbolIDs = append(res.File.SymbolIDs, sym.ID)
			}
		case gdConstRe.MatchString(trimmed):
			m := gdConstRe.FindStringSubmatch(trimmed)
			if sym := newSymbol(m[1], symbol.KindConstant, trimmed); sym != nil {
				res.Symbols = append(res.Symbols, sym)
				res.File.SymbolIDs = append(res.File.SymbolIDs, sym.ID)
			}
		case gdVarRe.MatchString(trimmed):
			m := gdVarRe.FindStringSubmatch(trimmed)
			if sym := newSymbol(m[2], symbol.KindVariable, trimmed); sym != nil {
				res.Symbols = append(res.Symbols, sym)
				res.File.SymbolIDs = append(res.File.SymbolIDs, sym.ID)
			}
		default:
			pendingDoc = nil
		}
	}

	return res, nil
}
