// Package parser turns a PB token stream into an AST. It is a
// recursive-descent parser over the grammar in the language reference;
// the first grammar violation aborts the parse.
package parser

import (
	"strconv"

	"pblang/internal/ast"
	"pblang/internal/diag"
	"pblang/internal/lexer"
	"pblang/internal/source"
)

type parser struct {
	file      *source.File
	toks      []lexer.Token
	pos       int
	loopDepth int // > 0 inside while/for
	fnDepth   int // > 0 inside def
}

// Parse lexes and parses one PB source file. The first lexical or
// syntactic error halts the phase.
func Parse(file *source.File) (*ast.Program, *diag.Error) {
	toks, err := lexer.Lex(file)
	if err != nil {
		return nil, err
	}
	return ParseTokens(file, toks)
}

// ParseTokens parses an already-lexed stream; Parse lexes the file and
// delegates here.
func ParseTokens(file *source.File, toks []lexer.Token) (prog *ast.Program, err *diag.Error) {
	p := &parser{file: file, toks: toks}
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*diag.Error)
			if !ok {
				panic(r)
			}
			prog, err = nil, d
		}
	}()
	prog = p.parseProgram()
	return prog, nil
}

func (p *parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(lexer.TokenEOF) {
		if p.match(lexer.TokenNewline) {
			continue
		}
		switch p.peek().Kind {
		case lexer.TokenDef:
			prog.Body = append(prog.Body, p.parseFuncDef())
		case lexer.TokenClass:
			prog.Body = append(prog.Body, p.parseClassDef())
		case lexer.TokenImport:
			prog.Body = append(prog.Body, p.parseImport())
		case lexer.TokenIf:
			// The only if-statement tolerated at module level is the
			// Python-style entry point guard, which is discarded.
			st := p.parseIf()
			if !isMainGuard(st) {
				p.errorAt(st.Span(), "`if` is not allowed at module level")
			}
		case lexer.TokenWhile, lexer.TokenFor, lexer.TokenTry, lexer.TokenRaise,
			lexer.TokenAssert, lexer.TokenPass, lexer.TokenBreak, lexer.TokenContinue:
			p.errorHere("`%s` is not allowed at module level", p.peek().Kind)
		default:
			prog.Body = append(prog.Body, p.parseSimpleLine()...)
		}
	}
	return prog
}

// isMainGuard recognises `if __name__ == "__main__":`.
func isMainGuard(st *ast.IfStmt) bool {
	if len(st.Branches) != 1 {
		return false
	}
	cond, ok := st.Branches[0].Cond.(*ast.BinaryExpr)
	if !ok || cond.Op != "==" {
		return false
	}
	name, ok := cond.Left.(*ast.NameExpr)
	if !ok || name.Name != "__name__" {
		return false
	}
	lit, ok := cond.Right.(*ast.StrLit)
	return ok && lit.Value == "__main__"
}

// ───────────────────────── statements ─────────────────────────

// parseBody parses the statements of an indented block; INDENT has
// already been consumed.
func (p *parser) parseBody() []ast.Stmt {
	var body []ast.Stmt
	for {
		if p.match(lexer.TokenDedent) {
			return body
		}
		if p.match(lexer.TokenNewline) {
			continue
		}
		if p.at(lexer.TokenEOF) {
			p.errorHere("unexpected end of file in block")
		}
		body = append(body, p.parseStatement()...)
	}
}

// parseStatement parses one statement inside a block. Simple statements
// may be chained with ';' on a single line, so it returns a slice.
func (p *parser) parseStatement() []ast.Stmt {
	switch p.peek().Kind {
	case lexer.TokenDef:
		return []ast.Stmt{p.parseFuncDef()}
	case lexer.TokenClass:
		return []ast.Stmt{p.parseClassDef()}
	case lexer.TokenIf:
		return []ast.Stmt{p.parseIf()}
	case lexer.TokenWhile:
		return []ast.Stmt{p.parseWhile()}
	case lexer.TokenFor:
		return []ast.Stmt{p.parseFor()}
	case lexer.TokenTry:
		return []ast.Stmt{p.parseTry()}
	case lexer.TokenImport:
		return []ast.Stmt{p.parseImport()}
	default:
		return p.parseSimpleLine()
	}
}

// parseSimpleLine parses `simple (';' simple)* [';'] NEWLINE`.
func (p *parser) parseSimpleLine() []ast.Stmt {
	stmts := []ast.Stmt{p.parseSimpleStmt()}
	for p.match(lexer.TokenSemicolon) {
		if p.at(lexer.TokenNewline) || p.at(lexer.TokenEOF) {
			break
		}
		stmts = append(stmts, p.parseSimpleStmt())
	}
	p.expect(lexer.TokenNewline, "expected end of line")
	return stmts
}

func (p *parser) parseSimpleStmt() ast.Stmt {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenBreak:
		p.advance()
		if p.loopDepth == 0 {
			p.errorAt(tok.Span, "'break' outside loop")
		}
		return &ast.BreakStmt{S: tok.Span}
	case lexer.TokenContinue:
		p.advance()
		if p.loopDepth == 0 {
			p.errorAt(tok.Span, "'continue' outside loop")
		}
		return &ast.ContinueStmt{S: tok.Span}
	case lexer.TokenPass:
		p.advance()
		return &ast.PassStmt{S: tok.Span}
	case lexer.TokenGlobal:
		return p.parseGlobal()
	case lexer.TokenAssert:
		p.advance()
		cond := p.parseExpr()
		return &ast.AssertStmt{Cond: cond, S: source.Join(tok.Span, cond.Span())}
	case lexer.TokenRaise:
		p.advance()
		if p.at(lexer.TokenNewline) || p.at(lexer.TokenSemicolon) || p.at(lexer.TokenEOF) {
			p.errorAt(tok.Span, "'raise' requires an exception expression")
		}
		exc := p.parseExpr()
		return &ast.RaiseStmt{Exc: exc, S: source.Join(tok.Span, exc.Span())}
	case lexer.TokenIdent:
		// A name followed by ':' declares a typed variable.
		if p.peekN(1).Kind == lexer.TokenColon {
			return p.parseVarDecl()
		}
	}
	return p.parseExprLikeStmt()
}

// parseExprLikeStmt parses an expression and then decides between plain
// expression statement, assignment and augmented assignment.
func (p *parser) parseExprLikeStmt() ast.Stmt {
	start := p.peek()
	x := p.parseExpr()

	if p.match(lexer.TokenAssign) {
		p.checkAssignable(x, start)
		val := p.parseExpr()
		return &ast.AssignStmt{Target: x, Value: val, S: source.Join(start.Span, val.Span())}
	}
	switch p.peek().Kind {
	case lexer.TokenPlusEq, lexer.TokenMinusEq, lexer.TokenStarEq,
		lexer.TokenSlashEq, lexer.TokenFloorDivEq, lexer.TokenPercentEq:
		op := p.advance()
		p.checkAssignable(x, start)
		val := p.parseExpr()
		return &ast.AugAssignStmt{Target: x, Op: op.Lexeme, Value: val, S: source.Join(start.Span, val.Span())}
	}
	return &ast.ExprStmt{X: x, S: x.Span()}
}

// checkAssignable rejects assignments whose left side is not a name,
// attribute or index — in particular the keyword literals.
func (p *parser) checkAssignable(x ast.Expr, start lexer.Token) {
	switch x.(type) {
	case *ast.NameExpr, *ast.AttrExpr, *ast.IndexExpr:
		return
	case *ast.BoolLit, *ast.NoneLit:
		p.errorAt(x.Span(), "cannot assign to keyword `%s`", start.Lexeme)
	}
	p.errorAt(x.Span(), "cannot assign to this expression")
}

func (p *parser) parseVarDecl() ast.Stmt {
	nameTok := p.expect(lexer.TokenIdent, "expected name")
	p.expect(lexer.TokenColon, "expected `:`")
	ty := p.parseType()
	var init ast.Expr
	end := ty.S
	if p.match(lexer.TokenAssign) {
		init = p.parseExpr()
		end = init.Span()
	}
	return &ast.VarDecl{
		Name: nameTok.Lexeme,
		Type: ty,
		Init: init,
		S:    source.Join(nameTok.Span, end),
	}
}

func (p *parser) parseReturn() ast.Stmt {
	retTok := p.advance()
	if p.fnDepth == 0 {
		p.errorAt(retTok.Span, "'return' outside function")
	}
	var val ast.Expr
	end := retTok.Span
	if !p.at(lexer.TokenNewline) && !p.at(lexer.TokenSemicolon) && !p.at(lexer.TokenEOF) {
		val = p.parseExpr()
		end = val.Span()
	}
	return &ast.ReturnStmt{Value: val, S: source.Join(retTok.Span, end)}
}

func (p *parser) parseGlobal() ast.Stmt {
	gTok := p.advance()
	if p.fnDepth == 0 {
		p.errorAt(gTok.Span, "'global' only allowed inside a function")
	}
	names := []string{p.expect(lexer.TokenIdent, "expected name after 'global'").Lexeme}
	end := p.prev().Span
	for p.match(lexer.TokenComma) {
		names = append(names, p.expect(lexer.TokenIdent, "expected name after ','").Lexeme)
		end = p.prev().Span
	}
	return &ast.GlobalStmt{Names: names, S: source.Join(gTok.Span, end)}
}

func (p *parser) parseImport() ast.Stmt {
	impTok := p.expect(lexer.TokenImport, "expected 'import'")
	path := []string{p.expect(lexer.TokenIdent, "expected module name").Lexeme}
	end := p.prev().Span
	for p.match(lexer.TokenDot) {
		path = append(path, p.expect(lexer.TokenIdent, "expected name after '.'").Lexeme)
		end = p.prev().Span
	}
	alias := ""
	if p.match(lexer.TokenAs) {
		alias = p.expect(lexer.TokenIdent, "expected alias after 'as'").Lexeme
		end = p.prev().Span
	}
	p.expect(lexer.TokenNewline, "expected end of line after import")
	return &ast.ImportStmt{Path: path, Alias: alias, S: source.Join(impTok.Span, end)}
}

// parseSuite parses `":" (simple-line | NEWLINE INDENT body DEDENT)`.
func (p *parser) parseSuite() []ast.Stmt {
	p.expect(lexer.TokenColon, "expected `:`")
	if p.match(lexer.TokenNewline) {
		for p.match(lexer.TokenNewline) {
		}
		p.expect(lexer.TokenIndent, "expected an indented block")
		return p.parseBody()
	}
	return p.parseSimpleLine()
}

func (p *parser) parseIf() *ast.IfStmt {
	ifTok := p.expect(lexer.TokenIf, "expected 'if'")
	var branches []ast.IfBranch

	cond := p.parseExpr()
	branches = append(branches, ast.IfBranch{Cond: cond, Body: p.parseSuite()})

	for {
		if p.at(lexer.TokenElif) {
			p.advance()
			cond := p.parseExpr()
			branches = append(branches, ast.IfBranch{Cond: cond, Body: p.parseSuite()})
			continue
		}
		if p.at(lexer.TokenElse) {
			p.advance()
			branches = append(branches, ast.IfBranch{Cond: nil, Body: p.parseSuite()})
		}
		break
	}
	return &ast.IfStmt{Branches: branches, S: ifTok.Span}
}

func (p *parser) parseWhile() ast.Stmt {
	whTok := p.advance()
	cond := p.parseExpr()
	p.loopDepth++
	body := p.parseSuite()
	p.loopDepth--
	return &ast.WhileStmt{Cond: cond, Body: body, S: whTok.Span}
}

func (p *parser) parseFor() ast.Stmt {
	forTok := p.advance()
	v := p.expect(lexer.TokenIdent, "expected loop variable").Lexeme
	p.expect(lexer.TokenIn, "expected 'in'")
	iter := p.parseExpr()
	p.loopDepth++
	body := p.parseSuite()
	p.loopDepth--
	return &ast.ForStmt{Var: v, Iter: iter, Body: body, S: forTok.Span}
}

func (p *parser) parseTry() ast.Stmt {
	tryTok := p.advance()
	body := p.parseSuite()

	var handlers []ast.ExceptClause
	for {
		for p.at(lexer.TokenNewline) && p.peekN(1).Kind == lexer.TokenExcept {
			p.advance()
		}
		if !p.at(lexer.TokenExcept) {
			break
		}
		excTok := p.advance()
		clause := ast.ExceptClause{S: excTok.Span}
		if p.at(lexer.TokenIdent) {
			clause.ExcType = p.advance().Lexeme
			if p.match(lexer.TokenAs) {
				clause.Alias = p.expect(lexer.TokenIdent, "expected alias after 'as'").Lexeme
			}
		}
		clause.Body = p.parseSuite()
		handlers = append(handlers, clause)
	}
	for p.at(lexer.TokenNewline) && p.peekN(1).Kind == lexer.TokenFinally {
		p.advance()
	}
	if p.at(lexer.TokenFinally) {
		p.errorHere("'finally' is not supported; use an 'except' clause")
	}
	if len(handlers) == 0 {
		p.errorAt(tryTok.Span, "'try' requires at least one 'except' clause")
	}
	return &ast.TryStmt{Body: body, Handlers: handlers, S: tryTok.Span}
}

func (p *parser) parseFuncDef() *ast.FuncDef {
	defTok := p.expect(lexer.TokenDef, "expected 'def'")
	nameTok := p.expect(lexer.TokenIdent, "expected function name")
	p.expect(lexer.TokenLParen, "expected `(`")

	var params []ast.Param
	seen := map[string]bool{}
	seenDefault := false
	if !p.at(lexer.TokenRParen) {
		for {
			prm := p.parseParam()
			if seen[prm.Name] {
				p.errorAt(prm.S, "duplicate parameter '%s' in function '%s'", prm.Name, nameTok.Lexeme)
			}
			seen[prm.Name] = true
			if prm.Default != nil {
				seenDefault = true
			} else if seenDefault {
				p.errorAt(prm.S, "parameter '%s' without default follows parameter with default", prm.Name)
			}
			params = append(params, prm)
			if p.match(lexer.TokenComma) {
				continue
			}
			break
		}
	}
	p.expect(lexer.TokenRParen, "expected `)`")

	var ret *ast.TypeExpr
	if p.match(lexer.TokenArrow) {
		ret = p.parseType()
	}

	p.fnDepth++
	body := p.parseSuite()
	p.fnDepth--

	if len(body) == 0 {
		p.errorAt(nameTok.Span, "function '%s' has an empty body", nameTok.Lexeme)
	}
	if len(body) > 1 {
		for _, st := range body {
			if _, ok := st.(*ast.PassStmt); ok {
				p.errorAt(st.Span(), "'pass' must be the only statement in a body")
			}
		}
	}
	return &ast.FuncDef{
		Name:   nameTok.Lexeme,
		Params: params,
		Ret:    ret,
		Body:   body,
		S:      source.Join(defTok.Span, nameTok.Span),
	}
}

func (p *parser) parseParam() ast.Param {
	nameTok := p.expect(lexer.TokenIdent, "expected parameter name")
	prm := ast.Param{Name: nameTok.Lexeme, S: nameTok.Span}
	if p.match(lexer.TokenColon) {
		prm.Type = p.parseType()
	}
	if p.match(lexer.TokenAssign) {
		prm.Default = p.parseExpr()
	}
	return prm
}

func (p *parser) parseClassDef() *ast.ClassDef {
	clsTok := p.expect(lexer.TokenClass, "expected 'class'")
	nameTok := p.expect(lexer.TokenIdent, "expected class name")

	base := ""
	if p.match(lexer.TokenLParen) {
		base = p.expect(lexer.TokenIdent, "expected base class name").Lexeme
		p.expect(lexer.TokenRParen, "expected `)`")
	}

	cls := &ast.ClassDef{
		Name: nameTok.Lexeme,
		Base: base,
		S:    source.Join(clsTok.Span, nameTok.Span),
	}
	body := p.parseSuite()
	hasPass := false
	for _, st := range body {
		switch s := st.(type) {
		case *ast.VarDecl:
			cls.Fields = append(cls.Fields, s)
		case *ast.FuncDef:
			cls.Methods = append(cls.Methods, s)
		case *ast.PassStmt:
			hasPass = true
		default:
			p.errorAt(st.Span(), "only field declarations and methods are allowed in a class body")
		}
	}
	if len(cls.Fields) == 0 && len(cls.Methods) == 0 && !hasPass {
		p.errorAt(nameTok.Span, "class '%s' has an empty body", nameTok.Lexeme)
	}
	return cls
}

// ───────────────────────── types ─────────────────────────

func (p *parser) parseType() *ast.TypeExpr {
	var nameTok lexer.Token
	switch p.peek().Kind {
	case lexer.TokenIdent:
		nameTok = p.advance()
	case lexer.TokenNone:
		nameTok = p.advance()
	default:
		p.errorHere("expected type name")
	}
	t := &ast.TypeExpr{Name: nameTok.Lexeme, S: nameTok.Span}
	if p.match(lexer.TokenLBracket) {
		for {
			t.Args = append(t.Args, p.parseType())
			if p.match(lexer.TokenComma) {
				continue
			}
			break
		}
		rb := p.expect(lexer.TokenRBracket, "expected `]` in type")
		t.S = source.Join(t.S, rb.Span)
	}
	return t
}

// ───────────────────────── expressions ─────────────────────────

func (p *parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.at(lexer.TokenOr) {
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Op: "or", Left: left, Right: right, S: source.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.at(lexer.TokenAnd) {
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Op: "and", Left: left, Right: right, S: source.Join(left.Span(), right.Span())}
	}
	return left
}

// parseEquality parses `rel (("==" | "!=" | "is" ["not"]) rel)?`; a second
// operator at the same level is a chained comparison and is rejected.
func (p *parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	if op, ok := p.matchEqualityOp(); ok {
		right := p.parseRelational()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, S: source.Join(left.Span(), right.Span())}
		if _, again := p.peekEqualityOp(); again || p.peekRelationalOp() {
			p.errorHere("chained comparisons are not supported")
		}
	}
	return left
}

func (p *parser) matchEqualityOp() (string, bool) {
	switch p.peek().Kind {
	case lexer.TokenEq:
		p.advance()
		return "==", true
	case lexer.TokenNotEq:
		p.advance()
		return "!=", true
	case lexer.TokenIs:
		p.advance()
		if p.match(lexer.TokenNot) {
			return "is not", true
		}
		return "is", true
	}
	return "", false
}

func (p *parser) peekEqualityOp() (string, bool) {
	switch p.peek().Kind {
	case lexer.TokenEq:
		return "==", true
	case lexer.TokenNotEq:
		return "!=", true
	case lexer.TokenIs:
		return "is", true
	}
	return "", false
}

func (p *parser) peekRelationalOp() bool {
	switch p.peek().Kind {
	case lexer.TokenLt, lexer.TokenLtEq, lexer.TokenGt, lexer.TokenGtEq:
		return true
	}
	return false
}

func (p *parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	if p.peekRelationalOp() {
		op := p.advance().Lexeme
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, S: source.Join(left.Span(), right.Span())}
		if p.peekRelationalOp() {
			p.errorHere("chained comparisons are not supported")
		}
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(lexer.TokenPlus) || p.at(lexer.TokenMinus) {
		op := p.advance().Lexeme
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, S: source.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.at(lexer.TokenStar) || p.at(lexer.TokenSlash) ||
		p.at(lexer.TokenFloorDiv) || p.at(lexer.TokenPercent) {
		op := p.advance().Lexeme
		right := p.parseUnary()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, S: source.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokenMinus:
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: "-", X: x, S: source.Join(tok.Span, x.Span())}
	case lexer.TokenNot:
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: "not", X: x, S: source.Join(tok.Span, x.Span())}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of
// calls, attribute accesses and index operations, attached left to right.
func (p *parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case lexer.TokenLParen:
			p.advance()
			var args []ast.Expr
			if !p.at(lexer.TokenRParen) {
				for {
					args = append(args, p.parseExpr())
					if p.match(lexer.TokenComma) {
						continue
					}
					break
				}
			}
			rp := p.expect(lexer.TokenRParen, "expected `)`")
			x = &ast.CallExpr{Fn: x, Args: args, S: source.Join(x.Span(), rp.Span)}
		case lexer.TokenDot:
			p.advance()
			nameTok := p.expect(lexer.TokenIdent, "expected attribute name after '.'")
			x = &ast.AttrExpr{X: x, Name: nameTok.Lexeme, S: source.Join(x.Span(), nameTok.Span)}
		case lexer.TokenLBracket:
			p.advance()
			idx := p.parseExpr()
			rb := p.expect(lexer.TokenRBracket, "expected `]`")
			x = &ast.IndexExpr{Base: x, Index: idx, S: source.Join(x.Span(), rb.Span)}
		default:
			return x
		}
	}
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokenIdent:
		p.advance()
		return &ast.NameExpr{Name: tok.Lexeme, S: tok.Span}
	case lexer.TokenInt:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.errorAt(tok.Span, "integer literal out of range")
		}
		return &ast.IntLit{Value: v, S: tok.Span}
	case lexer.TokenFloat:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.errorAt(tok.Span, "invalid float literal")
		}
		return &ast.FloatLit{Value: v, Text: tok.Value, S: tok.Span}
	case lexer.TokenString:
		p.advance()
		return &ast.StrLit{Value: tok.Value, S: tok.Span}
	case lexer.TokenFStringStart:
		return p.parseFString()
	case lexer.TokenTrue:
		p.advance()
		return &ast.BoolLit{Value: true, S: tok.Span}
	case lexer.TokenFalse:
		p.advance()
		return &ast.BoolLit{Value: false, S: tok.Span}
	case lexer.TokenNone:
		p.advance()
		return &ast.NoneLit{S: tok.Span}
	case lexer.TokenLParen:
		p.advance()
		x := p.parseExpr()
		p.expect(lexer.TokenRParen, "expected `)`")
		return x
	case lexer.TokenLBracket:
		p.advance()
		lst := &ast.ListExpr{S: tok.Span}
		if !p.at(lexer.TokenRBracket) {
			for {
				lst.Elems = append(lst.Elems, p.parseExpr())
				if p.match(lexer.TokenComma) {
					if p.at(lexer.TokenRBracket) {
						break
					}
					continue
				}
				break
			}
		}
		rb := p.expect(lexer.TokenRBracket, "expected `]`")
		lst.S = source.Join(tok.Span, rb.Span)
		return lst
	case lexer.TokenLBrace:
		return p.parseDict()
	}
	p.errorHere("expected expression")
	return nil
}

func (p *parser) parseDict() ast.Expr {
	lb := p.advance()
	d := &ast.DictExpr{S: lb.Span}
	if p.at(lexer.TokenRBrace) {
		rb := p.advance()
		d.S = source.Join(lb.Span, rb.Span)
		return d
	}
	for {
		key := p.parseExpr()
		if len(d.Keys) == 0 && !p.at(lexer.TokenColon) {
			p.errorHere("set literals are not supported")
		}
		p.expect(lexer.TokenColon, "expected `:` in dict literal")
		val := p.parseExpr()
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, val)
		if p.match(lexer.TokenComma) {
			if p.at(lexer.TokenRBrace) {
				break
			}
			continue
		}
		break
	}
	rb := p.expect(lexer.TokenRBrace, "expected `}`")
	d.S = source.Join(lb.Span, rb.Span)
	return d
}

// parseFString assembles the FStringStart..FStringEnd token group. Each
// placeholder carries its own sub-stream, parsed as a standalone
// expression.
func (p *parser) parseFString() ast.Expr {
	start := p.expect(lexer.TokenFStringStart, "expected f-string")
	lit := &ast.FStrLit{S: start.Span}
	for {
		tok := p.peek()
		switch tok.Kind {
		case lexer.TokenFStringMiddle:
			p.advance()
			lit.Parts = append(lit.Parts, &ast.FStrText{Text: tok.Value})
		case lexer.TokenFStringExpr:
			p.advance()
			sub := &parser{file: p.file, toks: tok.Sub, fnDepth: p.fnDepth}
			x := sub.parseExpr()
			sub.expect(lexer.TokenEOF, "expected end of f-string expression")
			lit.Parts = append(lit.Parts, &ast.FStrExpr{X: x})
		case lexer.TokenFStringEnd:
			p.advance()
			lit.S = source.Join(start.Span, tok.Span)
			return lit
		default:
			p.errorHere("malformed f-string")
		}
	}
}

// ───────────────────────── helpers ─────────────────────────

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *parser) peekN(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) prev() lexer.Token { return p.toks[p.pos-1] }

func (p *parser) at(k lexer.Kind) bool { return p.peek().Kind == k }

func (p *parser) match(k lexer.Kind) bool {
	if p.at(k) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) advance() lexer.Token {
	t := p.peek()
	if t.Kind != lexer.TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k lexer.Kind, msg string) lexer.Token {
	if p.at(k) {
		return p.advance()
	}
	p.errorHere("%s, got `%s`", msg, p.peek().Kind)
	return lexer.Token{}
}

func (p *parser) errorHere(format string, args ...any) {
	p.errorAt(p.peek().Span, format, args...)
}

func (p *parser) errorAt(s source.Span, format string, args ...any) {
	panic(diag.Errorf(diag.Parser, s, format, args...))
}
