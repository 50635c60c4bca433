// Package templates renders outbound text with text/template.
//
// A reference is either the name of a registered template or an inline
// template body. Scopes are the template data, so "{{.user.name}}" reads the
// user scope.
package templates

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// Engine implements ports.Templates.
type Engine struct {
	mu      sync.RWMutex
	named   map[string]*template.Template
	inline  map[string]*template.Template
	funcs   template.FuncMap
	missing string
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrict makes references to missing properties fail instead of
// rendering as empty.
func WithStrict() Option {
	return func(e *Engine) {
		e.missing = "missingkey=error"
	}
}

// WithFuncs adds template functions.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		named:   make(map[string]*template.Template),
		inline:  make(map[string]*template.Template),
		funcs:   defaultFuncs(),
		missing: "missingkey=default",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"default": func(def, v any) any {
			if v == nil || v == "" {
				return def
			}
			return v
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []any) string {
			parts := make([]string, len(items))
			for i, it := range items {
				parts[i] = fmt.Sprint(it)
			}
			return strings.Join(parts, sep)
		},
	}
}

func (e *Engine) parse(name, body string) (*template.Template, error) {
	t, err := template.New(name).
		Funcs(e.funcs).
		Funcs(template.FuncMap{orEmptyFunc: orEmpty}).
		Option(e.missing).
		Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTemplate, name, err)
	}
	for _, tmpl := range t.Templates() {
		if tmpl.Tree != nil {
			pipeOrEmpty(tmpl.Tree, tmpl.Tree.Root)
		}
	}
	return t, nil
}

// orEmptyFunc ends every printing action, so missing and null values
// print nothing.
const orEmptyFunc = "orEmpty"

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// pipeOrEmpty appends orEmpty to the pipeline of each printing action
// under node.
func pipeOrEmpty(tree *parse.Tree, node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			pipeOrEmpty(tree, c)
		}
	case *parse.ActionNode:
		if len(n.Pipe.Decl) > 0 {
			return
		}
		fn := parse.NewIdentifier(orEmptyFunc).SetTree(tree).SetPos(n.Pos)
		n.Pipe.Cmds = append(n.Pipe.Cmds, &parse.CommandNode{
			NodeType: parse.NodeCommand,
			Pos:      n.Pos,
			Args:     []parse.Node{fn},
		})
	case *parse.IfNode:
		pipeOrEmpty(tree, n.List)
		pipeOrEmpty(tree, n.ElseList)
	case *parse.RangeNode:
		pipeOrEmpty(tree, n.List)
		pipeOrEmpty(tree, n.ElseList)
	case *parse.WithNode:
		pipeOrEmpty(tree, n.List)
		pipeOrEmpty(tree, n.ElseList)
	}
}

// Register adds a named template.
func (e *Engine) Register(name, body string) error {
	t, err := e.parse(name, body)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.named[name] = t
	return nil
}

// LoadFS registers every file matching pattern, named after the file
// without its extension ("greeting.tmpl" registers "greeting").
func (e *Engine) LoadFS(fsys fs.FS, pattern string) error {
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := fs.ReadFile(fsys, f)
		if err != nil {
			return err
		}
		base := path.Base(f)
		name := strings.TrimSuffix(base, path.Ext(base))
		if err := e.Register(name, string(body)); err != nil {
			return err
		}
	}
	return nil
}

// Names lists registered template names.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.named))
	for k := range e.named {
		out = append(out, k)
	}
	return out
}

// Render implements ports.Templates.
func (e *Engine) Render(ctx context.Context, ref string, scopes ports.Scopes) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t, err := e.lookup(ref)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]any(scopes)); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTemplate, err)
	}
	return buf.String(), nil
}

func (e *Engine) lookup(ref string) (*template.Template, error) {
	e.mu.RLock()
	t, ok := e.named[ref]
	if !ok {
		t, ok = e.inline[ref]
	}
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := e.parse("inline", ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.inline[ref] = t
	e.mu.Unlock()
	return t, nil
}
