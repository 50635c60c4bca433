// Package loader reads bot definitions from YAML files.
//
// A definition directory holds any number of *.yaml / *.yml files, each
// either a single dialog or a document with a dialogs list, plus optional
// *.tmpl files registered as named templates:
//
//	root: main
//	intents:
//	  - intent: JokeIntent
//	    pattern: (?i)\bjoke\b
//	dialogs:
//	  - id: main
//	    rules:
//	      - intent: JokeIntent
//	        steps:
//	          - call: joke
//	      - fallback: true
//	        steps:
//	          - send: "Ask me for a joke."
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/compiler"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/recognizers"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/templates"
)

// Definition is a loaded bot.
type Definition struct {
	Root      string
	Dialogs   []domain.Dialog
	Intents   []recognizers.IntentPattern
	Templates map[string]string

	// Files lists the definition files read, in load order.
	Files []string
}

// Load reads a definition from a file or a directory.
func Load(p string) (*Definition, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(p), ".")
	}
	return LoadFS(os.DirFS(filepath.Dir(p)), filepath.Base(p))
}

// LoadFS reads a definition rooted at name, which may be a file or a
// directory walked recursively.
func LoadFS(fsys fs.FS, name string) (*Definition, error) {
	files, err := collect(fsys, name)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no definition files found in %s", name)
	}

	def := &Definition{Templates: make(map[string]string)}
	parser := compiler.NewParser()
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}

		if strings.HasSuffix(f, ".tmpl") {
			base := path.Base(f)
			def.Templates[strings.TrimSuffix(base, ".tmpl")] = string(data)
			continue
		}

		meta, err := parser.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		dialogs, err := parser.Dialogs(meta)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if meta.Root != "" {
			if def.Root != "" && def.Root != meta.Root {
				return nil, fmt.Errorf("%s: root %q conflicts with %q", f, meta.Root, def.Root)
			}
			def.Root = meta.Root
		}
		for _, im := range meta.Intents {
			def.Intents = append(def.Intents, recognizers.IntentPattern{Intent: im.Intent, Pattern: im.Pattern})
		}
		for k, v := range meta.Templates {
			def.Templates[k] = v
		}
		def.Dialogs = append(def.Dialogs, dialogs...)
		def.Files = append(def.Files, f)
	}

	if len(def.Dialogs) == 0 {
		return nil, fmt.Errorf("definition declares no dialogs")
	}
	if def.Root == "" {
		def.Root = def.Dialogs[0].ID
	}
	return def, nil
}

func collect(fsys fs.FS, name string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, name, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != name && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		switch path.Ext(p) {
		case ".yaml", ".yml", ".json", ".tmpl":
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Recognizer builds a regex recognizer from the declared intents, or
// returns nil when there are none.
func (d *Definition) Recognizer() (*recognizers.Regex, error) {
	if len(d.Intents) == 0 {
		return nil, nil
	}
	return recognizers.NewRegex(d.Intents...)
}

// TemplateEngine builds a template engine with the named templates
// registered.
func (d *Definition) TemplateEngine(opts ...templates.Option) (*templates.Engine, error) {
	eng := templates.New(opts...)
	names := make([]string, 0, len(d.Templates))
	for k := range d.Templates {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := eng.Register(name, d.Templates[name]); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// Options returns the bot options wiring dialogs, recognizer and templates.
func (d *Definition) Options(tmplOpts ...templates.Option) ([]botbuilder.Option, error) {
	tmpl, err := d.TemplateEngine(tmplOpts...)
	if err != nil {
		return nil, err
	}
	opts := []botbuilder.Option{
		botbuilder.WithDialogs(d.Dialogs...),
		botbuilder.WithRootDialog(d.Root),
		botbuilder.WithTemplates(tmpl),
	}
	rec, err := d.Recognizer()
	if err != nil {
		return nil, err
	}
	if rec != nil {
		opts = append(opts, botbuilder.WithRecognizer(rec))
	}
	return opts, nil
}
